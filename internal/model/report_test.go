package model

import "testing"

func TestSummarize(t *testing.T) {
	rescued := NewVerdict(Claim{ID: "b"}, ReasonVerified, ClaimTypeFactual)
	rescued.Rescued = true

	s := Summarize([]Verdict{
		NewVerdict(Claim{ID: "a"}, ReasonVerified, ClaimTypeFactual),
		rescued,
		NewVerdict(Claim{ID: "c"}, ReasonNotRelevant, ClaimTypeFactual),
		NewVerdict(Claim{ID: "d"}, ReasonNotRelevant, ClaimTypeMixed),
		NewVerdict(Claim{ID: "e"}, ReasonVague, ClaimTypeSpeculative),
	})

	if s.Total != 5 || s.Accepted != 2 || s.Rejected != 3 || s.Rescued != 1 {
		t.Errorf("Unexpected summary: %+v", s)
	}

	codes := s.Codes()
	want := []ReasonCode{ReasonNotRelevant, ReasonVerified, ReasonVague}
	if len(codes) != len(want) {
		t.Fatalf("Expected %d codes, got %v", len(want), codes)
	}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("code %d: expected %s, got %s", i, want[i], codes[i])
		}
	}
}
