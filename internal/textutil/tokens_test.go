package textutil

import (
	"reflect"
	"testing"
)

func TestKeyTerms(t *testing.T) {
	got := KeyTerms("The sky is blue, and the SKY is big.")
	want := []string{"sky", "blue", "big"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestKeyTerms_DropsShortWords(t *testing.T) {
	got := KeyTerms("AI is on TV")
	if len(got) != 0 {
		t.Errorf("Expected no key terms, got %v", got)
	}
}

func TestSharedTerms(t *testing.T) {
	got := SharedTerms([]string{"sky", "color"}, []string{"sky", "blue"})
	if !reflect.DeepEqual(got, []string{"sky"}) {
		t.Errorf("Expected [sky], got %v", got)
	}
}

func TestCountTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"The sky is blue.", 5},
		{"The sky is blue", 4},
		{"Water is wet", 3},
		{"  spaced   out  words ", 3},
		{"...", 1},
		{"", 0},
	}

	for _, tt := range tests {
		if got := CountTokens(tt.text); got != tt.want {
			t.Errorf("CountTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestContainsPhrase(t *testing.T) {
	tests := []struct {
		text   string
		phrase string
		want   bool
	}{
		{"It seems to work", "seems to", true},
		{"It seems\n  to work", "seems to", true},
		{"Mayor of the town", "may", false},
		{"Therefore, it rains.", "therefore", true},
		{"because", "because of", false},
		{"anything", "", false},
	}

	for _, tt := range tests {
		if got := ContainsPhrase(tt.text, tt.phrase); got != tt.want {
			t.Errorf("ContainsPhrase(%q, %q) = %v, want %v", tt.text, tt.phrase, got, tt.want)
		}
	}
}
