package model

import (
	"sort"
	"time"
)

// RunReport is the outcome of verifying one batch
type RunReport struct {
	RunID     string     `json:"run_id"`
	Source    string     `json:"source,omitempty"` // Batch file, if any
	Task      string     `json:"task"`
	StartedAt time.Time  `json:"started_at"`
	Duration  string     `json:"duration"`
	Verdicts  []Verdict  `json:"verdicts"`
	Summary   RunSummary `json:"summary"`
}

// RunSummary counts verdicts by outcome
type RunSummary struct {
	Total        int                `json:"total"`
	Accepted     int                `json:"accepted"`
	Rejected     int                `json:"rejected"`
	Rescued      int                `json:"rescued"`
	ByCode       map[ReasonCode]int `json:"by_code"`
	CacheHitRate *float64           `json:"cache_hit_rate,omitempty"` // Absent when caching is disabled
}

// Summarize counts verdicts
func Summarize(verdicts []Verdict) RunSummary {
	s := RunSummary{
		Total:  len(verdicts),
		ByCode: make(map[ReasonCode]int),
	}
	for _, v := range verdicts {
		s.ByCode[v.Code]++
		if v.IsValid {
			s.Accepted++
			if v.Rescued {
				s.Rescued++
			}
		} else {
			s.Rejected++
		}
	}
	return s
}

// Codes returns the codes present in the summary, most frequent first
func (s RunSummary) Codes() []ReasonCode {
	codes := make([]ReasonCode, 0, len(s.ByCode))
	for code := range s.ByCode {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		if s.ByCode[codes[i]] != s.ByCode[codes[j]] {
			return s.ByCode[codes[i]] > s.ByCode[codes[j]]
		}
		return codes[i] < codes[j]
	})
	return codes
}
