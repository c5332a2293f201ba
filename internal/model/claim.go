package model

import "strings"

// Claim represents a factual statement extracted from a source snippet
type Claim struct {
	ID                 string   `json:"id" yaml:"id"`                                                         // Unique within a run
	Statement          string   `json:"statement" yaml:"statement"`                                           // The claim text itself
	SupportText        string   `json:"support_text,omitempty" yaml:"support_text,omitempty"`                 // Source snippet the claim was extracted from
	SourceURL          string   `json:"source_url,omitempty" yaml:"source_url,omitempty"`                     // Where the snippet came from
	SourceTitle        string   `json:"source_title,omitempty" yaml:"source_title,omitempty"`                 // Page title of the source
	SourceRank         int      `json:"source_rank,omitempty" yaml:"source_rank,omitempty"`                   // 1-indexed position in search results
	SourceNodeID       string   `json:"source_node_id,omitempty" yaml:"source_node_id,omitempty"`             // Provenance tag of the research node
	Confidence         float64  `json:"confidence" yaml:"confidence"`                                         // 0-1, set by extraction, revised by verification
	DiscoveredEntities []string `json:"discovered_entities,omitempty" yaml:"discovered_entities,omitempty"`   // Entities found in the statement
	ExtractedAt        string   `json:"extracted_at,omitempty" yaml:"extracted_at,omitempty"`                 // ISO-8601 UTC timestamp
}

// HasSupport reports whether the claim carries a non-blank support snippet
func (c Claim) HasSupport() bool {
	return strings.TrimSpace(c.SupportText) != ""
}

// ClaimType categorizes the epistemic nature of a claim
type ClaimType string

const (
	ClaimTypeFactual     ClaimType = "factual"     // Stated as fact
	ClaimTypeSpeculative ClaimType = "speculative" // Hedged language dominates
	ClaimTypeMixed       ClaimType = "mixed"       // Both factual and speculative markers
)
