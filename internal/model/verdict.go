package model

// ReasonCode is the closed taxonomy of verification outcomes
type ReasonCode string

const (
	ReasonVerified ReasonCode = "VERIFIED"

	ReasonMissingSource        ReasonCode = "MISSING_SOURCE"
	ReasonMissingSupport       ReasonCode = "MISSING_SUPPORT"
	ReasonMissingTimestamp     ReasonCode = "MISSING_TIMESTAMP"
	ReasonInvalidTimestamp     ReasonCode = "INVALID_TIMESTAMP"
	ReasonVague                ReasonCode = "VAGUE"
	ReasonTooShort             ReasonCode = "TOO_SHORT"
	ReasonUnsupportedInference ReasonCode = "UNSUPPORTED_INFERENCE"
	ReasonLowGrounding         ReasonCode = "LOW_GROUNDING"
	ReasonNotVerbatim          ReasonCode = "NOT_VERBATIM"
	ReasonNotRelevant          ReasonCode = "NOT_RELEVANT"
	ReasonLowEntailment        ReasonCode = "LOW_ENTAILMENT"
	ReasonContradicted         ReasonCode = "CONTRADICTED"
)

// RejectedPrefix starts every user-facing rejection reason
const RejectedPrefix = "REJECTED: "

var reasonText = map[ReasonCode]string{
	ReasonVerified:             "VERIFIED: Supported by source and relevant to task",
	ReasonMissingSource:        RejectedPrefix + "Missing source URL",
	ReasonMissingSupport:       RejectedPrefix + "Missing support text",
	ReasonMissingTimestamp:     RejectedPrefix + "Missing extraction timestamp",
	ReasonInvalidTimestamp:     RejectedPrefix + "Invalid extraction timestamp",
	ReasonVague:                RejectedPrefix + "Vague or hedged statement",
	ReasonTooShort:             RejectedPrefix + "Statement too short",
	ReasonUnsupportedInference: RejectedPrefix + "Inference not stated in source",
	ReasonLowGrounding:         RejectedPrefix + "Low lexical grounding in source",
	ReasonNotVerbatim:          RejectedPrefix + "Statement not found verbatim in source",
	ReasonNotRelevant:          RejectedPrefix + "Not relevant to task",
	ReasonLowEntailment:        RejectedPrefix + "Entailment below threshold",
	ReasonContradicted:         RejectedPrefix + "Contradicted by source",
}

// Reason returns the fixed user-facing string for the code
func (c ReasonCode) Reason() string {
	if s, ok := reasonText[c]; ok {
		return s
	}
	return RejectedPrefix + string(c)
}

// IsRejection reports whether the code denotes a rejected claim
func (c ReasonCode) IsRejection() bool {
	return c != ReasonVerified
}

// ReasonCodes lists every rejection code in gate order followed by the decision codes
func ReasonCodes() []ReasonCode {
	return []ReasonCode{
		ReasonMissingSource,
		ReasonMissingSupport,
		ReasonMissingTimestamp,
		ReasonInvalidTimestamp,
		ReasonVague,
		ReasonTooShort,
		ReasonUnsupportedInference,
		ReasonLowGrounding,
		ReasonNotVerbatim,
		ReasonNotRelevant,
		ReasonLowEntailment,
		ReasonContradicted,
	}
}

// Verdict is the result of running one claim through the engine
type Verdict struct {
	Claim              Claim      `json:"claim"`                         // Claim with verification-revised confidence
	IsValid            bool       `json:"is_valid"`                      // Accepted into the report
	Code               ReasonCode `json:"code"`                          // Taxonomy code
	Reason             string     `json:"reason"`                        // Fixed user-facing string for Code
	EntailmentScore    float64    `json:"entailment_score"`              // 0 if never scored
	ContradictionScore *float64   `json:"contradiction_score,omitempty"` // Absent if never scored
	ClaimType          ClaimType  `json:"claim_type"`                    // Telemetry only, never affects the decision
	Rescued            bool       `json:"rescued,omitempty"`             // Accepted through subtopic bridging
	BridgeEntity       string     `json:"bridge_entity,omitempty"`       // Entity that bridged the claim
}

// NewVerdict builds a verdict for the given outcome code
func NewVerdict(claim Claim, code ReasonCode, claimType ClaimType) Verdict {
	return Verdict{
		Claim:     claim,
		IsValid:   code == ReasonVerified,
		Code:      code,
		Reason:    code.Reason(),
		ClaimType: claimType,
	}
}

// WithScore attaches a relation score to the verdict, clamping to [0,1]
func (v Verdict) WithScore(score RelationScore) Verdict {
	v.EntailmentScore = Clamp01(score.Entailment)
	contradiction := Clamp01(score.Contradiction)
	v.ContradictionScore = &contradiction
	return v
}
