package chat

import (
	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/models"
)

// SufficiencyPolicy decides whether a primary answer is accepted or the
// question escalates to the secondary source. It must be a pure function of
// its inputs.
type SufficiencyPolicy interface {
	Accept(answer *models.StructuredAnswer, evidence []models.TextChunk) bool
	Name() string
}

// ConfidencePolicy accepts whenever the model reports the answer was found
type ConfidencePolicy struct{}

func (ConfidencePolicy) Accept(answer *models.StructuredAnswer, _ []models.TextChunk) bool {
	return answer != nil && answer.Found
}

func (ConfidencePolicy) Name() string { return string(common.SufficiencyConfidence) }

// LengthPolicy additionally requires a minimum amount of primary evidence
type LengthPolicy struct {
	MinContextChars int
}

func (p LengthPolicy) Accept(answer *models.StructuredAnswer, evidence []models.TextChunk) bool {
	if answer == nil || !answer.Found {
		return false
	}
	return models.ContentLength(evidence) >= p.MinContextChars
}

func (LengthPolicy) Name() string { return string(common.SufficiencyLength) }

// NewSufficiencyPolicy maps the configured policy name to an implementation.
// Unknown names fall back to the confidence policy.
func NewSufficiencyPolicy(config *common.ChatConfig) SufficiencyPolicy {
	if config != nil && config.SufficiencyPolicy == common.SufficiencyLength {
		return LengthPolicy{MinContextChars: config.MinContextChars}
	}
	return ConfidencePolicy{}
}
