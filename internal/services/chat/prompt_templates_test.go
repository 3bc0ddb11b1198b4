package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/respondeo/internal/models"
)

func TestBuildAnswerSystemPrompt(t *testing.T) {
	prompt := buildAnswerSystemPrompt("<source='faq.pdf', page=2>\nRefunds within 30 days", "What is the refund window?")

	assert.Contains(t, prompt, "<source='report.pdf', page=3>")
	assert.Contains(t, prompt, "<reference='Pricing', url='https://example.com/pricing'>")
	assert.Contains(t, prompt, `reply exactly "`+models.NotFoundAnswer+`"`)
	assert.Contains(t, prompt, "Refunds within 30 days")
	assert.Contains(t, prompt, "What is the refund window?")
}

func TestBuildAnswerSystemPrompt_NoEvidence(t *testing.T) {
	prompt := buildAnswerSystemPrompt("  ", "Anything?")
	assert.Contains(t, prompt, noEvidenceContext)
}
