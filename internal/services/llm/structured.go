package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

// structuredAnswerInstruction is appended to the system prompt for providers
// without native response schemas
const structuredAnswerInstruction = `Respond with ONLY a JSON object of the form {"answer": "<string>", "is_answer_found": <boolean>}. Do not wrap it in Markdown and do not add any other text.`

// rawStructuredAnswer uses pointers so that missing fields are detected
type rawStructuredAnswer struct {
	Answer *string `json:"answer"`
	Found  *bool   `json:"is_answer_found"`
}

// ParseStructuredAnswer decodes a model reply into a StructuredAnswer.
// Markdown code fences and text around the JSON object are tolerated; a
// missing field or a non-JSON reply is an ErrGeneration.
func ParseStructuredAnswer(text string) (*models.StructuredAnswer, error) {
	payload := extractJSONObject(text)
	if payload == "" {
		return nil, fmt.Errorf("%w: reply is not a JSON object: %q", interfaces.ErrGeneration, truncate(text, 120))
	}

	var raw rawStructuredAnswer
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("%w: malformed structured answer: %w", interfaces.ErrGeneration, err)
	}
	if raw.Answer == nil {
		return nil, fmt.Errorf("%w: structured answer is missing \"answer\"", interfaces.ErrGeneration)
	}
	if raw.Found == nil {
		return nil, fmt.Errorf("%w: structured answer is missing \"is_answer_found\"", interfaces.ErrGeneration)
	}

	return &models.StructuredAnswer{
		Answer: strings.TrimSpace(*raw.Answer),
		Found:  *raw.Found,
	}, nil
}

// extractJSONObject returns the outermost {...} span of text, or "" when there is none
func extractJSONObject(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return ""
	}
	return text[start : end+1]
}

// withStructuredInstruction appends the JSON-only instruction to the system
// message, adding one when the conversation has none.
func withStructuredInstruction(messages []interfaces.Message) []interfaces.Message {
	out := make([]interfaces.Message, 0, len(messages)+1)
	instructed := false
	for _, msg := range messages {
		if msg.Role == "system" && !instructed {
			msg.Content = msg.Content + "\n\n" + structuredAnswerInstruction
			instructed = true
		}
		out = append(out, msg)
	}
	if !instructed {
		out = append([]interfaces.Message{{Role: "system", Content: structuredAnswerInstruction}}, out...)
	}
	return out
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
