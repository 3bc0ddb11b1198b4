package chat

import (
	"fmt"
	"strings"

	"github.com/ternarybob/respondeo/internal/models"
)

// answerSystemPrompt instructs the model to answer only from the supplied
// evidence and to report whether it could.
const answerSystemPrompt = `You are an expert document assistant. Answer the user's question using ONLY the evidence provided in the Document Context below.

## Rules

1. Use only information that appears in the Document Context. Do not rely on prior knowledge.
2. Cite every fact you use with the citation line printed under its snippet, for example <source='report.pdf', page=3> for documents or <reference='Pricing', url='https://example.com/pricing'> for web pages.
3. If the Document Context does not contain the answer, reply exactly "%s" and set is_answer_found to false.
4. Set is_answer_found to true only when the Document Context supports your answer.
5. Keep the answer concise and formatted in Markdown.

## Response Format

Reply with a single JSON object and nothing else:
{"answer": "<your answer>", "is_answer_found": <true|false>}

## Document Context

%s

## Question

%s`

// condensePrompt rewrites a follow-up into a standalone question
const condensePrompt = `Given the following conversation and a follow-up question, rephrase the follow-up question to be a standalone question that can be understood without the conversation.
Do NOT answer the question. Do NOT add new information. Return ONLY the rewritten question.

Chat History:
%s

Follow-up Question: %s

Standalone Question:`

// noEvidenceContext fills the Document Context section when retrieval returned nothing
const noEvidenceContext = "(no documents matched the question)"

func buildAnswerSystemPrompt(evidence, standalone string) string {
	if strings.TrimSpace(evidence) == "" {
		evidence = noEvidenceContext
	}
	return fmt.Sprintf(answerSystemPrompt, models.NotFoundAnswer, evidence, standalone)
}

func buildCondensePrompt(question string, history []models.ConversationTurn) string {
	return fmt.Sprintf(condensePrompt, renderHistory(history), question)
}

// renderHistory prints the dialogue as Human/AI lines, oldest first
func renderHistory(history []models.ConversationTurn) string {
	lines := make([]string, 0, len(history))
	for _, turn := range history {
		speaker := "Human"
		if turn.Role == models.RoleAssistant {
			speaker = "AI"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", speaker, turn.Text))
	}
	return strings.Join(lines, "\n")
}
