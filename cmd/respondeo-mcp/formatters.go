package main

import (
	"fmt"
	"strings"

	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

// formatAnswer formats an answer as markdown
func formatAnswer(result *models.AskResult, includeEvidence bool) string {
	var sb strings.Builder
	sb.WriteString(result.Answer)
	sb.WriteString("\n\n---\n")
	sb.WriteString(fmt.Sprintf("**Session:** %s\n", result.SessionID))
	sb.WriteString(fmt.Sprintf("**Origin:** %s\n", result.Origin))
	sb.WriteString(fmt.Sprintf("**Found:** %t\n", result.Found))
	if result.StandaloneQuestion != "" && result.StandaloneQuestion != result.Question {
		sb.WriteString(fmt.Sprintf("**Standalone question:** %s\n", result.StandaloneQuestion))
	}

	if includeEvidence && len(result.Evidence) > 0 {
		sb.WriteString("\n## Evidence\n\n")
		for i, chunk := range result.Evidence {
			sb.WriteString(fmt.Sprintf("### %d. %s\n", i+1, evidenceLabel(chunk)))
			if chunk.URL != "" {
				sb.WriteString(fmt.Sprintf("**URL:** %s\n", chunk.URL))
			}
			content := chunk.Content
			if runes := []rune(content); len(runes) > 300 {
				content = string(runes[:300]) + "..."
			}
			sb.WriteString(content)
			sb.WriteString("\n\n")
		}
	}

	return sb.String()
}

func evidenceLabel(chunk models.TextChunk) string {
	label := chunk.SourceID
	if chunk.Title != "" && chunk.Title != chunk.SourceID {
		label = fmt.Sprintf("%s (%s)", chunk.Title, chunk.SourceID)
	}
	if len(chunk.PageNumbers) > 0 {
		pages := make([]string, len(chunk.PageNumbers))
		for i, p := range chunk.PageNumbers {
			pages[i] = fmt.Sprint(p)
		}
		label += ", pages " + strings.Join(pages, ",")
	}
	return label
}

// formatIngestResult formats an ingest summary
func formatIngestResult(result *interfaces.IngestResult) string {
	return fmt.Sprintf("Indexed %s: %d pages, %d chunks\n", result.SourceID, result.Pages, result.Chunks)
}

// formatHistory formats a session history as a transcript
func formatHistory(sessionID string, turns []models.ConversationTurn) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## History for session %s (%d turns)\n\n", sessionID, len(turns)))

	if len(turns) == 0 {
		sb.WriteString("No history.\n")
		return sb.String()
	}

	for _, turn := range turns {
		speaker := "Human"
		if turn.Role == models.RoleAssistant {
			speaker = "AI"
		}
		sb.WriteString(fmt.Sprintf("**%s:** %s\n\n", speaker, turn.Text))
	}

	return sb.String()
}
