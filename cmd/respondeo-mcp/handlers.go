package main

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/interfaces"
)

const defaultSessionID = "mcp"

// handleAsk implements the ask tool
func handleAsk(chatService interfaces.ChatService, timeout time.Duration, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := request.RequireString("question")
		if err != nil || question == "" {
			return mcp.NewToolResultError("Error: question parameter is required"), nil
		}
		sessionID := request.GetString("session_id", defaultSessionID)
		includeEvidence := request.GetBool("include_evidence", false)

		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		result, err := chatService.Ask(ctx, sessionID, question)
		if err != nil {
			logger.Error().Err(err).Str("session_id", sessionID).Msg("Ask failed")
			return mcp.NewToolResultError(fmt.Sprintf("Ask error: %v", err)), nil
		}

		return mcp.NewToolResultText(formatAnswer(result, includeEvidence)), nil
	}
}

// handleIngestURL implements the ingest_url tool
func handleIngestURL(ingestService interfaces.IngestService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		rawURL, err := request.RequireString("url")
		if err != nil || rawURL == "" {
			return mcp.NewToolResultError("Error: url parameter is required"), nil
		}

		result, err := ingestService.IngestURL(ctx, rawURL)
		if err != nil {
			logger.Error().Err(err).Str("url", rawURL).Msg("Ingest failed")
			return mcp.NewToolResultError(fmt.Sprintf("Ingest error: %v", err)), nil
		}

		return mcp.NewToolResultText(formatIngestResult(result)), nil
	}
}

// handleHistory implements the history tool
func handleHistory(chatService interfaces.ChatService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID := request.GetString("session_id", defaultSessionID)

		turns, err := chatService.History(ctx, sessionID)
		if err != nil {
			logger.Error().Err(err).Str("session_id", sessionID).Msg("History failed")
			return mcp.NewToolResultError(fmt.Sprintf("History error: %v", err)), nil
		}

		return mcp.NewToolResultText(formatHistory(sessionID, turns)), nil
	}
}
