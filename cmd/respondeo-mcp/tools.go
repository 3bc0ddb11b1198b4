package main

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createAskTool returns the ask tool definition
func createAskTool() mcp.Tool {
	return mcp.NewTool("ask",
		mcp.WithDescription("Answer a question from the indexed documents, falling back to Wikipedia when they do not contain the answer"),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The question to answer; follow-ups may refer to earlier turns of the session"),
		),
		mcp.WithString("session_id",
			mcp.Description("Conversation session id (default: \"mcp\")"),
		),
		mcp.WithBoolean("include_evidence",
			mcp.Description("Append the evidence snippets the answer was based on"),
		),
	)
}

// createIngestURLTool returns the ingest_url tool definition
func createIngestURLTool() mcp.Tool {
	return mcp.NewTool("ingest_url",
		mcp.WithDescription("Fetch a web page and add it to the indexed documents"),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Absolute http or https URL"),
		),
	)
}

// createHistoryTool returns the history tool definition
func createHistoryTool() mcp.Tool {
	return mcp.NewTool("history",
		mcp.WithDescription("Show the conversation history of a session"),
		mcp.WithString("session_id",
			mcp.Description("Conversation session id (default: \"mcp\")"),
		),
	)
}
