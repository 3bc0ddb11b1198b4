package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/app"
	"github.com/ternarybob/respondeo/internal/common"
)

func main() {
	configPath := os.Getenv("RESPONDEO_CONFIG")
	if configPath == "" {
		if _, err := os.Stat("respondeo.toml"); err == nil {
			configPath = "respondeo.toml"
		}
	}

	config, err := common.LoadFromFile(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the MCP protocol, so logs only go to file
	config.Logging.Output = []string{"file"}
	config.Logging.Level = "warn"
	logger := common.InitLogger(config)

	application, err := app.New(config, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	mcpServer := newMCPServer(application, logger)

	// Blocks on stdio
	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Error().Err(err).Msg("MCP server failed")
	}
}

// newMCPServer registers the respondeo tools
func newMCPServer(application *app.App, logger arbor.ILogger) *server.MCPServer {
	mcpServer := server.NewMCPServer(
		"respondeo",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	timeout := common.ParseDurationOr(application.Config.Chat.RequestTimeout, 0)

	mcpServer.AddTool(createAskTool(), handleAsk(application.ChatService, timeout, logger))
	mcpServer.AddTool(createIngestURLTool(), handleIngestURL(application.IngestService, logger))
	mcpServer.AddTool(createHistoryTool(), handleHistory(application.ChatService, logger))

	return mcpServer
}
