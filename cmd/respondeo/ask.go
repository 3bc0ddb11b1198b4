package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ternarybob/respondeo/internal/app"
	"github.com/ternarybob/respondeo/internal/common"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question",
	Long: `Answers a question from the indexed corpus, escalating to Wikipedia when needed.
Reuse --session to ask follow-up questions in the same conversation.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var (
	askSession      string
	askShowEvidence bool
)

func init() {
	askCmd.Flags().StringVarP(&askSession, "session", "s", "", "Conversation session id (a new one is generated when empty)")
	askCmd.Flags().BoolVar(&askShowEvidence, "evidence", false, "Print the evidence the answer was based on")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")
	if askSession == "" {
		askSession = uuid.New().String()
	}

	application, err := app.New(config, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	timeout := common.ParseDurationOr(config.Chat.RequestTimeout, 2*time.Minute)
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	result, err := application.ChatService.Ask(ctx, askSession, question)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n%s\n\n", result.Answer)
	fmt.Fprintf(out, "session: %s  origin: %s  found: %t\n", result.SessionID, result.Origin, result.Found)
	if result.StandaloneQuestion != question {
		fmt.Fprintf(out, "standalone question: %s\n", result.StandaloneQuestion)
	}

	if askShowEvidence {
		for i, chunk := range result.Evidence {
			fmt.Fprintf(out, "\n[%d] %s", i+1, chunk.SourceID)
			if len(chunk.PageNumbers) > 0 {
				fmt.Fprintf(out, " pages %v", chunk.PageNumbers)
			}
			fmt.Fprintf(out, "\n%s\n", chunk.Content)
		}
	}

	return nil
}
