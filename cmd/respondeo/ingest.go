package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ternarybob/respondeo/internal/app"
	"github.com/ternarybob/respondeo/internal/interfaces"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file|url]...",
	Short: "Index documents and web pages",
	Long: `Splits PDF, text and markdown files or web pages into chunks and adds them
to the configured corpus. Sources are processed in order; the first failure stops the run.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	application, err := app.New(config, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	out := cmd.OutOrStdout()
	for _, source := range args {
		var result *interfaces.IngestResult
		if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
			result, err = application.IngestService.IngestURL(cmd.Context(), source)
		} else {
			result, err = application.IngestService.IngestPath(cmd.Context(), source)
		}
		if err != nil {
			return fmt.Errorf("failed to ingest %s: %w", source, err)
		}
		fmt.Fprintf(out, "%s: %d pages, %d chunks\n", result.SourceID, result.Pages, result.Chunks)
	}

	stats := application.Index.Stats()
	fmt.Fprintf(out, "corpus %s now holds %d chunks\n", stats.Corpus, stats.Entries)
	return nil
}
