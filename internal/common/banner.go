package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and logs the effective runtime settings
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.PrintSimple("Respondeo", GetVersion())

	logger.Info().
		Str("version", GetFullVersion()).
		Str("environment", config.Environment).
		Str("provider", string(config.LLM.DefaultProvider)).
		Str("corpus", config.Index.Corpus).
		Str("sufficiency_policy", string(config.Chat.SufficiencyPolicy)).
		Bool("secondary_enabled", config.Chat.SecondaryEnabled).
		Msg("Respondeo starting")
}
