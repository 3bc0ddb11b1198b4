package badger

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// LoadEnvFile seeds the KV store from a .env file so API keys can live
// outside the config. Keys are stored lowercased, so GEMINI_API_KEY becomes
// gemini_api_key. A missing file is not an error.
// Format supported:
//   - KEY=value
//   - KEY="value" or KEY='value' (quotes stripped)
//   - # comments and empty lines are ignored
func (m *Manager) LoadEnvFile(ctx context.Context, filePath string) error {
	file, err := os.Open(filePath)
	if os.IsNotExist(err) {
		m.logger.Debug().Str("file", filePath).Msg(".env file does not exist, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filePath, err)
	}
	defer file.Close()

	loaded, skipped := 0, 0
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		value = unquote(strings.TrimSpace(value))
		if !ok || key == "" || value == "" {
			m.logger.Warn().
				Str("file", filePath).
				Int("line", lineNum).
				Msg("Skipping .env line, expected KEY=value")
			skipped++
			continue
		}

		if err := m.kv.Set(ctx, key, value, "Loaded from .env file"); err != nil {
			return fmt.Errorf("failed to store %s from %s: %w", key, filePath, err)
		}
		loaded++
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	m.logger.Info().
		Str("file", filePath).
		Int("loaded", loaded).
		Int("skipped", skipped).
		Msg("Loaded variables from .env file")

	return nil
}

func unquote(value string) string {
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return value[1 : len(value)-1]
		}
	}
	return value
}
