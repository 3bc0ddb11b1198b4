package badger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
)

func TestLoadEnvFile(t *testing.T) {
	db := openTestDB(t)
	logger := arbor.NewLogger()
	manager := &Manager{db: db, kv: NewKVStorage(db, logger), logger: logger}
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), ".env")
	content := `# keys
GEMINI_API_KEY="gm-123"
export ANTHROPIC_API_KEY='sk-456'
BROKEN_LINE
EMPTY=
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	require.NoError(t, manager.LoadEnvFile(ctx, path))

	value, err := manager.kv.Get(ctx, "gemini_api_key")
	require.NoError(t, err)
	assert.Equal(t, "gm-123", value)

	value, err = manager.kv.Get(ctx, "anthropic_api_key")
	require.NoError(t, err)
	assert.Equal(t, "sk-456", value)

	_, err = manager.kv.Get(ctx, "empty")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)
}

func TestLoadEnvFile_Missing(t *testing.T) {
	db := openTestDB(t)
	logger := arbor.NewLogger()
	manager := &Manager{db: db, kv: NewKVStorage(db, logger), logger: logger}

	assert.NoError(t, manager.LoadEnvFile(context.Background(), filepath.Join(t.TempDir(), "missing.env")))
}

func TestLoadEnvFile_ProviderKeyNames(t *testing.T) {
	for _, name := range []string{"RESPONDEO_GEMINI_API_KEY", "GOOGLE_API_KEY", "RESPONDEO_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"} {
		t.Setenv(name, "")
	}

	db := openTestDB(t)
	logger := arbor.NewLogger()
	manager := &Manager{db: db, kv: NewKVStorage(db, logger), logger: logger}
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), ".env")
	content := "GOOGLE_API_KEY=secret-from-dotenv\nCLAUDE_API_KEY=claude-from-dotenv\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	require.NoError(t, manager.LoadEnvFile(ctx, path))

	key, err := common.ResolveAPIKey(ctx, manager.kv, "gemini_api_key", "")
	require.NoError(t, err)
	assert.Equal(t, "secret-from-dotenv", key)

	key, err = common.ResolveAPIKey(ctx, manager.kv, "anthropic_api_key", "")
	require.NoError(t, err)
	assert.Equal(t, "claude-from-dotenv", key)
}
