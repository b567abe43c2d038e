package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitDefaults(t *testing.T) {
	// No config file: defaults apply.
	require.NoError(t, Init(t.TempDir(), zap.NewNop()))

	c := Get()
	require.NotNil(t, c)
	assert.Equal(t, "polling", c.Telegram.Mode)
	assert.Equal(t, "8080", c.Server.Port)
	assert.Equal(t, "sqlite", c.Database.Driver)
	assert.Equal(t, 20, c.Limits.MaxQuestions)
	assert.Equal(t, 10, c.Limits.MaxOptions)
	assert.Equal(t, "templates", c.Templates.Directory)
}

func TestInitReadsConfigFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "config", "config.yaml"), []byte(`
telegram:
  admin_ids: [100, 101]
limits:
  max_questions: 5
`), 0o644))

	require.NoError(t, Init(root, zap.NewNop()))

	c := Get()
	assert.Equal(t, []int64{100, 101}, c.Telegram.AdminIDs)
	assert.Equal(t, 5, c.Limits.MaxQuestions)
	// Untouched sections keep their defaults.
	assert.Equal(t, "8080", c.Server.Port)
}

func TestIsAdmin(t *testing.T) {
	tc := TelegramConfig{AdminIDs: []int64{100, 101}}
	assert.True(t, tc.IsAdmin(100))
	assert.True(t, tc.IsAdmin(101))
	assert.False(t, tc.IsAdmin(200))
	assert.False(t, TelegramConfig{}.IsAdmin(100))
}

// Get hands out immutable snapshots: a reload publishes a new pointer
// rather than mutating the struct readers already hold.
func TestGetReturnsStableSnapshot(t *testing.T) {
	require.NoError(t, Init(t.TempDir(), zap.NewNop()))

	before := Get()
	current.Store(&Config{Server: ServerConfig{Port: "9999"}})
	assert.Equal(t, "8080", before.Server.Port, "held snapshot must not change under a reload")
	assert.Equal(t, "9999", Get().Server.Port)
}
