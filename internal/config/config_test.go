package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromPath_CreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "caretaker", "config.yaml")

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.FileExists(t, path)
	assert.Equal(t, ":8180", cfg.Server.Addr)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.CloudModel)
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
	assert.Equal(t, "realtime", cfg.Voice.Subprotocol)
	assert.False(t, cfg.LLM.UseLocal)
}

func TestLoadFromPath_ReadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  addr: ":9999"
llm:
  use_local: true
  local_model: mistral
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.True(t, cfg.LLM.UseLocal)
	assert.Equal(t, "mistral", cfg.LLM.LocalModel)
}

func TestLoadFromPath_SparseFileGetsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":9000\"\n"), 0o644))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "http://127.0.0.1:11434", cfg.LLM.LocalEndpoint)
	assert.Equal(t, 5, cfg.Search.MaxResults)
	assert.Equal(t, 10*time.Second, cfg.Voice.ResponseBudget)
	assert.Equal(t, 500*time.Millisecond, cfg.Server.SSEPollInterval)
	assert.NotEmpty(t, cfg.Logging.Level)
}

func TestLoadFromPath_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{{not yaml"), 0o644))

	_, err := LoadFromPath(path)
	assert.Error(t, err)
}

func TestDefault_RoundTripsThroughFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, writeConfigFile(path, Default()))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Server.Addr, cfg.Server.Addr)
	assert.Equal(t, Default().Medical.Endpoint, cfg.Medical.Endpoint)
}
