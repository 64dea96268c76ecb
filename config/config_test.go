package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, 0.7, cfg.Temperature)
	assert.Equal(t, 4096, cfg.MaxTokens)
	assert.Equal(t, 3, cfg.Workflow.MaxIterations)
	assert.Equal(t, 50, cfg.Workflow.MaxRounds)
	assert.Equal(t, "memory", cfg.Session.Provider)
	assert.Equal(t, 100, cfg.Runtime.EventBufferSize)
	assert.True(t, cfg.Runtime.EnableStreaming)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_StreamingDefaultsOnAndCanBeDisabled(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
provider: openai
`))
	require.NoError(t, err)
	assert.True(t, cfg.Runtime.EnableStreaming, "absent key keeps streaming on")

	cfg, err = Load(writeConfig(t, `
runtime:
  enable_streaming: false
`))
	require.NoError(t, err)
	assert.False(t, cfg.Runtime.EnableStreaming)
}

func TestLoad_OverridesAndDefaults(t *testing.T) {
	path := writeConfig(t, `
provider: anthropic
model: claude-3-5-sonnet-20241022
temperature: 0.2
workflow:
  max_iterations: 5
session:
  provider: redis
  redis_addr: redis:6379
  prefix: "docs:"
artifact_dir: ./out
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, "claude-3-5-sonnet-20241022", cfg.Model)
	assert.Equal(t, 0.2, cfg.Temperature)
	assert.Equal(t, 5, cfg.Workflow.MaxIterations)
	assert.Equal(t, 50, cfg.Workflow.MaxRounds, "unset fields keep defaults")
	assert.Equal(t, "redis", cfg.Session.Provider)
	assert.Equal(t, "redis:6379", cfg.Session.RedisAddr)
	assert.Equal(t, "docs:", cfg.Session.Prefix)
	assert.Equal(t, "./out", cfg.ArtifactDir)
}

func TestLoad_EnvFallbackForKeys(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("ANTHROPIC_API_KEY", "ak-env")

	path := writeConfig(t, `
openai_key: sk-file
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-file", cfg.OpenAIKey, "file value wins over env")
	assert.Equal(t, "ak-env", cfg.AnthropicKey, "env fills missing keys")
}

func TestLoad_InvalidProvider(t *testing.T) {
	path := writeConfig(t, `
provider: cohere
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported provider")
}

func TestLoad_InvalidSessionProvider(t *testing.T) {
	path := writeConfig(t, `
session:
  provider: dynamo
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported session provider")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Model = "gpt-4o-mini"
	cfg.Workflow.MaxIterations = 4

	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", loaded.Model)
	assert.Equal(t, 4, loaded.Workflow.MaxIterations)
}
