package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "praeco.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "development", config.Environment)
	assert.Equal(t, "praeco_jobs", config.Queue.QueueName)
	assert.Equal(t, 50, config.Classification.BatchSize)
	assert.Equal(t, 0.8, config.Intervention.ProtectedThreshold)
	assert.Equal(t, 0.5, config.Intervention.MonitoringThreshold)
	assert.True(t, config.Moderation.Enabled)
	assert.Equal(t, LLMProviderClaude, config.LLM.DefaultProvider)
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
environment = "production"

[classification]
batch_size = 10

[moderation]
enabled = false

[llm]
default_provider = "gemini"
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "production", config.Environment)
	assert.Equal(t, 10, config.Classification.BatchSize)
	assert.False(t, config.Moderation.Enabled)
	assert.Equal(t, LLMProviderGemini, config.LLM.DefaultProvider)

	// Untouched sections keep their defaults
	assert.Equal(t, 50, config.Generation.BatchSize)
}

func TestLoadConfig_LaterFileWins(t *testing.T) {
	first := writeConfigFile(t, `
[classification]
batch_size = 10
`)
	second := writeConfigFile(t, `
[classification]
batch_size = 25
`)

	config, err := LoadConfig(first, second)
	require.NoError(t, err)
	assert.Equal(t, 25, config.Classification.BatchSize)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/praeco.toml")
	assert.Error(t, err)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("PRAECO_ENV", "staging")
	t.Setenv("PRAECO_MODERATION_ENABLED", "false")
	t.Setenv("PRAECO_LLM_PROVIDER", "gemini")

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "staging", config.Environment)
	assert.False(t, config.Moderation.Enabled)
	assert.Equal(t, LLMProviderGemini, config.LLM.DefaultProvider)
}

func TestValidate_ThresholdOrdering(t *testing.T) {
	config := NewDefaultConfig()
	config.Intervention.ProtectedThreshold = 0.4
	config.Intervention.MonitoringThreshold = 0.5

	err := config.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "civil_discourse_protected")
}

func TestValidate_ThresholdRange(t *testing.T) {
	config := NewDefaultConfig()
	config.Intervention.ProtectedThreshold = 1.5

	assert.Error(t, config.Validate())
}

func TestValidate_BadDuration(t *testing.T) {
	config := NewDefaultConfig()
	config.Moderation.Timeout = "two minutes"

	err := config.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "moderation.timeout")
}

func TestValidate_BatchSize(t *testing.T) {
	config := NewDefaultConfig()
	config.Classification.BatchSize = 0

	assert.Error(t, config.Validate())
}

func TestMustDuration(t *testing.T) {
	assert.Equal(t, 500*time.Millisecond, MustDuration("500ms"))
	assert.Equal(t, time.Duration(0), MustDuration("garbage"))
}
