package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "AI_PROVIDER", "ARK_API_KEY", "ARK_ACCESS_KEY", "ARK_SECRET_KEY", "Model",
		"GEMINI_API_KEY", "GEMINI_MODEL", "AI_STREAM", "AI_TEMPERATURE", "HISTORY_LIMIT",
		"STORE_DRIVER", "STORE_DSN", "RENDER_CACHE_SIZE", "RENDER_ENFORCE_POLICY",
		"RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("LEGALEASE_CONFIG", filepath.Join(t.TempDir(), "absent.toml"))
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.Equal(t, ProviderArk, cfg.AI.Provider)
	assert.False(t, cfg.AI.Enabled())
	assert.Equal(t, 6, cfg.AI.HistoryLimit)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 512, cfg.Render.CacheSize)
	assert.True(t, cfg.Render.EnforcePolicy)
}

func TestLoadFileThenEnv(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "legalease.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
addr = ":9000"

[ai]
provider = "gemini"
gemini_api_key = "from-file"
temperature = 0.2

[store]
driver = "sqlite"
dsn = "legalease.db"

[render]
cache_size = 64
`), 0o600))
	t.Setenv("LEGALEASE_CONFIG", path)
	t.Setenv("PORT", "8081")
	t.Setenv("RENDER_ENFORCE_POLICY", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.Server.Addr)
	assert.Equal(t, ProviderGemini, cfg.AI.Provider)
	assert.True(t, cfg.AI.Enabled())
	require.NotNil(t, cfg.AI.Temperature)
	assert.InDelta(t, 0.2, *cfg.AI.Temperature, 1e-9)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 64, cfg.Render.CacheSize)
	assert.False(t, cfg.Render.EnforcePolicy)
}

func TestLoadPicksGeminiWhenOnlyGeminiKey(t *testing.T) {
	isolate(t)
	t.Setenv("GEMINI_API_KEY", "key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, cfg.AI.Provider)
}

func TestLoadRejectsBadValues(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "80 80")
	_, err := Load()
	assert.Error(t, err)

	isolate(t)
	t.Setenv("RATE_LIMIT_RPS", "fast")
	_, err = Load()
	assert.Error(t, err)
}

func TestArkEnabledNeedsModel(t *testing.T) {
	ai := AIConfig{Provider: ProviderArk, APIKey: "k"}
	assert.False(t, ai.Enabled())

	ai.Model = "ep-123"
	assert.True(t, ai.Enabled())

	ai = AIConfig{Provider: ProviderArk, Model: "ep-123", AccessKey: "ak"}
	assert.False(t, ai.Enabled())
	ai.SecretKey = "sk"
	assert.True(t, ai.Enabled())
}
