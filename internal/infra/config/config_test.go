// No t.Parallel(): env vars are process-global.
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matiasleandrokruk/smartdraw/internal/infra/llm"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"SMARTDRAW_HTTP_PORT", "SMARTDRAW_LLM_KIND", "SMARTDRAW_LLM_BASE_URL", "SMARTDRAW_LLM_API_KEY",
		"SMARTDRAW_LLM_MODEL", "SMARTDRAW_CORS_ALLOWED_ORIGINS", "SMARTDRAW_MINDMAP_MAX_DEPTH",
		"SMARTDRAW_LOG_LEVEL", "SMARTDRAW_BREAKER_TIMEOUT", "SMARTDRAW_LLM_MAX_TOKENS",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, 15*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, time.Duration(0), cfg.HTTP.WriteTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "smartdraw.db", cfg.DB.Path)
	assert.Equal(t, 64000, cfg.LLM.MaxTokens)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 32, cfg.Mindmap.MaxDepth)
	assert.Equal(t, llm.DefaultBreakerConfig(), cfg.BreakerSettings())

	_, complete := cfg.ServerLLM()
	assert.False(t, complete)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("SMARTDRAW_HTTP_PORT", "9090")
	t.Setenv("SMARTDRAW_LLM_KIND", "anthropic-compatible")
	t.Setenv("SMARTDRAW_LLM_BASE_URL", "https://api.anthropic.com/v1")
	t.Setenv("SMARTDRAW_LLM_API_KEY", "sk-env")
	t.Setenv("SMARTDRAW_LLM_MODEL", "claude-sonnet")
	t.Setenv("SMARTDRAW_CORS_ALLOWED_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("SMARTDRAW_BREAKER_TIMEOUT", "5s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 5*time.Second, cfg.Breaker.Timeout)

	pc, complete := cfg.ServerLLM()
	require.True(t, complete)
	assert.Equal(t, llm.KindAnthropic, pc.Kind)
	assert.Equal(t, "sk-env", pc.APIKey)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  port: 7000
log:
  format: console
mindmap:
  max_depth: 8
llm:
  model: gpt-4o
`), 0o600))
	t.Setenv("SMARTDRAW_LLM_MODEL", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.HTTP.Port)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 8, cfg.Mindmap.MaxDepth)
	assert.Equal(t, "from-env", cfg.LLM.Model, "environment wins over the file")
}

func TestLoad_DefaultFileLocation(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "smartdraw.yaml"), []byte("db:\n  path: /tmp/x.db\n"), 0o600))
	t.Chdir(dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", cfg.DB.Path)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "an explicit path must exist")

	t.Setenv("SMARTDRAW_HTTP_PORT", "70000")
	_, err = Load("")
	assert.Error(t, err)

	t.Setenv("SMARTDRAW_HTTP_PORT", "8080")
	t.Setenv("SMARTDRAW_LLM_KIND", "gemini")
	_, err = Load("")
	assert.Error(t, err)

	t.Setenv("SMARTDRAW_LLM_KIND", "")
	t.Setenv("SMARTDRAW_MINDMAP_MAX_DEPTH", "0")
	_, err = Load("")
	assert.Error(t, err)

	t.Setenv("SMARTDRAW_MINDMAP_MAX_DEPTH", "")
	for _, v := range []string{"0", "-1"} {
		t.Setenv("SMARTDRAW_LLM_MAX_TOKENS", v)
		_, err = Load("")
		assert.ErrorContains(t, err, "llm.max_tokens", "max_tokens %s", v)
	}
}
