package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "alohasrc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, 4096, cfg.Blocksize)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.True(t, cfg.Sources["httpsrc"].IsEnabled())
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
blocksize: 8192
log_level: debug,httpsrc=trace
sources:
  wssrc:
    enabled: false
  httpsrc:
    rank: 300
    schemes: http:https:icy
http:
  user_agent: test-agent
  timeout: 5s
ws:
  queue_depth: 4
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8192, cfg.Blocksize)
	assert.Equal(t, "debug,httpsrc=trace", cfg.LogLevel)
	assert.False(t, cfg.Sources["wssrc"].IsEnabled())
	require.NotNil(t, cfg.Sources["httpsrc"].Rank)
	assert.Equal(t, 300, *cfg.Sources["httpsrc"].Rank)
	assert.Equal(t, "http:https:icy", cfg.Sources["httpsrc"].Schemes)

	opts := cfg.HTTP.Options()
	assert.Equal(t, "test-agent", opts.UserAgent)
	assert.Equal(t, 5*time.Second, opts.Timeout)
	assert.Equal(t, Default().HTTP.BlockSize, opts.BlockSize, "unset fields keep their defaults")
	assert.Equal(t, 4, cfg.WS.Options().QueueDepth)
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("ALOHASRC_BLOCKSIZE", "1024")
	t.Setenv("ALOHASRC_HTTP_USER_AGENT", "env-agent")
	t.Setenv("ALOHASRC_HTTP_TIMEOUT", "2s")

	cfg, err := Load(writeConfig(t, "blocksize: 8192\n"))
	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.Blocksize)
	assert.Equal(t, "env-agent", cfg.HTTP.UserAgent)
	assert.Equal(t, 2*time.Second, cfg.HTTP.Timeout)

	t.Setenv(EnvConfigPath, writeConfig(t, "log_level: warn\n"))
	cfg, err = LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)

	t.Setenv("ALOHASRC_BLOCKSIZE", "lots")
	_, err = LoadFromEnv()
	assert.Error(t, err)
}

func TestLoadErrors(t *testing.T) {
	var parseErr *ParseError
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.True(t, errors.As(err, &parseErr))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = Load(writeConfig(t, "blocksize: 1\nbogus: true\n"))
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, 2, parseErr.Line)

	tests := []struct {
		contents string
		field    string
	}{
		{"blocksize: 0\n", "blocksize"},
		{"sources:\n  httpsrc:\n    schemes: 'http::'\n", "sources[httpsrc].schemes"},
		{"sources:\n  filesrc:\n    rank: -1\n", "sources[filesrc].rank"},
		{"http:\n  cache_blocks: 0\n", "http.cacheblocks"},
	}
	for _, tt := range tests {
		_, err := Load(writeConfig(t, tt.contents))
		var validationErr *ValidationError
		require.True(t, errors.As(err, &validationErr), tt.contents)
		assert.Equal(t, tt.field, validationErr.Field)
	}
}

func TestValidSchemeList(t *testing.T) {
	assert.True(t, validSchemeList("http"))
	assert.True(t, validSchemeList("svn+ssh:git"))
	assert.False(t, validSchemeList(""))
	assert.False(t, validSchemeList("http:"))
	assert.False(t, validSchemeList("1http"))
}
