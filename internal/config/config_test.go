package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/heatscore")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("HEATLINK_API_URL", "http://localhost:8000/api")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "heatscore", cfg.AppName)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 60*time.Second, cfg.HeatlinkTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Debug)
	assert.Empty(t, cfg.AllowedOrigins)
}

func TestLoadRequiredMissing(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "REDIS_URL", "HEATLINK_API_URL"} {
		t.Run(key, func(t *testing.T) {
			setRequired(t)
			t.Setenv(key, "")
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9090")
	t.Setenv("HEATLINK_API_TIMEOUT", "30")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DEBUG", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.HeatlinkTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Debug)
}

func TestLoadInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PORT":                 "eighty",
		"HEATLINK_API_TIMEOUT": "soon",
		"DEBUG":                "maybe",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			setRequired(t)
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestParseOrigins(t *testing.T) {
	origins, err := parseOrigins("http://a.example, http://b.example")
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, origins)

	origins, err = parseOrigins(`["http://a.example","*"]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a.example", "*"}, origins)

	origins, err = parseOrigins("")
	require.NoError(t, err)
	assert.Nil(t, origins)

	_, err = parseOrigins(`["broken`)
	assert.Error(t, err)
}
