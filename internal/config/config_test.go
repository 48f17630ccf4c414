package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Setenv("STORE_ADAPTER", "")
	t.Setenv("VICERE_TIMEOUT", "")
	t.Setenv("VICERE_BASE_URL", "")

	c, err := New()
	require.NoError(t, err)
	require.Equal(t, "https://vicere.com.br", c.BaseURL)
	require.Equal(t, "https://api.vicere.com.br", c.APIURL)
	require.Equal(t, 30*time.Second, c.Timeout)
	require.Equal(t, "sqlite", c.StoreAdapter)
	require.Equal(t, slog.LevelInfo, c.SlogLevel())
}

func TestTrailingSlashTrimmed(t *testing.T) {
	t.Setenv("VICERE_BASE_URL", "http://localhost:8080/")
	c, err := New()
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080", c.BaseURL)
}

func TestInvalidValues(t *testing.T) {
	tests := map[string]map[string]string{
		"bad timeout":      {"VICERE_TIMEOUT": "soon"},
		"negative timeout": {"VICERE_TIMEOUT": "-1s"},
		"unknown adapter":  {"STORE_ADAPTER": "mysql"},
		"half credentials": {"WC_CONSUMER_KEY": "ck_only", "WC_CONSUMER_SECRET": ""},
		"bad port":         {"PORT": "http"},
		"prod default jwt": {"ENV": "production", "JWT_SECRET": ""},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := New()
			require.Error(t, err)
		})
	}
}

func TestBuildPostgresDSN(t *testing.T) {
	c := &Config{PostgresHost: "db", PostgresUser: "u", PostgresDB: "vicere", PostgresPassword: "p"}
	dsn, err := c.BuildPostgresDSN()
	require.NoError(t, err)
	require.Equal(t, "host=db port=5432 user=u dbname=vicere sslmode=disable password=p", dsn)

	c = &Config{PostgresDSN: "postgres://x"}
	dsn, err = c.BuildPostgresDSN()
	require.NoError(t, err)
	require.Equal(t, "postgres://x", dsn)
}

func TestSlogLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
	} {
		require.Equal(t, want, (&Config{LogLevel: in}).SlogLevel(), in)
	}
}
