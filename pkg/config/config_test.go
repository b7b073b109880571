package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
server:
  url: https://api.example.com
  timeout_seconds: 30
auth:
  api_key: test-key
`))
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.Server.URL)
	assert.Equal(t, 30*time.Second, cfg.Server.Timeout())
	assert.Equal(t, "test-key", cfg.Auth.APIKey)
}

func TestParse_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_API_KEY", "secret-from-env")
	t.Setenv("TEST_SERVER_URL", "https://api.internal")

	cfg, err := Parse([]byte(`
server:
  url: ${TEST_SERVER_URL}
auth:
  api_key: ${TEST_API_KEY}
`))
	require.NoError(t, err)
	assert.Equal(t, "https://api.internal", cfg.Server.URL)
	assert.Equal(t, "secret-from-env", cfg.Auth.APIKey)
}

func TestParse_UnsetEnvVarExpandsEmpty(t *testing.T) {
	_, err := Parse([]byte(`
server:
  url: ${DEFINITELY_NOT_SET_12345}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.url is required")
}

func TestParse_Invalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing server url",
			yaml: "auth:\n  api_key: k\n",
			want: "server.url is required",
		},
		{
			name: "negative timeout",
			yaml: "server:\n  url: https://api.example.com\n  timeout_seconds: -1\n",
			want: "timeout_seconds must not be negative",
		},
		{
			name: "malformed yaml",
			yaml: "server: [unclosed",
			want: "parsing config",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.yml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  url: https://api.example.com\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.Server.URL)
	assert.Equal(t, time.Duration(0), cfg.Server.Timeout())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}
