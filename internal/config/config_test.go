// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, durations, and defaults

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes content to a temp config file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const validConfig = `
server:
  http_addr: "0.0.0.0:8080"

database:
  path: "./test.db"

admission:
  owner_wid: "972500000001@c.us"
  authorized_numbers:
    - "972526672663"
    - "972542619636"
  whitelist_keywords:
    - "office"
  blacklist_names:
    - "spam"
  unpause_phrases:
    - "resume"
  vip_chat_id: "972542619636@c.us"
  pause_duration: "6h"
  vip_pause_duration: "24h"
  audio_placeholder: "voice message received"

forward:
  url: "http://localhost:8080/api/chat"
  timeout: "3s"

logging:
  level: "debug"
  format: "json"
`

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, validConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.HTTPAddr)
	assert.Equal(t, "./test.db", cfg.Database.Path)
	assert.Equal(t, "972500000001@c.us", cfg.Admission.OwnerWID)
	assert.Equal(t, []string{"972526672663", "972542619636"}, cfg.Admission.AuthorizedNumbers)
	assert.Equal(t, 6*time.Hour, cfg.Admission.PauseDuration)
	assert.Equal(t, 24*time.Hour, cfg.Admission.VIPPauseDuration)
	assert.Equal(t, 3*time.Second, cfg.Forward.Timeout)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: "localhost:8080"
database:
  path: "./test.db"
admission:
  owner_wid: "972500000001@c.us"
forward:
  url: "http://localhost:8080/api/chat"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultPauseDuration, cfg.Admission.PauseDuration)
	assert.Equal(t, DefaultVIPPauseDuration, cfg.Admission.VIPPauseDuration)
	assert.Equal(t, DefaultGroupSuffix, cfg.Admission.GroupSuffix)
	assert.Equal(t, DefaultForwardTimeout, cfg.Forward.Timeout)
	assert.Equal(t, DefaultSweeperSchedule, cfg.Sweeper.Schedule)
	assert.Equal(t, DefaultAudioPlaceholder, cfg.Admission.AudioPlaceholder)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_GREEN_TOKEN", "tok-123")

	path := writeConfig(t, `
server:
  http_addr: "localhost:8080"
database:
  path: "./test.db"
admission:
  owner_wid: "972500000001@c.us"
forward:
  url: "http://localhost:8080/api/chat"
green_api:
  api_token: "${TEST_GREEN_TOKEN}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", cfg.GreenAPI.APIToken)
}

func TestLoad_MissingRequired(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing http_addr",
			content: `
database:
  path: "./test.db"
admission:
  owner_wid: "x@c.us"
forward:
  url: "http://localhost/api/chat"
`,
			wantErr: "server.http_addr",
		},
		{
			name: "missing database path",
			content: `
server:
  http_addr: "localhost:8080"
admission:
  owner_wid: "x@c.us"
forward:
  url: "http://localhost/api/chat"
`,
			wantErr: "database.path",
		},
		{
			name: "missing owner wid",
			content: `
server:
  http_addr: "localhost:8080"
database:
  path: "./test.db"
forward:
  url: "http://localhost/api/chat"
`,
			wantErr: "admission.owner_wid",
		},
		{
			name: "missing forward url",
			content: `
server:
  http_addr: "localhost:8080"
database:
  path: "./test.db"
admission:
  owner_wid: "x@c.us"
`,
			wantErr: "forward.url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: "localhost:8080"
database:
  path: "./test.db"
admission:
  owner_wid: "x@c.us"
  pause_duration: "six hours"
forward:
  url: "http://localhost/api/chat"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pause_duration")
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
