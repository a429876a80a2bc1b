package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(DefaultConfigPath)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 7*24*time.Hour, cfg.Agent.SessionTTL)
	assert.Equal(t, 50, cfg.Agent.MaxSessionMessages)
	assert.Equal(t, DefaultCleanupCron, cfg.Agent.CleanupCron)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Same(t, cfg, Cfg)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
  cors_origins: ["http://localhost:3000"]
database:
  driver: mysql
  dsn: "user:pass@tcp(localhost:3306)/crm"
jwt:
  secret_key: from-file
agent:
  max_session_messages: 20
  tool_timeout: 10s
`)
	t.Setenv("CRM_JWT_SECRET_KEY", "from-env")
	t.Setenv("CRM_SERVER_PORT", "9100")
	t.Setenv("CRM_MQ_ENABLED", "true")
	t.Setenv("CRM_MQ_NAME_SERVER", "10.0.0.1:9876,10.0.0.2:9876")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "from-env", cfg.JWT.SecretKey)
	assert.Equal(t, 20, cfg.Agent.MaxSessionMessages)
	assert.Equal(t, 10*time.Second, cfg.Agent.ToolTimeout)
	assert.Equal(t, DefaultSessionTTL, cfg.Agent.SessionTTL)
	assert.Equal(t, []string{"10.0.0.1:9876", "10.0.0.2:9876"}, cfg.MQ.NameServer)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "unsupported driver",
			content: "database:\n  driver: postgres\n",
			wantErr: "unsupported database driver",
		},
		{
			name:    "empty dsn",
			content: "database:\n  dsn: \"\"\n",
			wantErr: "database dsn is required",
		},
		{
			name:    "mq without name server",
			content: "mq:\n  enabled: true\n",
			wantErr: "mq name server is required",
		},
		{
			name:    "oss without bucket",
			env:     map[string]string{"CRM_OSS_ENABLED": "true"},
			wantErr: "oss bucket name is required",
		},
		{
			name:    "malformed yaml",
			content: "server: [",
			wantErr: "failed to parse config file",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestValidate_FillsAgentDefaults(t *testing.T) {
	cfg := Default()
	cfg.Agent.SessionTTL = 0
	cfg.Agent.MaxSessionMessages = -1

	require.NoError(t, cfg.validate())
	assert.Equal(t, DefaultSessionTTL, cfg.Agent.SessionTTL)
	assert.Equal(t, DefaultMaxSessionMessages, cfg.Agent.MaxSessionMessages)
}
