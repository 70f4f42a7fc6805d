package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/interviewd/internal/oracle"
	"github.com/fyrsmithlabs/interviewd/internal/store"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, store.DriverMemory, cfg.Store.Driver)
	assert.Equal(t, oracle.ProviderStatic, cfg.Oracle.Provider)
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  host: 127.0.0.1
  port: 9090
  shutdown_timeout: 30s
store:
  driver: sqlite
  path: /tmp/interviews.db
oracle:
  provider: static
  timeout: 15
question_bank:
  dir: /srv/packs
  watch: true
events:
  url: nats://localhost:4222
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, store.DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "/tmp/interviews.db", cfg.Store.Path)
	assert.Equal(t, 15, cfg.Oracle.Timeout)
	assert.Equal(t, "/srv/packs", cfg.QuestionBank.Dir)
	assert.True(t, cfg.QuestionBank.Watch)
	assert.Equal(t, "nats://localhost:4222", cfg.Events.URL)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9090
`)
	t.Setenv("INTERVIEWD_SERVER__PORT", "7070")
	t.Setenv("INTERVIEWD_ORACLE__API_KEY", "sk-test")
	t.Setenv("INTERVIEWD_ORACLE__PROVIDER", "openai")
	t.Setenv("INTERVIEWD_QUESTION_BANK__GIT_URL", "https://example.com/packs.git")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, oracle.ProviderOpenAI, cfg.Oracle.Provider)
	assert.Equal(t, "sk-test", cfg.Oracle.APIKey)
	assert.Equal(t, "https://example.com/packs.git", cfg.QuestionBank.GitURL)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "server: [not: a map")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfigFile(t, `
store:
  driver: sqlite
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestLoad_RejectsWorldReadableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure config file permissions")
}

func TestEnvToKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"INTERVIEWD_SERVER__PORT", "server.port"},
		{"INTERVIEWD_ORACLE__API_KEY", "oracle.api_key"},
		{"INTERVIEWD_QUESTION_BANK__GIT_URL", "question_bank.git_url"},
		{"INTERVIEWD_RETRIEVAL__QDRANT__VECTOR_SIZE", "retrieval.qdrant.vector_size"},
		{"INTERVIEWD_LOG__LEVEL", "log.level"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, envToKey(tt.in), tt.in)
	}
}
