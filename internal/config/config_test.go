package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/interviewd/internal/oracle"
	"github.com/fyrsmithlabs/interviewd/internal/retrieval"
	"github.com/fyrsmithlabs/interviewd/internal/store"
)

func defaultedConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := defaultedConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 30*time.Second, cfg.Interview.OracleTimeout)
	assert.Equal(t, store.DriverMemory, cfg.Store.Driver)
	assert.Equal(t, oracle.ProviderStatic, cfg.Oracle.Provider)
	assert.Equal(t, retrieval.ProviderNone, cfg.Retrieval.Provider)
	assert.Equal(t, "questions", cfg.QuestionBank.Dir)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Log.Output.Stdout)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "interviewd", cfg.Telemetry.ServiceName)
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 9999
	cfg.Store.Driver = store.DriverSQLite
	cfg.Store.Path = "/tmp/sessions.db"
	cfg.QuestionBank.Dir = "/srv/packs"

	applyDefaults(cfg)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, store.DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "/srv/packs", cfg.QuestionBank.Dir)
}

func TestConfig_Validate_Defaults(t *testing.T) {
	cfg := defaultedConfig()
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "port too low",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "invalid server port",
		},
		{
			name:    "port too high",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "invalid server port",
		},
		{
			name:    "negative shutdown timeout",
			mutate:  func(c *Config) { c.Server.ShutdownTimeout = -time.Second },
			wantErr: "shutdown timeout",
		},
		{
			name:    "unknown store driver",
			mutate:  func(c *Config) { c.Store.Driver = "postgres" },
			wantErr: "unknown store driver",
		},
		{
			name:    "sqlite without path",
			mutate:  func(c *Config) { c.Store.Driver = store.DriverSQLite },
			wantErr: "store.path is required",
		},
		{
			name:    "unknown oracle provider",
			mutate:  func(c *Config) { c.Oracle.Provider = "gemini" },
			wantErr: "unknown oracle provider",
		},
		{
			name:    "openai without key",
			mutate:  func(c *Config) { c.Oracle.Provider = oracle.ProviderOpenAI },
			wantErr: "oracle.api_key is required",
		},
		{
			name:    "unknown retrieval provider",
			mutate:  func(c *Config) { c.Retrieval.Provider = "pinecone" },
			wantErr: "unknown retrieval provider",
		},
		{
			name:    "missing question bank dir",
			mutate:  func(c *Config) { c.QuestionBank.Dir = "" },
			wantErr: "question_bank.dir",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: "log:",
		},
		{
			name: "telemetry enabled without endpoint",
			mutate: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.Endpoint = ""
			},
			wantErr: "telemetry:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultedConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_Validate_SQLiteWithPath(t *testing.T) {
	cfg := defaultedConfig()
	cfg.Store.Driver = store.DriverSQLite
	cfg.Store.Path = "/tmp/sessions.db"

	assert.NoError(t, cfg.Validate())
}

func TestServerConfig_Addr(t *testing.T) {
	s := ServerConfig{Host: "0.0.0.0", Port: 8080}
	assert.Equal(t, "0.0.0.0:8080", s.Addr())

	s = ServerConfig{Port: 9090}
	assert.Equal(t, ":9090", s.Addr())
}
