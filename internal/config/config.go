// Package config aggregates interviewd configuration from a YAML file
// and environment overrides.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/interviewd/internal/embeddings"
	"github.com/fyrsmithlabs/interviewd/internal/events"
	"github.com/fyrsmithlabs/interviewd/internal/interview"
	"github.com/fyrsmithlabs/interviewd/internal/logging"
	"github.com/fyrsmithlabs/interviewd/internal/oracle"
	"github.com/fyrsmithlabs/interviewd/internal/questionbank"
	"github.com/fyrsmithlabs/interviewd/internal/redact"
	"github.com/fyrsmithlabs/interviewd/internal/retrieval"
	"github.com/fyrsmithlabs/interviewd/internal/store"
	"github.com/fyrsmithlabs/interviewd/internal/telemetry"
)

// Config holds the complete interviewd configuration. Each section is
// owned by the package it configures; this struct only snaps them
// together for loading.
type Config struct {
	Server       ServerConfig        `koanf:"server"`
	Interview    interview.Config    `koanf:"interview"`
	Store        store.Config        `koanf:"store"`
	Oracle       oracle.Config       `koanf:"oracle"`
	Retrieval    retrieval.Config    `koanf:"retrieval"`
	Embeddings   embeddings.Config   `koanf:"embeddings"`
	QuestionBank questionbank.Config `koanf:"question_bank"`
	Events       events.Config       `koanf:"events"`
	Redact       redact.Config       `koanf:"redact"`
	Log          logging.Config      `koanf:"log"`
	Telemetry    telemetry.Config    `koanf:"telemetry"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// applyDefaults fills in defaults for fields the file and environment
// left unset.
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Interview.OracleTimeout == 0 {
		cfg.Interview.OracleTimeout = interview.DefaultServiceConfig().OracleTimeout
	}

	if cfg.Store.Driver == "" {
		cfg.Store.Driver = store.DriverMemory
	}

	if cfg.Oracle.Provider == "" {
		cfg.Oracle.Provider = oracle.ProviderStatic
	}
	if cfg.Oracle.Timeout == 0 {
		cfg.Oracle.Timeout = 30
	}

	if cfg.Retrieval.Provider == "" {
		cfg.Retrieval.Provider = retrieval.ProviderNone
	}
	cfg.Retrieval.ApplyDefaults()

	if cfg.QuestionBank.Dir == "" {
		cfg.QuestionBank.Dir = "questions"
	}

	// Logging has its own full default set; merge only the zero values
	// so file/env overrides survive.
	logDefaults := logging.NewDefaultConfig()
	if cfg.Log.Format == "" {
		cfg.Log.Format = logDefaults.Format
	}
	if !cfg.Log.Output.Stdout && !cfg.Log.Output.OTEL {
		cfg.Log.Output = logDefaults.Output
	}
	if cfg.Log.Sampling == (logging.SamplingConfig{}) {
		cfg.Log.Sampling = logDefaults.Sampling
	}
	if cfg.Log.Stacktrace == (logging.StacktraceConfig{}) {
		cfg.Log.Stacktrace = logDefaults.Stacktrace
	}
	if cfg.Log.Fields == nil {
		cfg.Log.Fields = logDefaults.Fields
	}
	if !cfg.Log.Redaction.Enabled && len(cfg.Log.Redaction.Fields) == 0 {
		cfg.Log.Redaction = logDefaults.Redaction
	}

	cfg.Telemetry.ApplyDefaults()
}

// Validate checks the aggregate configuration, delegating to sections
// that carry their own Validate.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	switch c.Store.Driver {
	case store.DriverMemory:
	case store.DriverSQLite:
		if c.Store.Path == "" {
			return errors.New("store.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown store driver: %q", c.Store.Driver)
	}

	switch c.Oracle.Provider {
	case oracle.ProviderStatic:
	case oracle.ProviderOpenAI, oracle.ProviderAnthropic:
		if c.Oracle.APIKey == "" {
			return fmt.Errorf("oracle.api_key is required for provider %q", c.Oracle.Provider)
		}
	default:
		return fmt.Errorf("unknown oracle provider: %q", c.Oracle.Provider)
	}
	if c.Oracle.Timeout <= 0 {
		return errors.New("oracle.timeout must be positive")
	}

	switch c.Retrieval.Provider {
	case retrieval.ProviderNone, retrieval.ProviderChromem, retrieval.ProviderQdrant:
	default:
		return fmt.Errorf("unknown retrieval provider: %q", c.Retrieval.Provider)
	}

	if c.QuestionBank.Dir == "" {
		return errors.New("question_bank.dir is required")
	}

	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	return nil
}
