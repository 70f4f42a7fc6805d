package config

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// envPrefix is stripped from environment variable names before
	// mapping them onto config keys.
	envPrefix = "INTERVIEWD_"

	maxConfigFileSize = 1024 * 1024
)

// Load builds the configuration from an optional YAML file plus
// environment overrides.
//
// Precedence, highest first:
//  1. INTERVIEWD_* environment variables
//  2. The YAML file at configPath (skipped when empty or absent)
//  3. Defaults
//
// Environment variables map onto config keys with a double underscore
// as the section separator, so single underscores survive in field
// names:
//
//	INTERVIEWD_SERVER__PORT            -> server.port
//	INTERVIEWD_ORACLE__API_KEY        -> oracle.api_key
//	INTERVIEWD_QUESTION_BANK__GIT_URL -> question_bank.git_url
//
// The loaded config is defaulted and validated before it is returned.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		content, err := readConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		if content != nil {
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", configPath, err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envToKey), nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// envToKey maps INTERVIEWD_SECTION__FIELD_NAME to section.field_name.
func envToKey(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// readConfigFile opens and reads the config file, checking permissions
// and size on the open descriptor to avoid a stat/open race. A missing
// file is not an error; it returns nil content.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}

	// Config files can carry API keys; refuse group/world readable ones.
	if runtime.GOOS != "windows" {
		if perm := info.Mode().Perm(); perm&0o077 != 0 {
			return nil, fmt.Errorf("insecure config file permissions on %s: %v (want 0600)", path, perm)
		}
	}

	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return content, nil
}
