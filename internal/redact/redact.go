// Package redact scrubs secrets from text before it leaves the process.
//
// Candidates paste real code into answers, and real code sometimes carries
// real credentials. Everything bound for an LLM API goes through a Scrubber
// first; stored session state keeps the verbatim answer.
package redact

import (
	"fmt"
	"strings"
	"sync"

	"github.com/zricethezav/gitleaks/v8/detect"
	"go.uber.org/zap"
)

// Scrubber removes secrets from outbound content.
type Scrubber interface {
	// Scrub replaces detected secrets with redaction markers. It never
	// fails; content that cannot be scanned passes through unchanged.
	Scrub(content string) string
}

// Config holds redaction configuration.
type Config struct {
	// Disabled turns redaction off. Scrubbing is on by default.
	Disabled bool `koanf:"disabled"`

	// AllowlistPath points at a TOML file of content patterns to ignore,
	// for corpora that legitimately contain example credentials.
	AllowlistPath string `koanf:"allowlist_path"`
}

// New creates a Scrubber from the configuration.
func New(cfg Config, logger *zap.Logger) (Scrubber, error) {
	if cfg.Disabled {
		return Disabled{}, nil
	}
	return NewGitleaksScrubber(cfg.AllowlistPath, logger)
}

// Disabled is a Scrubber that passes content through untouched.
type Disabled struct{}

// Scrub returns the content unchanged.
func (Disabled) Scrub(content string) string { return content }

// GitleaksScrubber detects secrets with the Gitleaks default ruleset and
// replaces each finding with a [REDACTED:<rule-id>] marker.
type GitleaksScrubber struct {
	detector *detect.Detector
	logger   *zap.Logger

	// gitleaks detectors are not documented as goroutine-safe.
	mu sync.Mutex
}

var _ Scrubber = (*GitleaksScrubber)(nil)

// NewGitleaksScrubber builds a scrubber with the default Gitleaks config.
//
// The detector is constructed once; parsing the 800+ built-in rules per call
// would dominate answer-processing latency.
func NewGitleaksScrubber(allowlistPath string, logger *zap.Logger) (*GitleaksScrubber, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("creating gitleaks detector: %w", err)
	}

	if allowlistPath != "" {
		allowlist, err := LoadAllowlist(allowlistPath)
		if err != nil {
			return nil, fmt.Errorf("loading allowlist: %w", err)
		}
		if allowlist != nil {
			applyAllowlist(&detector.Config, allowlist)
		}
	}

	return &GitleaksScrubber{detector: detector, logger: logger}, nil
}

// Scrub replaces every detected secret value with its redaction marker.
//
// Replacement is by value rather than by reported position: multi-line
// findings (private key blocks) and repeated occurrences of the same secret
// are all covered, and there is no line/column arithmetic to get wrong.
func (s *GitleaksScrubber) Scrub(content string) string {
	if content == "" {
		return content
	}

	s.mu.Lock()
	findings := s.detector.DetectString(content)
	s.mu.Unlock()

	if len(findings) == 0 {
		return content
	}

	seen := make(map[string]bool, len(findings))
	for _, f := range findings {
		if f.Secret == "" || seen[f.Secret] {
			continue
		}
		seen[f.Secret] = true
		content = strings.ReplaceAll(content, f.Secret, "[REDACTED:"+f.RuleID+"]")
	}

	s.logger.Debug("scrubbed outbound content", zap.Int("findings", len(findings)))
	return content
}
