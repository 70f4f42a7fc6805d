package oracle

import (
	"context"
	"fmt"
)

// Supported provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderStatic    = "static"
)

// Config selects and tunes the completion provider.
type Config struct {
	// Provider is one of openai, anthropic or static. Empty defaults to
	// static so a checkout runs without credentials.
	Provider string `koanf:"provider"`

	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`

	// Timeout bounds one completion call, in seconds.
	Timeout int `koanf:"timeout"`

	MaxRetries int `koanf:"max_retries"`
}

// NewClient creates the completion client for the configured provider.
// The static provider has no client; callers wire the static oracle
// instead.
func NewClient(cfg Config) (Client, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		return newOpenAIClient(cfg)
	case ProviderAnthropic:
		return newAnthropicClient(cfg)
	case ProviderStatic, "":
		return nil, fmt.Errorf("provider %q has no completion client", ProviderStatic)
	default:
		return nil, fmt.Errorf("unknown oracle provider: %s", cfg.Provider)
	}
}

// New creates the oracle for the configured provider.
func New(cfg Config) (Oracle, error) {
	switch cfg.Provider {
	case ProviderStatic, "":
		return NewStatic(), nil
	default:
		client, err := NewClient(cfg)
		if err != nil {
			return nil, err
		}
		return NewWithClient(client), nil
	}
}

// staticOracle needs no provider: it accepts every non-empty answer and
// keeps serving canned follow-ups. Used for local development and as the
// zero-config default; the policy layer still enforces every threshold on
// top of it.
type staticOracle struct{}

// NewStatic returns the deterministic no-provider oracle.
func NewStatic() Oracle {
	return &staticOracle{}
}

func (s *staticOracle) Decide(ctx context.Context, req Request) (Proposal, error) {
	if req.Answer == "" {
		return Proposal{
			Action:   ActionRetrySame,
			Quality:  QualityBad,
			Feedback: "Please say a bit more about your approach.",
		}, nil
	}
	return Proposal{
		Action:       ActionNextQuestion,
		Quality:      QualityGood,
		NextQuestion: fmt.Sprintf("You've answered %d so far. Can you go one level deeper on your last point?", req.AnsweredCount),
	}, nil
}

func (s *staticOracle) Clarify(ctx context.Context, req ClarificationRequest) (string, error) {
	return "You can make reasonable assumptions about input size and format; state them as you go.", nil
}

// Ensure interfaces are implemented.
var _ Oracle = (*staticOracle)(nil)
