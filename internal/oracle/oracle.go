package oracle

import (
	"context"
	"fmt"
)

// llmOracle implements Oracle over a raw completion client: render the
// prompt, complete, parse. All judgment about what to DO with the proposal
// lives in the policy layer.
type llmOracle struct {
	client Client
}

// NewWithClient wraps an existing completion client. Use this when the
// client is shared with other consumers, like the feedback generator.
func NewWithClient(client Client) Oracle {
	return &llmOracle{client: client}
}

func (o *llmOracle) Decide(ctx context.Context, req Request) (Proposal, error) {
	raw, err := o.client.Complete(ctx, RenderDecisionPrompt(req))
	if err != nil {
		return Proposal{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	p, err := ParseProposal(raw)
	if err != nil {
		return Proposal{}, fmt.Errorf("deciding for session %s: %w", req.SessionID, err)
	}
	return p, nil
}

func (o *llmOracle) Clarify(ctx context.Context, req ClarificationRequest) (string, error) {
	raw, err := o.client.Complete(ctx, RenderClarificationPrompt(req))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if raw == "" {
		return "", fmt.Errorf("%w: empty clarification", ErrMalformedProposal)
	}
	return raw, nil
}

var _ Oracle = (*llmOracle)(nil)
