package oracle

import (
	"encoding/json"
	"fmt"
	"strings"
)

// proposalJSON is the wire shape the decision prompt asks for. Models
// sometimes echo the richer legacy shape; unknown fields are ignored and
// quality_assessment is accepted as an alias.
type proposalJSON struct {
	Action            string `json:"action"`
	Quality           string `json:"quality"`
	QualityAssessment string `json:"quality_assessment"`
	NextQuestion      string `json:"next_question"`
	Feedback          string `json:"feedback"`
}

// ParseProposal decodes the oracle's raw completion into a Proposal. It
// tolerates markdown code fences and label aliases, nothing more: any
// output that does not validate comes back as an ErrMalformedProposal so
// the caller takes its single fallback path. No guessed defaults.
func ParseProposal(raw string) (Proposal, error) {
	content := stripCodeFences(raw)
	if content == "" {
		return Proposal{}, fmt.Errorf("%w: empty completion", ErrMalformedProposal)
	}

	var pj proposalJSON
	if err := json.Unmarshal([]byte(content), &pj); err != nil {
		return Proposal{}, fmt.Errorf("%w: %v", ErrMalformedProposal, err)
	}

	action := Action(strings.TrimSpace(pj.Action))
	if !action.IsValid() {
		return Proposal{}, fmt.Errorf("%w: unknown action %q", ErrMalformedProposal, pj.Action)
	}

	quality, err := normalizeQualityLabel(pj.Quality, pj.QualityAssessment)
	if err != nil {
		return Proposal{}, err
	}

	p := Proposal{
		Action:       action,
		Quality:      quality,
		NextQuestion: strings.TrimSpace(pj.NextQuestion),
		Feedback:     strings.TrimSpace(pj.Feedback),
	}

	if p.Action == ActionNextQuestion && p.NextQuestion == "" {
		return Proposal{}, fmt.Errorf("%w: next_question action without a question", ErrMalformedProposal)
	}

	return p, nil
}

// normalizeQualityLabel maps the model's quality label onto the two-value
// enum. "excellent" counts as good; a missing label is tolerated because
// the action implies one.
func normalizeQualityLabel(quality, alias string) (Quality, error) {
	label := strings.ToLower(strings.TrimSpace(quality))
	if label == "" {
		label = strings.ToLower(strings.TrimSpace(alias))
	}
	switch label {
	case "", "good", "excellent":
		if label == "" {
			return "", nil
		}
		return QualityGood, nil
	case "bad", "poor":
		return QualityBad, nil
	}
	return "", fmt.Errorf("%w: unknown quality %q", ErrMalformedProposal, label)
}

// stripCodeFences removes a wrapping markdown code block. Models wrap
// JSON in ```json fences often enough that this is table stakes.
func stripCodeFences(raw string) string {
	content := strings.TrimSpace(raw)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
