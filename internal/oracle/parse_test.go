package oracle

import (
	"errors"
	"testing"
)

func TestParseProposal(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Proposal
		wantErr bool
	}{
		{
			name: "plain JSON",
			raw:  `{"action": "next_question", "quality": "good", "next_question": "What about edge cases?"}`,
			want: Proposal{
				Action:       ActionNextQuestion,
				Quality:      QualityGood,
				NextQuestion: "What about edge cases?",
			},
		},
		{
			name: "markdown fenced JSON",
			raw: "```json\n" +
				`{"action": "retry_same", "quality": "bad", "feedback": "Which criteria did you weigh?"}` +
				"\n```",
			want: Proposal{
				Action:   ActionRetrySame,
				Quality:  QualityBad,
				Feedback: "Which criteria did you weigh?",
			},
		},
		{
			name: "bare fence without language tag",
			raw:  "```\n{\"action\": \"transition_phase\", \"quality\": \"good\"}\n```",
			want: Proposal{
				Action:  ActionTransitionPhase,
				Quality: QualityGood,
			},
		},
		{
			name: "excellent counts as good",
			raw:  `{"action": "next_question", "quality": "excellent", "next_question": "Go on?"}`,
			want: Proposal{
				Action:       ActionNextQuestion,
				Quality:      QualityGood,
				NextQuestion: "Go on?",
			},
		},
		{
			name: "legacy quality_assessment alias",
			raw:  `{"action": "retry_same", "quality_assessment": "bad", "feedback": "Try again."}`,
			want: Proposal{
				Action:   ActionRetrySame,
				Quality:  QualityBad,
				Feedback: "Try again.",
			},
		},
		{
			name: "missing quality is tolerated",
			raw:  `{"action": "complete_session"}`,
			want: Proposal{
				Action: ActionCompleteSession,
			},
		},
		{
			name: "whitespace trimmed from fields",
			raw:  `{"action": " next_question ", "quality": "good", "next_question": "  Next?  "}`,
			want: Proposal{
				Action:       ActionNextQuestion,
				Quality:      QualityGood,
				NextQuestion: "Next?",
			},
		},
		{
			name:    "empty completion",
			raw:     "   \n   ",
			wantErr: true,
		},
		{
			name:    "not JSON",
			raw:     "The candidate did well, ask another question.",
			wantErr: true,
		},
		{
			name:    "unknown action",
			raw:     `{"action": "end_interview", "quality": "bad"}`,
			wantErr: true,
		},
		{
			name:    "unknown quality",
			raw:     `{"action": "complete_session", "quality": "mediocre"}`,
			wantErr: true,
		},
		{
			name:    "next_question action without a question",
			raw:     `{"action": "next_question", "quality": "good"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseProposal(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseProposal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedProposal) {
					t.Errorf("ParseProposal() error = %v, want ErrMalformedProposal", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseProposal() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAction_IsValid(t *testing.T) {
	valid := []Action{ActionNextQuestion, ActionRetrySame, ActionTransitionPhase, ActionCompleteSession}
	for _, a := range valid {
		if !a.IsValid() {
			t.Errorf("Action(%q).IsValid() = false, want true", a)
		}
	}
	for _, a := range []Action{"", "unknown", "NEXT_QUESTION"} {
		if a.IsValid() {
			t.Errorf("Action(%q).IsValid() = true, want false", a)
		}
	}
}

func TestQuality_IsValid(t *testing.T) {
	if !QualityGood.IsValid() || !QualityBad.IsValid() {
		t.Error("expected good and bad to be valid qualities")
	}
	if Quality("").IsValid() || Quality("excellent").IsValid() {
		t.Error("expected empty and unnormalized labels to be invalid")
	}
}
