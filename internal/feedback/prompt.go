package feedback

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/interviewd/internal/oracle"
	"github.com/fyrsmithlabs/interviewd/internal/session"
)

const feedbackSystemPrompt = `You are an expert interviewer providing intelligent, contextual feedback for the candidate. Focus on specific insights related to the interview conversation, avoiding generic or templated responses.`

// lowEffortMarkers are tokens that flag gibberish answers. The ratio
// threshold below treats a transcript as low-effort when most answers
// are empty or under three words.
var lowEffortMarkers = []string{"blah", "lorem", "asdf", "qwerty", "idk", "???", "!!!"}

const lowEffortRatio = 0.6

// renderPrompt builds the feedback completion for a completed session.
// Section order is fixed so prompts are reproducible.
func renderPrompt(s *session.Session) oracle.Completion {
	var b strings.Builder

	b.WriteString("Based on the following interview conversation with the candidate, provide intelligent, contextual feedback in JSON format.\n\n")

	b.WriteString("INTERVIEW CONTEXT:\n")
	fmt.Fprintf(&b, "- Topic: %s\n", s.Topic)
	fmt.Fprintf(&b, "- Type: %s\n", s.Type)
	fmt.Fprintf(&b, "- Completion reason: %s\n", s.CompletionReason)
	fmt.Fprintf(&b, "- Questions answered: %d\n", s.AnsweredCount())
	fmt.Fprintf(&b, "- Good answers: %d\n", s.GoodAnswerCount())
	fmt.Fprintf(&b, "- Bad answers: %d\n", s.BadAnswerCount)
	fmt.Fprintf(&b, "- Clarifications requested: %d\n", len(s.Clarifications))

	b.WriteString(`
Be honest, direct, and critical while being constructive. Provide balanced feedback that:
1. Recognizes partial understanding and effort, even if incomplete
2. Identifies specific technical issues and areas for improvement
3. Gives credit for demonstrated knowledge while pointing out gaps
4. Provides specific, actionable suggestions for improvement

Provide intelligent, contextual feedback that:
1. Analyzes the specific interview topic and questions asked
2. Gives feedback directly related to the actual conversation content
3. Suggests improvements specific to the interview context, not generic advice
4. Connects feedback directly to the candidate's specific answers and the interview flow
5. Considers the progression of questions and how answers build upon each other
6. Evaluates problem-solving ability, reasoning clarity, and technical communication
7. Assesses awareness of trade-offs and edge case handling

Evaluation Criteria:
- Clarity of communication and reasoning
- Correctness of logic and approach
- Ability to reason under pressure
- Awareness of trade-offs and edge cases
- Domain-specific technical knowledge
- Problem-solving methodology
`)

	if ratio, detected := detectLowEffort(s); detected {
		fmt.Fprintf(&b, `
LOW-EFFORT/GIBBERISH DETECTED:
- The conversation contains short, empty, or low-signal answers (ratio: %.2f).
- Provide detailed, specific, and constructive feedback even if performance is poor.
- Do NOT return generic or minimal feedback.
- Include: concrete examples of what's missing, what a strong answer should include, and a short study plan.
- Explicitly call out any gibberish or irrelevant content and explain what would be acceptable instead.
`, ratio)
	}

	b.WriteString(`
Include:
- Summary (2-3 lines analyzing the overall interview performance in context)
- Positive Points (specific strengths demonstrated in this interview, even if partial)
- Points to Address (specific areas from this interview that need improvement)
- Areas for Improvement (broader areas relevant to this interview topic)
- Metrics (a dictionary of key performance indicators. For example: {"technical_skills": "strong fundamentals", "communication": "needs structure"})
- Detailed Feedback (explicit critique tied to specific Q&A turns; include what a good answer would cover)
- Recommendations (targeted next steps: resources, topics to revise, and actionable practice tasks)

Conversation:
`)
	b.WriteString(renderTranscript(s))

	b.WriteString(`
Return only valid JSON with structure:
{
    "summary": "...",
    "positive_points": [...],
    "points_to_address": [...],
    "areas_for_improvement": [...],
    "metrics": {...},
    "detailed_feedback": "...",
    "recommendations": [...]
}
`)

	return oracle.Completion{
		System:      feedbackSystemPrompt,
		Prompt:      b.String(),
		Temperature: feedbackTemperature,
		MaxTokens:   feedbackMaxTokens,
	}
}

// renderTranscript flattens the session into interviewer/candidate turns.
// The base question opens the transcript; rejected answers stay in, they
// are exactly what feedback should talk about. Clarification exchanges
// follow the main thread.
func renderTranscript(s *session.Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Interviewer: %s\n", s.BaseQuestion)
	for _, fu := range s.FollowUps {
		fmt.Fprintf(&b, "Interviewer: %s\nCandidate: %s\n", fu.Question, fu.Answer)
	}
	for _, c := range s.Clarifications {
		fmt.Fprintf(&b, "Candidate (clarification): %s\nInterviewer: %s\n", c.Request, c.Response)
	}
	return b.String()
}

// detectLowEffort flags transcripts where most answers are empty or
// trivially short, or where any answer is gibberish or a single token
// repeated. The flag only changes prompt instructions; the model still
// writes the feedback.
func detectLowEffort(s *session.Session) (float64, bool) {
	if len(s.FollowUps) == 0 {
		return 0, false
	}

	shortOrEmpty := 0
	gibberish := false
	repetitive := false
	for _, fu := range s.FollowUps {
		answer := strings.TrimSpace(fu.Answer)
		words := strings.Fields(answer)
		if answer == "" || len(words) < 3 {
			shortOrEmpty++
		}
		lower := strings.ToLower(answer)
		for _, marker := range lowEffortMarkers {
			if strings.Contains(lower, marker) {
				gibberish = true
				break
			}
		}
		if len(words) >= 4 {
			distinct := map[string]struct{}{}
			for _, w := range words {
				distinct[strings.ToLower(w)] = struct{}{}
			}
			if len(distinct) <= 2 {
				repetitive = true
			}
		}
	}

	ratio := float64(shortOrEmpty) / float64(len(s.FollowUps))
	return ratio, ratio >= lowEffortRatio || gibberish || repetitive
}
