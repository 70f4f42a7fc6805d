package oracle

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/interviewd/internal/session"
)

// conversationWindow bounds how many answered pairs accompany the latest
// answer. Two pairs plus the base question keep the prompt a stable size
// however long the interview runs.
const conversationWindow = 2

// Sampling parameters for decision prompts. Approach sessions are judged
// deterministically; coding sessions get a little room for question
// variety.
const (
	decisionTemperatureApproach = 0.0
	decisionTemperatureCoding   = 0.3
	decisionMaxTokens           = 500

	clarifyTemperature = 0.3
	clarifyMaxTokens   = 200
)

// BuildRequest projects a session snapshot into the request sent to the
// oracle. The trailing follow-up holds the latest answer; everything else
// is history. Pure: the same snapshot and context always produce the same
// request.
func BuildRequest(s *session.Session, contextSnippets []string) Request {
	req := Request{
		SessionID:                s.ID,
		InterviewType:            s.Type.String(),
		Phase:                    s.Phase.String(),
		BaseQuestion:             s.BaseQuestion,
		CurrentQuestion:          s.CurrentQuestion(),
		Context:                  contextSnippets,
		AnsweredCount:            s.AnsweredCount(),
		GoodAnswerCount:          s.GoodAnswerCount(),
		BadAnswerCount:           s.BadAnswerCount,
		ConsecutiveBadAnswers:    s.ConsecutiveBadAnswerCount,
		ClarificationsUsed:       len(s.Clarifications),
		WasCurrentAnswerRejected: false,
	}

	n := len(s.FollowUps)
	if n == 0 {
		return req
	}

	current := s.FollowUps[n-1]
	req.Answer = current.Answer
	req.WasCurrentAnswerRejected = current.AnswerRejected

	// History excludes the entry under judgment.
	for i := n - 2; i >= 0 && len(req.RecentPairs) < conversationWindow; i-- {
		if s.FollowUps[i].Answered() {
			req.RecentPairs = append(req.RecentPairs, QAPair{
				Question: s.FollowUps[i].Question,
				Answer:   s.FollowUps[i].Answer,
			})
		}
	}
	// Oldest first.
	for i, j := 0, len(req.RecentPairs)-1; i < j; i, j = i+1, j-1 {
		req.RecentPairs[i], req.RecentPairs[j] = req.RecentPairs[j], req.RecentPairs[i]
	}

	return req
}

const decisionSystemPrompt = `You are a Senior Technical Interviewer having a natural conversation with a candidate.

Analyze the candidate's latest answer and decide the next step. Respond with a JSON object and nothing else:

{
    "action": "next_question|retry_same|transition_phase|complete_session",
    "quality": "good|bad",
    "next_question": "the next question to ask (required when action is next_question)",
    "feedback": "feedback for the candidate (required when action is retry_same)"
}

RULES:
1. Derive 1-3 essential correctness criteria from the base question, then judge the latest answer against them. An answer meeting the majority of its criteria is "good"; concise but accurate answers are good.
2. Only propose next_question when the answer quality is good.
3. For bad answers use retry_same, and keep the feedback non-leading: reference the unmet criteria at a high level without revealing what the answer should have said.
4. Follow-up questions must stay within the scope of the base question and build on what the candidate has already said.
5. Make questions sound like a real conversation, not a textbook quiz.`

const codingTypeInstructions = `
CODING INTERVIEW RULES:
- This is the verbal phase: explore problem understanding and solution design, never ask for actual code.
- Build each follow-up on the candidate's specific answer: algorithmic strategy, complexity, data structure choices, edge cases.
- After 5 good answers (including the current one when it is good), use action "transition_phase" to start the coding phase.
- Only use "complete_session" when the candidate would have 4 or more bad answers in total, counting the current one.`

const approachTypeInstructions = `
APPROACH INTERVIEW RULES:
- Focus on business logic, methodology and strategic thinking: scope, stakeholders, trade-offs, real-world impact.
- Never ask for code; technical methodology discussion is encouraged.
- After 7 good answers (including the current one when it is good), use action "complete_session".
- Only suggest ending early when the candidate would have 4 or more consecutive bad answers, counting the current one.`

// RenderDecisionPrompt turns a request into the completion call for the
// decision. Section order is fixed so prompts are reproducible.
func RenderDecisionPrompt(req Request) Completion {
	system := decisionSystemPrompt
	temperature := decisionTemperatureCoding
	if req.InterviewType == session.TypeApproach.String() {
		system += approachTypeInstructions
		temperature = decisionTemperatureApproach
	} else {
		system += codingTypeInstructions
	}

	var b strings.Builder
	b.WriteString("INTERVIEW CONTEXT:\n")
	fmt.Fprintf(&b, "- Type: %s\n", req.InterviewType)
	fmt.Fprintf(&b, "- Phase: %s\n", req.Phase)
	fmt.Fprintf(&b, "- Questions answered: %d\n", req.AnsweredCount)
	fmt.Fprintf(&b, "- Good answers: %d\n", req.GoodAnswerCount)
	fmt.Fprintf(&b, "- Bad answers so far: %d\n", req.BadAnswerCount)
	fmt.Fprintf(&b, "- Consecutive bad answers: %d\n", req.ConsecutiveBadAnswers)
	fmt.Fprintf(&b, "- Clarifications used: %d\n", req.ClarificationsUsed)
	if req.WasCurrentAnswerRejected {
		b.WriteString("- The current question was already answered badly and retried\n")
	}

	b.WriteString("\nBASE QUESTION:\n")
	b.WriteString(req.BaseQuestion)
	b.WriteString("\n")

	if len(req.RecentPairs) > 0 {
		b.WriteString("\nCONVERSATION HISTORY:\n")
		for _, p := range req.RecentPairs {
			fmt.Fprintf(&b, "Q: %s\nA: %s\n", p.Question, p.Answer)
		}
	}

	b.WriteString("\nCURRENT QUESTION:\n")
	b.WriteString(req.CurrentQuestion)
	b.WriteString("\n\nCANDIDATE'S LATEST ANSWER:\n")
	b.WriteString(req.Answer)
	b.WriteString("\n")

	if len(req.Context) > 0 {
		b.WriteString("\nREFERENCE CONTEXT:\n")
		b.WriteString(strings.Join(req.Context, "\n\n"))
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nIf this answer is bad it would make %d bad answers in total and %d consecutive.\n",
		req.BadAnswerCount+1, req.ConsecutiveBadAnswers+1)
	b.WriteString("Decide the action, judge the quality, and respond with the JSON object only.\n")

	return Completion{
		System:      system,
		Prompt:      b.String(),
		Temperature: temperature,
		MaxTokens:   decisionMaxTokens,
	}
}

// RenderClarificationPrompt turns a clarification request into its
// completion call.
func RenderClarificationPrompt(req ClarificationRequest) Completion {
	var b strings.Builder
	b.WriteString("You are a Senior Technical Interviewer conducting a coding interview. ")
	b.WriteString("The candidate has asked for clarification about the problem.\n\n")
	fmt.Fprintf(&b, "Base Question: %s\n", req.BaseQuestion)
	fmt.Fprintf(&b, "Candidate's Clarification Request: %s\n\n", req.Question)
	b.WriteString("Provide a helpful clarification response as the interviewer. Be concise and speak directly to the candidate. ")
	b.WriteString(`Use phrases like "You can..." or "I'd suggest..." rather than referring to the interviewer in third person. `)
	b.WriteString("Do not solve the problem for them.")

	return Completion{
		Prompt:      b.String(),
		Temperature: clarifyTemperature,
		MaxTokens:   clarifyMaxTokens,
	}
}
