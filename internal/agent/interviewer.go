package agent

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/ai-interviewer/internal/ai"
	"github.com/spigell/ai-interviewer/internal/interview"
)

const (
	openingInstruction  = "Please start the interview with your opening statement and first question."
	continueInstruction = "Continue the interview with the next question."
	codingInstruction   = "Now ask a coding question. State the problem clearly, specify the input and output format, " +
		"and tell the candidate to type the solution in the coding editor. Keep it short enough to be read aloud."
)

// Interviewer produces interviewer dialogue. It implements interview.Generator.
type Interviewer struct {
	base
}

func NewInterviewer(llm ai.Completer, opts Options, logger *zap.Logger) *Interviewer {
	return &Interviewer{base: newBase("interviewer", llm, opts.withDefaults(0.7, 1024), logger)}
}

func (i *Interviewer) Generate(ctx context.Context, c interview.Context) (string, error) {
	system := render(interviewerPrompt, map[string]string{
		"RESUME_ANALYSIS":     c.ResumeAnalysis,
		"QUESTION_NUMBER":     strconv.Itoa(c.QuestionNumber),
		"DIFFICULTY_LEVEL":    strconv.Itoa(int(c.Difficulty)),
		"TIME_ELAPSED":        strconv.Itoa(c.ElapsedMinutes),
		"TIME_BUDGET":         strconv.Itoa(c.DurationBudget),
		"QUESTIONS_REMAINING": strconv.Itoa(c.QuestionsRemaining),
	})

	text, err := i.complete(ctx, ai.Request{
		System:  system,
		History: toMessages(c.History),
		Prompt:  instruction(c),
	})
	if err != nil {
		return "", fmt.Errorf("generate interviewer turn: %w", err)
	}
	return text, nil
}

func instruction(c interview.Context) string {
	switch {
	case len(c.History) == 0:
		return openingInstruction
	case c.Directive == interview.DirectiveAskCodingQuestion:
		return codingInstruction
	default:
		return continueInstruction
	}
}

func toMessages(history []interview.Message) []ai.Message {
	messages := make([]ai.Message, 0, len(history))
	for _, msg := range history {
		role := ai.RoleUser
		if msg.Role == interview.RoleInterviewer {
			role = ai.RoleAssistant
		}
		messages = append(messages, ai.Message{Role: role, Content: msg.Content})
	}
	return messages
}
