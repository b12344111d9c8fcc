package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/ai-interviewer/internal/ai"
	"github.com/spigell/ai-interviewer/internal/interview"
)

// Grader scores candidate answers. It implements interview.Grader.
type Grader struct {
	base
}

func NewGrader(llm ai.Completer, opts Options, logger *zap.Logger) *Grader {
	return &Grader{base: newBase("grader", llm, opts.withDefaults(0.1, 10), logger)}
}

// Grade returns the raw model score. Output that is not a single integer yields an error
// wrapping interview.ErrMalformedScore. Range checks are left to the caller.
func (g *Grader) Grade(ctx context.Context, question, answer string) (int, error) {
	raw, err := g.complete(ctx, ai.Request{
		Prompt: render(graderPrompt, map[string]string{
			"QUESTION": question,
			"ANSWER":   answer,
		}),
	})
	if err != nil {
		return 0, fmt.Errorf("grade answer: %w", err)
	}

	score, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", interview.ErrMalformedScore, raw)
	}
	return score, nil
}
