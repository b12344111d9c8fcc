package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/ai-interviewer/internal/ai"
)

// ResumeEvaluator turns a resume and a job description into interviewer notes.
type ResumeEvaluator struct {
	base
}

func NewResumeEvaluator(llm ai.Completer, opts Options, logger *zap.Logger) *ResumeEvaluator {
	return &ResumeEvaluator{base: newBase("resume_evaluator", llm, opts.withDefaults(0.3, 4096), logger)}
}

func (r *ResumeEvaluator) Evaluate(ctx context.Context, resume, jobDescription string) (string, error) {
	if strings.TrimSpace(resume) == "" {
		return "", errors.New("resume text is required")
	}
	if strings.TrimSpace(jobDescription) == "" {
		return "", errors.New("job description is required")
	}

	analysis, err := r.complete(ctx, ai.Request{
		Prompt: render(resumePrompt, map[string]string{
			"RESUME":          resume,
			"JOB_DESCRIPTION": jobDescription,
		}),
	})
	if err != nil {
		return "", fmt.Errorf("evaluate resume: %w", err)
	}
	return analysis, nil
}
