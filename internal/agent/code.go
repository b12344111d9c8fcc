package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/ai-interviewer/internal/ai"
)

// FallbackCodeScore is the score used when an evaluation could not be parsed.
const FallbackCodeScore = 5

// Evaluation is the structured verdict on a coding answer.
type Evaluation struct {
	Score        int      `mapstructure:"score" json:"score"`
	Correctness  int      `mapstructure:"correctness_score" json:"correctness_score"`
	Approach     int      `mapstructure:"approach_score" json:"approach_score"`
	Quality      int      `mapstructure:"quality_score" json:"quality_score"`
	Completeness int      `mapstructure:"completeness_score" json:"completeness_score"`
	Strengths    []string `mapstructure:"strengths" json:"strengths"`
	Weaknesses   []string `mapstructure:"weaknesses" json:"weaknesses"`
	Summary      string   `mapstructure:"summary" json:"summary"`
	Feedback     string   `mapstructure:"feedback" json:"feedback"`
	// Fallback is set when the model output could not be interpreted.
	Fallback bool `mapstructure:"-" json:"fallback,omitempty"`
}

func fallbackEvaluation() *Evaluation {
	return &Evaluation{
		Score:        FallbackCodeScore,
		Correctness:  20,
		Approach:     15,
		Quality:      10,
		Completeness: 5,
		Strengths:    []string{"Attempted solution"},
		Weaknesses:   []string{"Could not fully evaluate"},
		Summary:      "Code evaluation encountered parsing issues.",
		Feedback:     "Please review the solution manually.",
		Fallback:     true,
	}
}

// CodeEvaluator grades a coding answer.
type CodeEvaluator struct {
	base
}

func NewCodeEvaluator(llm ai.Completer, opts Options, logger *zap.Logger) *CodeEvaluator {
	return &CodeEvaluator{base: newBase("code_evaluator", llm, opts.withDefaults(0.3, 2048), logger)}
}

// Evaluate returns the model verdict. Unparseable output gives the fallback evaluation, not an error.
func (c *CodeEvaluator) Evaluate(ctx context.Context, question, code string) (*Evaluation, error) {
	if strings.TrimSpace(code) == "" {
		return nil, errors.New("candidate code is required")
	}

	raw, err := c.complete(ctx, ai.Request{
		Prompt: render(codePrompt, map[string]string{
			"CODING_QUESTION": question,
			"CANDIDATE_CODE":  code,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate code: %w", err)
	}

	evaluation, err := parseEvaluation(raw)
	if err != nil {
		c.logger.Warn("could not parse code evaluation, using fallback", zap.Error(err))
		return fallbackEvaluation(), nil
	}
	return evaluation, nil
}

func parseEvaluation(raw string) (*Evaluation, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(extractJSON(raw)), &data); err != nil {
		return nil, fmt.Errorf("parse evaluation: %w", err)
	}

	evaluation := &Evaluation{}
	if err := mapstructure.WeakDecode(data, evaluation); err != nil {
		return nil, fmt.Errorf("decode evaluation: %w", err)
	}

	evaluation.Score = clamp(evaluation.Score, 0, 10)
	return evaluation, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
