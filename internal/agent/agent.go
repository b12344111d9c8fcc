// Package agent holds the prompt-driven roles of an interview: interviewer, grader,
// resume and code evaluators and the report writer.
package agent

import (
	"context"
	_ "embed"
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/ai-interviewer/internal/ai"
	"github.com/spigell/ai-interviewer/internal/utils"
)

const defaultMaxLogLength = 200

var (
	//go:embed prompts/interviewer.md
	interviewerPrompt string
	//go:embed prompts/grader.md
	graderPrompt string
	//go:embed prompts/resume.md
	resumePrompt string
	//go:embed prompts/code.md
	codePrompt string
	//go:embed prompts/report.md
	reportPrompt string
)

// Options tune a single agent.
type Options struct {
	Temperature  float32
	MaxTokens    int
	MaxLogLength int
}

func (o Options) withDefaults(temperature float32, maxTokens int) Options {
	if o.Temperature <= 0 {
		o.Temperature = temperature
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = maxTokens
	}
	if o.MaxLogLength <= 0 {
		o.MaxLogLength = defaultMaxLogLength
	}
	return o
}

// base is shared by all agents.
type base struct {
	name   string
	llm    ai.Completer
	opts   Options
	logger *zap.Logger
}

func newBase(name string, llm ai.Completer, opts Options, logger *zap.Logger) base {
	if logger == nil {
		logger = zap.NewNop()
	}
	return base{
		name:   name,
		llm:    llm,
		opts:   opts,
		logger: logger.With(zap.String("agent", name)),
	}
}

func (b base) complete(ctx context.Context, req ai.Request) (string, error) {
	if b.llm == nil {
		return "", errors.New(b.name + ": no language model configured")
	}

	req.Temperature = b.opts.Temperature
	req.MaxTokens = b.opts.MaxTokens

	b.logger.Debug("completion request",
		zap.Int("history_length", len(req.History)),
		zap.Int("prompt_length", utf8.RuneCountInString(req.Prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(req.Prompt, b.opts.MaxLogLength)),
	)

	raw, err := b.llm.Complete(ctx, req)
	if err != nil {
		return "", err
	}

	b.logger.Debug("completion response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, b.opts.MaxLogLength)),
	)

	return strings.TrimSpace(raw), nil
}

// render replaces {{KEY}} placeholders in template.
func render(template string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for key, value := range values {
		pairs = append(pairs, "{{"+key+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if start := strings.Index(raw, "```"); start != -1 {
		raw = raw[start+3:]
		raw = strings.TrimPrefix(raw, "json")
		if end := strings.Index(raw, "```"); end != -1 {
			raw = raw[:end]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
