package telemetry

import (
	"context"
	"time"

	"github.com/spigell/ai-interviewer/internal/ai"
)

type instrumentedCompleter struct {
	next     ai.Completer
	manager  *Manager
	agent    string
	provider string
	now      func() time.Time
}

// Completer wraps next so that every call produces a span and request metrics.
// With a nil manager next is returned as is.
func (m *Manager) Completer(next ai.Completer, agent, provider string) ai.Completer {
	if m == nil || next == nil {
		return next
	}
	return &instrumentedCompleter{next: next, manager: m, agent: agent, provider: provider, now: time.Now}
}

func (c *instrumentedCompleter) Model() string { return c.next.Model() }

func (c *instrumentedCompleter) Complete(ctx context.Context, req ai.Request) (string, error) {
	ctx, span := c.manager.StartSpan(ctx, "llm.complete",
		attrAgent.String(c.agent),
		attrProvider.String(c.provider),
		attrModel.String(c.next.Model()),
	)

	started := c.now()
	out, err := c.next.Complete(ctx, req)
	c.manager.RecordLLMRequest(ctx, LLMData{
		Agent:    c.agent,
		Provider: c.provider,
		Model:    c.next.Model(),
		Duration: c.now().Sub(started),
		Error:    err,
	})
	EndSpan(span, err)

	return out, err
}
