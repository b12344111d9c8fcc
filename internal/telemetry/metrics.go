package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	attrEvent     = attribute.Key("interview.event")
	attrDifficult = attribute.Key("interview.difficulty")
	attrCoding    = attribute.Key("interview.coding_question")
	attrAgent     = attribute.Key("llm.agent")
	attrProvider  = attribute.Key("llm.provider")
	attrModel     = attribute.Key("llm.model")
	attrError     = attribute.Key("error")
)

// TurnData describes one controller operation.
type TurnData struct {
	// Event is start, advance or end.
	Event      string
	Difficulty int
	Coding     bool
	// Score is recorded when HasScore is set.
	Score    int
	HasScore bool
	Error    error
}

// LLMData describes one model call.
type LLMData struct {
	Agent    string
	Provider string
	Model    string
	Duration time.Duration
	Error    error
}

type metrics struct {
	turns       metric.Int64Counter
	scores      metric.Int64Histogram
	llmRequests metric.Int64Counter
	llmLatency  metric.Float64Histogram
}

type meter interface {
	Int64Counter(name string, opts ...metric.Int64CounterOption) (metric.Int64Counter, error)
	Int64Histogram(name string, opts ...metric.Int64HistogramOption) (metric.Int64Histogram, error)
	Float64Histogram(name string, opts ...metric.Float64HistogramOption) (metric.Float64Histogram, error)
}

func newMetrics(m meter) (*metrics, error) {
	turns, err := m.Int64Counter("interview.turns.total", metric.WithDescription("Interview operations by event."))
	if err != nil {
		return nil, err
	}
	scores, err := m.Int64Histogram("interview.answer.score", metric.WithDescription("Graded answer scores."), metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}
	requests, err := m.Int64Counter("llm.requests.total", metric.WithDescription("Language model calls."))
	if err != nil {
		return nil, err
	}
	latency, err := m.Float64Histogram("llm.latency.ms", metric.WithDescription("Language model latency in milliseconds."), metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	return &metrics{turns: turns, scores: scores, llmRequests: requests, llmLatency: latency}, nil
}

func (m *metrics) RecordTurn(ctx context.Context, data TurnData) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attrEvent.String(data.Event),
		attrDifficult.Int(data.Difficulty),
		attrCoding.Bool(data.Coding),
		attrError.Bool(data.Error != nil),
	)
	m.turns.Add(ctx, 1, attrs)
	if data.HasScore {
		m.scores.Record(ctx, int64(data.Score), metric.WithAttributes(attrEvent.String(data.Event)))
	}
}

func (m *metrics) RecordLLMRequest(ctx context.Context, data LLMData) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attrAgent.String(data.Agent),
		attrProvider.String(data.Provider),
		attrModel.String(data.Model),
		attrError.Bool(data.Error != nil),
	)
	m.llmRequests.Add(ctx, 1, attrs)
	if data.Duration > 0 {
		m.llmLatency.Record(ctx, float64(data.Duration.Milliseconds()), attrs)
	}
}
