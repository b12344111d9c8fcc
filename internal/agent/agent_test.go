package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/ai-interviewer/internal/ai"
	"github.com/spigell/ai-interviewer/internal/interview"
)

type fakeCompleter struct {
	replies  []string
	err      error
	requests []ai.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req ai.Request) (string, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", nil
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

func (f *fakeCompleter) Model() string { return "fake" }

func TestInterviewerOpeningAndDirectives(t *testing.T) {
	t.Parallel()

	llm := &fakeCompleter{replies: []string{" Hello! ", "Next?", "Write a function."}}
	i := NewInterviewer(llm, Options{}, zap.NewNop())
	ctx := context.Background()

	opening, err := i.Generate(ctx, interview.Context{
		ResumeAnalysis:     "Strong Go background",
		QuestionNumber:     1,
		Difficulty:         interview.Medium,
		DurationBudget:     45,
		QuestionsRemaining: 10,
		Directive:          interview.DirectiveContinue,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opening != "Hello!" {
		t.Fatalf("unexpected opening: %q", opening)
	}

	req := llm.requests[0]
	if req.Prompt != openingInstruction {
		t.Fatalf("unexpected opening prompt: %q", req.Prompt)
	}
	for _, want := range []string{"Strong Go background", "Question number: 1", "Difficulty level (1-4): 2", "Questions remaining: 10", "Minutes elapsed: 0 of 45"} {
		if !strings.Contains(req.System, want) {
			t.Fatalf("system prompt misses %q", want)
		}
	}
	if strings.Contains(req.System, "{{") {
		t.Fatal("system prompt has unreplaced placeholders")
	}
	if req.Temperature != 0.7 || req.MaxTokens != 1024 {
		t.Fatalf("unexpected defaults: %v %d", req.Temperature, req.MaxTokens)
	}

	history := []interview.Message{
		{Role: interview.RoleInterviewer, Content: "Hello!"},
		{Role: interview.RoleCandidate, Content: "Hi"},
	}
	if _, err := i.Generate(ctx, interview.Context{History: history, Directive: interview.DirectiveContinue}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if llm.requests[1].Prompt != continueInstruction {
		t.Fatalf("unexpected prompt: %q", llm.requests[1].Prompt)
	}
	got := llm.requests[1].History
	if len(got) != 2 || got[0].Role != ai.RoleAssistant || got[1].Role != ai.RoleUser {
		t.Fatalf("unexpected history mapping: %+v", got)
	}

	if _, err := i.Generate(ctx, interview.Context{History: history, Directive: interview.DirectiveAskCodingQuestion}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if llm.requests[2].Prompt != codingInstruction {
		t.Fatalf("unexpected prompt: %q", llm.requests[2].Prompt)
	}
}

func TestInterviewerPropagatesErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	i := NewInterviewer(&fakeCompleter{err: boom}, Options{}, nil)
	if _, err := i.Generate(context.Background(), interview.Context{}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestGraderParsesScores(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		reply     string
		expect    int
		malformed bool
	}{
		{name: "plain integer", reply: "85", expect: 85},
		{name: "surrounding whitespace", reply: "  42\n", expect: 42},
		{name: "out of range is returned as is", reply: "140", expect: 140},
		{name: "words", reply: "eighty", malformed: true},
		{name: "sentence", reply: "Score: 80", malformed: true},
		{name: "decimal", reply: "80.5", malformed: true},
		{name: "empty", reply: "", malformed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			llm := &fakeCompleter{replies: []string{tt.reply}}
			score, err := NewGrader(llm, Options{}, nil).Grade(context.Background(), "What is a goroutine?", "A thread")
			if tt.malformed {
				if !errors.Is(err, interview.ErrMalformedScore) {
					t.Fatalf("expected ErrMalformedScore, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if score != tt.expect {
				t.Fatalf("expected %d, got %d", tt.expect, score)
			}
			if !strings.Contains(llm.requests[0].Prompt, "What is a goroutine?") {
				t.Fatal("prompt misses the question")
			}
			if llm.requests[0].Temperature != 0.1 {
				t.Fatalf("unexpected temperature: %v", llm.requests[0].Temperature)
			}
		})
	}
}

func TestGraderServiceFailureIsNotMalformed(t *testing.T) {
	t.Parallel()

	_, err := NewGrader(&fakeCompleter{err: errors.New("unavailable")}, Options{}, nil).Grade(context.Background(), "q", "a")
	if err == nil || errors.Is(err, interview.ErrMalformedScore) {
		t.Fatalf("expected service error, got %v", err)
	}
}

func TestResumeEvaluator(t *testing.T) {
	t.Parallel()

	llm := &fakeCompleter{replies: []string{"analysis"}}
	r := NewResumeEvaluator(llm, Options{Temperature: 0.2}, nil)

	if _, err := r.Evaluate(context.Background(), " ", "job"); err == nil {
		t.Fatal("expected error for empty resume")
	}

	got, err := r.Evaluate(context.Background(), "Go developer, 5 years", "Backend engineer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "analysis" {
		t.Fatalf("unexpected analysis: %q", got)
	}
	req := llm.requests[0]
	if !strings.Contains(req.Prompt, "Go developer, 5 years") || !strings.Contains(req.Prompt, "Backend engineer") {
		t.Fatal("prompt misses inputs")
	}
	if req.Temperature != 0.2 || req.MaxTokens != 4096 {
		t.Fatalf("unexpected options: %v %d", req.Temperature, req.MaxTokens)
	}
}

func TestCodeEvaluatorParsesFencedJSON(t *testing.T) {
	t.Parallel()

	reply := "Here you go:\n```json\n{\"score\": \"8\", \"correctness_score\": 35, \"approach_score\": 25, " +
		"\"quality_score\": 15, \"completeness_score\": 8, \"strengths\": [\"clear\"], " +
		"\"weaknesses\": [], \"summary\": \"Good\", \"feedback\": \"Handle empty input\"}\n```"

	evaluation, err := NewCodeEvaluator(&fakeCompleter{replies: []string{reply}}, Options{}, nil).
		Evaluate(context.Background(), "Reverse a list", "func reverse() {}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if evaluation.Fallback {
		t.Fatal("did not expect fallback")
	}
	if evaluation.Score != 8 || evaluation.Correctness != 35 || evaluation.Summary != "Good" {
		t.Fatalf("unexpected evaluation: %+v", evaluation)
	}
	if len(evaluation.Strengths) != 1 || evaluation.Strengths[0] != "clear" {
		t.Fatalf("unexpected strengths: %+v", evaluation.Strengths)
	}
}

func TestCodeEvaluatorFallsBack(t *testing.T) {
	t.Parallel()

	core, observed := observer.New(zapcore.WarnLevel)
	evaluation, err := NewCodeEvaluator(&fakeCompleter{replies: []string{"not json at all"}}, Options{}, zap.New(core)).
		Evaluate(context.Background(), "Reverse a list", "code")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !evaluation.Fallback || evaluation.Score != FallbackCodeScore {
		t.Fatalf("expected fallback evaluation, got %+v", evaluation)
	}
	if observed.Len() != 1 {
		t.Fatalf("expected a warning, got %d entries", observed.Len())
	}
}

func TestCodeEvaluatorClampsScore(t *testing.T) {
	t.Parallel()

	evaluation, err := parseEvaluation(`{"score": 14}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if evaluation.Score != 10 {
		t.Fatalf("expected clamped score, got %d", evaluation.Score)
	}
}

func TestReportGenerator(t *testing.T) {
	t.Parallel()

	llm := &fakeCompleter{replies: []string{"# Report"}}
	report, err := NewReportGenerator(llm, Options{}, nil).Generate(context.Background(), ReportInput{
		Transcript:      "INTERVIEWER: hi",
		CodingScore:     7,
		CandidateName:   "Ada",
		JobRole:         "Backend",
		Date:            time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		DurationMinutes: 42,
		ResumeAnalysis:  "analysis",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report != "# Report" {
		t.Fatalf("unexpected report: %q", report)
	}
	prompt := llm.requests[0].Prompt
	for _, want := range []string{"INTERVIEWER: hi", "(0-10): 7", "Name: Ada", "2025-03-01", "42 minutes"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt misses %q", want)
		}
	}
}

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"{\"a\":1}":                    "{\"a\":1}",
		"```json\n{\"a\":1}\n```":      "{\"a\":1}",
		"```\n{\"a\":1}\n```":          "{\"a\":1}",
		"text ```json {\"a\":1}``` x": "{\"a\":1}",
	}
	for input, expect := range tests {
		if got := extractJSON(input); got != expect {
			t.Fatalf("extractJSON(%q): expected %q, got %q", input, expect, got)
		}
	}
}
