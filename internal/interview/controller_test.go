package interview

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeGenerator struct {
	contexts []Context
	errs     map[int]error
}

func (f *fakeGenerator) Generate(_ context.Context, c Context) (string, error) {
	f.contexts = append(f.contexts, c)
	call := len(f.contexts)
	if err, ok := f.errs[call]; ok {
		return "", err
	}
	return fmt.Sprintf("interviewer turn %d", call), nil
}

func (f *fakeGenerator) last() Context {
	return f.contexts[len(f.contexts)-1]
}

type gradeCall struct {
	question string
	answer   string
}

type fakeGrader struct {
	scores []int
	errs   map[int]error
	calls  []gradeCall
}

func (f *fakeGrader) Grade(_ context.Context, question, answer string) (int, error) {
	f.calls = append(f.calls, gradeCall{question: question, answer: answer})
	call := len(f.calls)
	if err, ok := f.errs[call]; ok {
		return 0, err
	}
	if call > len(f.scores) {
		return NeutralScore, nil
	}
	return f.scores[call-1], nil
}

type fakeSink struct {
	entries []Entry
	reports []*Report
	err     error
}

func (f *fakeSink) Append(_ context.Context, _ string, entry Entry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeSink) Write(_ context.Context, _ string, report *Report) error {
	if f.err != nil {
		return f.err
	}
	f.reports = append(f.reports, report)
	return nil
}

type clock struct {
	current time.Time
}

func (c *clock) now() time.Time { return c.current }

func newTestController(t *testing.T, cfg Config, gen *fakeGenerator, grader *fakeGrader, sink Sink) (*Controller, *clock) {
	t.Helper()

	deps := &Deps{Generator: gen, Grader: grader, Logger: zap.NewNop()}
	if sink != nil {
		deps.Sink = sink
	}

	ctrl, err := NewController(cfg, "strong Go background", deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clk := &clock{current: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	ctrl.now = clk.now

	return ctrl, clk
}

func TestNewControllerRequiresCollaborators(t *testing.T) {
	t.Parallel()

	if _, err := NewController(DefaultConfig(), "", nil); err == nil {
		t.Fatal("expected error without deps")
	}
	if _, err := NewController(DefaultConfig(), "", &Deps{Generator: &fakeGenerator{}}); err == nil {
		t.Fatal("expected error without grader")
	}
	if _, err := NewController(Config{}, "", &Deps{Generator: &fakeGenerator{}, Grader: &fakeGrader{}}); err == nil {
		t.Fatal("expected error for empty question budget")
	}
}

func TestStartIssuesOpening(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{}
	ctrl, _ := newTestController(t, DefaultConfig(), gen, &fakeGrader{}, nil)

	opening, err := ctrl.Start(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if opening != "interviewer turn 1" {
		t.Fatalf("unexpected opening: %q", opening)
	}

	got := gen.last()
	if got.QuestionNumber != 1 || got.Difficulty != Medium || got.ElapsedMinutes != 0 {
		t.Fatalf("unexpected opening context: %+v", got)
	}
	if got.QuestionsRemaining != 10 {
		t.Fatalf("expected full budget of 10, got %d", got.QuestionsRemaining)
	}
	if got.ResumeAnalysis != "strong Go background" || got.Directive != DirectiveContinue {
		t.Fatalf("unexpected opening context: %+v", got)
	}

	transcript := ctrl.Transcript()
	if len(transcript) != 1 || transcript[0].Type != EntryOpening || transcript[0].QuestionNumber != 1 {
		t.Fatalf("unexpected transcript: %+v", transcript)
	}

	if ctrl.Status() != StatusActive {
		t.Fatalf("expected active status, got %s", ctrl.Status())
	}

	if _, err := ctrl.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestDurationBudgetReachesGenerator(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		budget int
		expect int
	}{
		{name: "configured", budget: 30, expect: 30},
		{name: "unset", budget: 0, expect: 45},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			cfg.MaxDuration = tt.budget

			gen := &fakeGenerator{}
			ctrl, _ := newTestController(t, cfg, gen, &fakeGrader{scores: []int{60}}, nil)

			if _, err := ctrl.Start(context.Background()); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if _, err := ctrl.Advance(context.Background(), "answer"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			for i, c := range gen.contexts {
				if c.DurationBudget != tt.expect {
					t.Fatalf("call %d: expected budget %d, got %d", i+1, tt.expect, c.DurationBudget)
				}
			}
		})
	}
}

func TestStartFailureCanBeRetried(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{errs: map[int]error{1: errors.New("quota exceeded")}}
	ctrl, _ := newTestController(t, DefaultConfig(), gen, &fakeGrader{}, nil)

	if _, err := ctrl.Start(context.Background()); err == nil {
		t.Fatal("expected generator error")
	}
	if ctrl.Status() != StatusNotStarted {
		t.Fatalf("expected not started, got %s", ctrl.Status())
	}

	if _, err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error on retry: %v", err)
	}
}

func TestAdvanceAdaptiveScenario(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{}
	grader := &fakeGrader{scores: []int{95, 10, 50, 50}}
	ctrl, _ := newTestController(t, DefaultConfig(), gen, grader, nil)
	ctx := context.Background()

	if _, err := ctrl.Start(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	turn, err := ctrl.Advance(ctx, "first answer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if turn.Difficulty != Expert || turn.QuestionNumber != 2 || turn.QuestionsRemaining != 8 {
		t.Fatalf("unexpected first turn: %+v", turn)
	}
	if turn.IsCodingQuestion {
		t.Fatal("coding question must not be asked on the first advance")
	}

	if grader.calls[0].question != "interviewer turn 1" || grader.calls[0].answer != "first answer" {
		t.Fatalf("grader got unexpected pair: %+v", grader.calls[0])
	}

	turn, err = ctrl.Advance(ctx, "second answer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if turn.Difficulty != Medium || turn.QuestionNumber != 3 {
		t.Fatalf("unexpected second turn: %+v", turn)
	}

	turn, err = ctrl.Advance(ctx, "third answer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if turn.IsCodingQuestion || turn.QuestionNumber != 4 {
		t.Fatalf("unexpected third turn: %+v", turn)
	}

	turn, err = ctrl.Advance(ctx, "fourth answer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !turn.IsCodingQuestion || turn.QuestionNumber != 5 {
		t.Fatalf("expected coding question on fourth advance, got %+v", turn)
	}

	if gen.last().Directive != DirectiveAskCodingQuestion {
		t.Fatalf("expected coding directive, got %s", gen.last().Directive)
	}

	question, ok := ctrl.CodingQuestion()
	if !ok || question != turn.QuestionText {
		t.Fatalf("expected coding question to be stored, got %q", question)
	}

	snap := ctrl.Snapshot()
	if len(snap.Scores) != 4 {
		t.Fatalf("expected one score per answer, got %v", snap.Scores)
	}
}

func TestAdvanceHistoryPassedToGenerator(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{}
	ctrl, _ := newTestController(t, DefaultConfig(), gen, &fakeGrader{}, nil)
	ctx := context.Background()

	if _, err := ctrl.Start(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ctrl.Advance(ctx, "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	history := gen.last().History
	if len(history) != 2 {
		t.Fatalf("expected opening and answer in history, got %+v", history)
	}
	if history[0].Role != RoleInterviewer || history[1].Role != RoleCandidate || history[1].Content != "hello" {
		t.Fatalf("unexpected history: %+v", history)
	}

	if got := len(ctrl.History()); got != 3 {
		t.Fatalf("expected 3 history messages, got %d", got)
	}
}

func TestCodingLatchFiresOnce(t *testing.T) {
	t.Parallel()

	for _, warmup := range []int{0, 1, 2, 4} {
		cfg := Config{WarmupQuestions: warmup, CoreQuestions: 5, AdvancedQuestions: 3}
		gen := &fakeGenerator{}
		ctrl, _ := newTestController(t, cfg, gen, &fakeGrader{}, nil)
		ctx := context.Background()

		if _, err := ctrl.Start(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		fired := 0
		for i := 0; i < 15; i++ {
			before := ctrl.Snapshot().QuestionNumber
			turn, err := ctrl.Advance(ctx, "answer")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if turn.IsCodingQuestion {
				fired++
				if before < cfg.CodingThreshold() {
					t.Fatalf("warmup %d: coding fired at question %d, threshold %d", warmup, before, cfg.CodingThreshold())
				}
			}
		}

		if fired != 1 {
			t.Fatalf("warmup %d: expected latch to fire once, fired %d times", warmup, fired)
		}
	}
}

func TestQuestionsRemainingNeverNegative(t *testing.T) {
	t.Parallel()

	cfg := Config{WarmupQuestions: 1, CoreQuestions: 1, AdvancedQuestions: 1}
	ctrl, _ := newTestController(t, cfg, &fakeGenerator{}, &fakeGrader{}, nil)
	ctx := context.Background()

	if _, err := ctrl.Start(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 5; i++ {
		turn, err := ctrl.Advance(ctx, "answer")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if turn.QuestionsRemaining < 0 {
			t.Fatalf("negative remaining questions: %+v", turn)
		}
	}
}

func TestMalformedGraderOutputUsesNeutralScore(t *testing.T) {
	t.Parallel()

	core, observed := observer.New(zapcore.WarnLevel)
	gen := &fakeGenerator{}
	grader := &fakeGrader{errs: map[int]error{1: fmt.Errorf("%w: %q", ErrMalformedScore, "about seventy")}}

	ctrl, err := NewController(DefaultConfig(), "", &Deps{Generator: gen, Grader: grader, Logger: zap.New(core)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	if _, err := ctrl.Start(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	turn, err := ctrl.Advance(ctx, "answer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := ctrl.Snapshot()
	if len(snap.Scores) != 1 || snap.Scores[0] != NeutralScore {
		t.Fatalf("expected neutral score, got %v", snap.Scores)
	}
	if Categorize(snap.Scores[0]) != RightDirection {
		t.Fatalf("expected neutral score to be RIGHT_DIRECTION")
	}
	if turn.Difficulty != StartingLevel {
		t.Fatalf("expected difficulty to stay %d, got %d", StartingLevel, turn.Difficulty)
	}

	if observed.FilterMessage("grader returned malformed score, using neutral score").Len() != 1 {
		t.Fatalf("expected warning about malformed score, got %+v", observed.All())
	}
}

func TestOutOfRangeGraderOutputUsesNeutralScore(t *testing.T) {
	t.Parallel()

	grader := &fakeGrader{scores: []int{150}}
	ctrl, _ := newTestController(t, DefaultConfig(), &fakeGenerator{}, grader, nil)
	ctx := context.Background()

	if _, err := ctrl.Start(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ctrl.Advance(ctx, "answer"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := ctrl.Snapshot().Scores; len(got) != 1 || got[0] != NeutralScore {
		t.Fatalf("expected neutral score, got %v", got)
	}
}

func TestGraderFailureIsPropagated(t *testing.T) {
	t.Parallel()

	serviceErr := errors.New("service unavailable")
	grader := &fakeGrader{errs: map[int]error{1: serviceErr}}
	ctrl, _ := newTestController(t, DefaultConfig(), &fakeGenerator{}, grader, nil)
	ctx := context.Background()

	if _, err := ctrl.Start(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := ctrl.Advance(ctx, "answer")
	if !errors.Is(err, serviceErr) {
		t.Fatalf("expected service error, got %v", err)
	}

	snap := ctrl.Snapshot()
	if len(snap.Scores) != 0 || snap.QuestionNumber != 1 {
		t.Fatalf("unexpected state after grader failure: %+v", snap)
	}
}

func TestGeneratorFailureKeepsAppliedState(t *testing.T) {
	t.Parallel()

	cfg := Config{WarmupQuestions: 0, CoreQuestions: 3, AdvancedQuestions: 1}
	gen := &fakeGenerator{errs: map[int]error{2: errors.New("overloaded")}}
	grader := &fakeGrader{scores: []int{95, 95}}
	ctrl, _ := newTestController(t, cfg, gen, grader, nil)
	ctx := context.Background()

	if _, err := ctrl.Start(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := ctrl.Advance(ctx, "answer"); err == nil {
		t.Fatal("expected generator error")
	}

	snap := ctrl.Snapshot()
	if len(snap.Scores) != 1 || snap.Difficulty != Expert || snap.QuestionNumber != 2 {
		t.Fatalf("expected score, difficulty and question number to stay applied: %+v", snap)
	}
	if len(ctrl.Transcript()) != 1 {
		t.Fatalf("expected no transcript entry for the failed turn")
	}
	if snap.CodingAsked {
		t.Fatal("coding latch must not be consumed by a failed generation")
	}

	turn, err := ctrl.Advance(ctx, "retry answer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !turn.IsCodingQuestion || turn.QuestionNumber != 3 {
		t.Fatalf("expected coding question after failed turn, got %+v", turn)
	}
}

func TestElapsedMinutesAreFloored(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{}
	ctrl, clk := newTestController(t, DefaultConfig(), gen, &fakeGrader{}, nil)
	ctx := context.Background()

	if _, err := ctrl.Start(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clk.current = clk.current.Add(3*time.Minute + 59*time.Second)

	turn, err := ctrl.Advance(ctx, "answer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if turn.ElapsedMinutes != 3 || gen.last().ElapsedMinutes != 3 {
		t.Fatalf("expected 3 elapsed minutes, got %d", turn.ElapsedMinutes)
	}
}

func TestUsageOrder(t *testing.T) {
	t.Parallel()

	ctrl, _ := newTestController(t, DefaultConfig(), &fakeGenerator{}, &fakeGrader{}, nil)
	ctx := context.Background()

	if _, err := ctrl.Advance(ctx, "too early"); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}
	if _, err := ctrl.End(ctx); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}

	if _, err := ctrl.Start(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	closing, err := ctrl.End(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if closing != ClosingStatement {
		t.Fatalf("unexpected closing: %q", closing)
	}

	if _, err := ctrl.Advance(ctx, "too late"); !errors.Is(err, ErrEnded) {
		t.Fatalf("expected ErrEnded, got %v", err)
	}
	if _, err := ctrl.Start(ctx); !errors.Is(err, ErrEnded) {
		t.Fatalf("expected ErrEnded, got %v", err)
	}
}

func TestEndIsIdempotent(t *testing.T) {
	t.Parallel()

	ctrl, _ := newTestController(t, DefaultConfig(), &fakeGenerator{}, &fakeGrader{}, nil)
	ctx := context.Background()

	if _, err := ctrl.Start(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := ctrl.End(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	closings := 0
	for _, entry := range ctrl.Transcript() {
		if entry.Type == EntryClosing {
			closings++
		}
	}
	if closings != 1 {
		t.Fatalf("expected a single closing entry, got %d", closings)
	}
	if ctrl.Status() != StatusCompleted {
		t.Fatalf("expected completed status, got %s", ctrl.Status())
	}
}

func TestAverageScore(t *testing.T) {
	t.Parallel()

	ctrl, _ := newTestController(t, DefaultConfig(), &fakeGenerator{}, &fakeGrader{scores: []int{80, 60, 100}}, nil)
	ctx := context.Background()

	if got := ctrl.AverageScore(); got != 0 {
		t.Fatalf("expected 0 without answers, got %v", got)
	}

	if _, err := ctrl.Start(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := ctrl.Advance(ctx, "answer"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := ctrl.AverageScore(); got != 80.0 {
		t.Fatalf("expected 80, got %v", got)
	}
}

func TestTranscriptRoundTrip(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	ctrl, _ := newTestController(t, DefaultConfig(), &fakeGenerator{}, &fakeGrader{}, sink)
	ctx := context.Background()

	if _, err := ctrl.Start(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	answers := []string{"a1", "a2", "a3", "a4", "a5"}
	for _, answer := range answers {
		if _, err := ctrl.Advance(ctx, answer); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if _, err := ctrl.End(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	transcript := ctrl.Transcript()
	if len(transcript) != len(answers)+2 {
		t.Fatalf("expected %d entries, got %d", len(answers)+2, len(transcript))
	}

	if transcript[0].Type != EntryOpening || transcript[len(transcript)-1].Type != EntryClosing {
		t.Fatalf("unexpected transcript bounds: %+v", transcript)
	}

	for i, answer := range answers {
		entry := transcript[i+1]
		if entry.Candidate != answer {
			t.Fatalf("entry %d: expected candidate %q, got %q", i+1, answer, entry.Candidate)
		}
		if entry.QuestionNumber != i+2 {
			t.Fatalf("entry %d: expected question number %d, got %d", i+1, i+2, entry.QuestionNumber)
		}
	}

	if len(sink.entries) != len(transcript) {
		t.Fatalf("expected every entry to be persisted, got %d", len(sink.entries))
	}
	for i := range transcript {
		if sink.entries[i] != transcript[i] {
			t.Fatalf("persisted entry %d differs: %+v vs %+v", i, sink.entries[i], transcript[i])
		}
	}

	transcript[0].Interviewer = "mutated"
	if ctrl.Transcript()[0].Interviewer == "mutated" {
		t.Fatal("transcript must not be mutable through the returned slice")
	}
}

func TestPersistenceFailureDoesNotRollBack(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{err: errors.New("disk full")}
	ctrl, _ := newTestController(t, DefaultConfig(), &fakeGenerator{}, &fakeGrader{scores: []int{75}}, sink)
	ctx := context.Background()

	opening, err := ctrl.Start(ctx)
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if opening == "" || ctrl.Status() != StatusActive {
		t.Fatal("expected session to start despite persistence failure")
	}

	turn, err := ctrl.Advance(ctx, "answer")
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if turn == nil || turn.Difficulty != Hard {
		t.Fatalf("expected turn result despite persistence failure, got %+v", turn)
	}
	if len(ctrl.Transcript()) != 2 {
		t.Fatalf("expected transcript to keep entries, got %d", len(ctrl.Transcript()))
	}

	if err := ctrl.SaveReport(ctx, &Report{}); !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected persistence error on report, got %v", err)
	}
}
