package interview

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ClosingStatement is appended to the transcript when the interview ends.
const ClosingStatement = "Thank you for your time today. You did well and showed good problem-solving skills. " +
	"We'll review your interview and get back to you soon. Do you have any questions for me?"

// Deps aggregates the collaborators of a controller.
type Deps struct {
	Generator Generator
	Grader    Grader
	// Sink is optional. When nil nothing is persisted.
	Sink   Sink
	Logger *zap.Logger
}

// Controller drives a single interview session. It is not safe for concurrent use.
type Controller struct {
	cfg       Config
	session   *Session
	generator Generator
	grader    Grader
	sink      Sink
	logger    *zap.Logger

	now func() time.Time
}

// NewController creates a controller for a new session built from the resume analysis.
func NewController(cfg Config, resumeAnalysis string, deps *Deps) (*Controller, error) {
	if deps == nil || deps.Generator == nil {
		return nil, errors.New("answer generator is required")
	}
	if deps.Grader == nil {
		return nil, errors.New("response grader is required")
	}
	if cfg.TotalQuestions() <= 0 {
		return nil, fmt.Errorf("question budget must be positive, got %d", cfg.TotalQuestions())
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	session := NewSession(resumeAnalysis)

	return &Controller{
		cfg:       cfg,
		session:   session,
		generator: deps.Generator,
		grader:    deps.Grader,
		sink:      deps.Sink,
		logger:    logger.With(zap.String("session_id", session.ID())),
		now:       time.Now,
	}, nil
}

func (c *Controller) SessionID() string { return c.session.ID() }

func (c *Controller) Status() Status { return c.session.status }

func (c *Controller) Config() Config { return c.cfg }

// Start issues the opening question.
func (c *Controller) Start(ctx context.Context) (string, error) {
	s := c.session
	switch s.status {
	case StatusActive:
		return "", ErrAlreadyStarted
	case StatusCompleted:
		return "", ErrEnded
	}

	s.questionNumber = 1
	s.startedAt = c.now()

	opening, err := c.generator.Generate(ctx, Context{
		ResumeAnalysis:     s.resumeAnalysis,
		QuestionNumber:     s.questionNumber,
		Difficulty:         StartingLevel,
		ElapsedMinutes:     0,
		DurationBudget:     c.cfg.DurationBudget(),
		QuestionsRemaining: c.cfg.TotalQuestions(),
		Directive:          DirectiveContinue,
	})
	if err != nil {
		return "", fmt.Errorf("generate opening: %w", err)
	}

	s.status = StatusActive
	s.history = append(s.history, Message{Role: RoleInterviewer, Content: opening})

	entry := Entry{
		Type:           EntryOpening,
		Timestamp:      c.now(),
		QuestionNumber: s.questionNumber,
		Interviewer:    opening,
	}
	s.transcript = append(s.transcript, entry)

	c.logger.Info("interview started", zap.Int("questions_budget", c.cfg.TotalQuestions()))

	return opening, c.persist(ctx, entry)
}

// Advance records the candidate answer and produces the next question.
//
// State changes made before the generator call (history, score, difficulty, question number) stay
// applied when generation fails. The coding question latch is committed together with its text.
func (c *Controller) Advance(ctx context.Context, answer string) (*Turn, error) {
	s := c.session
	switch s.status {
	case StatusNotStarted:
		return nil, ErrNotStarted
	case StatusCompleted:
		return nil, ErrEnded
	}

	s.history = append(s.history, Message{Role: RoleCandidate, Content: answer})

	if question, ok := c.previousQuestion(); ok {
		score, err := c.grade(ctx, question, answer)
		if err != nil {
			return nil, fmt.Errorf("grade answer: %w", err)
		}

		s.scores = append(s.scores, score)

		previous := s.difficulty
		category := Categorize(score)
		s.difficulty = s.difficulty.Adjust(category.Delta())

		c.logger.Debug("answer graded",
			zap.Int("score", score),
			zap.String("category", string(category)),
			zap.Int("difficulty_before", int(previous)),
			zap.Int("difficulty_after", int(s.difficulty)),
		)
	}

	elapsed := c.elapsedMinutes()
	askCoding := !s.codingAsked && s.questionNumber >= c.cfg.CodingThreshold()

	s.questionNumber++
	remaining := max(0, c.cfg.TotalQuestions()-s.questionNumber)

	directive := DirectiveContinue
	if askCoding {
		directive = DirectiveAskCodingQuestion
	}

	text, err := c.generator.Generate(ctx, Context{
		ResumeAnalysis:     s.resumeAnalysis,
		QuestionNumber:     s.questionNumber,
		Difficulty:         s.difficulty,
		ElapsedMinutes:     elapsed,
		DurationBudget:     c.cfg.DurationBudget(),
		QuestionsRemaining: remaining,
		History:            append([]Message(nil), s.history...),
		Directive:          directive,
	})
	if err != nil {
		return nil, fmt.Errorf("generate question %d: %w", s.questionNumber, err)
	}

	s.history = append(s.history, Message{Role: RoleInterviewer, Content: text})

	entryType := EntryQuestion
	if askCoding {
		entryType = EntryCodingQuestion
		s.codingAsked = true
		s.codingQuestion = &text
		c.logger.Info("coding question asked", zap.Int("question_number", s.questionNumber))
	}

	entry := Entry{
		Type:           entryType,
		Timestamp:      c.now(),
		QuestionNumber: s.questionNumber,
		Difficulty:     s.difficulty,
		Interviewer:    text,
		Candidate:      answer,
	}
	s.transcript = append(s.transcript, entry)

	turn := &Turn{
		QuestionText:       text,
		IsCodingQuestion:   askCoding,
		QuestionNumber:     s.questionNumber,
		Difficulty:         s.difficulty,
		ElapsedMinutes:     elapsed,
		QuestionsRemaining: remaining,
	}

	return turn, c.persist(ctx, entry)
}

// End closes the interview. Calling it on an ended session returns the closing text without
// appending a second closing entry.
func (c *Controller) End(ctx context.Context) (string, error) {
	s := c.session
	switch s.status {
	case StatusNotStarted:
		return "", ErrNotStarted
	case StatusCompleted:
		return ClosingStatement, nil
	}

	entry := Entry{
		Type:        EntryClosing,
		Timestamp:   c.now(),
		Interviewer: ClosingStatement,
	}
	s.transcript = append(s.transcript, entry)
	s.status = StatusCompleted

	c.logger.Info("interview ended",
		zap.Int("questions_asked", s.questionNumber),
		zap.Float64("average_score", s.averageScore()),
	)

	return ClosingStatement, c.persist(ctx, entry)
}

// AverageScore is the mean of all recorded answer scores, 0 when none were recorded.
func (c *Controller) AverageScore() float64 {
	return c.session.averageScore()
}

// Transcript returns the transcript entries in insertion order.
func (c *Controller) Transcript() []Entry {
	return append([]Entry(nil), c.session.transcript...)
}

// History returns the conversation history in insertion order.
func (c *Controller) History() []Message {
	return append([]Message(nil), c.session.history...)
}

// CodingQuestion returns the coding question once it has been asked.
func (c *Controller) CodingQuestion() (string, bool) {
	if c.session.codingQuestion == nil {
		return "", false
	}
	return *c.session.codingQuestion, true
}

// ElapsedMinutes is the whole number of minutes since Start.
func (c *Controller) ElapsedMinutes() int {
	return c.elapsedMinutes()
}

func (c *Controller) Snapshot() Snapshot {
	return c.session.snapshot()
}

// SaveReport hands the report to the sink.
func (c *Controller) SaveReport(ctx context.Context, report *Report) error {
	if c.sink == nil || report == nil {
		return nil
	}
	if err := c.sink.Write(ctx, c.session.ID(), report); err != nil {
		c.logger.Warn("writing report failed", zap.Error(err))
		return fmt.Errorf("%w: write report: %w", ErrPersistence, err)
	}
	return nil
}

func (c *Controller) previousQuestion() (string, bool) {
	// The candidate answer is already appended, so look before it.
	history := c.session.history
	for i := len(history) - 2; i >= 0; i-- {
		if history[i].Role == RoleInterviewer {
			return history[i].Content, true
		}
	}
	return "", false
}

func (c *Controller) grade(ctx context.Context, question, answer string) (int, error) {
	score, err := c.grader.Grade(ctx, question, answer)
	if errors.Is(err, ErrMalformedScore) {
		c.logger.Warn("grader returned malformed score, using neutral score",
			zap.Error(err),
			zap.Int("score", NeutralScore),
		)
		return NeutralScore, nil
	}
	if err != nil {
		return 0, err
	}

	if !validScore(score) {
		c.logger.Warn("grader returned out of range score, using neutral score",
			zap.Int("raw_score", score),
			zap.Int("score", NeutralScore),
		)
		return NeutralScore, nil
	}

	return score, nil
}

func (c *Controller) elapsedMinutes() int {
	if c.session.startedAt.IsZero() {
		return 0
	}
	elapsed := c.now().Sub(c.session.startedAt)
	if elapsed < 0 {
		return 0
	}
	return int(elapsed / time.Minute)
}

func (c *Controller) persist(ctx context.Context, entry Entry) error {
	if c.sink == nil {
		return nil
	}
	if err := c.sink.Append(ctx, c.session.ID(), entry); err != nil {
		c.logger.Warn("persisting transcript entry failed",
			zap.String("entry_type", string(entry.Type)),
			zap.Error(err),
		)
		return fmt.Errorf("%w: append %s entry: %w", ErrPersistence, entry.Type, err)
	}
	return nil
}
