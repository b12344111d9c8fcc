package interview

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	defaultWarmupQuestions   = 2
	defaultCoreQuestions     = 5
	defaultAdvancedQuestions = 3
	defaultMaxDuration       = 45
)

// Config holds the question budget of an interview.
type Config struct {
	WarmupQuestions   int `mapstructure:"warmup-questions" json:"warmup_questions"`
	CoreQuestions     int `mapstructure:"core-questions" json:"core_questions"`
	AdvancedQuestions int `mapstructure:"advanced-questions" json:"advanced_questions"`
	// MaxDuration is the planned length of the interview in minutes. It paces the interviewer only.
	MaxDuration int `mapstructure:"max-duration" json:"max_duration"`
}

// DefaultConfig returns the 2/5/3 question split.
func DefaultConfig() Config {
	return Config{
		WarmupQuestions:   defaultWarmupQuestions,
		CoreQuestions:     defaultCoreQuestions,
		AdvancedQuestions: defaultAdvancedQuestions,
		MaxDuration:       defaultMaxDuration,
	}
}

// TotalQuestions is the fixed question budget of a session.
func (c Config) TotalQuestions() int {
	return c.WarmupQuestions + c.CoreQuestions + c.AdvancedQuestions
}

// DurationBudget returns MaxDuration, or 45 minutes when unset.
func (c Config) DurationBudget() int {
	if c.MaxDuration <= 0 {
		return defaultMaxDuration
	}
	return c.MaxDuration
}

// CodingThreshold is the first question number at which the coding question may be asked.
func (c Config) CodingThreshold() int {
	return c.WarmupQuestions + 2
}

type Role string

const (
	RoleInterviewer Role = "interviewer"
	RoleCandidate   Role = "candidate"
)

// Message is one turn of the conversation history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type EntryType string

const (
	EntryOpening        EntryType = "opening"
	EntryQuestion       EntryType = "question"
	EntryCodingQuestion EntryType = "coding_question"
	EntryClosing        EntryType = "closing"
)

// Entry is a single transcript record. Entries are never mutated after insertion.
type Entry struct {
	Type           EntryType `json:"type"`
	Timestamp      time.Time `json:"timestamp"`
	QuestionNumber int       `json:"question_number,omitempty"`
	Difficulty     Level     `json:"difficulty_level,omitempty"`
	Interviewer    string    `json:"interviewer"`
	Candidate      string    `json:"candidate,omitempty"`
}

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusActive     Status = "active"
	StatusCompleted  Status = "completed"
)

type Directive string

const (
	DirectiveContinue          Directive = "continue"
	DirectiveAskCodingQuestion Directive = "ask_coding_question"
)

// Context is everything the answer generator gets to produce the next interviewer utterance.
type Context struct {
	ResumeAnalysis     string
	QuestionNumber     int
	Difficulty         Level
	ElapsedMinutes     int
	DurationBudget     int
	QuestionsRemaining int
	History            []Message
	Directive          Directive
}

// Turn is the result of a single Advance call.
type Turn struct {
	QuestionText       string `json:"question"`
	IsCodingQuestion   bool   `json:"is_coding_question"`
	QuestionNumber     int    `json:"question_number"`
	Difficulty         Level  `json:"difficulty_level"`
	ElapsedMinutes     int    `json:"time_elapsed"`
	QuestionsRemaining int    `json:"questions_remaining"`
}

// Generator produces interviewer dialogue for a context.
type Generator interface {
	Generate(ctx context.Context, c Context) (string, error)
}

// Grader scores a candidate answer in [0,100].
// Returning an error wrapping ErrMalformedScore means the output could not be interpreted.
type Grader interface {
	Grade(ctx context.Context, question, answer string) (int, error)
}

// Sink persists transcript entries and final reports.
type Sink interface {
	Append(ctx context.Context, sessionID string, entry Entry) error
	Write(ctx context.Context, sessionID string, report *Report) error
}

// Session is the mutable state of one interview.
type Session struct {
	id             string
	resumeAnalysis string

	questionNumber int
	difficulty     Level
	startedAt      time.Time
	codingAsked    bool
	codingQuestion *string
	status         Status

	history    []Message
	transcript []Entry
	scores     []int
}

// NewSession creates a session with a fresh identifier.
func NewSession(resumeAnalysis string) *Session {
	return &Session{
		id:             uuid.NewString(),
		resumeAnalysis: resumeAnalysis,
		difficulty:     StartingLevel,
		status:         StatusNotStarted,
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Status() Status { return s.status }

// Snapshot is a read-only copy of session counters used for reporting.
type Snapshot struct {
	ID             string    `json:"session_id"`
	Status         Status    `json:"status"`
	QuestionNumber int       `json:"total_questions"`
	Difficulty     Level     `json:"difficulty_level"`
	StartedAt      time.Time `json:"started_at"`
	CodingAsked    bool      `json:"coding_question_asked"`
	CodingQuestion string    `json:"coding_question,omitempty"`
	Scores         []int     `json:"response_scores"`
	AverageScore   float64   `json:"average_score"`
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		ID:             s.id,
		Status:         s.status,
		QuestionNumber: s.questionNumber,
		Difficulty:     s.difficulty,
		StartedAt:      s.startedAt,
		CodingAsked:    s.codingAsked,
		Scores:         append([]int(nil), s.scores...),
		AverageScore:   s.averageScore(),
	}
	if s.codingQuestion != nil {
		snap.CodingQuestion = *s.codingQuestion
	}
	return snap
}

func (s *Session) averageScore() float64 {
	if len(s.scores) == 0 {
		return 0
	}
	sum := 0
	for _, score := range s.scores {
		sum += score
	}
	return float64(sum) / float64(len(s.scores))
}
