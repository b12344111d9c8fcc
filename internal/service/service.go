// Package service runs complete interviews: resume evaluation, the question loop, code review,
// the final report and its delivery.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/ai-interviewer/internal/agent"
	"github.com/spigell/ai-interviewer/internal/avatar"
	"github.com/spigell/ai-interviewer/internal/interview"
	"github.com/spigell/ai-interviewer/internal/logger"
	"github.com/spigell/ai-interviewer/internal/mail"
	"github.com/spigell/ai-interviewer/internal/storage"
	"github.com/spigell/ai-interviewer/internal/telemetry"
)

var (
	// ErrInvalidInput is returned for missing or empty request fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoCodingQuestion is returned when code is submitted before the coding question was asked.
	ErrNoCodingQuestion = errors.New("no coding question has been asked")
)

type ResumeEvaluator interface {
	Evaluate(ctx context.Context, resume, jobDescription string) (string, error)
}

type CodeEvaluator interface {
	Evaluate(ctx context.Context, question, code string) (*agent.Evaluation, error)
}

type ReportWriter interface {
	Generate(ctx context.Context, in agent.ReportInput) (string, error)
}

type AvatarCreator interface {
	CreateConversation(ctx context.Context, resumeAnalysis string) (*avatar.Conversation, error)
}

type ReportMailer interface {
	Send(report mail.Report) error
}

// Deps aggregates the collaborators of the service. Avatar, Mailer, Sink and Telemetry are optional.
type Deps struct {
	Repository interview.Repository
	Generator  interview.Generator
	Grader     interview.Grader
	Resume     ResumeEvaluator
	Code       CodeEvaluator
	Reports    ReportWriter

	Sink      interview.Sink
	Avatar    AvatarCreator
	Mailer    ReportMailer
	Telemetry *telemetry.Manager
	Logger    *zap.Logger
}

type Service struct {
	cfg  interview.Config
	deps Deps

	logger *zap.Logger
	now    func() time.Time
}

func New(cfg interview.Config, deps Deps) (*Service, error) {
	switch {
	case deps.Repository == nil:
		return nil, errors.New("session repository is required")
	case deps.Generator == nil || deps.Grader == nil:
		return nil, errors.New("answer generator and grader are required")
	case deps.Resume == nil || deps.Code == nil || deps.Reports == nil:
		return nil, errors.New("resume, code and report agents are required")
	}

	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Service{cfg: cfg, deps: deps, logger: log, now: time.Now}, nil
}

type InitRequest struct {
	CandidateName  string `json:"candidate_name"`
	JobRole        string `json:"job_role"`
	Resume         string `json:"resume_text"`
	JobDescription string `json:"job_description"`
}

type InitResult struct {
	SessionID      string `json:"session_id"`
	ResumeAnalysis string `json:"resume_analysis"`
	AvatarURL      string `json:"avatar_url,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// Init evaluates the resume and registers a new session.
func (s *Service) Init(ctx context.Context, req InitRequest) (*InitResult, error) {
	if strings.TrimSpace(req.CandidateName) == "" {
		return nil, fmt.Errorf("%w: candidate name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(req.Resume) == "" || strings.TrimSpace(req.JobDescription) == "" {
		return nil, fmt.Errorf("%w: resume and job description are required", ErrInvalidInput)
	}

	analysis, err := s.deps.Resume.Evaluate(ctx, req.Resume, req.JobDescription)
	if err != nil {
		return nil, err
	}

	ctrl, err := interview.NewController(s.cfg, analysis, &interview.Deps{
		Generator: s.deps.Generator,
		Grader:    s.deps.Grader,
		Sink:      s.deps.Sink,
		Logger:    s.logger,
	})
	if err != nil {
		return nil, err
	}

	record := &interview.Record{
		CandidateName:  req.CandidateName,
		JobRole:        req.JobRole,
		ResumeAnalysis: analysis,
		Controller:     ctrl,
	}

	log := logger.WithFields(s.logger, logger.SessionFields(record.ID(), req.CandidateName)...)

	if s.deps.Avatar != nil {
		conversation, err := s.deps.Avatar.CreateConversation(ctx, analysis)
		if err != nil {
			log.Warn("avatar conversation could not be created", zap.Error(err))
		} else {
			record.AvatarURL = conversation.URL
			record.AvatarConversationID = conversation.ID
		}
	}

	if err := s.deps.Repository.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("register session: %w", err)
	}

	log.Info("session initialised", zap.String("job_role", req.JobRole))

	return &InitResult{
		SessionID:      record.ID(),
		ResumeAnalysis: analysis,
		AvatarURL:      record.AvatarURL,
		ConversationID: record.AvatarConversationID,
	}, nil
}

type StartResult struct {
	SessionID      string `json:"session_id"`
	Opening        string `json:"opening"`
	QuestionNumber int    `json:"question_number"`
	// Warnings lists recoverable failures, such as a transcript entry that could not be persisted.
	Warnings []string `json:"warnings,omitempty"`
}

// Start issues the opening question of a registered session.
func (s *Service) Start(ctx context.Context, sessionID string) (*StartResult, error) {
	result := &StartResult{SessionID: sessionID}
	err := s.withRecord(ctx, sessionID, func(record *interview.Record) error {
		opening, err := record.Controller.Start(ctx)
		result.Warnings, err = s.tolerate(record, err)
		result.Opening = opening
		result.QuestionNumber = record.Controller.Snapshot().QuestionNumber
		s.deps.Telemetry.RecordTurn(ctx, telemetry.TurnData{
			Event:      "start",
			Difficulty: int(record.Controller.Snapshot().Difficulty),
			Error:      err,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type MessageResult struct {
	*interview.Turn
	Warnings []string `json:"warnings,omitempty"`
}

// Message records an answer and returns the next question.
func (s *Service) Message(ctx context.Context, sessionID, answer string) (*MessageResult, error) {
	if strings.TrimSpace(answer) == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}

	result := &MessageResult{}
	err := s.withRecord(ctx, sessionID, func(record *interview.Record) error {
		before := len(record.Controller.Snapshot().Scores)

		turn, err := record.Controller.Advance(ctx, answer)
		result.Warnings, err = s.tolerate(record, err)
		result.Turn = turn

		snapshot := record.Controller.Snapshot()
		data := telemetry.TurnData{
			Event:      "advance",
			Difficulty: int(snapshot.Difficulty),
			Coding:     turn != nil && turn.IsCodingQuestion,
			Error:      err,
		}
		if len(snapshot.Scores) > before {
			data.Score = snapshot.Scores[len(snapshot.Scores)-1]
			data.HasScore = true
		}
		s.deps.Telemetry.RecordTurn(ctx, data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SubmitCode evaluates the answer to the coding question and keeps the result on the record.
func (s *Service) SubmitCode(ctx context.Context, sessionID, code string) (*agent.Evaluation, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: code is required", ErrInvalidInput)
	}

	var evaluation *agent.Evaluation
	err := s.withRecord(ctx, sessionID, func(record *interview.Record) error {
		if record.Controller.Status() == interview.StatusCompleted {
			return interview.ErrEnded
		}
		question, ok := record.Controller.CodingQuestion()
		if !ok {
			return ErrNoCodingQuestion
		}

		var err error
		evaluation, err = s.deps.Code.Evaluate(ctx, question, code)
		if err != nil {
			return err
		}

		score := evaluation.Score
		record.CodingEvaluation = evaluation
		record.CodingScore = &score

		s.logger.Info("coding answer evaluated",
			zap.String(logger.FieldSession, record.ID()),
			zap.Int("score", score),
			zap.Bool("fallback", evaluation.Fallback),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return evaluation, nil
}

type EndResult struct {
	ClosingStatement string  `json:"closing_statement"`
	Report           string  `json:"report"`
	AverageScore     float64 `json:"average_score"`
	CodingScore      int     `json:"coding_score"`
	TotalQuestions   int     `json:"total_questions"`
	DurationMinutes  int     `json:"interview_duration"`
	Saved            bool    `json:"saved"`
	EmailSent        bool    `json:"email_sent"`
	// Errors lists non fatal failures of report generation, persistence or mail delivery.
	Errors []string `json:"errors,omitempty"`
}

// End closes the interview, writes the report and mails it. Ending an ended session returns the
// stored result without generating a new report.
func (s *Service) End(ctx context.Context, sessionID string) (*EndResult, error) {
	var result *EndResult
	err := s.withRecord(ctx, sessionID, func(record *interview.Record) error {
		if record.Report != nil {
			result = resultFromReport(record.Report)
			return nil
		}

		closing, err := record.Controller.End(ctx)
		warnings, err := s.tolerate(record, err)
		if err != nil {
			return err
		}

		result, err = s.finish(ctx, record, closing)
		if result != nil {
			result.Errors = append(warnings, result.Errors...)
		}
		s.deps.Telemetry.RecordTurn(ctx, telemetry.TurnData{
			Event:      "end",
			Difficulty: int(record.Controller.Snapshot().Difficulty),
			Error:      err,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.deps.Repository.End(ctx, sessionID); err != nil {
		return nil, err
	}
	return result, nil
}

type SessionSummary struct {
	ID             string           `json:"session_id"`
	CandidateName  string           `json:"candidate_name"`
	JobRole        string           `json:"job_role,omitempty"`
	Status         interview.Status `json:"status"`
	QuestionNumber int              `json:"question_number"`
	AverageScore   float64          `json:"average_score"`
	CreatedAt      time.Time        `json:"created_at"`
	EndedAt        *time.Time       `json:"ended_at,omitempty"`
}

// Sessions lists registered sessions in creation order.
func (s *Service) Sessions(ctx context.Context) ([]SessionSummary, error) {
	records, err := s.deps.Repository.List(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]SessionSummary, 0, len(records))
	for _, record := range records {
		_ = record.Exclusive(func(r *interview.Record) error {
			snapshot := r.Controller.Snapshot()
			summary := SessionSummary{
				ID:             r.ID(),
				CandidateName:  r.CandidateName,
				JobRole:        r.JobRole,
				Status:         snapshot.Status,
				QuestionNumber: snapshot.QuestionNumber,
				AverageScore:   snapshot.AverageScore,
				CreatedAt:      r.CreatedAt,
			}
			if !r.EndedAt.IsZero() {
				ended := r.EndedAt
				summary.EndedAt = &ended
			}
			summaries = append(summaries, summary)
			return nil
		})
	}
	return summaries, nil
}

// Record returns the registry record of a session.
func (s *Service) Record(ctx context.Context, sessionID string) (*interview.Record, error) {
	return s.deps.Repository.Get(ctx, sessionID)
}

// Transcript returns a snapshot and the transcript of a session.
func (s *Service) Transcript(ctx context.Context, sessionID string) (interview.Snapshot, []interview.Entry, error) {
	var (
		snapshot interview.Snapshot
		entries  []interview.Entry
	)
	err := s.withRecord(ctx, sessionID, func(record *interview.Record) error {
		snapshot = record.Controller.Snapshot()
		entries = record.Controller.Transcript()
		return nil
	})
	return snapshot, entries, err
}

func (s *Service) finish(ctx context.Context, record *interview.Record, closing string) (*EndResult, error) {
	ctrl := record.Controller
	log := logger.WithFields(s.logger, logger.SessionFields(record.ID(), record.CandidateName)...)

	codingScore := agent.FallbackCodeScore
	if record.CodingScore != nil {
		codingScore = *record.CodingScore
	}

	snapshot := ctrl.Snapshot()
	transcript := ctrl.Transcript()
	report := &interview.Report{
		Session:          snapshot,
		CandidateName:    record.CandidateName,
		JobRole:          record.JobRole,
		DurationMinutes:  ctrl.ElapsedMinutes(),
		Transcript:       transcript,
		CodingScore:      codingScore,
		CodingEvaluation: record.CodingEvaluation,
		GeneratedAt:      s.now(),
	}

	result := &EndResult{
		ClosingStatement: closing,
		AverageScore:     snapshot.AverageScore,
		CodingScore:      codingScore,
		TotalQuestions:   snapshot.QuestionNumber,
		DurationMinutes:  report.DurationMinutes,
	}

	content, err := s.deps.Reports.Generate(ctx, agent.ReportInput{
		Transcript:      storage.RenderTranscript(transcript),
		CodingScore:     codingScore,
		CandidateName:   record.CandidateName,
		JobRole:         record.JobRole,
		Date:            report.GeneratedAt,
		DurationMinutes: report.DurationMinutes,
		ResumeAnalysis:  record.ResumeAnalysis,
	})
	if err != nil {
		log.Error("report generation failed", zap.Error(err))
		result.Errors = append(result.Errors, err.Error())
	}
	report.Content = content
	result.Report = content

	if s.deps.Sink != nil {
		if err := ctrl.SaveReport(ctx, report); err != nil {
			result.Errors = append(result.Errors, err.Error())
		} else {
			result.Saved = true
		}
	}

	if s.deps.Mailer != nil && content != "" {
		err := s.deps.Mailer.Send(mail.Report{
			CandidateName: record.CandidateName,
			JobRole:       record.JobRole,
			Date:          report.GeneratedAt,
			Markdown:      content,
			Filename:      fmt.Sprintf("interview_report_%s.md", record.ID()),
		})
		if err != nil {
			log.Warn("report mail failed", zap.Error(err))
			result.Errors = append(result.Errors, err.Error())
		} else {
			result.EmailSent = true
		}
	}

	record.Report = report
	log.Info("interview finished",
		zap.Float64("average_score", result.AverageScore),
		zap.Int("coding_score", codingScore),
		zap.Bool("saved", result.Saved),
		zap.Bool("email_sent", result.EmailSent),
	)

	return result, nil
}

func resultFromReport(report *interview.Report) *EndResult {
	return &EndResult{
		ClosingStatement: interview.ClosingStatement,
		Report:           report.Content,
		AverageScore:     report.Session.AverageScore,
		CodingScore:      report.CodingScore,
		TotalQuestions:   report.Session.QuestionNumber,
		DurationMinutes:  report.DurationMinutes,
	}
}

func (s *Service) withRecord(ctx context.Context, sessionID string, fn func(*interview.Record) error) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("%w: session id is required", ErrInvalidInput)
	}
	record, err := s.deps.Repository.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	return record.Exclusive(fn)
}

// tolerate turns persistence errors into warnings. The in-memory state is authoritative and stays usable.
func (s *Service) tolerate(record *interview.Record, err error) ([]string, error) {
	if errors.Is(err, interview.ErrPersistence) {
		s.logger.Warn("transcript persistence failed", zap.String(logger.FieldSession, record.ID()), zap.Error(err))
		return []string{err.Error()}, nil
	}
	return nil, err
}
