package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spigell/ai-interviewer/internal/interview"
)

const (
	defaultDir = "interview_data"

	transcriptLogFile  = "transcript.jsonl"
	transcriptTextFile = "interview_transcript.txt"
	transcriptJSONFile = "interview_transcript.json"
	reportFile         = "report.md"
	codeEvaluationFile = "code_evaluation.json"
)

// FileSink keeps one directory per session below its root.
type FileSink struct {
	dir    string
	logger *zap.Logger
	mu     sync.Mutex
}

func NewFileSink(dir string, logger *zap.Logger) (*FileSink, error) {
	if dir = strings.TrimSpace(dir); dir == "" {
		dir = defaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSink{dir: dir, logger: logger}, nil
}

// Dir returns the directory of a session.
func (f *FileSink) Dir(sessionID string) string {
	return filepath.Join(f.dir, sessionID)
}

// Append adds the entry as one JSON line to the session log.
func (f *FileSink) Append(_ context.Context, sessionID string, entry interview.Entry) error {
	dir, err := f.sessionDir(sessionID)
	if err != nil {
		return err
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.OpenFile(filepath.Join(dir, transcriptLogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open transcript log: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append transcript log: %w", err)
	}
	return nil
}

type transcriptDocument struct {
	Transcript     []interview.Entry  `json:"transcript"`
	AverageScore   float64            `json:"average_score"`
	TotalQuestions int                `json:"total_questions"`
	ResponseScores []int              `json:"response_scores"`
	Session        interview.Snapshot `json:"session"`
}

// Write stores the rendered transcript, its JSON form, the report and the coding evaluation.
func (f *FileSink) Write(_ context.Context, sessionID string, report *interview.Report) error {
	if report == nil {
		return errors.New("report is required")
	}

	dir, err := f.sessionDir(sessionID)
	if err != nil {
		return err
	}

	files := map[string][]byte{
		transcriptTextFile: []byte(RenderTranscript(report.Transcript)),
	}

	doc, err := json.MarshalIndent(transcriptDocument{
		Transcript:     report.Transcript,
		AverageScore:   report.Session.AverageScore,
		TotalQuestions: report.Session.QuestionNumber,
		ResponseScores: report.Session.Scores,
		Session:        report.Session,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	files[transcriptJSONFile] = doc

	if strings.TrimSpace(report.Content) != "" {
		files[reportFile] = []byte(report.Content)
	}

	if report.CodingEvaluation != nil {
		evaluation, err := json.MarshalIndent(report.CodingEvaluation, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal coding evaluation: %w", err)
		}
		files[codeEvaluationFile] = evaluation
	}

	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}

	f.logger.Info("interview artifacts saved", zap.String("session_id", sessionID), zap.String("dir", dir))
	return nil
}

func (f *FileSink) Close() error { return nil }

func (f *FileSink) sessionDir(sessionID string) (string, error) {
	if sessionID == "" || strings.ContainsAny(sessionID, `/\`) || sessionID == "." || sessionID == ".." {
		return "", fmt.Errorf("invalid session id %q", sessionID)
	}
	dir := f.Dir(sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create session dir: %w", err)
	}
	return dir, nil
}
