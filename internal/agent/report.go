package agent

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/ai-interviewer/internal/ai"
)

// ReportInput is everything the report writer looks at.
type ReportInput struct {
	Transcript      string
	CodingScore     int
	CandidateName   string
	JobRole         string
	Date            time.Time
	DurationMinutes int
	ResumeAnalysis  string
}

// ReportGenerator writes the markdown report for the hiring manager.
type ReportGenerator struct {
	base
}

func NewReportGenerator(llm ai.Completer, opts Options, logger *zap.Logger) *ReportGenerator {
	return &ReportGenerator{base: newBase("report_generator", llm, opts.withDefaults(0.5, 4096), logger)}
}

func (r *ReportGenerator) Generate(ctx context.Context, in ReportInput) (string, error) {
	date := in.Date
	if date.IsZero() {
		date = time.Now()
	}

	report, err := r.complete(ctx, ai.Request{
		Prompt: render(reportPrompt, map[string]string{
			"INTERVIEW_TRANSCRIPT": in.Transcript,
			"CODING_SCORE":         strconv.Itoa(in.CodingScore),
			"CANDIDATE_NAME":       in.CandidateName,
			"JOB_ROLE":             in.JobRole,
			"INTERVIEW_DATE":       date.Format("2006-01-02"),
			"INTERVIEW_DURATION":   strconv.Itoa(in.DurationMinutes),
			"RESUME_ANALYSIS":      in.ResumeAnalysis,
		}),
	})
	if err != nil {
		return "", fmt.Errorf("generate report: %w", err)
	}
	return report, nil
}
