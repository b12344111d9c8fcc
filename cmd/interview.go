package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/ai-interviewer/internal/logger"
	"github.com/spigell/ai-interviewer/internal/service"
)

const (
	PromptAnswer = "Answer the question"
	PromptCode   = "Submit code from a file"
	PromptEnd    = "End the interview"
)

var errExit = errors.New("exit requested")

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Run an interview in the terminal",
	Run: func(cmd *cobra.Command, _ []string) {
		runInterview(cmd)
	},
}

func init() {
	rootCmd.AddCommand(interviewCmd)

	interviewCmd.Flags().StringP("resume", "r", "", "a plain text file with the candidate resume")
	interviewCmd.Flags().StringP("job", "J", "", "a plain text file with the job description")
	interviewCmd.Flags().StringP("name", "n", "Candidate", "the candidate name")
	interviewCmd.Flags().String("role", "", "the job role used in the report")

	interviewCmd.MarkFlagRequired("resume")
	interviewCmd.MarkFlagRequired("job")
}

func runInterview(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	req, err := initRequest(cmd)
	if err != nil {
		logger.Fatal("reading interview input", zap.Error(err))
	}

	application, err := newApplication(ctx, config, logger)
	if err != nil {
		logger.Fatal("initialising the application", zap.Error(err))
	}
	defer func() {
		if err := application.Close(ctx); err != nil {
			logger.Warn("closing the application", zap.Error(err))
		}
	}()

	out := cmd.OutOrStdout()
	session := &terminalSession{svc: application.service, out: out, logger: logger}

	logger.Info("evaluating the resume", zap.String("candidate", req.CandidateName))
	if err := session.init(ctx, req); err != nil {
		logger.Fatal("initialising the interview", zap.Error(err))
	}

	prompt := promptui.Select{
		Label: "What next?",
		Items: []string{PromptAnswer, PromptCode, PromptEnd},
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := session.handle(ctx, action); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Error("action failed", zap.String("action", action), zap.Error(err))
		}
	}
}

func initRequest(cmd *cobra.Command) (service.InitRequest, error) {
	resume, err := readFlagFile(cmd, "resume")
	if err != nil {
		return service.InitRequest{}, err
	}
	job, err := readFlagFile(cmd, "job")
	if err != nil {
		return service.InitRequest{}, err
	}

	name, _ := cmd.Flags().GetString("name")
	role, _ := cmd.Flags().GetString("role")

	return service.InitRequest{
		CandidateName:  name,
		JobRole:        role,
		Resume:         resume,
		JobDescription: job,
	}, nil
}

func readFlagFile(cmd *cobra.Command, flag string) (string, error) {
	path, _ := cmd.Flags().GetString(flag)
	data, err := os.ReadFile(strings.TrimSpace(path))
	if err != nil {
		return "", fmt.Errorf("reading --%s file: %w", flag, err)
	}
	return string(data), nil
}

// terminalSession drives one interview through prompts.
type terminalSession struct {
	svc    *service.Service
	out    io.Writer
	logger *zap.Logger
	id     string
}

func (s *terminalSession) init(ctx context.Context, req service.InitRequest) error {
	res, err := s.svc.Init(ctx, req)
	if err != nil {
		return err
	}
	s.id = res.SessionID

	fmt.Fprintf(s.out, "\nResume analysis:\n%s\n\n", res.ResumeAnalysis)
	if res.AvatarURL != "" {
		fmt.Fprintf(s.out, "Video interview: %s\n\n", res.AvatarURL)
	}

	started, err := s.svc.Start(ctx, s.id)
	if err != nil {
		return err
	}
	s.warn(started.Warnings)
	fmt.Fprintf(s.out, "Interviewer: %s\n\n", started.Opening)
	return nil
}

func (s *terminalSession) handle(ctx context.Context, action string) error {
	switch action {
	case PromptAnswer:
		answer, err := (&promptui.Prompt{Label: "Your answer"}).Run()
		if err != nil {
			return err
		}
		turn, err := s.svc.Message(ctx, s.id, answer)
		if err != nil {
			return err
		}
		s.warn(turn.Warnings)
		fmt.Fprintf(s.out, "\n[question %d, %s] Interviewer: %s\n\n", turn.QuestionNumber, turn.Difficulty, turn.QuestionText)
		if turn.IsCodingQuestion {
			fmt.Fprintln(s.out, "This is the coding question. Write your solution to a file and submit it.")
		}
		if turn.QuestionsRemaining == 0 {
			fmt.Fprintln(s.out, "No questions remaining. You can end the interview now.")
		}
		return nil
	case PromptCode:
		path, err := (&promptui.Prompt{Label: "Path to your solution"}).Run()
		if err != nil {
			return err
		}
		code, err := os.ReadFile(strings.TrimSpace(path))
		if err != nil {
			return fmt.Errorf("reading solution: %w", err)
		}
		evaluation, err := s.svc.SubmitCode(ctx, s.id, string(code))
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "\nCode score: %d/10\n%s\n\n", evaluation.Score, evaluation.Summary)
		return nil
	case PromptEnd:
		result, err := s.svc.End(ctx, s.id)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "\nInterviewer: %s\n\n%s\n", result.ClosingStatement, result.Report)
		s.logger.Info("interview finished",
			zap.Float64("average_score", result.AverageScore),
			zap.Int("coding_score", result.CodingScore),
			zap.Int("questions", result.TotalQuestions),
			zap.Bool("saved", result.Saved),
			zap.Bool("email_sent", result.EmailSent),
		)
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func (s *terminalSession) warn(warnings []string) {
	for _, warning := range warnings {
		s.logger.Warn("transcript not saved", zap.String("session_id", s.id), zap.String("reason", warning))
	}
}
