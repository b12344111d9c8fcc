// Package mail sends interview reports to the hiring manager.
package mail

import (
	"errors"
	"fmt"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

const (
	defaultHost = "smtp.gmail.com"
	defaultPort = 587

	markdownType gomail.ContentType = "text/markdown"
)

// sender delivers composed messages.
type sender interface {
	DialAndSend(messages ...*gomail.Msg) error
}

var newSender = func(cfg Config, password string) (sender, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.SMTPPort),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if password != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Sender),
			gomail.WithPassword(password),
		)
	}
	return gomail.NewClient(cfg.SMTPHost, opts...)
}

// Config of the SMTP relay.
type Config struct {
	Enabled      bool   `mapstructure:"enabled"`
	SMTPHost     string `mapstructure:"smtp-host"`
	SMTPPort     int    `mapstructure:"smtp-port"`
	Sender       string `mapstructure:"sender"`
	Password     string `mapstructure:"password"`
	PasswordFile string `mapstructure:"password-file"`
	Manager      string `mapstructure:"manager"`
}

// Validate reports what is missing for mail delivery.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Sender) == "" {
		errs = append(errs, errors.New("sender address is required"))
	}
	if strings.TrimSpace(c.Manager) == "" {
		errs = append(errs, errors.New("manager address is required"))
	}
	return errors.Join(errs...)
}

// Report is the mail payload.
type Report struct {
	CandidateName string
	JobRole       string
	Date          time.Time
	// Markdown is attached as a file.
	Markdown string
	Filename string
}

type Mailer struct {
	cfg      Config
	password string
	logger   *zap.Logger
}

func New(cfg Config, password string, logger *zap.Logger) (*Mailer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.SMTPHost) == "" {
		cfg.SMTPHost = defaultHost
	}
	if cfg.SMTPPort <= 0 {
		cfg.SMTPPort = defaultPort
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mailer{cfg: cfg, password: password, logger: logger}, nil
}

// Send delivers the report. STARTTLS is used when the server offers it.
func (m *Mailer) Send(report Report) error {
	msg, err := m.compose(report)
	if err != nil {
		return fmt.Errorf("compose mail: %w", err)
	}

	client, err := newSender(m.cfg, m.password)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}

	if err := client.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	m.logger.Info("report mailed", zap.String("to", m.cfg.Manager), zap.String("candidate", report.CandidateName))
	return nil
}

func (m *Mailer) compose(report Report) (*gomail.Msg, error) {
	date := report.Date
	if date.IsZero() {
		date = time.Now()
	}
	filename := report.Filename
	if filename == "" {
		filename = "interview_report.md"
	}

	// Candidate name and role are user input.
	candidate := singleLine(report.CandidateName)
	role := singleLine(report.JobRole)

	msg := gomail.NewMsg()
	if err := msg.From(m.cfg.Sender); err != nil {
		return nil, fmt.Errorf("sender address: %w", err)
	}
	if err := msg.To(m.cfg.Manager); err != nil {
		return nil, fmt.Errorf("manager address: %w", err)
	}
	msg.Subject(fmt.Sprintf("Interview Report: %s - %s", candidate, role))
	msg.SetDateWithValue(date)

	msg.SetBodyString(gomail.TypeTextPlain, fmt.Sprintf(
		"Dear Hiring Manager,\r\n\r\nPlease find attached the interview report for:\r\n\r\n"+
			"Candidate: %s\r\nPosition: %s\r\nDate: %s\r\n\r\nBest regards,\r\nAI Interview System\r\n",
		candidate, role, date.Format("2006-01-02")))

	if err := msg.AttachReader(singleLine(filename), strings.NewReader(report.Markdown),
		gomail.WithFileContentType(markdownType)); err != nil {
		return nil, fmt.Errorf("attach report: %w", err)
	}

	return msg, nil
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

func singleLine(s string) string {
	return strings.TrimSpace(lineBreaks.Replace(s))
}
