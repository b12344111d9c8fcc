package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/ai-interviewer/internal/agent"
	"github.com/spigell/ai-interviewer/internal/ai"
	"github.com/spigell/ai-interviewer/internal/ai/anthropic"
	"github.com/spigell/ai-interviewer/internal/ai/gemini"
	"github.com/spigell/ai-interviewer/internal/avatar"
	"github.com/spigell/ai-interviewer/internal/features"
	"github.com/spigell/ai-interviewer/internal/interview"
	"github.com/spigell/ai-interviewer/internal/logger"
	"github.com/spigell/ai-interviewer/internal/mail"
	"github.com/spigell/ai-interviewer/internal/secrets"
	"github.com/spigell/ai-interviewer/internal/service"
	"github.com/spigell/ai-interviewer/internal/storage"
	"github.com/spigell/ai-interviewer/internal/telemetry"
)

const (
	providerGemini    = "gemini"
	providerAnthropic = "anthropic"
)

// application holds everything a command needs to run interviews.
type application struct {
	config    *Config
	service   *service.Service
	features  features.Set
	store     storage.Store
	telemetry *telemetry.Manager
	logger    *zap.Logger
}

func newApplication(ctx context.Context, config *Config, log *zap.Logger) (*application, error) {
	if config.AI == nil {
		config.AI = &AIConfig{}
	}

	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	log.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	featureCfg := &features.Config{
		Avatar:    config.Avatar,
		Email:     config.Email,
		Storage:   config.Storage,
		Telemetry: config.Telemetry,
	}
	set := features.Defaults(featureCfg)
	features.Check(featureCfg, set, log)

	var manager *telemetry.Manager
	if set.Enabled(features.TelemetryName) {
		cfg := config.Telemetry
		if cfg.ServiceName == "" {
			cfg.ServiceName = app
		}
		cfg.ServiceVersion = version

		var err error
		manager, err = telemetry.NewManager(ctx, cfg)
		if err != nil {
			set.DisableByName(features.TelemetryName, err.Error())
			log.Warn("telemetry is not available", zap.Error(err))
		}
	}

	llm, provider, err := newCompleter(ctx, config.AI, log)
	if err != nil {
		return nil, fmt.Errorf("building %s completer: %w", provider, err)
	}

	// Temperature and token limits from the config tune the interviewer voice only.
	// Scoring and report agents keep their own defaults.
	opts := agent.Options{
		Temperature:  config.AI.Temperature,
		MaxTokens:    config.AI.MaxTokens,
		MaxLogLength: maxLogLength(config.AI),
	}
	tuned := agent.Options{MaxLogLength: opts.MaxLogLength}
	agentLogger := logger.WithCommonFields(log, provider, llm.Model())
	wrap := func(name string) ai.Completer {
		return manager.Completer(llm, name, provider)
	}

	storeCfg := config.Storage
	if !set.Enabled(features.TranscriptsName) {
		storeCfg.Driver = storage.DriverNone
	}
	store, err := storage.New(storeCfg, log)
	if err != nil {
		return nil, fmt.Errorf("building transcript storage: %w", err)
	}

	deps := service.Deps{
		Repository: interview.NewMemoryRepository(),
		Generator:  agent.NewInterviewer(wrap("interviewer"), opts, agentLogger),
		Grader:     agent.NewGrader(wrap("grader"), tuned, agentLogger),
		Resume:     agent.NewResumeEvaluator(wrap("resume"), tuned, agentLogger),
		Code:       agent.NewCodeEvaluator(wrap("code"), tuned, agentLogger),
		Reports:    agent.NewReportGenerator(wrap("report"), tuned, agentLogger),
		Sink:       store,
		Telemetry:  manager,
		Logger:     log,
	}

	if set.Enabled(features.AvatarName) {
		client, err := newAvatar(config.Avatar, log)
		if err != nil {
			set.DisableByName(features.AvatarName, err.Error())
			log.Warn("avatar is not available", zap.Error(err))
		} else {
			deps.Avatar = client
		}
	}

	if set.Enabled(features.EmailName) {
		mailer, err := newMailer(config.Email, log)
		if err != nil {
			set.DisableByName(features.EmailName, err.Error())
			log.Warn("email is not available", zap.Error(err))
		} else {
			deps.Mailer = mailer
		}
	}

	svc, err := service.New(config.Interview, deps)
	if err != nil {
		return nil, err
	}

	return &application{
		config:    config,
		service:   svc,
		features:  set,
		store:     store,
		telemetry: manager,
		logger:    log,
	}, nil
}

func (a *application) Close(ctx context.Context) error {
	return errors.Join(a.store.Close(), a.telemetry.Shutdown(ctx))
}

// newCompleter returns the configured model client and the provider name.
func newCompleter(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Completer, string, error) {
	if cfg == nil {
		cfg = &AIConfig{}
	}
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider == "" {
		provider = providerGemini
	}

	switch provider {
	case providerGemini:
		g := cfg.Gemini
		if g == nil {
			g = &GeminiConfig{}
		}
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			Value: g.APIKey,
			File:  g.APIKeyFile,
		})
		if err != nil {
			return nil, provider, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
		}

		genLogger := log.With(
			zap.String(logger.FieldProvider, provider),
			zap.Int("ai_retry_attempts", g.MaxRetries),
		)
		generator, err := gemini.NewGenerator(ctx, apiKey, g.Model, g.MaxRetries, genLogger)
		if err != nil {
			return nil, provider, err
		}
		return generator, provider, nil
	case providerAnthropic:
		a := cfg.Anthropic
		if a == nil {
			a = &AnthropicConfig{}
		}
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "anthropic api key",
			Value: a.APIKey,
			File:  a.APIKeyFile,
		})
		if err != nil {
			return nil, provider, fmt.Errorf("%w (set ai.anthropic.api-key-file or ANTHROPIC_API_KEY_FILE)", err)
		}

		client, err := anthropic.NewClient(apiKey, a.Model, a.MaxRetries, log.With(zap.String(logger.FieldProvider, provider)))
		if err != nil {
			return nil, provider, err
		}
		return client, provider, nil
	default:
		return nil, provider, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}

func maxLogLength(cfg *AIConfig) int {
	switch {
	case cfg == nil:
		return 0
	case cfg.Gemini != nil && cfg.Gemini.MaxLogLength > 0:
		return cfg.Gemini.MaxLogLength
	case cfg.Anthropic != nil:
		return cfg.Anthropic.MaxLogLength
	default:
		return 0
	}
}

func newAvatar(cfg avatar.Config, log *zap.Logger) (*avatar.Client, error) {
	token, err := secrets.Load(secrets.Source{
		Name:  "avatar api key",
		Value: cfg.APIKey,
		File:  cfg.APIKeyFile,
	})
	if err != nil {
		return nil, err
	}

	client, err := avatar.New(log, token, cfg.ReplicaID)
	if err != nil {
		return nil, err
	}
	if cfg.APIURL != "" {
		client.APIURL = cfg.APIURL
	}
	return client, nil
}

func newMailer(cfg mail.Config, log *zap.Logger) (*mail.Mailer, error) {
	password, err := secrets.Load(secrets.Source{
		Name:  "smtp password",
		Value: cfg.Password,
		File:  cfg.PasswordFile,
	})
	if err != nil {
		return nil, err
	}
	return mail.New(cfg, password, log)
}

// redacted returns a copy of config without inline secrets, suitable for debug output.
func redacted(config *Config) Config {
	out := *config
	out.Email.Password = mask(out.Email.Password)
	out.Avatar.APIKey = mask(out.Avatar.APIKey)
	out.Storage.Redis.Password = mask(out.Storage.Redis.Password)
	if config.AI != nil {
		aiCfg := *config.AI
		if aiCfg.Gemini != nil {
			g := *aiCfg.Gemini
			g.APIKey = mask(g.APIKey)
			aiCfg.Gemini = &g
		}
		if aiCfg.Anthropic != nil {
			a := *aiCfg.Anthropic
			a.APIKey = mask(a.APIKey)
			aiCfg.Anthropic = &a
		}
		out.AI = &aiCfg
	}
	return out
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "***"
}
