package features

import (
	"errors"
	"strings"

	"github.com/spigell/ai-interviewer/internal/secrets"
	"github.com/spigell/ai-interviewer/internal/storage"
)

const (
	AvatarName      = "avatar"
	EmailName       = "email"
	TranscriptsName = "transcripts"
	TelemetryName   = "telemetry"
)

// toggle carries the enable state shared by all features.
type toggle struct {
	enabled bool
	reason  string
	details map[string]string
}

func (t *toggle) Disable(reason string) {
	t.enabled = false
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return t.enabled }

func (t *toggle) status(name string) Status {
	return Status{Name: name, Enabled: t.enabled, Reason: t.reason, Details: t.details}
}

type avatarFeature struct{ toggle }

func NewAvatar(enabled bool) Feature { return &avatarFeature{toggle{enabled: enabled}} }

func (f *avatarFeature) Name() string { return AvatarName }

func (f *avatarFeature) Validate(cfg *Config) error {
	if _, err := secrets.Load(secrets.Source{
		Name:  "avatar api key",
		Value: cfg.Avatar.APIKey,
		File:  cfg.Avatar.APIKeyFile,
	}); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Avatar.ReplicaID) == "" {
		return errors.New("avatar replica id is required when avatar is enabled")
	}
	f.details = map[string]string{"replica_id": cfg.Avatar.ReplicaID}
	return nil
}

func (f *avatarFeature) Status() Status { return f.status(f.Name()) }

type emailFeature struct{ toggle }

func NewEmail(enabled bool) Feature { return &emailFeature{toggle{enabled: enabled}} }

func (f *emailFeature) Name() string { return EmailName }

func (f *emailFeature) Validate(cfg *Config) error {
	if err := cfg.Email.Validate(); err != nil {
		return err
	}
	f.details = map[string]string{"manager": cfg.Email.Manager}
	return nil
}

func (f *emailFeature) Status() Status { return f.status(f.Name()) }

type transcriptsFeature struct{ toggle }

func NewTranscripts(enabled bool) Feature { return &transcriptsFeature{toggle{enabled: enabled}} }

func (f *transcriptsFeature) Name() string { return TranscriptsName }

func (f *transcriptsFeature) Validate(cfg *Config) error {
	driver := cfg.Storage.Driver
	if driver == "" {
		driver = storage.DriverFile
	}
	if driver == storage.DriverRedis && strings.TrimSpace(cfg.Storage.Redis.Addr) == "" {
		return errors.New("redis address is required for redis storage")
	}
	f.details = map[string]string{"driver": string(driver)}
	return nil
}

func (f *transcriptsFeature) Status() Status { return f.status(f.Name()) }

type telemetryFeature struct{ toggle }

func NewTelemetry(enabled bool) Feature { return &telemetryFeature{toggle{enabled: enabled}} }

func (f *telemetryFeature) Name() string { return TelemetryName }

func (f *telemetryFeature) Validate(cfg *Config) error {
	exporter := "none"
	if strings.TrimSpace(cfg.Telemetry.OTLPEndpoint) != "" {
		exporter = "otlphttp"
	}
	f.details = map[string]string{"trace_exporter": exporter}
	return nil
}

func (f *telemetryFeature) Status() Status { return f.status(f.Name()) }
