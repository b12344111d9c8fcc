// Package features validates optional integrations at startup and reports their state.
package features

import (
	"go.uber.org/zap"

	"github.com/spigell/ai-interviewer/internal/avatar"
	"github.com/spigell/ai-interviewer/internal/mail"
	"github.com/spigell/ai-interviewer/internal/storage"
	"github.com/spigell/ai-interviewer/internal/telemetry"
)

// Feature is an optional integration that can be switched off at runtime.
type Feature interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate(cfg *Config) error
}

// Config contains the settings the features are validated against.
type Config struct {
	Avatar    avatar.Config
	Email     mail.Config
	Storage   storage.Config
	Telemetry telemetry.Config
}

// Status represents runtime information about a feature.
type Status struct {
	Name    string            `json:"name"`
	Enabled bool              `json:"enabled"`
	Reason  string            `json:"reason,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type statusProvider interface {
	Status() Status
}

// Set is the ordered list of features of a process.
type Set []Feature

// Defaults returns every known feature, enabled according to cfg.
func Defaults(cfg *Config) Set {
	return Set{
		NewAvatar(cfg.Avatar.Enabled),
		NewEmail(cfg.Email.Enabled),
		NewTranscripts(cfg.Storage.Driver != storage.DriverNone),
		NewTelemetry(cfg.Telemetry.Enabled),
	}
}

// Check validates every enabled feature. A feature that fails validation is disabled with the
// error as reason; startup goes on.
func Check(cfg *Config, set Set, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, feature := range set {
		if !feature.IsEnabled() {
			logger.Info("feature disabled", zap.String("name", feature.Name()))
			continue
		}
		if err := feature.Validate(cfg); err != nil {
			feature.Disable(err.Error())
			logger.Warn("feature disabled by validation", zap.String("name", feature.Name()), zap.Error(err))
			continue
		}
		logger.Debug("feature enabled", zap.String("name", feature.Name()))
	}
}

// Enabled reports whether the named feature is present and enabled.
func (s Set) Enabled(name string) bool {
	for _, feature := range s {
		if feature.Name() == name {
			return feature.IsEnabled()
		}
	}
	return false
}

// DisableByName marks a feature with the provided name as disabled while keeping it in the list.
func (s Set) DisableByName(name, reason string) {
	for _, feature := range s {
		if feature.Name() == name {
			feature.Disable(reason)
		}
	}
}

// Describe returns status entries for the features.
func Describe(set Set) []Status {
	statuses := make([]Status, 0, len(set))
	for _, feature := range set {
		if reporter, ok := feature.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    feature.Name(),
			Enabled: feature.IsEnabled(),
		})
	}
	return statuses
}
