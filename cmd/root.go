package cmd

import (
	"errors"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/ai-interviewer/internal/avatar"
	"github.com/spigell/ai-interviewer/internal/interview"
	"github.com/spigell/ai-interviewer/internal/mail"
	"github.com/spigell/ai-interviewer/internal/server"
	"github.com/spigell/ai-interviewer/internal/storage"
	"github.com/spigell/ai-interviewer/internal/telemetry"
)

const (
	app = "ai-interviewer"
)

type Config struct {
	Interview interview.Config `mapstructure:"interview"`
	AI        *AIConfig        `mapstructure:"ai"`
	Storage   storage.Config   `mapstructure:"storage"`
	Email     mail.Config      `mapstructure:"email"`
	Avatar    avatar.Config    `mapstructure:"avatar"`
	Telemetry telemetry.Config `mapstructure:"telemetry"`
	Server    server.Config    `mapstructure:"server"`
}

type AIConfig struct {
	Provider    string           `mapstructure:"provider"`
	Temperature float32          `mapstructure:"temperature"`
	MaxTokens   int              `mapstructure:"max-tokens"`
	Gemini      *GeminiConfig    `mapstructure:"gemini"`
	Anthropic   *AnthropicConfig `mapstructure:"anthropic"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type AnthropicConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "ai-interviewer runs adaptive technical interviews driven by language models",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envs := map[string]string{
		"ai.gemini.api-key-file":    "GEMINI_API_KEY_FILE",
		"ai.anthropic.api-key-file": "ANTHROPIC_API_KEY_FILE",
		"email.password-file":       "SMTP_PASSWORD_FILE",
		"avatar.api-key-file":       "TAVUS_API_KEY_FILE",
		"storage.redis.addr":        "REDIS_ADDR",
		"telemetry.otlp-endpoint":   "OTEL_EXPORTER_OTLP_ENDPOINT",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is ai-interviewer.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Version does not need any configuration.
	if versionCmd.CalledAs() != "" {
		return
	}

	// Variables from .env are visible to the env bindings above. A missing file is fine.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("loading .env file: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Without an explicit --config the defaults and the environment are enough.
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	config := &Config{
		Interview: interview.DefaultConfig(),
		AI:        &AIConfig{Provider: providerGemini},
	}
	if err := viper.Unmarshal(config); err != nil {
		return config, err
	}

	return config, nil
}
