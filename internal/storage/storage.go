// Package storage persists interview transcripts and reports.
package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spigell/ai-interviewer/internal/interview"
)

type Driver string

const (
	DriverFile  Driver = "file"
	DriverRedis Driver = "redis"
	DriverNone  Driver = "none"
)

var ErrUnknownDriver = errors.New("storage: unknown driver")

// Config selects and configures a sink.
type Config struct {
	Driver Driver      `mapstructure:"driver"`
	Dir    string      `mapstructure:"dir"`
	Redis  RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// Store is a sink that owns resources.
type Store interface {
	interview.Sink
	Close() error
}

// New builds the store for cfg.Driver. An empty driver means file storage.
func New(cfg Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	driver := Driver(strings.ToLower(strings.TrimSpace(string(cfg.Driver))))
	switch driver {
	case DriverFile, "":
		return NewFileSink(cfg.Dir, logger)
	case DriverRedis:
		if strings.TrimSpace(cfg.Redis.Addr) == "" {
			return nil, errors.New("storage: redis address is required")
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return NewRedisSink(client, cfg.Redis.TTL, logger), nil
	case DriverNone:
		return nopStore{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
