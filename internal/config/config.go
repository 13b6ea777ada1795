package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config holds all server settings.
type Config struct {
	ListenAddr       string        `mapstructure:"listen_addr"`
	DataDir          string        `mapstructure:"data_dir"`
	AnswerTimeout    time.Duration `mapstructure:"answer_timeout"`
	RoundDeadline    time.Duration `mapstructure:"round_deadline"`
	ShutdownGrace    time.Duration `mapstructure:"shutdown_grace"`
	PointsPerCorrect int           `mapstructure:"points_per_correct"`
	HighscoreSize    int           `mapstructure:"highscore_size"`
}

// Default returns the server settings used when no config file overrides them.
func Default() Config {
	return Config{
		ListenAddr:       "localhost:4000",
		DataDir:          "data",
		AnswerTimeout:    30 * time.Second,
		RoundDeadline:    10 * time.Minute,
		ShutdownGrace:    5 * time.Second,
		PointsPerCorrect: 1,
		HighscoreSize:    3,
	}
}

// Load reads settings from the given file, layered over Default. Environment
// variables of the form TERMTRIVIA_<KEY> override both. An empty file path
// loads defaults and environment only.
func Load(file string) (Config, error) {
	cfg := Default()

	v := viper.New()
	m := make(map[string]any)
	if err := mapstructure.Decode(cfg, &m); err != nil {
		return Config{}, fmt.Errorf("failed to decode defaults: %w", err)
	}
	if err := v.MergeConfigMap(m); err != nil {
		return Config{}, fmt.Errorf("failed to merge defaults: %w", err)
	}

	v.SetEnvPrefix("TERMTRIVIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.MergeInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", file, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	if cfg.AnswerTimeout <= 0 {
		return fmt.Errorf("answer_timeout must be positive, got %s", cfg.AnswerTimeout)
	}
	if cfg.RoundDeadline <= 0 {
		return fmt.Errorf("round_deadline must be positive, got %s", cfg.RoundDeadline)
	}
	if cfg.ShutdownGrace <= 0 {
		return fmt.Errorf("shutdown_grace must be positive, got %s", cfg.ShutdownGrace)
	}
	if cfg.PointsPerCorrect <= 0 {
		return fmt.Errorf("points_per_correct must be positive, got %d", cfg.PointsPerCorrect)
	}
	if cfg.HighscoreSize <= 0 {
		return fmt.Errorf("highscore_size must be positive, got %d", cfg.HighscoreSize)
	}
	return nil
}
