package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Optimization struct {
		// WorkerCount bounds parallel objective evaluation within a batch.
		WorkerCount int `env:"OPT_WORKER_COUNT" envDefault:"4"`
		// Restarts is the multi-start budget of the acquisition search.
		Restarts int `env:"OPT_RESTARTS" envDefault:"10"`
		// CandidateBudget is the sample budget of the discrete search.
		CandidateBudget int `env:"OPT_CANDIDATE_BUDGET" envDefault:"256"`
		// BatchSize is the default number of points suggested per iteration.
		BatchSize int `env:"OPT_BATCH_SIZE" envDefault:"1"`
		// UpdateInterval is the default number of iterations between
		// surrogate re-fits.
		UpdateInterval int `env:"OPT_UPDATE_INTERVAL" envDefault:"1"`
		// NoiseVariance is the default observation noise of the GP surrogate.
		NoiseVariance float64 `env:"OPT_NOISE_VARIANCE" envDefault:"1e-6"`
		// MaxSessions caps concurrently held optimization sessions.
		MaxSessions int `env:"OPT_MAX_SESSIONS" envDefault:"128"`
		// Seed fixes the random seed of candidate searches; 0 means
		// time-based.
		Seed int64 `env:"OPT_SEED" envDefault:"0"`
	}
}

func Load() (*Config, error) {
	cfg := &Config{}

	// Parse environment variables
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Set default logging level based on environment
	if cfg.Environment == "development" && cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}

	return cfg, nil
}
