// Package config assembles worker configuration from environment variables,
// command-line flags, and an optional solver-tuning TOML file, using the
// same viper/BurntSushi layering the rest of the stack relies on.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/kacperpap/air-pollution-tracker/internal/model"
	"github.com/kacperpap/air-pollution-tracker/internal/simulation"
)

// Config holds everything the supervisor needs to wire up the broker client
// and worker pool.
type Config struct {
	RabbitMQURL   string
	RequestQueue  string
	WorkerPoolSize int
	SimTimeout    time.Duration
	ShutdownGrace time.Duration
	LogLevel      string
	LogFormat     string

	Defaults simulation.Defaults
}

// Bind registers the flags understood by the worker command and binds them
// into v, mirroring the env-var/flag layering convention of spec_full.md's
// Configuration section. Flags take precedence over env, which takes
// precedence over built-in defaults.
func Bind(v *viper.Viper, flags *pflag.FlagSet) {
	flags.String("rabbitmq-url", "amqp://localhost", "RabbitMQ connection URL")
	flags.String("rabbitmq-queue", "simulation_requests", "request queue name")
	flags.Int("worker-pool-size", 0, "number of concurrent simulation workers (0 = number of CPUs)")
	flags.Duration("simulation-timeout", 600*time.Second, "per-job wall-clock timeout")
	flags.Duration("shutdown-grace", 10*time.Second, "grace period for in-flight jobs during shutdown")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text or json")
	flags.String("worker-config", "", "path to an optional worker.toml solver-tuning override file")

	v.BindPFlag("rabbitmq.url", flags.Lookup("rabbitmq-url"))
	v.BindPFlag("rabbitmq.queue", flags.Lookup("rabbitmq-queue"))
	v.BindPFlag("worker.pool_size", flags.Lookup("worker-pool-size"))
	v.BindPFlag("worker.simulation_timeout", flags.Lookup("simulation-timeout"))
	v.BindPFlag("worker.shutdown_grace", flags.Lookup("shutdown-grace"))
	v.BindPFlag("log.level", flags.Lookup("log-level"))
	v.BindPFlag("log.format", flags.Lookup("log-format"))
	v.BindPFlag("worker.config_file", flags.Lookup("worker-config"))

	v.SetEnvPrefix("")
	v.BindEnv("rabbitmq.url", "RABBITMQ_URL")
	v.BindEnv("rabbitmq.queue", "RABBITMQ_REQUEST_QUEUE")
	v.BindEnv("worker.pool_size", "WORKER_POOL_SIZE")
	v.BindEnv("worker.simulation_timeout", "SIMULATION_TIMEOUT")
	v.BindEnv("worker.shutdown_grace", "SHUTDOWN_GRACE")
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("log.format", "LOG_FORMAT")
}

// workerTOML mirrors the solver-tuning overrides an operator may ship in
// worker.toml: defaults applied to a job's optional fields, not exposed over
// the broker itself.
type workerTOML struct {
	DiffusionMethod string `toml:"diffusion_method"`
	MaxIncrement    int    `toml:"max_increment"`
}

// Load resolves a Config from v, after Bind has been called and flags have
// been parsed.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		RabbitMQURL:    v.GetString("rabbitmq.url"),
		RequestQueue:   v.GetString("rabbitmq.queue"),
		WorkerPoolSize: v.GetInt("worker.pool_size"),
		SimTimeout:     v.GetDuration("worker.simulation_timeout"),
		ShutdownGrace:  v.GetDuration("worker.shutdown_grace"),
		LogLevel:       v.GetString("log.level"),
		LogFormat:      v.GetString("log.format"),
		Defaults:       simulation.DefaultDefaults(),
	}

	if path := v.GetString("worker.config_file"); path != "" {
		var t workerTOML
		if _, err := toml.DecodeFile(path, &t); err != nil {
			return nil, fmt.Errorf("config: reading worker config %s: %w", path, err)
		}
		if t.DiffusionMethod != "" {
			cfg.Defaults.DiffusionMethod = model.DiffusionMethod(t.DiffusionMethod)
		}
		if t.MaxIncrement > 0 {
			cfg.Defaults.MaxIncrement = t.MaxIncrement
		}
	}

	return cfg, nil
}
