package config

import "time"

type Relay struct {
	BatchSize uint32        `env:"RELAY_BATCH_SIZE" envDefault:"100" validate:"gt=0"`
	Interval  time.Duration `env:"RELAY_INTERVAL" envDefault:"1s"`
	// StopTimeout bounds how long shutdown waits for an in-flight batch.
	StopTimeout time.Duration `env:"RELAY_STOP_TIMEOUT" envDefault:"5s"`
	// MetricsPort serves /metrics from es-relay; 0 disables it. es-standalone
	// exposes relay metrics on its HTTP port instead.
	MetricsPort uint32 `env:"RELAY_METRICS_PORT" envDefault:"0"`
}
