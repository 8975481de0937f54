// Package otel provides opt-in OpenTelemetry tracing for niter builds.
// Tracing is off unless the --otel flag is given.
package otel

import (
	"errors"
)

// Config holds OTel initialization options.
type Config struct {
	Enabled        bool
	Endpoint       string  // e.g. "http://localhost:4318"
	Insecure       bool    // plain HTTP instead of TLS
	ServiceName    string  // default: "niter"
	ServiceVersion string
	SampleRatio    float64 // 0..1, default: 1.0
}

// DefaultConfig returns a Config with tracing disabled.
func DefaultConfig() Config {
	return Config{
		ServiceName: "niter",
		SampleRatio: 1.0,
	}
}

// Validate checks the configuration when tracing is enabled.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.ServiceName == "" {
		return errors.New("otel: service name is required")
	}
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		return errors.New("otel: sample ratio must be between 0 and 1")
	}
	return nil
}
