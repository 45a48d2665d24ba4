package logger_test

import (
	"errors"

	"github.com/wonny/invest-sim/pkg/config"
	"github.com/wonny/invest-sim/pkg/logger"
)

// Example_withFields demonstrates structured logging with fields
func Example_withFields() {
	cfg := &config.Config{
		Env:       "production",
		LogLevel:  "info",
		LogFormat: "json",
	}

	log := logger.New(cfg)

	// Add single field
	runLog := log.WithField("run_id", "7c9e6679-7425-40de-944b-e07fc1f90ae7")
	runLog.Info("simulation started")

	// Add multiple fields
	runLog.WithFields(map[string]interface{}{
		"simulations": 5000,
		"months":      120,
		"events":      3,
	}).Info("simulation finished")
}

// Example_withError demonstrates error logging
func Example_withError() {
	cfg := &config.Config{
		Env:       "production",
		LogLevel:  "error",
		LogFormat: "json",
	}

	log := logger.New(cfg)

	err := errors.New("redis: connection refused")
	log.WithError(err).
		WithFields(map[string]interface{}{
			"source": "fallback",
		}).
		Error("risk-free rate cache unavailable")
}
