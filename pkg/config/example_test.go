package config_test

import (
	"fmt"

	"github.com/wonny/invest-sim/pkg/config"
)

// Example demonstrates how to use the config package
func Example() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		return
	}

	// Access configuration values
	fmt.Printf("Server running on port: %s\n", cfg.Port)
	fmt.Printf("Store driver: %s\n", cfg.Store.Driver)
	fmt.Printf("Default simulations: %d\n", cfg.Simulation.NumSimulations)
	if rf := cfg.RiskFreeOverride(); rf != nil {
		fmt.Printf("Risk-free rate: %.2f%%\n", *rf)
	}
}
