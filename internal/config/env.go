// Package config provides environment-driven configuration for the account API.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// parseEnv loads struct fields tagged with `env` from the process environment.
func parseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
