// Package config loads process configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix namespaces every variable read by the lab services.
const EnvPrefix = "LIMS_"

// ParseEnv loads configuration from LIMS_-prefixed environment variables.
//
// Struct tags omit the prefix: a field tagged `env:"NUMBERING_DB_PATH"` reads
// LIMS_NUMBERING_DB_PATH.
func ParseEnv(target any) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
