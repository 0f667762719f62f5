package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every problem found in one pass.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	lines := make([]string, 0, len(errs))
	for _, e := range errs {
		lines = append(lines, e.Error())
	}
	return strings.Join(lines, "\n")
}

// ValidateConfig checks the loaded configuration. Secrets are mandatory only
// in production and CI; development and test fall back to local defaults.
func ValidateConfig(cfg *Config) error {
	var errs ValidationErrors
	add := func(field, format string, args ...interface{}) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		add("server.port", "must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	switch cfg.Server.Mode {
	case "", "debug", "release", "test":
	default:
		add("server.mode", "must be debug, release or test, got %q", cfg.Server.Mode)
	}

	switch cfg.Database.Driver {
	case "postgres":
		if cfg.Database.Host == "" || cfg.Database.Name == "" {
			add("database", "host and name are required for postgres")
		}
	case "sqlite":
		if cfg.Database.SQLitePath == "" {
			add("database.sqlite_path", "is required for sqlite")
		}
	default:
		add("database.driver", "must be postgres or sqlite, got %q", cfg.Database.Driver)
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		add("logging.level", "must be debug, info, warn or error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" && cfg.Logging.Format != "text" {
		add("logging.format", "must be json or text, got %q", cfg.Logging.Format)
	}

	if cfg.Import.MaxBytes <= 0 {
		add("import.max_bytes", "must be positive")
	}
	if cfg.Finder.PageSize <= 0 {
		add("finder.page_size", "must be positive")
	}
	if cfg.Auth.BcryptCost < 4 || cfg.Auth.BcryptCost > 31 {
		add("auth.bcrypt_cost", "must be between 4 and 31, got %d", cfg.Auth.BcryptCost)
	}

	if cfg.Environment == Production || cfg.Environment == CI {
		if cfg.Auth.JWTSecret == "" {
			add("auth.jwt_secret", "jwt_secret secret is required in %s", cfg.Environment)
		} else if len(cfg.Auth.JWTSecret) < 32 {
			add("auth.jwt_secret", "must be at least 32 characters long")
		}
		if cfg.Database.Driver == "postgres" && cfg.Database.Password == "" {
			add("database.password", "db_password secret is required in %s", cfg.Environment)
		}
	} else if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = "cookistry-dev-secret-change-me"
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
