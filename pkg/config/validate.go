package config

import (
	"fmt"
	"strings"
)

// ConfigurationError lists everything wrong with a configuration. It is
// always reported before any store call is made.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// Validate checks the configuration. Credentials are only required when
// the run will talk to a real store.
func (c *Config) Validate(requireCredentials bool) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	switch c.Store.Driver {
	case DriverREST:
		if requireCredentials {
			if c.Store.URL == "" {
				add("store url is not set (SUPABASE_URL or ALTEA_STORE_URL)")
			}
			if c.Store.Key == "" {
				add("store key is not set (SUPABASE_SERVICE_ROLE_KEY or ALTEA_STORE_KEY)")
			}
		}
	case DriverPostgres:
		if requireCredentials && c.Store.DatabaseURL == "" {
			add("database url is not set (DATABASE_URL)")
		}
	default:
		add("unknown store driver %q (want %s or %s)", c.Store.Driver, DriverREST, DriverPostgres)
	}

	if c.Store.Timeout <= 0 {
		add("store timeout must be positive")
	}
	if c.Store.Retries < 0 {
		add("store retries must not be negative")
	}
	switch strings.ToLower(strings.TrimSpace(c.Store.Schema)) {
	case "customers", "clients":
	default:
		add("unknown store schema %q (want customers or clients)", c.Store.Schema)
	}
	if c.Store.Collections.Companies == "" || c.Store.Collections.Debts == "" {
		add("store companies and debts collections must be named")
	}

	switch strings.ToLower(c.Import.AmountMode) {
	case "strict", "lenient":
	default:
		add("unknown amount mode %q (want strict or lenient)", c.Import.AmountMode)
	}
	switch strings.ToLower(c.Import.OpenStatus) {
	case "overdue", "pending":
	default:
		add("unknown open status %q (want overdue or pending)", c.Import.OpenStatus)
	}
	if c.Import.MaxErrors <= 0 {
		add("max errors must be positive")
	}

	if len(problems) > 0 {
		return &ConfigurationError{Problems: problems}
	}
	return nil
}
