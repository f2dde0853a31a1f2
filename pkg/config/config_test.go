package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"SUPABASE_URL", "SUPABASE_SERVICE_ROLE_KEY", "ALTEA_STORE_URL", "ALTEA_STORE_KEY", "DATABASE_URL", "ALTEA_STORE_DATABASE_URL"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestBuild(t *testing.T) {
	t.Run("Should apply defaults", func(t *testing.T) {
		clearEnv(t)
		cfg, err := Build("", nil)
		require.NoError(t, err)

		assert.Equal(t, DriverREST, cfg.Store.Driver)
		assert.Equal(t, 30*time.Second, cfg.Store.Timeout)
		assert.Equal(t, 0, cfg.Store.Retries)
		assert.Equal(t, 500*time.Millisecond, cfg.Store.RetryWait)
		assert.Equal(t, "customers", cfg.Store.Schema)
		assert.Empty(t, cfg.Store.Collections.Customers)
		assert.True(t, cfg.Import.DedupeCustomers)
		assert.True(t, cfg.Import.DedupeCompanies)
		assert.False(t, cfg.Import.CompanyMustExist)
		assert.Equal(t, "strict", cfg.Import.AmountMode)
		assert.Equal(t, "overdue", cfg.Import.OpenStatus)
		assert.Equal(t, 10, cfg.Import.MaxErrors)
		assert.Equal(t, "SP", cfg.Import.DefaultState)
		assert.Equal(t, "info", cfg.Log.Level)
	})

	t.Run("Should read Supabase credentials from the environment", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SUPABASE_URL", "https://project.supabase.co")
		t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "service-key")
		t.Setenv("ALTEA_IMPORT_AMOUNT_MODE", "lenient")
		t.Setenv("ALTEA_STORE_TIMEOUT", "5s")

		cfg, err := Build("", nil)
		require.NoError(t, err)
		assert.Equal(t, "https://project.supabase.co", cfg.Store.URL)
		assert.Equal(t, "service-key", cfg.Store.Key)
		assert.Equal(t, "lenient", cfg.Import.AmountMode)
		assert.Equal(t, 5*time.Second, cfg.Store.Timeout)
	})

	t.Run("Should prefer the ALTEA names over the Supabase ones", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SUPABASE_URL", "https://a.supabase.co")
		t.Setenv("ALTEA_STORE_URL", "https://b.example.com")

		cfg, err := Build("", nil)
		require.NoError(t, err)
		assert.Equal(t, "https://b.example.com", cfg.Store.URL)
	})

	t.Run("Should layer file, environment and explicit flags", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "altea.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
store:
  schema: clients
  collections:
    customers: clients
import:
  max_errors: 3
  open_status: pending
`), 0o600))
		t.Setenv("ALTEA_IMPORT_MAX_ERRORS", "5")

		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.Bool("dedupe-customers", true, "")
		flags.String("open-status", "overdue", "")
		require.NoError(t, flags.Parse([]string{"--dedupe-customers=false"}))

		cfg, err := Build(path, flags)
		require.NoError(t, err)
		assert.Equal(t, "clients", cfg.Store.Schema)
		assert.Equal(t, "clients", cfg.Store.Collections.Customers)
		assert.Equal(t, 5, cfg.Import.MaxErrors)
		assert.Equal(t, "pending", cfg.Import.OpenStatus)
		assert.False(t, cfg.Import.DedupeCustomers)
	})

	t.Run("Should fail on an unreadable config file", func(t *testing.T) {
		_, err := Build(filepath.Join(t.TempDir(), "missing.yaml"), nil)
		var cerr *ConfigurationError
		assert.True(t, errors.As(err, &cerr))
	})
}

func TestValidate(t *testing.T) {
	base := func(t *testing.T) *Config {
		t.Helper()
		clearEnv(t)
		cfg, err := Build("", nil)
		require.NoError(t, err)
		return cfg
	}

	t.Run("Should require credentials only when asked", func(t *testing.T) {
		cfg := base(t)
		assert.NoError(t, cfg.Validate(false))

		err := cfg.Validate(true)
		var cerr *ConfigurationError
		require.True(t, errors.As(err, &cerr))
		assert.Len(t, cerr.Problems, 2)
		assert.Contains(t, err.Error(), "SUPABASE_URL")

		cfg.Store.URL = "https://x.supabase.co"
		cfg.Store.Key = "k"
		assert.NoError(t, cfg.Validate(true))
	})

	t.Run("Should require a database url for postgres", func(t *testing.T) {
		cfg := base(t)
		cfg.Store.Driver = DriverPostgres
		assert.Error(t, cfg.Validate(true))
		cfg.Store.DatabaseURL = "postgres://localhost/altea"
		assert.NoError(t, cfg.Validate(true))
	})

	t.Run("Should reject unknown policies", func(t *testing.T) {
		cfg := base(t)
		cfg.Store.Driver = "mongo"
		cfg.Import.AmountMode = "loose"
		cfg.Import.OpenStatus = "cancelled"
		cfg.Import.MaxErrors = 0

		var cerr *ConfigurationError
		require.True(t, errors.As(cfg.Validate(false), &cerr))
		assert.Len(t, cerr.Problems, 4)
	})

	t.Run("Should accept known schemas and reject others", func(t *testing.T) {
		cfg := base(t)
		cfg.Store.Schema = "Clients"
		assert.NoError(t, cfg.Validate(false))

		cfg.Store.Schema = "people"
		cfg.Store.Collections.Debts = ""
		var cerr *ConfigurationError
		require.True(t, errors.As(cfg.Validate(false), &cerr))
		assert.Len(t, cerr.Problems, 2)
		assert.Contains(t, cerr.Error(), `"people"`)
	})
}

func TestLoadDotEnv(t *testing.T) {
	t.Run("Should ignore a missing file", func(t *testing.T) {
		assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
		assert.NoError(t, LoadDotEnv(""))
	})

	t.Run("Should export variables without overriding existing ones", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SUPABASE_URL", "https://kept.supabase.co")
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("SUPABASE_URL=https://other.supabase.co\nSUPABASE_SERVICE_ROLE_KEY=from-dotenv\n"), 0o600))

		require.NoError(t, LoadDotEnv(path))
		t.Cleanup(func() { os.Unsetenv("SUPABASE_SERVICE_ROLE_KEY") })

		assert.Equal(t, "https://kept.supabase.co", os.Getenv("SUPABASE_URL"))
		assert.Equal(t, "from-dotenv", os.Getenv("SUPABASE_SERVICE_ROLE_KEY"))
	})
}
