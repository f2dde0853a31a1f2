// Package config loads run configuration from defaults, an optional YAML
// file, the environment and command line flags, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

const envPrefix = "ALTEA"

const (
	DriverREST     = "rest"
	DriverPostgres = "postgres"
)

type Config struct {
	Store   StoreConfig   `mapstructure:"store"`
	Import  ImportConfig  `mapstructure:"import"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type StoreConfig struct {
	Driver      string            `mapstructure:"driver"`
	URL         string            `mapstructure:"url"`
	Key         string            `mapstructure:"key"`
	DatabaseURL string            `mapstructure:"database_url"`
	Timeout     time.Duration     `mapstructure:"timeout"`
	Retries     int               `mapstructure:"retries"`
	RetryWait   time.Duration     `mapstructure:"retry_wait"`
	Schema      string            `mapstructure:"schema"`
	Collections CollectionsConfig `mapstructure:"collections"`
}

// CollectionsConfig names the target collections. An empty customers
// collection follows the schema.
type CollectionsConfig struct {
	Companies string `mapstructure:"companies"`
	Customers string `mapstructure:"customers"`
	Debts     string `mapstructure:"debts"`
}

type ImportConfig struct {
	DedupeCustomers   bool   `mapstructure:"dedupe_customers"`
	DedupeCompanies   bool   `mapstructure:"dedupe_companies"`
	CompanyMustExist  bool   `mapstructure:"company_must_exist"`
	AmountMode        string `mapstructure:"amount_mode"`
	OpenStatus        string `mapstructure:"open_status"`
	MaxErrors         int    `mapstructure:"max_errors"`
	ValidateDocuments bool   `mapstructure:"validate_documents"`
	DefaultState      string `mapstructure:"default_state"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type MetricsConfig struct {
	File string `mapstructure:"file"`
}

// flagKeys maps command line flags onto configuration keys.
var flagKeys = map[string]string{
	"driver":             "store.driver",
	"timeout":            "store.timeout",
	"retries":            "store.retries",
	"schema":             "store.schema",
	"dedupe-customers":   "import.dedupe_customers",
	"dedupe-companies":   "import.dedupe_companies",
	"company-must-exist": "import.company_must_exist",
	"amount-mode":        "import.amount_mode",
	"open-status":        "import.open_status",
	"max-errors":         "import.max_errors",
	"validate-documents": "import.validate_documents",
	"log-level":          "log.level",
	"metrics-file":       "metrics.file",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", DriverREST)
	v.SetDefault("store.url", "")
	v.SetDefault("store.key", "")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.timeout", 30*time.Second)
	v.SetDefault("store.retries", 0)
	v.SetDefault("store.retry_wait", 500*time.Millisecond)
	v.SetDefault("store.collections.companies", "companies")
	v.SetDefault("store.schema", "customers")
	v.SetDefault("store.collections.customers", "")
	v.SetDefault("store.collections.debts", "debts")

	v.SetDefault("import.dedupe_customers", true)
	v.SetDefault("import.dedupe_companies", true)
	v.SetDefault("import.company_must_exist", false)
	v.SetDefault("import.amount_mode", "strict")
	v.SetDefault("import.open_status", "overdue")
	v.SetDefault("import.max_errors", 10)
	v.SetDefault("import.validate_documents", false)
	v.SetDefault("import.default_state", "SP")

	v.SetDefault("log.level", "info")
	v.SetDefault("metrics.file", "")
}

// Build assembles the configuration. cfgFile may be empty, in which case
// config.yaml is read from the working directory when present. Only flags
// explicitly set on the command line override other sources.
func Build(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, &ConfigurationError{Problems: []string{fmt.Sprintf("read config file %s: %v", cfgFile, err)}}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, &ConfigurationError{Problems: []string{fmt.Sprintf("read config file: %v", err)}}
			}
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("store.url", "ALTEA_STORE_URL", "SUPABASE_URL")
	_ = v.BindEnv("store.key", "ALTEA_STORE_KEY", "SUPABASE_SERVICE_ROLE_KEY")
	_ = v.BindEnv("store.database_url", "ALTEA_STORE_DATABASE_URL", "DATABASE_URL")

	if flags != nil {
		var ferr error
		flags.Visit(func(f *pflag.Flag) {
			key, ok := flagKeys[f.Name]
			if !ok || ferr != nil {
				return
			}
			if err := v.BindPFlag(key, f); err != nil {
				ferr = err
			}
		})
		if ferr != nil {
			return nil, fmt.Errorf("bind flags: %w", ferr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigurationError{Problems: []string{fmt.Sprintf("decode configuration: %v", err)}}
	}
	return &cfg, nil
}

// LoadDotEnv exports the variables of a .env file into the process
// environment without overriding what is already set. A missing file is
// not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}
