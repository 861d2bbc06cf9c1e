// Package configpkg provides parsing functionality for environment variables.
package configpkg

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Supported persistence backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// ErrInvalidConfig indicates an unusable combination of settings.
var ErrInvalidConfig = errors.New("invalid config")

// Config stores all configuration of the application.
//
// The values are read by viper from a config file or environment variables.
type Config struct {
	LedgerBackend string        `mapstructure:"LEDGER_BACKEND"`
	LedgerFile    string        `mapstructure:"LEDGER_FILE"`
	DBDriver      string        `mapstructure:"DB_DRIVER"`
	DBSource      string        `mapstructure:"DB_SOURCE"`
	ServerAddress string        `mapstructure:"SERVER_ADDRESS"`
	Environement  string        `mapstructure:"GO_ENV"`
	LogLevel      string        `mapstructure:"LOG_LEVEL"`
	BankName      string        `mapstructure:"BANK_NAME"`
	SMTPHost      string        `mapstructure:"SMTP_HOST"`
	SMTPPort      int           `mapstructure:"SMTP_PORT"`
	SMTPUsername  string        `mapstructure:"BANK_EMAIL"`
	SMTPPassword  string        `mapstructure:"BANK_EMAIL_PASS"`
	SMTPTimeout   time.Duration `mapstructure:"SMTP_TIMEOUT"`
}

var defaults = map[string]any{
	"LEDGER_BACKEND":  BackendFile,
	"LEDGER_FILE":     "accounts.txt",
	"DB_DRIVER":       "postgres",
	"DB_SOURCE":       "",
	"SERVER_ADDRESS":  "0.0.0.0:8080",
	"GO_ENV":          "production",
	"LOG_LEVEL":       "info",
	"BANK_NAME":       "Pet Ledger Bank",
	"SMTP_HOST":       "smtp.gmail.com",
	"SMTP_PORT":       465,
	"BANK_EMAIL":      "",
	"BANK_EMAIL_PASS": "",
	"SMTP_TIMEOUT":    10 * time.Second,
}

// Load read configuration from app.env in path and from environment variables.
// Environment variables take precedence; a missing app.env is not an error.
func Load(path string) (Config, error) {
	var c Config

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return c, err
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}

	if err := c.Validate(); err != nil {
		return c, err
	}

	return c, nil
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	switch c.LedgerBackend {
	case BackendFile:
		if c.LedgerFile == "" {
			return fmt.Errorf("%w: LEDGER_FILE is required for the file backend", ErrInvalidConfig)
		}
	case BackendPostgres:
		if c.DBSource == "" {
			return fmt.Errorf("%w: DB_SOURCE is required for the postgres backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown LEDGER_BACKEND %q", ErrInvalidConfig, c.LedgerBackend)
	}

	return nil
}
