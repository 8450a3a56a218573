// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Server        ServerConfig            `mapstructure:"server"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Auth          AuthConfig              `mapstructure:"auth"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Logging       LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig configures the gin HTTP trigger.
type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout int `mapstructure:"write_timeout"` // milliseconds
}

// Address returns the listen address for the HTTP server.
func (s ServerConfig) Address() string {
	return fmt.Sprintf(":%d", s.Port)
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// RedisConfig is optional: an empty address disables the identity cache and
// the dedup guard.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the zeebe settings for one task type.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

// AuthConfig holds the identity provider used to resolve subscriber emails.
type AuthConfig struct {
	Keycloak struct {
		URL          string `mapstructure:"url"`
		Realm        string `mapstructure:"realm"`
		ClientID     string `mapstructure:"client_id"`
		ClientSecret string `mapstructure:"client_secret"`
	} `mapstructure:"keycloak"`
}

// Identity sources.
const (
	IdentitySourceDatabase = "database"
	IdentitySourceKeycloak = "keycloak"
)

// Email providers.
const (
	EmailProviderResend = "resend"
	EmailProviderSES    = "ses"
)

// Match policy sources.
const (
	MatchingSourceLocal    = "local"
	MatchingSourceDatabase = "database"
)

// NotificationConfig holds settings for the notify-job-subscribers pipeline.
type NotificationConfig struct {
	PublicSiteURL   string `mapstructure:"public_site_url"`
	DispatchTimeout int    `mapstructure:"dispatch_timeout"` // milliseconds

	Telegram struct {
		BotToken   string `mapstructure:"bot_token"`
		APIBaseURL string `mapstructure:"api_base_url"`
	} `mapstructure:"telegram"`

	Email struct {
		Provider    string `mapstructure:"provider"`
		APIKey      string `mapstructure:"api_key"`
		APIBaseURL  string `mapstructure:"api_base_url"`
		FromAddress string `mapstructure:"from_address"`
	} `mapstructure:"email"`

	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`

	Identity struct {
		Source   string `mapstructure:"source"`
		CacheTTL int    `mapstructure:"cache_ttl"` // seconds
	} `mapstructure:"identity"`

	Matching struct {
		Source string `mapstructure:"source"`
	} `mapstructure:"matching"`

	Dedup struct {
		Enabled bool `mapstructure:"enabled"`
		TTL     int  `mapstructure:"ttl"` // seconds
	} `mapstructure:"dedup"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// TelegramEnabled reports whether a bot token is configured.
func (n NotificationConfig) TelegramEnabled() bool {
	return n.Telegram.BotToken != ""
}

// EmailEnabled reports whether the selected email provider has its credential.
func (n NotificationConfig) EmailEnabled() bool {
	switch n.Email.Provider {
	case EmailProviderSES:
		return n.AWS.Region != "" && n.Email.FromAddress != ""
	default:
		return n.Email.APIKey != ""
	}
}
