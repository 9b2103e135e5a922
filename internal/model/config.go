package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// StoreConfig holds persistence settings.
type StoreConfig struct {
	// Path is the SQLite database file. ":memory:" is accepted for tests.
	Path string `mapstructure:"path" yaml:"path"`
}

// AuthConfig holds settings for session token issuance.
type AuthConfig struct {
	// Secret signs session tokens. It must be set for `serve`.
	Secret string `mapstructure:"secret" yaml:"secret"`

	// TokenTTL is how long an issued session token stays valid.
	TokenTTL time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
}

// PushConfig holds settings for the push gateway and delivery queue.
type PushConfig struct {
	// Endpoint is the Expo push send URL.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// AccessToken is the optional Expo access token.
	AccessToken string `mapstructure:"access_token" yaml:"access_token"`

	// MaxAttempts bounds delivery retries before a job is dead-lettered.
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts"`

	// RetryBackoff is the initial delay between attempts; it doubles.
	RetryBackoff time.Duration `mapstructure:"retry_backoff" yaml:"retry_backoff"`

	// QueueSize is the capacity of the in-process delivery queue.
	QueueSize int `mapstructure:"queue_size" yaml:"queue_size"`
}

// MailConfig holds the optional invitation mail settings. Invitations are
// disabled when SMTPHost is empty.
type MailConfig struct {
	From       string `mapstructure:"from" yaml:"from"`
	SMTPHost   string `mapstructure:"smtp_host" yaml:"smtp_host"`
	SMTPPort   string `mapstructure:"smtp_port" yaml:"smtp_port"`
	Username   string `mapstructure:"username" yaml:"username"`
	Password   string `mapstructure:"password" yaml:"password"`
	TLS        bool   `mapstructure:"tls" yaml:"tls"`
	IMAPHost   string `mapstructure:"imap_host" yaml:"imap_host"`
	IMAPPort   string `mapstructure:"imap_port" yaml:"imap_port"`
	SentFolder string `mapstructure:"sent_folder" yaml:"sent_folder"`
}

// FilesConfig holds upload storage settings.
type FilesConfig struct {
	// Dir is the directory uploaded content is written under.
	Dir string `mapstructure:"dir" yaml:"dir"`

	// BaseURL prefixes download URLs, normally the API's public address.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// MaxSize is the largest accepted upload in bytes.
	MaxSize int64 `mapstructure:"max_size" yaml:"max_size"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`

	// RedisURL enables rate limiting of the auth endpoints when set.
	RedisURL string `mapstructure:"redis_url" yaml:"redis_url"`

	// AuthRateLimit is the number of auth requests allowed per client per
	// minute.
	AuthRateLimit int `mapstructure:"auth_rate_limit" yaml:"auth_rate_limit"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Store  StoreConfig  `mapstructure:"store" yaml:"store"`
	Auth   AuthConfig   `mapstructure:"auth" yaml:"auth"`
	Push   PushConfig   `mapstructure:"push" yaml:"push"`
	Mail   MailConfig   `mapstructure:"mail" yaml:"mail"`
	Files  FilesConfig  `mapstructure:"files" yaml:"files"`
	Server ServerConfig `mapstructure:"server" yaml:"server"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/teamtrack/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "teamtrack", "config.yaml")
}

// defaultStorePath puts the database next to the default config file.
func defaultStorePath() string {
	return filepath.Join(filepath.Dir(DefaultConfigPath()), "teamtrack.db")
}

// defaultFilesDir keeps uploads next to the default database.
func defaultFilesDir() string {
	return filepath.Join(filepath.Dir(DefaultConfigPath()), "files")
}

// setDefaults registers every default with v so that missing keys and
// environment overrides resolve consistently.
func setDefaults(v *viper.Viper) {
	v.SetDefault("store.path", defaultStorePath())
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("push.endpoint", "https://exp.host/--/api/v2/push/send")
	v.SetDefault("push.access_token", "")
	v.SetDefault("push.max_attempts", 3)
	v.SetDefault("push.retry_backoff", 2*time.Second)
	v.SetDefault("push.queue_size", 64)
	v.SetDefault("mail.from", "")
	v.SetDefault("mail.smtp_host", "")
	v.SetDefault("mail.smtp_port", "587")
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.tls", false)
	v.SetDefault("mail.imap_host", "")
	v.SetDefault("mail.imap_port", "993")
	v.SetDefault("mail.sent_folder", "Sent")
	v.SetDefault("files.dir", defaultFilesDir())
	v.SetDefault("files.base_url", "")
	v.SetDefault("files.max_size", 32<<20)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.redis_url", "")
	v.SetDefault("server.auth_rate_limit", 10)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Every key can be overridden by a TEAMTRACK_ environment variable
// (TEAMTRACK_AUTH_SECRET, TEAMTRACK_STORE_PATH, ...). A missing file yields
// the defaults.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("teamtrack")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		_, isPathErr := err.(*os.PathError)
		_, isNotFound := err.(viper.ConfigFileNotFoundError)
		if !isPathErr && !isNotFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Push.MaxAttempts < 1 {
		cfg.Push.MaxAttempts = 1
	}
	if cfg.Push.QueueSize < 1 {
		cfg.Push.QueueSize = 64
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("store", cfg.Store)
	v.Set("auth", cfg.Auth)
	v.Set("push", cfg.Push)
	v.Set("mail", cfg.Mail)
	v.Set("files", cfg.Files)
	v.Set("server", cfg.Server)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
