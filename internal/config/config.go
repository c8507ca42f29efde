// Package config provides environment-variable-first configuration loading
// with optional YAML file fallback for the mail gateway.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultMaxMessageSize is 25 MB in bytes.
const defaultMaxMessageSize = 26214400

// Config holds the complete application configuration.
type Config struct {
	SMTP     SMTPConfig     `yaml:"smtp"`
	Provider string         `yaml:"provider"`
	SES      SESConfig      `yaml:"ses"`
	Relay    RelayConfig    `yaml:"relay"`
	Security SecurityConfig `yaml:"security"`
	Inbound  InboundConfig  `yaml:"inbound"`
	TLS      TLSConfig      `yaml:"tls"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SMTPConfig holds SMTP submission server configuration.
type SMTPConfig struct {
	Listen         string `yaml:"listen"`
	Hostname       string `yaml:"hostname"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	MaxMessageSize int64  `yaml:"max_message_size"`
}

// SESConfig holds AWS SES delivery configuration.
type SESConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Sender          string `yaml:"sender"`
}

// RelayConfig holds upstream SMTP relay configuration.
type RelayConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Sender   string `yaml:"sender"`
}

// SecurityConfig holds content scanning configuration.
type SecurityConfig struct {
	// LocalDomain is the domain considered internal; messages addressed
	// only to it skip outbound scanning.
	LocalDomain string `yaml:"local_domain"`

	// HoldPath is the bbolt database file holding blocked messages.
	HoldPath string `yaml:"hold_path"`

	// ScannableTypes and ScannableExtensions decide which attachments
	// have their content scanned as text. Empty means built-in defaults.
	ScannableTypes      []string `yaml:"scannable_types"`
	ScannableExtensions []string `yaml:"scannable_extensions"`
}

// InboundConfig holds the inbound listener and delivery configuration.
type InboundConfig struct {
	// Listen is the inbound SMTP listen address. Empty disables the
	// inbound listener.
	Listen string `yaml:"listen"`

	// Maildir is the agent mailbox directory for sanitized delivery.
	Maildir string `yaml:"maildir"`
}

// TLSConfig holds TLS certificate file paths.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load loads configuration from environment variables with sensible defaults.
// Environment variables always take precedence.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnvVars()
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables. Returns an error if the
// specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment variables always override YAML values
	cfg.applyEnvVars()

	return cfg, nil
}

// SESConfigured returns true if the SES region and sender are set.
// Credentials may also come from the ambient AWS credential chain.
func (c *Config) SESConfigured() bool {
	return c.SES.Region != "" && c.SES.Sender != ""
}

// RelayConfigured returns true if an upstream relay address is set.
func (c *Config) RelayConfigured() bool {
	return c.Relay.Addr != ""
}

// AuthEnabled returns true if both SMTP username and password are set.
func (c *Config) AuthEnabled() bool {
	return c.SMTP.Username != "" && c.SMTP.Password != ""
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.SMTP.Listen = ":2525"
	c.SMTP.Hostname = "mailwarden.local"
	c.SMTP.MaxMessageSize = defaultMaxMessageSize
	c.Provider = "stdout"
	c.Security.LocalDomain = "localhost"
	c.Security.HoldPath = "mailwarden-hold.db"
	c.Inbound.Maildir = "inbox"
	c.Logging.Level = "info"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() {
	if v := os.Getenv("SMTP_LISTEN"); v != "" {
		c.SMTP.Listen = v
	}
	if v := os.Getenv("SMTP_HOSTNAME"); v != "" {
		c.SMTP.Hostname = v
	}
	if v := os.Getenv("SMTP_USERNAME"); v != "" {
		c.SMTP.Username = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.SMTP.Password = v
	}
	if v := os.Getenv("SMTP_MAX_MESSAGE_SIZE"); v != "" {
		if size, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.SMTP.MaxMessageSize = size
		}
	}

	if v := os.Getenv("PROVIDER"); v != "" {
		c.Provider = strings.ToLower(v)
	}

	if v := os.Getenv("SES_REGION"); v != "" {
		c.SES.Region = v
	}
	if v := os.Getenv("SES_ACCESS_KEY_ID"); v != "" {
		c.SES.AccessKeyID = v
	}
	if v := os.Getenv("SES_SECRET_ACCESS_KEY"); v != "" {
		c.SES.SecretAccessKey = v
	}
	if v := os.Getenv("SES_SENDER"); v != "" {
		c.SES.Sender = v
	}

	if v := os.Getenv("RELAY_ADDR"); v != "" {
		c.Relay.Addr = v
	}
	if v := os.Getenv("RELAY_USERNAME"); v != "" {
		c.Relay.Username = v
	}
	if v := os.Getenv("RELAY_PASSWORD"); v != "" {
		c.Relay.Password = v
	}
	if v := os.Getenv("RELAY_SENDER"); v != "" {
		c.Relay.Sender = v
	}

	if v := os.Getenv("SECURITY_LOCAL_DOMAIN"); v != "" {
		c.Security.LocalDomain = v
	}
	if v := os.Getenv("SECURITY_HOLD_PATH"); v != "" {
		c.Security.HoldPath = v
	}

	if v := os.Getenv("INBOUND_LISTEN"); v != "" {
		c.Inbound.Listen = v
	}
	if v := os.Getenv("INBOUND_MAILDIR"); v != "" {
		c.Inbound.Maildir = v
	}

	if v := os.Getenv("TLS_CERT_FILE"); v != "" {
		c.TLS.CertFile = v
	}
	if v := os.Getenv("TLS_KEY_FILE"); v != "" {
		c.TLS.KeyFile = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}
