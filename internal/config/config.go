package config

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment         string `yaml:"Environment"`
	EncryptionKeyBase64 string `yaml:"EncryptionKeyBase64"`
	JWTSecret           string `yaml:"JWTSecret"`
	DBHost              string `yaml:"DBHost"`
	DBPort              string `yaml:"DBPort"`
	DBUsername          string `yaml:"DBUsername"`
	DBPassword          string `yaml:"DBPassword"`
	DBName              string `yaml:"DBName"`
	DBSSLMode           string `yaml:"DBSSLMode"`
	Port                string `yaml:"Port"`
	Timezone            string `yaml:"Timezone"`
	// DefaultPageLimit is the folder page size for users who have not set one.
	DefaultPageLimit int `yaml:"DefaultPageLimit"`
	// IMAPUseTLS is false only against local test servers.
	IMAPUseTLS bool `yaml:"IMAPUseTLS"`
	// IMAPMaxWorkers caps the worker connections per user.
	IMAPMaxWorkers int `yaml:"IMAPMaxWorkers"`
	// RefreshConcurrency caps parallel refetches of dirty folders per user.
	RefreshConcurrency int `yaml:"RefreshConcurrency"`
}

// NewConfig builds the configuration from defaults, an optional YAML file
// named by MAILVIEW_CONFIG_FILE, and environment variables, in that order.
func NewConfig() (*Config, error) {
	env := os.Getenv("MAILVIEW_ENV")
	if env == "" {
		env = "development"
	}

	if env == "development" {
		if err := godotenv.Load(); err != nil {
			fmt.Println("Warning: .env file not found, using environment variables")
		}
	}

	config := defaults()
	config.Environment = env

	if path := os.Getenv("MAILVIEW_CONFIG_FILE"); path != "" {
		if err := config.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func defaults() *Config {
	return &Config{
		DBHost:             "localhost",
		DBPort:             "5432",
		DBUsername:         "mailview",
		DBName:             "mailview",
		DBSSLMode:          "disable",
		Port:               "8080",
		Timezone:           "UTC",
		DefaultPageLimit:   20,
		IMAPUseTLS:         true,
		IMAPMaxWorkers:     3,
		RefreshConcurrency: 4,
	}
}

// LoadFile overlays the values set in a YAML file onto the config.
func (c *Config) LoadFile(path string) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(buf, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.EncryptionKeyBase64, "MAILVIEW_ENCRYPTION_KEY_BASE64")
	setString(&c.JWTSecret, "MAILVIEW_JWT_SECRET")
	setString(&c.DBHost, "MAILVIEW_DB_HOST")
	setString(&c.DBPort, "MAILVIEW_DB_PORT")
	setString(&c.DBUsername, "MAILVIEW_DB_USER")
	setString(&c.DBPassword, "MAILVIEW_DB_PASSWORD")
	setString(&c.DBName, "MAILVIEW_DB_NAME")
	setString(&c.DBSSLMode, "MAILVIEW_DB_SSLMODE")
	setString(&c.Port, "PORT")
	setString(&c.Timezone, "TZ")

	if err := setInt(&c.DefaultPageLimit, "MAILVIEW_DEFAULT_PAGE_LIMIT"); err != nil {
		return err
	}
	if err := setInt(&c.RefreshConcurrency, "MAILVIEW_REFRESH_CONCURRENCY"); err != nil {
		return err
	}
	if err := setInt(&c.IMAPMaxWorkers, "MAILVIEW_IMAP_MAX_WORKERS"); err != nil {
		return err
	}
	if value := os.Getenv("MAILVIEW_IMAP_USE_TLS"); value != "" {
		useTLS, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("MAILVIEW_IMAP_USE_TLS must be a boolean: %w", err)
		}
		c.IMAPUseTLS = useTLS
	}

	return nil
}

func (c *Config) Validate() error {
	if c.EncryptionKeyBase64 == "" {
		return fmt.Errorf("MAILVIEW_ENCRYPTION_KEY_BASE64 is required")
	}

	key, err := base64.StdEncoding.DecodeString(c.EncryptionKeyBase64)
	if err != nil {
		return fmt.Errorf("MAILVIEW_ENCRYPTION_KEY_BASE64 is not valid base64: %w", err)
	}
	if len(key) != 32 {
		return fmt.Errorf("MAILVIEW_ENCRYPTION_KEY_BASE64 must decode to 32 bytes, got %d", len(key))
	}

	if c.JWTSecret == "" {
		return fmt.Errorf("MAILVIEW_JWT_SECRET is required")
	}

	if c.DBPassword == "" {
		return fmt.Errorf("MAILVIEW_DB_PASSWORD is required")
	}

	if c.DefaultPageLimit <= 0 {
		return fmt.Errorf("default page limit must be positive, got %d", c.DefaultPageLimit)
	}

	if c.RefreshConcurrency <= 0 {
		return fmt.Errorf("refresh concurrency must be positive, got %d", c.RefreshConcurrency)
	}

	if c.IMAPMaxWorkers <= 0 {
		return fmt.Errorf("IMAP max workers must be positive, got %d", c.IMAPMaxWorkers)
	}

	return nil
}

// GetDatabaseURL returns the postgres connection URL with credentials escaped.
func (c *Config) GetDatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUsername, c.DBPassword),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
	}
	return u.String()
}

func setString(target *string, key string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}

func setInt(target *int, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s must be an integer: %w", key, err)
	}
	*target = n
	return nil
}
