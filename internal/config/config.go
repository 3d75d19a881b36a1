package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Storage  StorageConfig  `yaml:"storage"`
	Auth     AuthConfig     `yaml:"auth"`
	Timeline TimelineConfig `yaml:"timeline"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
	// AllowedOrigin is sent as Access-Control-Allow-Origin
	AllowedOrigin string `yaml:"allowed_origin"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// StorageConfig holds S3-compatible object storage configuration
type StorageConfig struct {
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"` // custom endpoint for S3-compatible providers
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	PathStyle bool   `yaml:"path_style"`

	MomentBucket        string `yaml:"moment_bucket"`
	ProfileBucket       string `yaml:"profile_bucket"`
	ProfileBucketPublic bool   `yaml:"profile_bucket_public"`
	// PublicBaseURL prefixes public object URLs, e.g. https://cdn.example.com
	PublicBaseURL string `yaml:"public_base_url"`

	SignedURLTTL    time.Duration `yaml:"signed_url_ttl"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
	MaxFilesPerPost int           `yaml:"max_files_per_post"`
}

// AuthConfig holds session and OAuth configuration
type AuthConfig struct {
	JWTSecret  string                         `yaml:"jwt_secret"`
	SessionTTL time.Duration                  `yaml:"session_ttl"`
	SiteURL    string                         `yaml:"site_url"`
	OAuth      map[string]OAuthProviderConfig `yaml:"oauth"`
}

// OAuthProviderConfig describes one OAuth2 identity provider
type OAuthProviderConfig struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	AuthURL      string   `yaml:"auth_url"`
	TokenURL     string   `yaml:"token_url"`
	UserInfoURL  string   `yaml:"userinfo_url"`
	Scopes       []string `yaml:"scopes"`
}

// TimelineConfig holds timeline pagination configuration
type TimelineConfig struct {
	PageSize int `yaml:"page_size"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// MetricsConfig holds Prometheus configuration
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, applies defaults and environment overrides
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration with every optional value filled in
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:          "0.0.0.0",
			Port:          8080,
			AllowedOrigin: "*",
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			SSLMode: "disable",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Storage: StorageConfig{
			Region:          "us-east-1",
			MomentBucket:    "moment-media",
			ProfileBucket:   "profile-photos",
			SignedURLTTL:    time.Hour,
			MaxUploadBytes:  50 << 20,
			MaxFilesPerPost: 5,
		},
		Auth: AuthConfig{
			SessionTTL: 7 * 24 * time.Hour,
			SiteURL:    "http://localhost:3000",
		},
		Timeline: TimelineConfig{
			PageSize: 10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func (c *Config) applyEnv() {
	overrides := map[string]*string{
		"LOVEVAULT_DB_PASSWORD":    &c.Database.Password,
		"LOVEVAULT_JWT_SECRET":     &c.Auth.JWTSecret,
		"LOVEVAULT_S3_ACCESS_KEY":  &c.Storage.AccessKey,
		"LOVEVAULT_S3_SECRET_KEY":  &c.Storage.SecretKey,
		"LOVEVAULT_REDIS_PASSWORD": &c.Redis.Password,
	}
	for name, target := range overrides {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*target = v
		}
	}
}

// Validate validates critical configuration values
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("database name is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.Storage.MomentBucket == "" || c.Storage.ProfileBucket == "" {
		return fmt.Errorf("storage buckets are required")
	}
	if c.Storage.SignedURLTTL <= 0 {
		return fmt.Errorf("signed URL TTL must be positive")
	}
	if c.Timeline.PageSize <= 0 {
		return fmt.Errorf("timeline page size must be positive")
	}
	for name, p := range c.Auth.OAuth {
		if p.ClientID == "" || p.AuthURL == "" || p.TokenURL == "" || p.UserInfoURL == "" {
			return fmt.Errorf("oauth provider %s is incomplete", name)
		}
	}
	return nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// MigrateURL returns the database URL in the form expected by the pgx/v5 migrate driver
func (c *DatabaseConfig) MigrateURL() string {
	u := url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": []string{c.SSLMode}}.Encode(),
	}
	return u.String()
}
