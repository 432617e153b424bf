package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

// Config holds the configuration for the vibeboard server.
type Config struct {
	// Server holds the HTTP server configuration.
	Server *ServerConfig `yaml:"server" mapstructure:"server"`
	// Auth holds the user authentication configuration.
	Auth *AuthConfig `yaml:"auth" mapstructure:"auth"`
	// Admin seeds the admin credential pair when a fresh document is created.
	Admin *AdminConfig `yaml:"admin" mapstructure:"admin"`
	// Janitor holds the orphan-file sweep configuration.
	Janitor *JanitorConfig `yaml:"janitor" mapstructure:"janitor"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	// Listen is the address the server will listen on.
	Listen string `yaml:"listen" mapstructure:"listen"`
	// DataDir is the directory holding the document file and the upload tree.
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`
	// LogLevel is the log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
	// MaxUploadSize caps the size of a multipart request body in bytes.
	MaxUploadSize int64 `yaml:"max_upload_size" mapstructure:"max_upload_size"`
}

// AuthConfig holds the user authentication configuration.
type AuthConfig struct {
	// JWTSecret signs the bearer tokens. Must be set in production.
	JWTSecret string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	// TokenTTL is how long an issued token stays valid.
	TokenTTL time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"`
	// BcryptCost is the bcrypt cost used for password hashes.
	BcryptCost int `yaml:"bcrypt_cost" mapstructure:"bcrypt_cost"`
	// MinPasswordLength is the minimum accepted password length at registration.
	MinPasswordLength int `yaml:"min_password_length" mapstructure:"min_password_length"`
}

// AdminConfig seeds the stored admin credential pair for a fresh document.
// Once the document exists the stored pair wins; use `vibeboard reset-admin`
// to change it.
type AdminConfig struct {
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
}

// JanitorConfig holds the orphan-file sweep configuration.
type JanitorConfig struct {
	// Enabled indicates whether the periodic sweep runs at all.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Interval is the time between sweeps.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
	// GracePeriod is the minimum age an unreferenced file must have before it
	// counts as an orphan. Protects uploads still in flight.
	GracePeriod time.Duration `yaml:"grace_period" mapstructure:"grace_period"`
}

// DocumentPath returns the path of the JSON document file.
func (c *Config) DocumentPath() string {
	return filepath.Join(c.Server.DataDir, "db.json")
}

// UploadsDir returns the root of the upload tree.
func (c *Config) UploadsDir() string {
	return filepath.Join(c.Server.DataDir, "uploads")
}

// Load reads the configuration from the specified path and returns a Config
// struct. If path is empty, it searches the default locations. Environment
// variables with a VIBEBOARD_ prefix override file values.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvPrefix("VIBEBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.vibeboard")
		v.AddConfigPath("/etc/vibeboard")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		log.Debug("using config file", "file", v.ConfigFileUsed())
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen", "0.0.0.0:3000")
	v.SetDefault("server.data_dir", "./data")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.max_upload_size", 32<<20) // 32 MiB

	v.SetDefault("auth.jwt_secret", "change-me-before-deploying")
	v.SetDefault("auth.token_ttl", time.Hour)
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.min_password_length", 6)

	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.password", "supersecretpassword")

	v.SetDefault("janitor.enabled", true)
	v.SetDefault("janitor.interval", 24*time.Hour)
	v.SetDefault("janitor.grace_period", time.Hour)
}

func validate(c *Config) error {
	if c.Server == nil || c.Server.Listen == "" {
		return fmt.Errorf("server.listen is required")
	}
	if c.Server.DataDir == "" {
		return fmt.Errorf("server.data_dir is required")
	}
	if c.Auth == nil || c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}
	if c.Auth.MinPasswordLength < 1 {
		return fmt.Errorf("auth.min_password_length must be at least 1")
	}
	if c.Admin == nil || c.Admin.Username == "" || c.Admin.Password == "" {
		return fmt.Errorf("admin.username and admin.password are required")
	}
	if c.Janitor != nil && c.Janitor.Enabled && c.Janitor.Interval <= 0 {
		return fmt.Errorf("janitor.interval must be positive")
	}
	return nil
}
