package core

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultPort             = 8080
	defaultMaxUploadBytes   = 10 << 20
	defaultStatsSampleSize  = 10
	defaultGalleryPerPage   = 20
	defaultLeaderboardLimit = 100
	defaultAdminPerPage     = 50
	defaultLoginAttempts    = 5
	defaultLoginWindow      = 15 * time.Minute
	minSessionSecretLength  = 32
)

type Database struct {
	Type             string `yaml:"type"`
	ConnectionString string `yaml:"connectionString"`
}

type Cache struct {
	// Type is "redis" or "memory"
	Type     string `yaml:"type"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Upload struct {
	MaxBytes int64 `yaml:"maxBytes"`
}

type Stats struct {
	SampleSize int `yaml:"sampleSize"`
}

type Gallery struct {
	PerPage int `yaml:"perPage"`
}

type Leaderboard struct {
	Limit int `yaml:"limit"`
}

type Admin struct {
	Username         string        `yaml:"username"`
	PasswordHash     string        `yaml:"passwordHash"`
	SessionSecret    string        `yaml:"sessionSecret"`
	PerPage          int           `yaml:"perPage"`
	MaxLoginAttempts int           `yaml:"maxLoginAttempts"`
	LoginWindow      time.Duration `yaml:"loginWindow"`
}

type ServiceConfig struct {
	Port        int         `yaml:"port"`
	Database    Database    `yaml:"database"`
	Cache       Cache       `yaml:"cache"`
	Upload      Upload      `yaml:"upload"`
	Stats       Stats       `yaml:"stats"`
	Gallery     Gallery     `yaml:"gallery"`
	Leaderboard Leaderboard `yaml:"leaderboard"`
	Admin       Admin       `yaml:"admin"`
}

// LoadConfig loads configuration from the specified YAML file
func LoadConfig(configPath string) (*ServiceConfig, error) {
	// Read the config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	// Parse YAML
	var config ServiceConfig
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	config.applyDefaults()
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", configPath, err)
	}

	return &config, nil
}

func (c *ServiceConfig) applyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.Type == "sqlite" && c.Database.ConnectionString == "" {
		c.Database.ConnectionString = "file:images.db"
	}
	if c.Cache.Type == "" {
		c.Cache.Type = "memory"
	}
	if c.Upload.MaxBytes == 0 {
		c.Upload.MaxBytes = defaultMaxUploadBytes
	}
	if c.Stats.SampleSize == 0 {
		c.Stats.SampleSize = defaultStatsSampleSize
	}
	if c.Gallery.PerPage == 0 {
		c.Gallery.PerPage = defaultGalleryPerPage
	}
	if c.Leaderboard.Limit == 0 {
		c.Leaderboard.Limit = defaultLeaderboardLimit
	}
	if c.Admin.PerPage == 0 {
		c.Admin.PerPage = defaultAdminPerPage
	}
	if c.Admin.MaxLoginAttempts == 0 {
		c.Admin.MaxLoginAttempts = defaultLoginAttempts
	}
	if c.Admin.LoginWindow == 0 {
		c.Admin.LoginWindow = defaultLoginWindow
	}
}

// validate ensures the configuration can be used to start the service
func (c *ServiceConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}

	switch c.Database.Type {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}
	if c.Database.ConnectionString == "" {
		return fmt.Errorf("database connectionString must not be empty")
	}

	switch c.Cache.Type {
	case "memory":
	case "redis":
		if c.Cache.Address == "" {
			return fmt.Errorf("cache address is required for redis")
		}
	default:
		return fmt.Errorf("unsupported cache type: %s", c.Cache.Type)
	}

	if c.Upload.MaxBytes < 0 {
		return fmt.Errorf("upload maxBytes must be positive, got %d", c.Upload.MaxBytes)
	}
	for name, v := range map[string]int{
		"stats sampleSize":       c.Stats.SampleSize,
		"gallery perPage":        c.Gallery.PerPage,
		"leaderboard limit":      c.Leaderboard.Limit,
		"admin perPage":          c.Admin.PerPage,
		"admin maxLoginAttempts": c.Admin.MaxLoginAttempts,
	} {
		if v < 1 {
			return fmt.Errorf("%s must be at least 1, got %d", name, v)
		}
	}
	if c.Admin.LoginWindow < 0 {
		return fmt.Errorf("admin loginWindow must be positive, got %s", c.Admin.LoginWindow)
	}

	if c.Admin.Username != "" {
		if c.Admin.PasswordHash == "" {
			return fmt.Errorf("admin passwordHash is required when a username is set")
		}
		if len(c.Admin.SessionSecret) < minSessionSecretLength {
			return fmt.Errorf("admin sessionSecret must be at least %d characters", minSessionSecretLength)
		}
	}

	return nil
}

// AdminEnabled reports whether admin credentials are configured
func (c *ServiceConfig) AdminEnabled() bool {
	return c.Admin.Username != "" && c.Admin.PasswordHash != ""
}
