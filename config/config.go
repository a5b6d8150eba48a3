// Package config resolves the client's settings from, in ascending
// precedence: built-in defaults, YAML config files (user-level then
// project-level), command-line flags, and environment variables. A .env
// file in the working directory is folded into the environment before
// resolution, so the two display toggles honor the documented order:
// environment variable, then flag, then default.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/m4xw311/agentchat/errors"
)

const (
	configDir  = ".agentchat"
	configFile = "config.yaml"

	envHost           = "AGENTCHAT_HOST"
	envPort           = "AGENTCHAT_PORT"
	envTLS            = "AGENTCHAT_TLS"
	envToken          = "AGENTCHAT_TOKEN"
	envDebug          = "AGENTCHAT_DEBUG"
	envShowStreaming  = "AGENTCHAT_SHOW_STREAMING"
	envClearStreaming = "AGENTCHAT_CLEAR_STREAMING"
)

// Config is the resolved client configuration.
type Config struct {
	Host  string `yaml:"host"`
	Port  int    `yaml:"port"`
	TLS   bool   `yaml:"tls"`
	Token string `yaml:"token"`
	Debug bool   `yaml:"debug"`

	// ShowStreaming echoes response text live while it streams.
	ShowStreaming bool `yaml:"show_streaming"`
	// ClearStreaming replaces the live echo with the formatted panel.
	ClearStreaming bool `yaml:"clear_streaming"`
}

// fileConfig mirrors Config with optional fields so a file can override
// only the keys it sets.
type fileConfig struct {
	Host           *string `yaml:"host"`
	Port           *int    `yaml:"port"`
	TLS            *bool   `yaml:"tls"`
	Token          *string `yaml:"token"`
	Debug          *bool   `yaml:"debug"`
	ShowStreaming  *bool   `yaml:"show_streaming"`
	ClearStreaming *bool   `yaml:"clear_streaming"`
}

// Load builds a Config from defaults and config files. Flag values are
// layered on by the command via setters, and ApplyEnv must run last so the
// environment wins.
func Load() (*Config, error) {
	// A .env alongside the invocation is a convenience, not a requirement.
	_ = godotenv.Load()

	cfg := &Config{
		Host:           "localhost",
		Port:           8000,
		ShowStreaming:  true,
		ClearStreaming: true,
	}

	// User-level config first, project-level overrides it.
	if home, err := os.UserHomeDir(); err == nil {
		if err := loadFromFile(filepath.Join(home, configDir, configFile), cfg); err != nil {
			return nil, errors.Wrapf(err, "loading user config")
		}
	}
	if wd, err := os.Getwd(); err == nil {
		if err := loadFromFile(filepath.Join(wd, configDir, configFile), cfg); err != nil {
			return nil, errors.Wrapf(err, "loading project config")
		}
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return errors.Wrapf(err, "parsing %s", path)
	}

	if fc.Host != nil {
		cfg.Host = *fc.Host
	}
	if fc.Port != nil {
		cfg.Port = *fc.Port
	}
	if fc.TLS != nil {
		cfg.TLS = *fc.TLS
	}
	if fc.Token != nil {
		cfg.Token = *fc.Token
	}
	if fc.Debug != nil {
		cfg.Debug = *fc.Debug
	}
	if fc.ShowStreaming != nil {
		cfg.ShowStreaming = *fc.ShowStreaming
	}
	if fc.ClearStreaming != nil {
		cfg.ClearStreaming = *fc.ClearStreaming
	}
	return nil
}

// ApplyEnv overlays environment variables onto the config. It runs after
// flag handling: a variable that is set beats every other source.
func (c *Config) ApplyEnv() {
	if v, ok := os.LookupEnv(envHost); ok && v != "" {
		c.Host = v
	}
	if v, ok := os.LookupEnv(envPort); ok {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			c.Port = p
		}
	}
	if v, ok := os.LookupEnv(envTLS); ok {
		c.TLS = truthy(v)
	}
	if v, ok := os.LookupEnv(envToken); ok && v != "" {
		c.Token = v
	}
	if v, ok := os.LookupEnv(envDebug); ok {
		c.Debug = truthy(v)
	}
	if v, ok := os.LookupEnv(envShowStreaming); ok {
		c.ShowStreaming = truthy(v)
	}
	if v, ok := os.LookupEnv(envClearStreaming); ok {
		c.ClearStreaming = truthy(v)
	}
}

// BaseURL returns the agent endpoint implied by host, port and TLS.
func (c *Config) BaseURL() string {
	scheme := "http"
	if c.TLS {
		scheme = "https"
	}
	return scheme + "://" + c.Host + ":" + strconv.Itoa(c.Port)
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
