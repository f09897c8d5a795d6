// Package config resolves dictate's settings from defaults, an optional
// YAML file, a .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// APIKeyEnv is the variable the UI side asks the host for.
const APIKeyEnv = "ASSEMBLY_AI_API_KEY"

const (
	DefaultAPIURL       = "https://api.assemblyai.com"
	DefaultPollInterval = 1500 * time.Millisecond
	minPollInterval     = 100 * time.Millisecond
)

// ErrMissingAPIKey disables the record control.
var ErrMissingAPIKey = errors.New("AssemblyAI API key not found in environment variables")

type Config struct {
	APIKey        string        `yaml:"api_key"`
	APIURL        string        `yaml:"api_url"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	Language      string        `yaml:"language_code"`
	Device        string        `yaml:"device"`
	AutoPaste     bool          `yaml:"auto_paste"`
	Notifications bool          `yaml:"notifications"`
	Sounds        bool          `yaml:"sounds"`
}

func Default() Config {
	return Config{
		APIURL:        DefaultAPIURL,
		PollInterval:  DefaultPollInterval,
		Notifications: true,
		Sounds:        true,
	}
}

// Load applies the YAML file at path (if any), then the given .env files,
// then environment overrides. Missing .env files are ignored; a missing
// YAML file is an error only when path was given explicitly.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		// godotenv never overrides variables already set in the environment
		if err := godotenv.Load(f); err != nil {
			return cfg, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg.APIKey = envStr(APIKeyEnv, cfg.APIKey)
	cfg.APIURL = strings.TrimRight(envStr("DICTATE_API_URL", cfg.APIURL), "/")
	cfg.PollInterval = envDuration("DICTATE_POLL_INTERVAL", cfg.PollInterval)
	cfg.Language = envStr("DICTATE_LANGUAGE", cfg.Language)
	cfg.Device = envStr("DICTATE_DEVICE", cfg.Device)
	cfg.AutoPaste = envBool("DICTATE_AUTOPASTE", cfg.AutoPaste)
	cfg.Notifications = envBool("DICTATE_NOTIFICATIONS", cfg.Notifications)
	cfg.Sounds = envBool("DICTATE_SOUNDS", cfg.Sounds)

	return cfg, cfg.validate()
}

// DefaultEnvFiles lists the .env locations checked at startup: next to the
// executable first, then the working directory.
func DefaultEnvFiles() []string {
	var files []string
	if exe, err := os.Executable(); err == nil {
		files = append(files, filepath.Join(filepath.Dir(exe), ".env"))
	}
	return append(files, ".env")
}

func (c *Config) validate() error {
	if c.APIURL == "" {
		return errors.New("api_url must not be empty")
	}
	if c.PollInterval < minPollInterval {
		return fmt.Errorf("poll_interval %s below minimum %s", c.PollInterval, minPollInterval)
	}
	return nil
}

// CheckAPIKey reports ErrMissingAPIKey when no key was configured.
func (c *Config) CheckAPIKey() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// LookupEnv answers the bridge's environment reads: the process
// environment wins, the API key falls back to the config file value.
func (c *Config) LookupEnv(name string) (string, bool) {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v, true
	}
	if name == APIKeyEnv && c.APIKey != "" {
		return c.APIKey, true
	}
	return "", false
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	// bare numbers are milliseconds
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}
