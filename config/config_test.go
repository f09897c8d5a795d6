package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var managedVars = []string{
	APIKeyEnv, "DICTATE_API_URL", "DICTATE_POLL_INTERVAL", "DICTATE_LANGUAGE",
	"DICTATE_DEVICE", "DICTATE_AUTOPASTE", "DICTATE_NOTIFICATIONS", "DICTATE_SOUNDS",
}

// clearEnv unsets the managed variables for the duration of the test.
// t.Setenv cannot be used here: godotenv skips keys that exist, even empty.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range managedVars {
		old, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			} else {
				os.Unsetenv(k)
			}
		})
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Errorf("APIURL = %q, want %q", cfg.APIURL, DefaultAPIURL)
	}
	if cfg.PollInterval != DefaultPollInterval {
		t.Errorf("PollInterval = %v, want %v", cfg.PollInterval, DefaultPollInterval)
	}
	if !cfg.Notifications {
		t.Error("notifications should default on")
	}
	if err := cfg.CheckAPIKey(); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("CheckAPIKey() = %v, want ErrMissingAPIKey", err)
	}
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	yamlPath := writeFile(t, dir, "dictate.yaml", `
api_key: from-yaml
api_url: https://yaml.example/
poll_interval: 2s
language_code: de
auto_paste: true
`)
	envPath := writeFile(t, dir, ".env", "DICTATE_LANGUAGE=fr\nDICTATE_POLL_INTERVAL=500\n")
	t.Setenv("DICTATE_API_URL", "https://env.example/")

	cfg, err := Load(yamlPath, envPath, filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"api key from yaml", cfg.APIKey, "from-yaml"},
		{"env beats yaml, trailing slash trimmed", cfg.APIURL, "https://env.example"},
		{".env beats yaml", cfg.Language, "fr"},
		{"bare number is milliseconds", cfg.PollInterval, 500 * time.Millisecond},
		{"yaml bool", cfg.AutoPaste, true},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestDotenvDoesNotOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", APIKeyEnv+"=from-dotenv\n")
	t.Setenv(APIKeyEnv, "from-env")

	cfg, err := Load("", envPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIKey != "from-env" {
		t.Errorf("APIKey = %q, want from-env", cfg.APIKey)
	}
}

func TestLoadDotenvKey(t *testing.T) {
	clearEnv(t)
	envPath := writeFile(t, t.TempDir(), ".env", APIKeyEnv+"=secret\n")

	cfg, err := Load("", envPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.CheckAPIKey(); err != nil {
		t.Errorf("CheckAPIKey() = %v", err)
	}
	if v, ok := cfg.LookupEnv(APIKeyEnv); !ok || v != "secret" {
		t.Errorf("LookupEnv = %q, %v", v, ok)
	}
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}

	bad := writeFile(t, dir, "bad.yaml", "poll_interval: [")
	if _, err := Load(bad); err == nil {
		t.Error("expected parse error")
	}

	tooFast := writeFile(t, dir, "fast.yaml", "poll_interval: 1ms\n")
	if _, err := Load(tooFast); err == nil {
		t.Error("expected validation error for tiny poll interval")
	}
}

func TestLookupEnvFallsBackToConfig(t *testing.T) {
	clearEnv(t)
	cfg := Default()
	cfg.APIKey = "file-key"

	if v, ok := cfg.LookupEnv(APIKeyEnv); !ok || v != "file-key" {
		t.Errorf("LookupEnv(api key) = %q, %v", v, ok)
	}
	if _, ok := cfg.LookupEnv("DICTATE_SURELY_UNSET"); ok {
		t.Error("unexpected value for unset variable")
	}
}
