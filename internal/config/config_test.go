package config

import (
	"testing"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg := Load()

	if cfg.APIBaseURL != DefaultAPIBaseURL {
		t.Errorf("APIBaseURL = %q, want %q", cfg.APIBaseURL, DefaultAPIBaseURL)
	}
	if cfg.BearerToken != DefaultBearerToken {
		t.Errorf("BearerToken = %q, want %q", cfg.BearerToken, DefaultBearerToken)
	}
	if cfg.StreamingHost != DefaultStreamingHost {
		t.Errorf("StreamingHost = %q, want %q", cfg.StreamingHost, DefaultStreamingHost)
	}
	if cfg.Language != DefaultLanguage {
		t.Errorf("Language = %q, want %q", cfg.Language, DefaultLanguage)
	}
	if cfg.Service != DefaultService {
		t.Errorf("Service = %q, want %q", cfg.Service, DefaultService)
	}
	if cfg.DeviceIndex != -1 {
		t.Errorf("DeviceIndex = %d, want -1", cfg.DeviceIndex)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("API_BASE_URL", "https://staging.example.com")
	t.Setenv("BEARER_TOKEN", "staging-token")
	t.Setenv("LANGUAGE", "sv-SE")

	cfg := Load()

	if cfg.APIBaseURL != "https://staging.example.com" {
		t.Errorf("APIBaseURL = %q, want the environment value", cfg.APIBaseURL)
	}
	if cfg.BearerToken != "staging-token" {
		t.Errorf("BearerToken = %q, want the environment value", cfg.BearerToken)
	}
	if cfg.Language != "sv-SE" {
		t.Errorf("Language = %q, want the environment value", cfg.Language)
	}
	// Untouched keys keep their defaults.
	if cfg.Service != DefaultService {
		t.Errorf("Service = %q, want %q", cfg.Service, DefaultService)
	}
}
