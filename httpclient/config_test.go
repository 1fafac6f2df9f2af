package httpclient

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.BaseURL != "http://localhost:4000" {
		t.Errorf("unexpected BaseURL: %s", cfg.BaseURL)
	}
	if cfg.ClassifyBaseURL != "http://localhost:5000" {
		t.Errorf("unexpected ClassifyBaseURL: %s", cfg.ClassifyBaseURL)
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("unexpected Timeout: %v", cfg.Timeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := DefaultConfig()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:   "https base url",
			mutate: func(c *Config) { c.BaseURL = "https://api.example.com" },
		},
		{
			name:    "empty base url",
			mutate:  func(c *Config) { c.BaseURL = "" },
			wantErr: true,
		},
		{
			name:    "relative base url",
			mutate:  func(c *Config) { c.BaseURL = "/products" },
			wantErr: true,
		},
		{
			name:    "unsupported scheme",
			mutate:  func(c *Config) { c.ClassifyBaseURL = "ftp://files.example.com" },
			wantErr: true,
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Timeout = 0 },
			wantErr: true,
		},
		{
			name:    "sub-millisecond timeout",
			mutate:  func(c *Config) { c.Timeout = time.Microsecond },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected a validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("expected config to validate, got %v", err)
			}
		})
	}
}

func TestDefaults_Confmap(t *testing.T) {
	m := Defaults()

	if m["base_url"] != DefaultBaseURL {
		t.Errorf("unexpected base_url default: %v", m["base_url"])
	}
	if m["classify_base_url"] != DefaultClassifyBaseURL {
		t.Errorf("unexpected classify_base_url default: %v", m["classify_base_url"])
	}
	if m["timeout"] != "10s" {
		t.Errorf("unexpected timeout default: %v", m["timeout"])
	}
}
