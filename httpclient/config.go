package httpclient

import (
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	// DefaultBaseURL is the hard-coded fallback for the primary backend.
	DefaultBaseURL = "http://localhost:4000"

	// DefaultClassifyBaseURL is the hard-coded fallback for the secondary
	// classification backend.
	DefaultClassifyBaseURL = "http://localhost:5000"

	// DefaultTimeout is the process-wide request ceiling.
	DefaultTimeout = 10 * time.Second

	// ClassifyPrefix marks paths dispatched to the classification backend.
	// The prefix is stripped before the call goes out.
	ClassifyPrefix = "/classify"
)

// Config holds the HTTP client settings. Both base URLs are environment
// configured (see pkg/configloader) with hard-coded fallbacks.
type Config struct {
	// BaseURL is the primary backend.
	BaseURL string `koanf:"base_url"`

	// ClassifyBaseURL is the secondary backend for ClassifyPrefix paths.
	ClassifyBaseURL string `koanf:"classify_base_url"`

	// Timeout is the fixed per-request ceiling, configured once.
	Timeout time.Duration `koanf:"timeout"`
}

// DefaultConfig returns the hard-coded fallback configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:         DefaultBaseURL,
		ClassifyBaseURL: DefaultClassifyBaseURL,
		Timeout:         DefaultTimeout,
	}
}

// Defaults returns the fallback configuration as a koanf-style confmap.
func Defaults() map[string]any {
	return map[string]any{
		"base_url":          DefaultBaseURL,
		"classify_base_url": DefaultClassifyBaseURL,
		"timeout":           DefaultTimeout.String(),
	}
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.Required, validation.By(validBaseURL)),
		validation.Field(&c.ClassifyBaseURL, validation.Required, validation.By(validBaseURL)),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Millisecond)),
	)
}

func validBaseURL(value any) error {
	raw, _ := value.(string)
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return validation.NewError("validation_base_url", "must be an absolute http(s) URL")
	}
	if u.Host == "" {
		return validation.NewError("validation_base_url", "must include a host")
	}
	return nil
}
