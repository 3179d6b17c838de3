package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// BackendConfig points the console at the CMS backend API.
type BackendConfig struct {
	// BaseURL is the API root, e.g. https://cms.example.org/api.
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8000/api"`

	// Timeout bounds every backend request. Zero means no timeout.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"0s"`

	// MessageExpr is a JMESPath expression selecting the human message from error bodies.
	MessageExpr string `env:"MESSAGE_EXPR" envDefault:"message"`

	LoginPath  string `env:"LOGIN_PATH"  envDefault:"/admin/login"`
	MePath     string `env:"ME_PATH"     envDefault:"/admin/me"`
	LogoutPath string `env:"LOGOUT_PATH" envDefault:"/admin/logout"`
}

// Sanitize trims values and clamps the timeout.
func (b *BackendConfig) Sanitize() {
	b.BaseURL = strings.TrimSuffix(strings.TrimSpace(b.BaseURL), "/")
	b.MessageExpr = strings.TrimSpace(b.MessageExpr)
	if b.Timeout < 0 {
		b.Timeout = 0
	}
}

// Validate checks that the base URL is an absolute http(s) URL.
func (b *BackendConfig) Validate() error {
	if b.BaseURL == "" {
		return errors.New("BACKEND_BASE_URL is required")
	}
	u, err := url.Parse(b.BaseURL)
	if err != nil {
		return fmt.Errorf("BACKEND_BASE_URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("BACKEND_BASE_URL must be an absolute http(s) URL, got %q", b.BaseURL)
	}
	return nil
}
