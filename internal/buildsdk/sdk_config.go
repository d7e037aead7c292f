package buildsdk

import (
	"net/url"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultBaseURL     = "https://services.api.buildsync.dev"
	DefaultTimeout     = 100 * time.Second
	DefaultSyncTimeout = 10 * time.Minute
)

// Config is the configuration for the BuildSDK
type Config struct {
	BaseURL       string        // BaseURL is required
	ProjectID     string        // ProjectID is required, a UUID
	EnvironmentID string        // EnvironmentID is required, a UUID
	AccessToken   string        // AccessToken is required
	Timeout       time.Duration // Timeout is optional, defaults to DefaultTimeout
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrNoServerURL
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidURL
	}

	if _, err := uuid.Parse(c.ProjectID); err != nil {
		return ErrInvalidProject
	}

	if _, err := uuid.Parse(c.EnvironmentID); err != nil {
		return ErrInvalidEnv
	}

	if c.AccessToken == "" {
		return ErrNoAccessToken
	}

	if expired, err := TokenExpired(c.AccessToken, time.Now()); err == nil && expired {
		return ErrTokenExpired
	}

	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}

	return nil
}
