package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/buildsync/buildsync/internal/buildsdk"
	"github.com/buildsync/buildsync/internal/buildsync"
	"github.com/buildsync/buildsync/internal/utils"
)

var (
	home, _            = os.UserHomeDir()
	DefaultConfigDir   = filepath.Join(home, ".buildsync")
	DefaultConfigPath  = filepath.Join(DefaultConfigDir, "config.json")
	DefaultLogFilePath = filepath.Join(DefaultConfigDir, "logs", "buildsync.log")
	DefaultServerURL   = buildsdk.DefaultBaseURL
)

const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"

	maxPageSize = 1000
)

var (
	ErrNoProject     = errors.New("config: project id is required")
	ErrNoEnvironment = errors.New("config: environment id is required")
	ErrNoToken       = errors.New("config: access token is required")
)

type Config struct {
	ServerURL      string        `json:"server_url" yaml:"server_url" mapstructure:"server_url"`
	ProjectID      string        `json:"project_id" yaml:"project_id" mapstructure:"project_id"`
	EnvironmentID  string        `json:"environment_id" yaml:"environment_id" mapstructure:"environment_id"`
	AccessToken    string        `json:"access_token,omitempty" yaml:"access_token,omitempty" mapstructure:"access_token"`
	Timeout        time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	SyncTimeout    time.Duration `json:"sync_timeout" yaml:"sync_timeout" mapstructure:"sync_timeout"`
	PageSize       int           `json:"page_size" yaml:"page_size" mapstructure:"page_size"`
	CommitAttempts int           `json:"commit_attempts" yaml:"commit_attempts" mapstructure:"commit_attempts"`
	LogLevel       string        `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
	LogFile        string        `json:"log_file" yaml:"log_file" mapstructure:"log_file"`
	Output         string        `json:"output" yaml:"output" mapstructure:"output"`
	Exclude        []string      `json:"exclude,omitempty" yaml:"exclude,omitempty" mapstructure:"exclude"`
	Path           string        `json:"-" yaml:"-" mapstructure:"-"`
}

// Default returns a config with every optional value filled in
func Default() *Config {
	return &Config{
		ServerURL:      DefaultServerURL,
		Timeout:        buildsdk.DefaultTimeout,
		SyncTimeout:    buildsdk.DefaultSyncTimeout,
		PageSize:       buildsync.DefaultPageSize,
		CommitAttempts: buildsync.DefaultCommitAttempts,
		LogLevel:       "info",
		LogFile:        DefaultLogFilePath,
		Output:         OutputText,
	}
}

func (c *Config) Validate() error {
	c.ServerURL = strings.TrimRight(strings.TrimSpace(c.ServerURL), "/")
	c.ProjectID = strings.TrimSpace(c.ProjectID)
	c.EnvironmentID = strings.TrimSpace(c.EnvironmentID)
	c.AccessToken = strings.TrimSpace(c.AccessToken)
	c.Output = strings.ToLower(strings.TrimSpace(c.Output))

	if u, err := url.Parse(c.ServerURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: invalid server url %q", c.ServerURL)
	}

	if c.ProjectID == "" {
		return ErrNoProject
	}
	if _, err := uuid.Parse(c.ProjectID); err != nil {
		return fmt.Errorf("config: project id %q is not a uuid", c.ProjectID)
	}

	if c.EnvironmentID == "" {
		return ErrNoEnvironment
	}
	if _, err := uuid.Parse(c.EnvironmentID); err != nil {
		return fmt.Errorf("config: environment id %q is not a uuid", c.EnvironmentID)
	}

	if c.AccessToken == "" {
		return ErrNoToken
	}
	if expired, err := buildsdk.TokenExpired(c.AccessToken, time.Now()); err == nil && expired {
		return fmt.Errorf("config: %w", buildsdk.ErrTokenExpired)
	}

	if c.Timeout <= 0 {
		c.Timeout = buildsdk.DefaultTimeout
	}
	if c.SyncTimeout <= 0 {
		c.SyncTimeout = buildsdk.DefaultSyncTimeout
	}

	if c.PageSize < 1 || c.PageSize > maxPageSize {
		return fmt.Errorf("config: page size must be between 1 and %d, got %d", maxPageSize, c.PageSize)
	}
	if c.CommitAttempts < 1 {
		return fmt.Errorf("config: commit attempts must be at least 1, got %d", c.CommitAttempts)
	}

	if _, err := utils.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	switch c.Output {
	case OutputText, OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("config: unknown output format %q", c.Output)
	}

	if err := buildsync.ValidateExcludes(c.Exclude); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if c.LogFile != "" {
		logFile, err := utils.ResolvePath(c.LogFile)
		if err != nil {
			return fmt.Errorf("config: log file: %w", err)
		}
		c.LogFile = logFile
	}

	return nil
}

// SDKConfig is the subset of the config the api client needs
func (c *Config) SDKConfig() *buildsdk.Config {
	return &buildsdk.Config{
		BaseURL:       c.ServerURL,
		ProjectID:     c.ProjectID,
		EnvironmentID: c.EnvironmentID,
		AccessToken:   c.AccessToken,
		Timeout:       c.Timeout,
	}
}

// EngineOptions maps the config onto sync engine options
func (c *Config) EngineOptions() buildsync.Options {
	return buildsync.Options{
		PageSize:       c.PageSize,
		CommitAttempts: c.CommitAttempts,
		Exclude:        c.Exclude,
		SyncTimeout:    c.SyncTimeout,
	}
}

// Save writes the config as json or yaml, picked by the file extension.
// The access token is never persisted.
func (c *Config) Save(path string) error {
	if err := utils.EnsureParent(path); err != nil {
		return err
	}

	out := *c
	out.AccessToken = ""

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(&out)
	default:
		data, err = json.MarshalIndent(&out, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// String is safe to log
func (c *Config) String() string {
	return fmt.Sprintf("server=%s project=%s environment=%s token=%s", c.ServerURL, c.ProjectID, c.EnvironmentID, utils.MaskSecret(c.AccessToken))
}
