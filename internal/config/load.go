package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvPrefix      = "BUILDSYNC"
	configFileName = "config"
)

// keys every source (file, env, flags) may set
var keys = []string{
	"server_url",
	"project_id",
	"environment_id",
	"access_token",
	"timeout",
	"sync_timeout",
	"page_size",
	"commit_attempts",
	"log_level",
	"log_file",
	"output",
	"exclude",
}

// LoadDotEnv loads .env style files into the process environment. Variables
// already set win. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env file %q: %w", p, err)
		}
	}
	return nil
}

// Prepare sets defaults, the config file location and env binding on v.
// An empty path searches the default config directory.
func Prepare(v *viper.Viper, path string) error {
	def := Default()
	v.SetDefault("server_url", def.ServerURL)
	v.SetDefault("timeout", def.Timeout)
	v.SetDefault("sync_timeout", def.SyncTimeout)
	v.SetDefault("page_size", def.PageSize)
	v.SetDefault("commit_attempts", def.CommitAttempts)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_file", def.LogFile)
	v.SetDefault("output", def.Output)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(DefaultConfigDir)
		v.SetConfigName(configFileName)
	}

	if err := v.ReadInConfig(); err != nil {
		enoent := errors.Is(err, fs.ErrNotExist)
		var notFound viper.ConfigFileNotFoundError
		if !enoent && !errors.As(err, &notFound) {
			return fmt.Errorf("config read '%s': %w", v.ConfigFileUsed(), err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return err
		}
	}

	return nil
}

// FromViper decodes and validates the config held by v
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config decode: %w", err)
	}
	cfg.Path = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
