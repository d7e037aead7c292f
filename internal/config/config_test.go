package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildsync/buildsync/internal/buildsdk"
)

func validConfig() *Config {
	cfg := Default()
	cfg.ProjectID = uuid.NewString()
	cfg.EnvironmentID = uuid.NewString()
	cfg.AccessToken = "token"
	return cfg
}

func TestConfig_Validate_NormalizesAndDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.ServerURL = " https://api.example.com/ "
	cfg.Output = "JSON"
	cfg.Timeout = 0
	cfg.SyncTimeout = 0
	cfg.LogFile = "relative.log"

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "https://api.example.com", cfg.ServerURL)
	assert.Equal(t, OutputJSON, cfg.Output)
	assert.Equal(t, buildsdk.DefaultTimeout, cfg.Timeout)
	assert.Equal(t, buildsdk.DefaultSyncTimeout, cfg.SyncTimeout)
	assert.True(t, filepath.IsAbs(cfg.LogFile))
}

func TestConfig_Validate_ErrorsOnInvalidInputs(t *testing.T) {
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"bad server url", func(c *Config) { c.ServerURL = "ftp://x" }, "server url"},
		{"no project", func(c *Config) { c.ProjectID = "" }, "project id is required"},
		{"bad project", func(c *Config) { c.ProjectID = "p" }, "not a uuid"},
		{"no environment", func(c *Config) { c.EnvironmentID = "" }, "environment id is required"},
		{"bad environment", func(c *Config) { c.EnvironmentID = "e" }, "not a uuid"},
		{"no token", func(c *Config) { c.AccessToken = " " }, "access token is required"},
		{"expired token", func(c *Config) { c.AccessToken = expired }, "expired"},
		{"page size zero", func(c *Config) { c.PageSize = 0 }, "page size"},
		{"page size too big", func(c *Config) { c.PageSize = 5000 }, "page size"},
		{"commit attempts", func(c *Config) { c.CommitAttempts = 0 }, "commit attempts"},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log level"},
		{"output", func(c *Config) { c.Output = "xml" }, "output format"},
		{"exclude", func(c *Config) { c.Exclude = []string{"[x"} }, "exclude pattern"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConfig_SDKAndEngineOptions(t *testing.T) {
	cfg := validConfig()
	cfg.Exclude = []string{"**/*.pdb"}
	require.NoError(t, cfg.Validate())

	sdkCfg := cfg.SDKConfig()
	assert.Equal(t, cfg.ServerURL, sdkCfg.BaseURL)
	assert.Equal(t, cfg.ProjectID, sdkCfg.ProjectID)
	assert.NoError(t, sdkCfg.Validate())

	opts := cfg.EngineOptions()
	assert.Equal(t, cfg.PageSize, opts.PageSize)
	assert.Equal(t, cfg.CommitAttempts, opts.CommitAttempts)
	assert.Equal(t, []string{"**/*.pdb"}, opts.Exclude)
	assert.Equal(t, cfg.SyncTimeout, opts.SyncTimeout)
}

func TestConfig_StringMasksToken(t *testing.T) {
	cfg := validConfig()
	cfg.AccessToken = "supersecret"
	assert.NotContains(t, cfg.String(), "supersecret")
	assert.Contains(t, cfg.String(), "supe*****")
}

func TestConfig_SaveAndLoad_Roundtrip(t *testing.T) {
	for _, name := range []string{"config.json", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)

			cfg := validConfig()
			cfg.ServerURL = "http://127.0.0.1:8080"
			cfg.PageSize = 50
			cfg.Exclude = []string{"**/*.tmp"}
			require.NoError(t, cfg.Save(path))

			v := viper.New()
			require.NoError(t, Prepare(v, path))
			v.Set("access_token", "from-flag")

			loaded, err := FromViper(v)
			require.NoError(t, err)
			assert.Equal(t, cfg.ServerURL, loaded.ServerURL)
			assert.Equal(t, cfg.ProjectID, loaded.ProjectID)
			assert.Equal(t, 50, loaded.PageSize)
			assert.Equal(t, []string{"**/*.tmp"}, loaded.Exclude)
			assert.Equal(t, buildsdk.DefaultSyncTimeout, loaded.SyncTimeout)
			assert.Equal(t, "from-flag", loaded.AccessToken)
			assert.Equal(t, path, loaded.Path)
		})
	}
}

func TestConfig_SaveNeverWritesToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := validConfig()
	cfg.AccessToken = "supersecret"
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "supersecret")
	assert.Equal(t, "supersecret", cfg.AccessToken)
}

func TestPrepare_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := validConfig()
	require.NoError(t, cfg.Save(path))

	t.Setenv("BUILDSYNC_ACCESS_TOKEN", "env-token")
	t.Setenv("BUILDSYNC_PAGE_SIZE", "25")
	t.Setenv("BUILDSYNC_EXCLUDE", "a/**,b/**")

	v := viper.New()
	require.NoError(t, Prepare(v, path))
	loaded, err := FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "env-token", loaded.AccessToken)
	assert.Equal(t, 25, loaded.PageSize)
	assert.Equal(t, []string{"a/**", "b/**"}, loaded.Exclude)
}

func TestPrepare_MissingFileIsFine(t *testing.T) {
	v := viper.New()
	v.AddConfigPath(t.TempDir())
	require.NoError(t, Prepare(v, ""))
	assert.Equal(t, DefaultServerURL, v.GetString("server_url"))
}

func TestPrepare_BrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	err := Prepare(viper.New(), path)
	assert.ErrorContains(t, err, "config read")
}

func TestLoadDotEnv(t *testing.T) {
	const key = "BUILDSYNC_DOTENV_TEST_VALUE"
	t.Cleanup(func() { os.Unsetenv(key) })

	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(key+"=from-file\n"), 0o600))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), envFile))
	assert.Equal(t, "from-file", os.Getenv(key))
}
