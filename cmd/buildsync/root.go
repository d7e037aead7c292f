package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/buildsync/buildsync/internal/buildsdk"
	"github.com/buildsync/buildsync/internal/config"
	"github.com/buildsync/buildsync/internal/utils"
	"github.com/buildsync/buildsync/internal/version"
)

// flag name -> config key
var flagKeys = map[string]string{
	"server":      "server_url",
	"project":     "project_id",
	"environment": "environment_id",
	"token":       "access_token",
	"timeout":     "timeout",
	"log-level":   "log_level",
	"log-file":    "log_file",
	"output":      "output",
	"exclude":     "exclude",
}

// cli holds what the build commands share for one invocation
type cli struct {
	v         *viper.Viper
	cfg       *config.Config
	sdk       *buildsdk.BuildSDK
	logCloser io.Closer
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:     version.AppName,
		Short:   "Upload local directories as build versions",
		Version: version.Detailed(),
	}

	pf := rootCmd.PersistentFlags()
	pf.SortFlags = false
	pf.StringP("config", "c", config.DefaultConfigPath, "config file (json or yaml)")
	pf.String("env-file", ".env", "dotenv file loaded before reading the environment")
	pf.StringP("server", "s", config.DefaultServerURL, "build api server url")
	pf.String("project", "", "project id")
	pf.String("environment", "", "environment id")
	pf.String("token", "", "access token")
	pf.Duration("timeout", buildsdk.DefaultTimeout, "http timeout for api calls")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-file", config.DefaultLogFilePath, "log file, empty to disable")
	pf.StringP("output", "o", config.OutputText, "output format: text, json, yaml")
	pf.Bool("debug", false, "dump http requests and responses")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newBuildCmd(c))

	return rootCmd
}

// setup loads the config, installs the logger and creates the api client
func (c *cli) setup(cmd *cobra.Command) error {
	flags := cmd.Flags()

	envFile, _ := flags.GetString("env-file")
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}

	for flag, key := range flagKeys {
		f := flags.Lookup(flag)
		if f == nil {
			continue
		}
		if err := c.v.BindPFlag(key, f); err != nil {
			return err
		}
	}

	configPath := ""
	if flags.Changed("config") {
		configPath, _ = flags.GetString("config")
	}
	if err := config.Prepare(c.v, configPath); err != nil {
		return err
	}

	cfg, err := config.FromViper(c.v)
	if err != nil {
		return err
	}
	c.cfg = cfg

	// config is valid, usage errors are behind us
	cmd.SilenceUsage = true

	logger, closer, err := utils.NewLogger(utils.LogOptions{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		Console: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	c.logCloser = closer

	sdk, err := buildsdk.New(cfg.SDKConfig())
	if err != nil {
		return err
	}
	if debug, _ := flags.GetBool("debug"); debug {
		sdk.EnableDebug()
	}
	c.sdk = sdk

	slog.Debug("config loaded", "path", cfg.Path, "config", cfg.String())
	return nil
}

func (c *cli) teardown() {
	if c.sdk != nil {
		c.sdk.Close()
	}
	if c.logCloser != nil {
		c.logCloser.Close()
	}
}
