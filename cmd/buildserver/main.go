package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/buildsync/buildsync/internal/buildsdk"
	"github.com/buildsync/buildsync/internal/buildserver"
	"github.com/buildsync/buildsync/internal/utils"
	"github.com/buildsync/buildsync/internal/version"
)

const defaultAddr = "127.0.0.1:8787"

func main() {
	// Setup root context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		addr     string
		token    string
		logLevel string
		seeds    []string
	)

	rootCmd := &cobra.Command{
		Use:     "buildserver",
		Short:   "In-memory build storage api for local development",
		Version: version.Detailed(),
		RunE: func(cmd *cobra.Command, args []string) error {
			builds, err := parseSeeds(seeds)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			logger, closer, err := utils.NewLogger(utils.LogOptions{Level: logLevel, Console: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			defer closer.Close()
			slog.SetDefault(logger)

			srv := buildserver.New(buildserver.WithAccessToken(token))
			for _, b := range builds {
				srv.AddBuild(b)
				slog.Info("build seeded", "id", b.ID, "type", b.Type)
			}

			defer slog.Info("Bye!")
			return srv.Serve(cmd.Context(), addr)
		},
	}

	f := rootCmd.Flags()
	f.StringVarP(&addr, "bind", "b", defaultAddr, "address to bind the server")
	f.StringVar(&token, "token", "", "bearer token clients must present, empty disables auth")
	f.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	f.StringArrayVar(&seeds, "build", nil, "build to serve as id:type[:bucket], repeatable")

	return rootCmd
}

// parseSeeds turns id:type[:bucket] strings into builds. File upload builds
// get a bucket named after their id when none is given.
func parseSeeds(seeds []string) ([]buildsdk.Build, error) {
	builds := make([]buildsdk.Build, 0, len(seeds))
	seen := make(map[int64]bool, len(seeds))

	for _, seed := range seeds {
		parts := strings.Split(seed, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, fmt.Errorf("invalid build %q, want id:type[:bucket]", seed)
		}

		id, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid build id in %q", seed)
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate build id %d", id)
		}
		seen[id] = true

		b := buildsdk.Build{
			ID:   id,
			Name: fmt.Sprintf("build-%d", id),
			Type: buildsdk.BuildType(strings.ToUpper(parts[1])),
		}
		switch b.Type {
		case buildsdk.BuildTypeContainer, buildsdk.BuildTypeS3, buildsdk.BuildTypeGCS:
		case buildsdk.BuildTypeFileUpload:
			bucket := fmt.Sprintf("bucket-%d", id)
			if len(parts) == 3 && parts[2] != "" {
				bucket = parts[2]
			}
			b.CCD = &buildsdk.CCDDetails{BucketID: bucket}
		default:
			return nil, fmt.Errorf("unknown build type %q", parts[1])
		}

		builds = append(builds, b)
	}

	return builds, nil
}
