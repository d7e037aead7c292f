package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/buildsync/buildsync/internal/buildsdk"
	"github.com/buildsync/buildsync/internal/buildsync"
	"github.com/buildsync/buildsync/internal/buildversion"
)

func newBuildCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Inspect builds and create build versions",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			c.teardown()
		},
	}

	cmd.AddCommand(newBuildGetCmd(c))
	cmd.AddCommand(newBuildVersionCmd(c))
	cmd.AddCommand(newBuildFilesCmd(c))

	return cmd
}

func newBuildGetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "get <build-id>",
		Short: "Show a build",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseBuildID(args[0])
			if err != nil {
				return err
			}

			build, err := c.sdk.Builds.GetBuild(cmd.Context(), id)
			if err != nil {
				return err
			}

			return render(cmd.OutOrStdout(), c.cfg.Output, build, func(w io.Writer) error {
				return writeBuild(w, build)
			})
		},
	}
}

func newBuildVersionCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Manage build versions",
	}
	cmd.AddCommand(newBuildVersionCreateCmd(c))
	return cmd
}

func newBuildVersionCreateCmd(c *cli) *cobra.Command {
	in := &buildversion.Input{}

	cmd := &cobra.Command{
		Use:   "create <build-id>",
		Short: "Create a new version of a build",
		Long: `Create a new version of a build.

The flags that apply depend on the build type:
  CONTAINER   --container-tag
  FILEUPLOAD  --directory [--remove-old-files] [--exclude]
  S3          --bucket-url --access-key --secret-key [--verify-bucket]
  GCS         --bucket-url --service-account-json-file`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseBuildID(args[0])
			if err != nil {
				return err
			}
			in.BuildID = id

			engine, err := buildsync.NewSyncEngineWithSDK(c.sdk, c.cfg.EngineOptions())
			if err != nil {
				return err
			}

			outcome, err := buildversion.NewHandlerWithSDK(c.sdk, engine).CreateVersion(cmd.Context(), in)
			if err != nil {
				return err
			}

			report := newVersionReport(id, outcome)
			return render(cmd.OutOrStdout(), c.cfg.Output, report, func(w io.Writer) error {
				return writeVersionReport(w, report)
			})
		},
	}

	f := cmd.Flags()
	f.SortFlags = false
	f.StringVarP(&in.Name, "name", "n", "", "name of the new version")
	f.StringVar(&in.ContainerTag, "container-tag", "", "container image tag")
	f.StringVarP(&in.Directory, "directory", "d", "", "directory to upload")
	f.BoolVar(&in.RemoveOldFiles, "remove-old-files", false, "delete remote files that are not present in the directory")
	f.StringSlice("exclude", nil, "glob patterns of files to skip, matched against relative paths")
	f.StringVar(&in.BucketURL, "bucket-url", "", "s3:// or gs:// bucket url")
	f.StringVar(&in.AccessKey, "access-key", "", "s3 access key")
	f.StringVar(&in.SecretKey, "secret-key", "", "s3 secret key")
	f.StringVar(&in.ServiceAccountJSONFile, "service-account-json-file", "", "gcs service account key file")
	f.BoolVar(&in.VerifyBucket, "verify-bucket", false, "check the s3 credentials against the bucket before committing")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newBuildFilesCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "Inspect the files of a build",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list <build-id>",
		Short: "List every file the backend holds for a build",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseBuildID(args[0])
			if err != nil {
				return err
			}

			engine, err := buildsync.NewSyncEngineWithSDK(c.sdk, c.cfg.EngineOptions())
			if err != nil {
				return err
			}

			entries, err := engine.ListRemote(cmd.Context(), id)
			if err != nil {
				return err
			}

			files := make([]*buildsdk.BuildFile, 0, len(entries))
			for _, e := range entries {
				files = append(files, e.Metadata)
			}

			return render(cmd.OutOrStdout(), c.cfg.Output, files, func(w io.Writer) error {
				return writeFiles(w, files)
			})
		},
	})

	return cmd
}

// ===================================================================================================

type versionReport struct {
	BuildID          int64  `json:"buildID" yaml:"buildID"`
	Kind             string `json:"kind" yaml:"kind"`
	Version          string `json:"version" yaml:"version"`
	FileCount        int    `json:"fileCount,omitempty" yaml:"fileCount,omitempty"`
	FilesConsidered  int    `json:"filesConsidered,omitempty" yaml:"filesConsidered,omitempty"`
	FilesUploaded    int    `json:"filesUploaded,omitempty" yaml:"filesUploaded,omitempty"`
	FilesTransferred int    `json:"filesTransferred,omitempty" yaml:"filesTransferred,omitempty"`
	FilesDeleted     int    `json:"filesDeleted,omitempty" yaml:"filesDeleted,omitempty"`
	BytesTransferred int64  `json:"bytesTransferred,omitempty" yaml:"bytesTransferred,omitempty"`
	Duration         string `json:"duration,omitempty" yaml:"duration,omitempty"`
}

func newVersionReport(buildID int64, o *buildversion.Outcome) *versionReport {
	r := &versionReport{BuildID: buildID, Kind: string(o.Kind)}
	if o.Version != nil {
		r.Version = o.Version.Name
		r.FileCount = o.Version.FileCount
	}
	if s := o.Sync; s != nil {
		r.FilesConsidered = s.FilesConsidered
		r.FilesUploaded = s.FilesUploaded
		r.FilesTransferred = s.FilesTransferred
		r.FilesDeleted = s.FilesDeleted
		r.BytesTransferred = s.BytesTransferred
		r.Duration = s.Duration.Round(time.Millisecond).String()
	}
	return r
}

func writeVersionReport(w io.Writer, r *versionReport) error {
	if r.Version == "" {
		return writeLines(w, "nothing to commit")
	}

	lines := []string{fmt.Sprintf("created %s version %q of build %d", r.Kind, r.Version, r.BuildID)}
	if r.Kind == string(buildversion.KindDirectorySync) {
		lines = append(lines, fmt.Sprintf("  %d files, %d uploaded, %d transferred (%s), %d deleted in %s",
			r.FilesConsidered, r.FilesUploaded, r.FilesTransferred,
			humanize.Bytes(uint64(r.BytesTransferred)), r.FilesDeleted, r.Duration))
	}
	return writeLines(w, lines...)
}

func writeBuild(w io.Writer, b *buildsdk.Build) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%d\n", b.ID)
	fmt.Fprintf(tw, "Name\t%s\n", b.Name)
	fmt.Fprintf(tw, "Type\t%s\n", b.Type)
	if b.OSFamily != "" {
		fmt.Fprintf(tw, "OS\t%s\n", b.OSFamily)
	}
	if b.SyncStatus != "" {
		fmt.Fprintf(tw, "Sync status\t%s\n", b.SyncStatus)
	}
	if b.CCD != nil {
		fmt.Fprintf(tw, "Bucket\t%s\n", b.CCD.BucketID)
	}
	if !b.Updated.IsZero() {
		fmt.Fprintf(tw, "Updated\t%s\n", humanize.Time(b.Updated))
	}
	return tw.Flush()
}

func writeFiles(w io.Writer, files []*buildsdk.BuildFile) error {
	if len(files) == 0 {
		return writeLines(w, "no files")
	}

	var total int64
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tSIZE\tMODIFIED")
	for _, f := range files {
		total += f.FileSize
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Path, humanize.Bytes(uint64(f.FileSize)), humanize.Time(f.LastModified))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return writeLines(w, fmt.Sprintf("%d files, %s", len(files), humanize.Bytes(uint64(total))))
}
