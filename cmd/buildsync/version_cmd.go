package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/buildsync/buildsync/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print buildsync version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			return render(cmd.OutOrStdout(), outputFormat(cmd), version.Get(), func(w io.Writer) error {
				return writeLines(w, version.Detailed())
			})
		},
	}
}
