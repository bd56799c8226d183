package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lanikai/alohasrc"
)

// Populated via -ldflags="-X ...".
var (
	GitRevisionId = "none"
	GitTag        = "dev"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "alohasrc %s (plugin %s)\ncommit: %s\n",
				GitTag, alohasrc.Version, GitRevisionId)
			return nil
		},
	}
}
