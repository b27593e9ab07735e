package cmd

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/abhisek/conceptree/internal/conceptgraph"
)

// version is overridden with -ldflags "-X .../cmd.version=v1.2.3".
var version = ""

func buildVersion() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "(devel)"
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build and catalog format versions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if short, _ := cmd.Flags().GetBool("short"); short {
			fmt.Fprintln(cmd.OutOrStdout(), buildVersion())
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "conceptree %s\n  catalog document %s\n  %s %s/%s\n",
			buildVersion(), conceptgraph.DocumentVersion, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		return nil
	},
}

func init() {
	versionCmd.Flags().Bool("short", false, "print only the version")
}
