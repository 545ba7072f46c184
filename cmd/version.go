package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// version is set via -ldflags at build time.
var version = "(devel)"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version and, with --verbose, the active engine setup",
	RunE:  runVersion,
}

func init() {
	versionCmd.Flags().BoolP("verbose", "v", false, "Also print Go version, store driver and classifier")
}

func buildVersion() string {
	if version != "(devel)" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return version
}

func runVersion(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "nurture", buildVersion())

	verbose, _ := cmd.Flags().GetBool("verbose")
	if !verbose {
		return nil
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		fmt.Fprintln(out, "go:        ", info.GoVersion)
	}
	fmt.Fprintln(out, "store:     ", rt.cfg.Store.Driver)
	fmt.Fprintln(out, "classifier:", rt.cfg.Engine.Analysis.Classifier)
	return nil
}
