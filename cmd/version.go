package cmd

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Actual version can be specified in build command.
var version = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and build details",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("%s version: %s (revision %s, %s)\n", app, version, revision(), runtime.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// revision returns the vcs revision stamped by the go tool, if any.
func revision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" && setting.Value != "" {
			if len(setting.Value) > 12 {
				return setting.Value[:12]
			}
			return setting.Value
		}
	}
	return "unknown"
}
