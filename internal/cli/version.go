package cli

import (
	"runtime"

	"github.com/spf13/cobra"
)

// versionCmd prints build information.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		f := Context().Formatter
		if f.IsJSON() {
			return f.Print(map[string]string{
				"version": orDefault(buildInfo.Version, "dev"),
				"commit":  orDefault(buildInfo.Commit, "unknown"),
				"date":    orDefault(buildInfo.Date, "unknown"),
				"go":      runtime.Version(),
			})
		}
		return f.Printf("tally %s %s\n", formatVersion(buildInfo), runtime.Version())
	},
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(versionCmd)
}
