package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/plutonium-manager/internal/config"
	"github.com/oshokin/plutonium-manager/internal/logger"
)

// overwriteSettings lets the settings command replace an existing file.
var overwriteSettings bool

// settingsCmd writes a settings file filled with the defaults.
var settingsCmd = &cobra.Command{
	Use:   "settings [path]",
	Short: "Write a settings file with the default values",
	Long: "Write the default settings to the given path, or to " + config.DefaultConfigFilename +
		" in the working directory. An existing file is kept unless --force is set.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) > 0 {
			path = args[0]
		}

		written, err := config.Init(path, overwriteSettings)
		if err != nil {
			return err
		}

		logger.Infof(cmd.Context(), "Settings written to %s", written)

		return nil
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	settingsCmd.Flags().BoolVar(&overwriteSettings, "force", false, "replace an existing settings file")

	rootCmd.AddCommand(settingsCmd)
}
