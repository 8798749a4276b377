package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/plutonium-manager/internal/domain/engine"
	"github.com/oshokin/plutonium-manager/internal/logger"
	"github.com/oshokin/plutonium-manager/internal/service/installer"
	"github.com/oshokin/plutonium-manager/internal/version"
)

var (
	// options collects the destinations and the engine from the flags.
	options installer.Options

	// rootCmd installs the requested components of a Plutonium dedicated server.
	rootCmd = &cobra.Command{
		Use:   "plutonium-manager",
		Short: "Manage and create a Plutonium dedicated server",
		Long: "Download server files, server config, IW4M-Admin, its log server, an RCON client " +
			"and the Plutonium launcher into the given paths. Targets are installed one after another.",
		Example: "  plutonium-manager --engine t6 --server ./T6Server/Plutonium --config ./T6Server/Plutonium/storage/t6\n" +
			"  plutonium-manager --plutonium ./plutonium.exe --rcon ./rcon",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return installer.Run(ctx, &options)
		},
	}
)

// Execute runs the CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	ctx := context.Background()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		logger.ErrorKV(ctx, "Command failed", "error", err)
	}

	logger.Sync()

	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.Flags()

	flags.StringVarP(&options.ServerDir, "server", "s", "", "install server files to a given path")
	flags.StringVarP(&options.ConfigDir, "config", "c", "", "install server config to a given path")
	flags.StringVarP(&options.AdminPanelDir, "iw4m", "i", "", "install IW4M-Admin to a given path")
	flags.StringVarP(&options.AdminPanelConfigDir, "iw4m-config", "a", "", "install the IW4M-Admin configuration bundle to a given path")
	flags.StringVarP(&options.LogServerDir, "iw4m-log", "l", "", "install the IW4M-Admin log server to a given path")
	flags.StringVarP(&options.LauncherPath, "plutonium", "p", "", "install the Plutonium launcher to a given file")
	flags.StringVarP(&options.RCONDir, "rcon", "r", "", "install an RCON client to a given path")
	flags.StringVarP(&options.Engine, "engine", "e", "",
		"game engine, one of "+strings.Join(engine.Names(), ", ")+" (required with --server and --config)")
	flags.StringVar(&options.SettingsPath, "settings", "", "path to the settings YAML file")
	flags.StringVar(&options.LogLevel, "log-level", "", "log level: debug, info, warn or error")

	//nolint:errcheck // The flag is registered just above.
	_ = rootCmd.RegisterFlagCompletionFunc("engine",
		func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
			return engine.Names(), cobra.ShellCompDirectiveNoFileComp
		})
}
