package cmd

import (
	"github.com/spf13/cobra"

	"github.com/locali/placesync/cmd/serve"
	synccmd "github.com/locali/placesync/cmd/sync"
	"github.com/locali/placesync/internal/app"
	"github.com/locali/placesync/internal/buildinfo"
)

// RootCommand creates and returns the root command
func RootCommand(info *buildinfo.Context) *cobra.Command {
	a := app.New(info)

	rootCmd := &cobra.Command{
		Use:          "placesync",
		Short:        "Keep the place metadata cache in sync with the Places API",
		Version:      info.String(),
		SilenceUsage: true,
	}

	// Set up the global flags for the root command.
	cobra.CheckErr(a.RegisterGlobalFlags(rootCmd.PersistentFlags()))

	rootCmd.AddCommand(
		synccmd.Command(a),
		serve.Command(a),
	)

	// Settings, logging and telemetry are ready before any subcommand runs;
	// subcommands close them.
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return a.Init()
	}

	return rootCmd
}
