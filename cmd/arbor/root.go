package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "arbor",
	Short: "Arbor runs behavior trees for lab automation",
	Long: `Arbor loads a library of modules, known nodes, behavior trees and workflows,
validates it, and executes trees and workflows against a leaf executor.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// The run already printed its outcome.
		if !errors.Is(err, cli.ErrRunFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("dir", "", "Directory containing the library (overrides config)")
	rootCmd.PersistentFlags().String("config", "", "Path to an arbor config file (yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}

// env resolves configuration from the persistent flags.
func env(cmd *cobra.Command) (*cli.Env, error) {
	dir, _ := cmd.Flags().GetString("dir")
	configPath, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")

	return cli.Resolve(cli.Options{
		ConfigPath: configPath,
		Dir:        dir,
		Debug:      debug,
		Out:        cmd.OutOrStdout(),
		Err:        cmd.ErrOrStderr(),
	})
}
