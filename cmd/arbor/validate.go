package main

import (
	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the library for consistency",
	Long: `Loads every library document, checks versions, cross references and step
numbering, and reports the first problem found.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := env(cmd)
		if err != nil {
			return err
		}
		return cli.Validate(cmd.Context(), e)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
