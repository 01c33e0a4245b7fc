package main

import (
	"strings"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/internal/presentation/schema"
	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema [kind]",
	Short: "Print the JSON Schema of a library document",
	Long: `Prints the JSON Schema of one document kind, or writes all of them to the
directory given with --out.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: kindNames(),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		kind := ""
		if len(args) > 0 {
			kind = args[0]
		}
		if kind == "" && out == "" {
			return cmd.Usage()
		}
		e, err := env(cmd)
		if err != nil {
			return err
		}
		return cli.Schema(e, kind, out)
	},
}

var openapiCmd = &cobra.Command{
	Use:   "openapi [module]",
	Short: "Print the OpenAPI document of a module's services",
	Long: `Prints the OpenAPI document of one module, or writes one per module to the
directory given with --out.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		if len(args) == 0 && out == "" {
			return cmd.Usage()
		}
		e, err := env(cmd)
		if err != nil {
			return err
		}
		module := ""
		if len(args) > 0 {
			module = args[0]
		}
		return cli.OpenAPI(cmd.Context(), e, module, out)
	},
}

func kindNames() []string {
	names := make([]string, len(schema.Kinds))
	for i, k := range schema.Kinds {
		names[i] = string(k)
	}
	return names
}

func init() {
	rootCmd.AddCommand(schemaCmd, openapiCmd)
	schemaCmd.Flags().StringP("out", "o", "", "Write every schema into this directory")
	openapiCmd.Flags().StringP("out", "o", "", "Write one document per module into this directory")
	schemaCmd.Long += "\n\nKinds: " + strings.Join(kindNames(), ", ")
}
