package main

import (
	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a behavior tree or a workflow",
	Long: `Runs one tree (--tree) or one workflow (--workflow) with the configured
executor and prints the outcome. The exit code is non-zero unless the run succeeded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := env(cmd)
		if err != nil {
			return err
		}
		opts := cli.RunOptions{}
		opts.Tree, _ = cmd.Flags().GetString("tree")
		opts.Workflow, _ = cmd.Flags().GetString("workflow")
		opts.RunID, _ = cmd.Flags().GetString("run-id")
		opts.JSON, _ = cmd.Flags().GetBool("json")
		opts.Trace, _ = cmd.Flags().GetBool("trace")
		return cli.Run(cmd.Context(), e, opts)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("tree", "t", "", "Name of the tree to run")
	runCmd.Flags().StringP("workflow", "w", "", "Title of the workflow to run")
	runCmd.Flags().String("run-id", "", "Run ID passed to leaves (generated when empty)")
	runCmd.Flags().Bool("json", false, "Print the result as JSON")
	runCmd.Flags().Bool("trace", false, "Write OpenTelemetry spans to stderr")
	runCmd.MarkFlagsMutuallyExclusive("tree", "workflow")
	runCmd.MarkFlagsOneRequired("tree", "workflow")
}
