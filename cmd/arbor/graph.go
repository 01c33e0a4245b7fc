package main

import (
	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export a tree or workflow visualization",
	Long:  `Outputs a Mermaid diagram of a behavior tree (graph TD) or a workflow (graph LR).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := env(cmd)
		if err != nil {
			return err
		}
		tree, _ := cmd.Flags().GetString("tree")
		workflow, _ := cmd.Flags().GetString("workflow")
		return cli.Graph(cmd.Context(), e, tree, workflow)
	},
}

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Describe a tree or workflow in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := env(cmd)
		if err != nil {
			return err
		}
		tree, _ := cmd.Flags().GetString("tree")
		workflow, _ := cmd.Flags().GetString("workflow")
		return cli.Describe(cmd.Context(), e, tree, workflow)
	},
}

func init() {
	for _, c := range []*cobra.Command{graphCmd, describeCmd} {
		rootCmd.AddCommand(c)
		c.Flags().StringP("tree", "t", "", "Name of the tree")
		c.Flags().StringP("workflow", "w", "", "Title of the workflow")
		c.MarkFlagsMutuallyExclusive("tree", "workflow")
		c.MarkFlagsOneRequired("tree", "workflow")
	}
}
