package main

import (
	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the arbor HTTP server",
	Long:  `Exposes the library, tree and workflow runs, Prometheus metrics and library change events over HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := env(cmd)
		if err != nil {
			return err
		}
		addr, _ := cmd.Flags().GetString("addr")
		watch, _ := cmd.Flags().GetBool("watch")
		return cli.Serve(cmd.Context(), e, cli.ServeOptions{Addr: addr, Watch: watch})
	},
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Answer module requests over Redis",
	Long: `Subscribes to the request channel of every library module and answers each
request, so the redis executor can be exercised without hardware.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := env(cmd)
		if err != nil {
			return err
		}
		opts := cli.SimulateOptions{}
		opts.Fail, _ = cmd.Flags().GetStringSlice("fail")
		opts.Delay, _ = cmd.Flags().GetDuration("delay")
		return cli.Simulate(cmd.Context(), e, opts)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, simulateCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Address to listen on (overrides config)")
	serveCmd.Flags().Bool("watch", false, "Reload the library when its files change")
	simulateCmd.Flags().StringSlice("fail", nil, "Modules that answer with a failure")
	simulateCmd.Flags().Duration("delay", 0, "Time each module takes to answer")
}
