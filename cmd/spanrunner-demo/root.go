package main

import (
	"github.com/Swind/go-span-runner/core"
	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd wires the cobra tree.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "spanrunner-demo",
		Short:         "Propagate tracing spans onto worker goroutines",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := core.ConfigFromEnv()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				if cfg, err = core.LoadConfig(cfgFile); err != nil {
					return err
				}
			}
			core.Configure(cfg)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to a spanrunner YAML config file")

	root.AddCommand(
		newRunCmd(),
		newBackendsCmd(),
	)
	return root
}
