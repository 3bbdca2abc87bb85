package main

import (
	"fmt"
	"strings"

	"github.com/Swind/go-span-runner/core"
	"github.com/spf13/cobra"
)

func newBackendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List registered span backends and the one in use",
		RunE: func(cmd *cobra.Command, args []string) error {
			names := core.RegisteredBackends()
			if len(names) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "registered: (none)")
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "registered: %s\n", strings.Join(names, ", "))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "in use: %v\n", core.CurrentBackend())
			return nil
		},
	}
}
