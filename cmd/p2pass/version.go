package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const p2passVersion = "0.1.0"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the p2pass version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "p2pass version %s\n", p2passVersion)
			return nil
		},
	}
}
