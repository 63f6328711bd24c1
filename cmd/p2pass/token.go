package main

import (
	"fmt"

	"github.com/renproject/p2pass/peerid"
	"github.com/spf13/cobra"
)

func tokenCodec(url bool) peerid.Codec {
	if url {
		return peerid.URLCodec
	}
	return peerid.StdCodec
}

func newTokenCmd() *cobra.Command {
	var url bool
	cmd := &cobra.Command{
		Use:   "token <ip:port>",
		Short: "Print the token that identifies an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := peerid.ParseAddress(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tokenCodec(url).Encode(addr))
			return nil
		},
	}
	cmd.Flags().BoolVar(&url, "url", false, "use unpadded url-safe base64")
	return cmd
}

func newResolveCmd() *cobra.Command {
	var url bool
	cmd := &cobra.Command{
		Use:   "resolve <token>",
		Short: "Print the address that a token identifies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := tokenCodec(url).Decode(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), addr)
			return nil
		},
	}
	cmd.Flags().BoolVar(&url, "url", false, "use unpadded url-safe base64")
	return cmd
}
