package main

import (
	"fmt"
	"io"
	"os"

	"github.com/renproject/p2pass/peerid"
	"github.com/renproject/p2pass/transfer"
	"github.com/spf13/cobra"
)

func newSendCmd(c *cli) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "send <token>...",
		Short: "Send a payload to one or more peers",
		Long: `Send the contents of --file, or stdin, to every peer. Each peer gets its
own handshake. One line is printed per peer: the token followed by the
digest that the peer acknowledged.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addrs := make([]peerid.Address, len(args))
			for i, token := range args {
				addr, err := peerid.Decode(token)
				if err != nil {
					return err
				}
				addrs[i] = addr
			}

			var payload []byte
			var err error
			if file == "" || file == "-" {
				payload, err = io.ReadAll(cmd.InOrStdin())
			} else {
				payload, err = os.ReadFile(file)
			}
			if err != nil {
				return fmt.Errorf("failed to read payload: %w", err)
			}

			opts, err := c.cfg.ClientOptions(c.logger)
			if err != nil {
				return err
			}
			results := transfer.NewClient(opts).SendEach(cmd.Context(), addrs, payload)

			failed := 0
			for i, result := range results {
				if result.Err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "%v: %v (state=%v)\n", args[i], result.Err, result.Receipt.State)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%v %v\n", args[i], result.Receipt.Digest)
			}
			if failed > 0 {
				return fmt.Errorf("failed to send to %d of %d peers", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "file to send (default is stdin)")
	return cmd
}
