package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/renproject/p2pass/peerid"
	"github.com/renproject/p2pass/sink"
	"github.com/renproject/p2pass/transfer"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(c *cli) *cobra.Command {
	var (
		host string
		port uint16
		out  string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Receive payloads until interrupted",
		Long: `Listen for peers and receive their payloads. Payloads are written to
stdout, one per line, or into the --out directory as <sha256>.bin. The
token of the listening address is printed to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("host") {
				c.cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				c.cfg.Port = port
			}
			opts, err := c.cfg.ServerOptions(c.logger)
			if err != nil {
				return err
			}

			var s sink.Sink = sink.NewWriter(cmd.OutOrStdout(), []byte("\n"))
			if out != "" {
				dir, err := sink.NewDir(out)
				if err != nil {
					return err
				}
				s = dir
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			address := net.JoinHostPort(opts.Host, strconv.Itoa(int(opts.Port)))
			listener, err := new(net.ListenConfig).Listen(ctx, "tcp", address)
			if err != nil {
				return fmt.Errorf("failed to listen on %v: %w", address, err)
			}
			if addr, err := peerid.FromNetAddr(listener.Addr()); err == nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "token: %v (%v)\n", addr.Token(), addr)
			} else {
				c.logger.Warn("computing token", zap.Error(err))
			}

			return transfer.NewServer(opts, s).ListenWithListener(ctx, listener)
		},
	}
	cmd.Flags().StringVar(&host, "host", transfer.DefaultServerHost, "host address to listen on")
	cmd.Flags().Uint16Var(&port, "port", transfer.DefaultServerPort, "port to listen on, 0 to pick any free port")
	cmd.Flags().StringVar(&out, "out", "", "directory to write payloads into (default is stdout)")
	return cmd
}
