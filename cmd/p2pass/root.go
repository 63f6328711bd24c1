package main

import (
	"fmt"

	"github.com/renproject/p2pass/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cli holds the state that is shared by all commands. It is populated by the
// root command before any sub-command runs.
type cli struct {
	cfgFile  string
	logLevel string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := new(cli)

	rootCmd := &cobra.Command{
		Use:   "p2pass",
		Short: "Send a payload directly to a peer",
		Long: `p2pass transfers a single payload between two peers over TCP. The
receiving peer runs "p2pass serve" and shares its token; the sending peer
runs "p2pass send <token>". Every transfer is acknowledged with a digest of
the payload.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load()
		},
	}
	rootCmd.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (default is ~/.p2pass/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, or error")

	rootCmd.AddCommand(
		newTokenCmd(),
		newResolveCmd(),
		newServeCmd(c),
		newSendCmd(c),
		newVersionCmd(),
	)
	return rootCmd
}

func (c *cli) load() error {
	path := c.cfgFile
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	logger, err := cfg.Logger()
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = logger
	return nil
}
