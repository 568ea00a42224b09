package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/govm-net/simnet/config"
	"github.com/govm-net/simnet/core"
	"github.com/govm-net/simnet/simnet"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	logLevel   string
	dbPath     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "simnet",
		Short: "Simulated network command line tool",
		Long: `Simulated network command line tool for calling contracts on an in-process chain.
Each invocation starts a session from the configuration. With --db the chain
is kept in a sqlite file and later invocations continue from it.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "sqlite file keeping the chain between invocations")

	cmd.AddCommand(newAccountsCmd(opts))
	cmd.AddCommand(newContractsCmd(opts))
	cmd.AddCommand(newCallCmd(opts, false))
	cmd.AddCommand(newCallCmd(opts, true))
	cmd.AddCommand(newVarCmd(opts))
	return cmd
}

// open starts a session from the command line options.
func (o *rootOptions) open() (*simnet.Simnet, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return nil, err
		}
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.dbPath != "" {
		cfg.Network.Context = "db"
		cfg.Network.DBPath = o.dbPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log, err := cfg.NewLogger()
	if err != nil {
		return nil, err
	}
	return simnet.New(cfg, simnet.WithLogger(log))
}

// resolveSender accepts an account name or a principal.
func resolveSender(s *simnet.Simnet, sender string) (core.Address, error) {
	if addr, ok := s.GetAccounts()[sender]; ok {
		return addr, nil
	}
	if strings.HasPrefix(sender, "S") {
		return core.ParsePrincipal(sender)
	}
	return core.ZeroAddress, fmt.Errorf("%w: unknown sender %q", core.ErrInvalidArgument, sender)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
