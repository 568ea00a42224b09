package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newAccountsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List the session accounts and their balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open()
			if err != nil {
				return err
			}
			defer s.Close()

			accounts := s.GetAccounts()
			names := make([]string, 0, len(accounts))
			for name := range accounts {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				addr := accounts[name]
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s %d\n", name, addr.Principal(), s.GetBalance(addr))
			}
			return nil
		},
	}
}

func newContractsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "contracts",
		Short: "List the deployed contracts and their interfaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open()
			if err != nil {
				return err
			}
			defer s.Close()

			for _, id := range s.Contracts() {
				rec, err := s.Describe(id.String())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, deployed at %d)\n%s", id, rec.Kind, rec.DeployHeight, rec.ABI)
			}
			return nil
		},
	}
}
