package main

import (
	"fmt"

	"github.com/govm-net/simnet/cl"
	"github.com/spf13/cobra"
)

func newVarCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "var <contract> <name>",
		Short: "Print a data variable of a contract",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open()
			if err != nil {
				return err
			}
			defer s.Close()

			v, err := s.GetDataVar(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cl.PrettyPrint(v))
			return nil
		},
	}
}
