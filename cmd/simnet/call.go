package main

import (
	"fmt"
	"io"

	"github.com/govm-net/simnet/cl"
	"github.com/govm-net/simnet/types"
	"github.com/spf13/cobra"
)

// newCallCmd builds "call", which mines the call in a block, or "read",
// which evaluates a function without changing state.
func newCallCmd(opts *rootOptions, readOnly bool) *cobra.Command {
	var sender string
	use, short := "call", "Call a public function"
	if readOnly {
		use, short = "read", "Call a read-only function"
	}
	cmd := &cobra.Command{
		Use:   use + " <contract> <function> [args...]",
		Short: short,
		Long: short + `.
Arguments are written as values, e.g. u40, true, "text" or 'S...principal.
Example: simnet call counter increment u1 --sender wallet_1`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			values := make([]cl.Value, 0, len(args)-2)
			for _, arg := range args[2:] {
				v, err := cl.Parse(arg)
				if err != nil {
					return fmt.Errorf("failed to parse argument %s: %w", arg, err)
				}
				values = append(values, v)
			}

			s, err := opts.open()
			if err != nil {
				return err
			}
			defer s.Close()

			addr, err := resolveSender(s, sender)
			if err != nil {
				return err
			}
			var res *types.CallResult
			if readOnly {
				res, err = s.CallReadOnlyFn(args[0], args[1], values, addr)
			} else {
				res, err = s.CallPublicFn(args[0], args[1], values, addr)
			}
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().StringVarP(&sender, "sender", "s", "wallet_1", "account name or principal sending the call")
	return cmd
}

func printResult(w io.Writer, res *types.CallResult) {
	fmt.Fprintf(w, "result: %s\n", cl.PrettyPrint(res.Result))
	fmt.Fprintf(w, "block:  %d\n", res.BlockHeight)
	for _, ev := range res.Events {
		switch ev.Event {
		case types.PrintEvent:
			fmt.Fprintf(w, "event:  %s %s %s\n", ev.Event, ev.Data.ContractIdentifier, cl.PrettyPrint(ev.Data.Value))
		case types.STXTransferEvent:
			fmt.Fprintf(w, "event:  %s %s -> %s %d\n", ev.Event, ev.Data.Sender.Principal(), ev.Data.Recipient.Principal(), ev.Data.Amount)
		}
	}
	fmt.Fprintf(w, "costs:  runtime %d, reads %d, writes %d\n", res.Costs.Runtime, res.Costs.ReadCount, res.Costs.WriteCount)
}
