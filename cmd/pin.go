package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/rota/core/model"
)

func newPinCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pin",
		Short: "Manage shifts pinned for future generations",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add WORKER DATE",
			Short: "Pin a worker to a date",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := parsePin(args)
				if err != nil {
					return err
				}
				st, err := root.openStore()
				if err != nil {
					return err
				}
				defer st.Close()
				if err := st.Pin(cmd.Context(), m); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "pinned %s on %s\n", m.WorkerID, m.Date)
				return nil
			},
		},
		&cobra.Command{
			Use:     "remove WORKER DATE",
			Aliases: []string{"rm"},
			Short:   "Remove a pin",
			Args:    cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := parsePin(args)
				if err != nil {
					return err
				}
				st, err := root.openStore()
				if err != nil {
					return err
				}
				defer st.Close()
				ok, err := st.Unpin(cmd.Context(), m)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("no pin for %s on %s", m.WorkerID, m.Date)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "unpinned %s on %s\n", m.WorkerID, m.Date)
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List pinned shifts",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				st, err := root.openStore()
				if err != nil {
					return err
				}
				defer st.Close()
				pins, err := st.Pinned(cmd.Context())
				if err != nil {
					return err
				}
				for _, p := range pins {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", p.Date, p.WorkerID)
				}
				return nil
			},
		},
	)
	return cmd
}

func parsePin(args []string) (model.MandatoryShift, error) {
	d, err := model.ParseDate(args[1])
	if err != nil {
		return model.MandatoryShift{}, fmt.Errorf("date: %w", err)
	}
	return model.MandatoryShift{WorkerID: args[0], Date: d}, nil
}
