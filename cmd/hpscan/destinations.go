package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewDestinationsCmd creates the destinations command group.
func NewDestinationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "destinations",
		Short: "Inspect and clean up walkup scan destinations on the device",
	}
	cmd.AddCommand(newDestinationsListCmd())
	cmd.AddCommand(newDestinationsRemoveCmd())
	return cmd
}

func newDestinationsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered destinations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			sc := newScanner(cfg)
			if err := sc.Connect(ctx); err != nil {
				return err
			}

			dests, err := sc.Registry().List(ctx, sc.Variant())
			if err != nil {
				return fmt.Errorf("list destinations: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tHOSTNAME\tCLIENT ID")
			for _, d := range dests {
				fmt.Fprintf(w, "%s\t%s\t%s\n", d.Name, d.Hostname, d.ClientID)
			}
			return w.Flush()
		},
	}
}

func newDestinationsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <locator>",
		Short: "Remove a destination by its locator path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			sc := newScanner(cfg)
			if err := sc.Connect(ctx); err != nil {
				return err
			}
			return sc.RemoveDestination(ctx, args[0])
		},
	}
}
