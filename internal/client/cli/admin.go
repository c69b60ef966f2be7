package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func pingCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the admin endpoint and database are reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			c, err := a.dialer(a.cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			status, err := c.Ping(ctx)
			if err != nil {
				return fmt.Errorf("ping %s: %w", a.cfg.AdminAddr, err)
			}
			fmt.Fprintf(a.out, "%s: %s\n", a.cfg.AdminAddr, status)
			return nil
		},
	}
}

func triggerCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "trigger",
		Short: "Run one unlock sweep now",
		Long:  "Delivers unlock notifications for every sealed capsule whose unlock date has passed.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			c, err := a.dialer(a.cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			sum, err := c.TriggerUnlocks(ctx)
			if err != nil {
				return fmt.Errorf("trigger unlocks: %w", err)
			}
			if sum.Skipped {
				fmt.Fprintln(a.out, "sweep already running elsewhere, skipped")
				return nil
			}
			fmt.Fprintf(a.out, "boundary %s, %d capsule(s) due\n", sum.Boundary, len(sum.Capsules))
			for _, cp := range sum.Capsules {
				state := "sent"
				if !cp.MarkedSent {
					state = "retry"
				}
				fmt.Fprintf(a.out, "  %s  %q  recipients=%d failed=%d  %s\n", cp.ID, cp.Title, cp.Recipients, cp.Failed, state)
			}
			return nil
		},
	}
}
