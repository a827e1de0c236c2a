package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Run the daily reset if it has not run today",
		Long: `Clears task completion for a new calendar day, exactly like the board does
when it is first opened in the morning. Running it twice on the same day is a no-op.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.engine.CheckAndReset(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if res.ResetPerformed {
				previous := res.PreviousReset
				if previous == "" {
					previous = "never"
				}
				fmt.Fprintf(out, "Reset performed for %s (previous reset: %s, policy: %s)\n", res.Today, previous, a.cfg.ResetPolicy)
			} else {
				fmt.Fprintf(out, "Already reset for %s\n", res.Today)
			}
			return nil
		},
	}
}
