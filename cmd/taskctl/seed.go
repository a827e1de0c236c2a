package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"kidtasks/internal/service"
)

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write the default board when no kids exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			path, _ := cmd.Flags().GetString("file")
			if path == "" {
				path = a.cfg.SeedFile
			}
			seed, err := service.LoadSeed(path)
			if err != nil {
				return err
			}
			today, err := a.engine.Today()
			if err != nil {
				return err
			}

			seeded, err := service.SeedIfEmpty(cmd.Context(), a.store, seed, today, slog.Default())
			if err != nil {
				return err
			}
			if seeded {
				fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d kids\n", len(seed.Kids))
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Board already has kids, nothing to do")
			}
			return nil
		},
	}

	cmd.Flags().StringP("file", "f", "", "YAML seed file (default: SEED_FILE or the built-in board)")

	return cmd
}
