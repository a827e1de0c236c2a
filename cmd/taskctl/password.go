package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"kidtasks/internal/security"
	"kidtasks/internal/validation"
)

func passwordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Generate a board password and its bcrypt hash for APP_PASSWORD",
		Long: `Prints a bcrypt hash that can be used as APP_PASSWORD so the plain password
never has to sit in the environment. Without --password a passphrase is generated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, _ := cmd.Flags().GetString("password")
			cost, _ := cmd.Flags().GetInt("cost")

			generated := password == ""
			if generated {
				var err error
				if password, err = security.GeneratePassphrase(); err != nil {
					return fmt.Errorf("failed to generate passphrase: %w", err)
				}
			}
			if err := validation.ValidatePassword(password); err != nil {
				return err
			}

			hash, err := security.HashPassword(password, cost)
			if err != nil {
				return fmt.Errorf("failed to hash password: %w", err)
			}

			out := cmd.OutOrStdout()
			if generated {
				fmt.Fprintf(out, "Password:     %s\n", password)
			}
			fmt.Fprintf(out, "APP_PASSWORD=%s\n", hash)
			return nil
		},
	}

	cmd.Flags().StringP("password", "p", "", "Password to hash (default: generate one)")
	cmd.Flags().Int("cost", bcrypt.DefaultCost, "bcrypt cost")

	return cmd
}
