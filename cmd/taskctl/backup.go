package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"kidtasks/internal/service"
)

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export or import the whole board as JSON",
	}
	cmd.AddCommand(backupExportCmd())
	cmd.AddCommand(backupImportCmd())
	return cmd
}

func backupExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export kids, tasks, streaks and the last reset day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputPath, _ := cmd.Flags().GetString("out")
			// Generate default filename if not provided
			if outputPath == "" {
				outputPath = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
			}
			if dir := filepath.Dir(outputPath); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("failed to create output directory: %w", err)
				}
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			backups := service.NewBackupService(a.store, a.cfg.DatabaseType, nil)
			if err := backups.ExportFile(cmd.Context(), outputPath); err != nil {
				return err
			}

			info, err := os.Stat(outputPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported board to %s (%.1f KB)\n", outputPath, float64(info.Size())/1024)
			return nil
		},
	}

	cmd.Flags().StringP("out", "o", "", "Output file path (default: backup_YYYYMMDD_HHMMSS.json)")

	return cmd
}

func backupImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a board backup",
		Long: `Imports a backup written by "taskctl backup export" in one transaction.
Without --clear, rows whose ids already exist make the whole import fail.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inputPath, _ := cmd.Flags().GetString("in")
			clearExisting, _ := cmd.Flags().GetBool("clear")
			yes, _ := cmd.Flags().GetBool("yes")

			if _, err := os.Stat(inputPath); err != nil {
				return fmt.Errorf("input file: %w", err)
			}

			if clearExisting && !yes {
				fmt.Fprint(cmd.OutOrStdout(), "WARNING: This will delete all existing data. Type 'yes' to confirm: ")
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if strings.TrimSpace(answer) != "yes" {
					fmt.Fprintln(cmd.OutOrStdout(), "Import cancelled")
					return nil
				}
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			backups := service.NewBackupService(a.store, a.cfg.DatabaseType, nil)
			stats, err := backups.ImportFile(cmd.Context(), inputPath, clearExisting)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d kids, %d tasks, %d streaks\n", stats.Kids, stats.Tasks, stats.Streaks)
			return nil
		},
	}

	cmd.Flags().StringP("in", "i", "", "Input file path")
	cmd.Flags().Bool("clear", false, "Delete existing data before import")
	cmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt of --clear")
	_ = cmd.MarkFlagRequired("in")

	return cmd
}
