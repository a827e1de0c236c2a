package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"kidtasks/internal/models"
)

type kidStreak struct {
	KidID           string `json:"kidId"`
	Name            string `json:"name"`
	StreakCount     int    `json:"streakCount"`
	LongestStreak   int    `json:"longestStreak"`
	LastPerfectDate string `json:"lastPerfectDate,omitempty"`
	DoneToday       int    `json:"doneToday"`
	ActiveTasks     int    `json:"activeTasks"`
}

func streaksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "streaks",
		Short: "Show each kid's streak and today's progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			snap, err := a.store.Snapshot(cmd.Context())
			if err != nil {
				return err
			}

			rows := buildStreakRows(snap)
			asJSON, _ := cmd.Flags().GetBool("json")
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			return printStreaks(cmd.OutOrStdout(), rows)
		},
	}

	cmd.Flags().BoolP("json", "j", false, "Output as JSON")

	return cmd
}

func buildStreakRows(snap *models.BoardSnapshot) []kidStreak {
	streaks := make(map[string]models.StreakState, len(snap.Streaks))
	for _, st := range snap.Streaks {
		streaks[st.KidID] = st
	}

	rows := make([]kidStreak, 0, len(snap.Kids))
	for _, kid := range snap.Kids {
		st, ok := streaks[kid.ID]
		if !ok {
			st = models.NewStreakState(kid.ID)
		}
		row := kidStreak{
			KidID:           kid.ID,
			Name:            kid.Name,
			StreakCount:     st.StreakCount,
			LongestStreak:   st.LongestStreak,
			LastPerfectDate: st.LastPerfectDate,
		}
		for _, task := range snap.Tasks {
			if task.KidID != kid.ID || !task.IsActive {
				continue
			}
			row.ActiveTasks++
			if task.IsDone {
				row.DoneToday++
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func printStreaks(w io.Writer, rows []kidStreak) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No kids on the board")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KID\tSTREAK\tLONGEST\tLAST PERFECT DAY\tTODAY")
	for _, r := range rows {
		last := r.LastPerfectDate
		if last == "" {
			last = "-"
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%d/%d\n", r.Name, r.StreakCount, r.LongestStreak, last, r.DoneToday, r.ActiveTasks)
	}
	return tw.Flush()
}
