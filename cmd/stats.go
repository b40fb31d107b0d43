package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats <learner-id>",
	Short: "Show a learner's progress rollups",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		snaps, err := st.Progress().ListByLearner(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("list progress: %w", err)
		}
		if len(snaps) == 0 {
			fmt.Println("no progress recorded")
			return nil
		}

		for _, s := range snaps {
			fmt.Printf("%s %s: %.1f%% complete, %.0f%% accuracy, %d sessions, streak %d (best %d), %s studied\n",
				s.TargetKind, s.TargetID,
				s.CompletionPercent, s.AccuracyRate*100,
				s.TotalSessions, s.CurrentStreak, s.BestStreak,
				formatSeconds(s.TimeSpentSeconds))
		}
		return nil
	},
}

func formatSeconds(secs int) string {
	if secs < 60 {
		return fmt.Sprintf("%ds", secs)
	}
	if secs < 3600 {
		return fmt.Sprintf("%dm%ds", secs/60, secs%60)
	}
	return fmt.Sprintf("%dh%dm", secs/3600, (secs%3600)/60)
}
