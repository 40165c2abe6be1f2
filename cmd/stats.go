package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/edubot/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show quiz statistics recorded on this machine",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		st, err := e.store.EventRepo().AttemptStats(ctx)
		if err != nil {
			return fmt.Errorf("query stats: %w", err)
		}
		if st.Attempts == 0 {
			fmt.Println("No quizzes finished yet.")
			return nil
		}

		accuracy := 0
		if st.Questions > 0 {
			accuracy = st.Correct * 100 / st.Questions
		}
		fmt.Printf("Quizzes:       %d\n", st.Attempts)
		fmt.Printf("Questions:     %d\n", st.Questions)
		fmt.Printf("Correct:       %d (%d%%)\n", st.Correct, accuracy)
		fmt.Printf("Perfect runs:  %d\n", st.PerfectRuns)
		fmt.Printf("Last quiz:     %s\n", st.LastAttempt.Local().Format("2006-01-02 15:04"))

		recent, err := e.store.EventRepo().QueryAttempts(ctx, store.QueryOpts{Limit: limit})
		if err != nil {
			return fmt.Errorf("query attempts: %w", err)
		}
		fmt.Println()
		fmt.Printf("%-19s  %-32s  %-7s  %s\n", "Timestamp", "Topic", "Score", "Backend")
		fmt.Println(strings.Repeat("─", 80))
		for _, a := range recent {
			fmt.Printf("%-19s  %-32s  %-7s  %s\n",
				a.Timestamp.Local().Format("2006-01-02 15:04:05"),
				truncate(a.Topic, 32),
				fmt.Sprintf("%d/%d", a.Score, a.Total),
				a.APIURL,
			)
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().IntP("limit", "n", 10, "Number of recent quizzes to show")
}
