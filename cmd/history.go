package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/edubot/internal/api"
	"github.com/abhisek/edubot/internal/content"
	"github.com/abhisek/edubot/internal/session"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List your lessons",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		svc, err := e.service(cmd.Context(), session.NewSessionContext())
		if err != nil {
			return err
		}
		entries, err := svc.ListHistory(cmd.Context())
		if err != nil {
			return errors.New(api.Message(err))
		}
		if len(entries) == 0 {
			fmt.Println("No lessons yet.")
			return nil
		}

		fmt.Printf("%-36s  %-36s  %-10s  %-9s  %s\n", "ID", "Topic", "Kind", "Score", "Created")
		fmt.Println(strings.Repeat("─", 110))
		for _, h := range entries {
			kind := "lesson"
			if h.IsAssignment {
				kind = "assigned"
			}
			created := ""
			if !h.CreatedAt.IsZero() {
				created = h.CreatedAt.Local().Format("2006-01-02 15:04")
			}
			fmt.Printf("%-36s  %-36s  %-10s  %-9s  %s\n",
				h.ID, truncate(h.Topic, 36), kind, scoreCell(h), created)
		}
		return nil
	},
}

var historyRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a lesson from your history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		svc, err := e.service(cmd.Context(), session.NewSessionContext())
		if err != nil {
			return err
		}
		err = svc.DeleteHistoryEntry(cmd.Context(), args[0])
		switch {
		case api.KindOf(err) == api.KindNotFound:
			fmt.Printf("Lesson %s was already gone.\n", args[0])
		case err != nil:
			return errors.New(api.Message(err))
		default:
			fmt.Printf("Deleted lesson %s.\n", args[0])
		}
		return nil
	},
}

func scoreCell(h content.HistoryEntry) string {
	if h.Score != nil {
		return fmt.Sprintf("%d", *h.Score)
	}
	return string(h.Status)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func init() {
	historyCmd.AddCommand(historyRmCmd)
}
