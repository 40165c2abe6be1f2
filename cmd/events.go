package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/edubot/internal/llm"
	"github.com/abhisek/edubot/internal/store"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect recorded backend and LLM requests",
}

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		kind, _ := cmd.Flags().GetString("kind")
		purpose, _ := cmd.Flags().GetString("purpose")

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		events, err := e.store.EventRepo().QueryRequests(cmd.Context(), kind, store.QueryOpts{Limit: limit})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}

		if len(events) == 0 {
			fmt.Println("No requests recorded.")
			return nil
		}

		fmt.Printf("%-5s  %-19s  %-4s  %-34s  %-14s  %-6s  %-6s  %-7s  %s\n",
			"ID", "Timestamp", "Kind", "Target", "Purpose", "In", "Out", "Ms", "OK")
		fmt.Println(strings.Repeat("─", 118))

		for _, ev := range events {
			if purpose != "" && ev.Purpose != purpose {
				continue
			}
			ok := "✓"
			if !ev.Success {
				ok = "✗"
			}
			target := ev.Target
			if ev.Kind == store.KindLLM && ev.Model != "" {
				target = ev.Model
			}
			fmt.Printf("%-5d  %-19s  %-4s  %-34s  %-14s  %-6d  %-6d  %-7d  %s\n",
				ev.ID,
				ev.Timestamp.Local().Format("2006-01-02 15:04:05"),
				ev.Kind,
				truncate(target, 34),
				truncate(ev.Purpose, 14),
				ev.InputTokens,
				ev.OutputTokens,
				ev.LatencyMs,
				ok,
			)
		}
		return nil
	},
}

var eventsViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "View the full request and response of one event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var id int
		if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
			return fmt.Errorf("invalid ID %q: %w", args[0], err)
		}

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		ev, err := e.store.EventRepo().GetRequest(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if ev == nil {
			return fmt.Errorf("event %d not found", id)
		}

		sep := strings.Repeat("─", 60)

		fmt.Printf("ID:        %d\n", ev.ID)
		fmt.Printf("Time:      %s\n", ev.Timestamp.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("Kind:      %s\n", ev.Kind)
		fmt.Printf("Target:    %s\n", ev.Target)
		if ev.Model != "" {
			fmt.Printf("Model:     %s\n", ev.Model)
		}
		if ev.Purpose != "" {
			fmt.Printf("Purpose:   %s\n", ev.Purpose)
		}
		if ev.RequestID != "" {
			fmt.Printf("Request:   %s\n", ev.RequestID)
		}
		if ev.Status != 0 {
			fmt.Printf("Status:    %d\n", ev.Status)
		}
		if ev.Kind == store.KindLLM {
			fmt.Printf("Tokens:    %d in / %d out\n", ev.InputTokens, ev.OutputTokens)
		}
		fmt.Printf("Latency:   %dms\n", ev.LatencyMs)
		fmt.Printf("Success:   %v\n", ev.Success)
		if ev.ErrorMessage != "" {
			fmt.Printf("Error:     %s\n", ev.ErrorMessage)
		}

		for _, part := range []struct{ name, body string }{
			{"REQUEST", ev.RequestBody},
			{"RESPONSE", ev.ResponseBody},
		} {
			fmt.Println()
			fmt.Println(sep)
			fmt.Println(part.name)
			fmt.Println(sep)
			if part.body != "" {
				fmt.Println(part.body)
			} else {
				fmt.Println("(not captured)")
			}
		}
		return nil
	},
}

var eventsUsageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show aggregated LLM token usage and estimated cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		stats, err := e.store.EventRepo().UsageByPurpose(ctx)
		if err != nil {
			return fmt.Errorf("query usage: %w", err)
		}

		if len(stats) == 0 {
			fmt.Println("No LLM usage recorded yet.")
			return nil
		}

		fmt.Println("Usage by Purpose")
		fmt.Println(strings.Repeat("─", 72))
		fmt.Printf("%-16s  %6s  %10s  %10s  %10s  %8s\n",
			"Purpose", "Calls", "Input", "Output", "Total", "Avg Ms")
		fmt.Println(strings.Repeat("─", 72))

		var totalCalls, totalIn, totalOut int
		for _, st := range stats {
			total := st.InputTokens + st.OutputTokens
			fmt.Printf("%-16s  %6d  %10d  %10d  %10d  %8d\n",
				truncate(st.Key, 16), st.Calls, st.InputTokens, st.OutputTokens, total, st.AvgLatencyMs)
			totalCalls += st.Calls
			totalIn += st.InputTokens
			totalOut += st.OutputTokens
		}

		fmt.Println(strings.Repeat("─", 72))
		fmt.Printf("%-16s  %6d  %10d  %10d  %10d\n",
			"TOTAL", totalCalls, totalIn, totalOut, totalIn+totalOut)

		modelUsage, err := e.store.EventRepo().UsageByModel(ctx)
		if err != nil {
			return fmt.Errorf("query model usage: %w", err)
		}
		if len(modelUsage) == 0 {
			return nil
		}

		fmt.Println()
		fmt.Println("Estimated Cost (USD)")
		fmt.Println(strings.Repeat("─", 72))
		fmt.Printf("%-32s  %6s  %10s  %10s  %10s\n",
			"Model", "Calls", "Input", "Output", "Cost")
		fmt.Println(strings.Repeat("─", 72))

		var totalCost float64
		var unknown []string
		for _, mu := range modelUsage {
			cost := llm.LookupCost(mu.Key)
			if cost == nil {
				unknown = append(unknown, mu.Key)
				fmt.Printf("%-32s  %6d  %10d  %10d  %10s\n",
					truncate(mu.Key, 32), mu.Calls, mu.InputTokens, mu.OutputTokens, "?")
				continue
			}
			c := cost.Cost(mu.InputTokens, mu.OutputTokens)
			totalCost += c
			fmt.Printf("%-32s  %6d  %10d  %10d  %9s\n",
				truncate(mu.Key, 32), mu.Calls, mu.InputTokens, mu.OutputTokens, formatCost(c))
		}

		fmt.Println(strings.Repeat("─", 72))
		label := "TOTAL"
		if len(unknown) > 0 {
			label = "TOTAL (partial)"
		}
		fmt.Printf("%-32s  %6s  %10s  %10s  %9s\n", label, "", "", "", formatCost(totalCost))
		if len(unknown) > 0 {
			fmt.Printf("\nPricing unavailable for: %s\n", strings.Join(unknown, ", "))
		}
		return nil
	},
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	eventsListCmd.Flags().IntP("limit", "n", 20, "Number of events to show")
	eventsListCmd.Flags().StringP("kind", "k", "", "Filter by kind (api or llm)")
	eventsListCmd.Flags().StringP("purpose", "p", "", "Filter by LLM purpose (e.g. lesson, quiz, feedback, tutor)")

	eventsCmd.AddCommand(eventsListCmd)
	eventsCmd.AddCommand(eventsViewCmd)
	eventsCmd.AddCommand(eventsUsageCmd)
}
