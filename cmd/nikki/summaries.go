package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/unowned-ai/nikki/pkg/journal"
)

var summariesCmd = &cobra.Command{
	Use:   "summaries",
	Short: "Inspect generated weekly and monthly summaries",
}

var weeklyCmd = &cobra.Command{
	Use:   "weekly",
	Short: "Manage weekly summaries",
}

var monthlyCmd = &cobra.Command{
	Use:   "monthly",
	Short: "Manage monthly summaries",
}

var listWeeklyCmd = &cobra.Command{
	Use:   "list",
	Short: "List weekly summaries by week start",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		if (from == "") != (to == "") {
			return fmt.Errorf("--from and --to must be given together")
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		var summaries []journal.WeeklySummary
		if from != "" {
			start, err := parseDateFlag(from, false)
			if err != nil {
				return err
			}
			end, err := parseDateFlag(to, true)
			if err != nil {
				return err
			}
			summaries, err = store.GetWeeklySummariesByRange(cmd.Context(), start, end)
			if err != nil {
				return fmt.Errorf("failed to list weekly summaries: %w", err)
			}
		} else {
			summaries, err = store.ListWeeklySummaries(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list weekly summaries: %w", err)
			}
		}

		out := cmd.OutOrStdout()
		if len(summaries) == 0 {
			fmt.Fprintln(out, "No weekly summaries found.")
			return nil
		}
		for _, ws := range summaries {
			fmt.Fprintf(out, "- %s  %s .. %s  %s\n", ws.ID, ws.WeekStart.Format("2006-01-02"), ws.WeekEnd.Format("2006-01-02"), preview(ws.Summary, 40))
		}
		return nil
	},
}

var getWeeklyCmd = &cobra.Command{
	Use:   "get [summary-id]",
	Short: "Show a weekly summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ws, err := store.GetWeeklySummary(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get weekly summary: %w", err)
		}
		if ws == nil {
			return fmt.Errorf("weekly summary not found: %s", args[0])
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Weekly Summary:")
		fmt.Fprintf(out, "ID:           %s\n", ws.ID)
		fmt.Fprintf(out, "Week:         %s .. %s\n", ws.WeekStart.Format("2006-01-02"), ws.WeekEnd.Format("2006-01-02"))
		printDigest(out, ws.Summary, ws.Themes, ws.EmotionTrend, formatTimestamp(ws.GeneratedAt))
		return nil
	},
}

var deleteWeeklyCmd = &cobra.Command{
	Use:   "delete [summary-id]",
	Short: "Delete a weekly summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.DeleteWeeklySummary(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete weekly summary: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Weekly summary %s deleted.\n", args[0])
		return nil
	},
}

var listMonthlyCmd = &cobra.Command{
	Use:   "list",
	Short: "List monthly summaries",
	RunE: func(cmd *cobra.Command, args []string) error {
		month, _ := cmd.Flags().GetString("month")

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		var summaries []journal.MonthlySummary
		if month != "" {
			summaries, err = store.GetMonthlySummariesByMonth(cmd.Context(), month)
		} else {
			summaries, err = store.ListMonthlySummaries(cmd.Context())
		}
		if err != nil {
			return fmt.Errorf("failed to list monthly summaries: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(summaries) == 0 {
			fmt.Fprintln(out, "No monthly summaries found.")
			return nil
		}
		for _, ms := range summaries {
			fmt.Fprintf(out, "- %s  %s  %s\n", ms.ID, ms.Month, preview(ms.Summary, 40))
		}
		return nil
	},
}

var getMonthlyCmd = &cobra.Command{
	Use:   "get [summary-id]",
	Short: "Show a monthly summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ms, err := store.GetMonthlySummary(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get monthly summary: %w", err)
		}
		if ms == nil {
			return fmt.Errorf("monthly summary not found: %s", args[0])
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Monthly Summary:")
		fmt.Fprintf(out, "ID:           %s\n", ms.ID)
		fmt.Fprintf(out, "Month:        %s\n", ms.Month)
		printDigest(out, ms.Summary, ms.Themes, ms.EmotionTrend, formatTimestamp(ms.GeneratedAt))
		return nil
	},
}

var deleteMonthlyCmd = &cobra.Command{
	Use:   "delete [summary-id]",
	Short: "Delete a monthly summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.DeleteMonthlySummary(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete monthly summary: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Monthly summary %s deleted.\n", args[0])
		return nil
	},
}

func printDigest(w io.Writer, summary string, themes []string, trend journal.EmotionAnalysis, generatedAt string) {
	fmt.Fprintf(w, "Themes:       %s\n", strings.Join(themes, ", "))
	fmt.Fprintf(w, "Emotion:      +%.0f / -%.0f\n", trend.Positive, trend.Negative)
	fmt.Fprintf(w, "Generated At: %s\n", generatedAt)
	fmt.Fprintln(w, "\nSummary:")
	fmt.Fprintln(w, summary)
}

func initSummariesCmd() {
	listWeeklyCmd.Flags().String("from", "", "Earliest week start (YYYY-MM-DD or RFC 3339)")
	listWeeklyCmd.Flags().String("to", "", "Latest week start, inclusive")
	listMonthlyCmd.Flags().String("month", "", "Only summaries of this month (YYYY-MM)")

	weeklyCmd.AddCommand(listWeeklyCmd, getWeeklyCmd, deleteWeeklyCmd)
	monthlyCmd.AddCommand(listMonthlyCmd, getMonthlyCmd, deleteMonthlyCmd)
	summariesCmd.AddCommand(weeklyCmd, monthlyCmd)
}
