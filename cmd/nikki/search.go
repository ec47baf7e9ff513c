package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/unowned-ai/nikki/pkg/journal"
	"github.com/unowned-ai/nikki/pkg/search"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search entries by relevance, then filter them",
	Long: `Rank every entry by fuzzy relevance to the query (content weighs most, then tags,
then category) and keep the ones passing the --tag, --category and --from/--to filters.
Without a query the filters apply to all entries in stored order.

Example:
  nikki search 仕事 --category 仕事 --from 2025-01-01 --to 2025-01-31`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		tags, _ := cmd.Flags().GetStringSlice("tag")
		categoryStr, _ := cmd.Flags().GetString("category")
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		top, _ := cmd.Flags().GetInt("top")

		opts := search.FilterOptions{Tags: tags}
		if categoryStr != "" {
			category, err := journal.ParseCategory(categoryStr)
			if err != nil {
				return err
			}
			opts.Category = category
		}
		if (from == "") != (to == "") {
			return errors.New("--from and --to must be given together")
		}
		if from != "" {
			start, err := parseDateFlag(from, false)
			if err != nil {
				return err
			}
			end, err := parseDateFlag(to, true)
			if err != nil {
				return err
			}
			opts.DateRange = &search.DateRange{Start: start, End: end}
		}

		engine, err := newEngine()
		if err != nil {
			return err
		}
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := store.GetAllEntries(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load entries: %w", err)
		}

		results := engine.Combine(entries, query, opts)
		if top > 0 && len(results) > top {
			results = results[:top]
		}

		out := cmd.OutOrStdout()
		if len(results) == 0 {
			fmt.Fprintln(out, "No entries found.")
			return nil
		}
		fmt.Fprintf(out, "Found %d entries:\n", len(results))
		for _, entry := range results {
			printEntrySummary(out, entry)
		}
		return nil
	},
}

func initSearchCmd() {
	searchCmd.Flags().StringSlice("tag", nil, "Keep entries carrying any of these tags (repeatable or comma-separated)")
	searchCmd.Flags().String("category", "", "Keep entries in this category")
	searchCmd.Flags().String("from", "", "Start of the creation date range (YYYY-MM-DD or RFC 3339)")
	searchCmd.Flags().String("to", "", "End of the creation date range, inclusive")
	searchCmd.Flags().Int("top", 0, "Show at most this many results (0 for all)")
}
