package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/unowned-ai/nikki/pkg/journal"
	"github.com/unowned-ai/nikki/pkg/utils"
)

var entriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "Manage journal entries",
	Long:  `Create, list, update, and delete journal entries.`,
}

var createEntryCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new entry",
	Long:  `Create a new entry from --content, or from standard input when --content is "-".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		content, _ := cmd.Flags().GetString("content")
		tagsStr, _ := cmd.Flags().GetString("tags")
		categoryStr, _ := cmd.Flags().GetString("category")
		images, _ := cmd.Flags().GetStringSlice("image")

		if content == "-" {
			data, err := readAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("failed to read content from stdin: %w", err)
			}
			content = data
		}
		if content == "" {
			return errors.New("entry content is required")
		}
		category, err := journal.ParseCategory(categoryStr)
		if err != nil {
			return err
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		id, err := store.AddEntry(cmd.Context(), journal.Draft{
			Content:  content,
			Tags:     parseTagsFlag(tagsStr),
			Category: category,
			Images:   images,
		})
		if err != nil {
			return fmt.Errorf("failed to create entry: %w", err)
		}

		entry, err := store.GetEntry(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("entry %s created, but reading it back failed: %w", id, err)
		}
		printEntry(cmd.OutOrStdout(), *entry)
		return nil
	},
}

var getEntryCmd = &cobra.Command{
	Use:   "get [entry-id]",
	Short: "Get an entry by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		entry, err := store.GetEntry(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get entry: %w", err)
		}
		if entry == nil {
			return fmt.Errorf("entry not found: %s", args[0])
		}
		printEntry(cmd.OutOrStdout(), *entry)
		return nil
	},
}

var listEntriesCmd = &cobra.Command{
	Use:   "list",
	Short: "List entries",
	Long:  `List all entries, or the entries selected by one of --tag, --category or --from/--to.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tag, _ := cmd.Flags().GetString("tag")
		categoryStr, _ := cmd.Flags().GetString("category")
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")

		selectors := 0
		for _, set := range []bool{tag != "", categoryStr != "", from != "" || to != ""} {
			if set {
				selectors++
			}
		}
		if selectors > 1 {
			return errors.New("use at most one of --tag, --category or --from/--to")
		}
		if (from == "") != (to == "") {
			return errors.New("--from and --to must be given together")
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		var entries []journal.Entry
		switch {
		case tag != "":
			entries, err = store.GetEntriesByTag(cmd.Context(), tag)
		case categoryStr != "":
			category, parseErr := journal.ParseCategory(categoryStr)
			if parseErr != nil {
				return parseErr
			}
			entries, err = store.GetEntriesByCategory(cmd.Context(), category)
		case from != "":
			start, parseErr := parseDateFlag(from, false)
			if parseErr != nil {
				return parseErr
			}
			end, parseErr := parseDateFlag(to, true)
			if parseErr != nil {
				return parseErr
			}
			entries, err = store.GetEntriesByDateRange(cmd.Context(), start, end)
		default:
			entries, err = store.GetAllEntries(cmd.Context())
		}
		if err != nil {
			return fmt.Errorf("failed to list entries: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, "No entries found.")
			return nil
		}
		fmt.Fprintf(out, "Found %d entries:\n", len(entries))
		for _, entry := range entries {
			printEntrySummary(out, entry)
		}
		return nil
	},
}

var updateEntryCmd = &cobra.Command{
	Use:   "update [entry-id]",
	Short: "Update an entry",
	Long:  `Replace the content, tags or category of an entry. Flags that are not given keep their stored value.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var patch journal.Patch
		if cmd.Flags().Changed("content") {
			content, _ := cmd.Flags().GetString("content")
			patch.Content = journal.Some(content)
		}
		if cmd.Flags().Changed("tags") {
			tagsStr, _ := cmd.Flags().GetString("tags")
			patch.Tags = journal.Some(parseTagsFlag(tagsStr))
		}
		if cmd.Flags().Changed("category") {
			categoryStr, _ := cmd.Flags().GetString("category")
			category, err := journal.ParseCategory(categoryStr)
			if err != nil {
				return err
			}
			patch.Category = journal.Some(category)
		}
		if cmd.Flags().Changed("clear-emotion") {
			patch.EmotionAnalysis = journal.Some[*journal.EmotionAnalysis](nil)
		}
		if patch.IsEmpty() {
			return errors.New("no update fields provided (use --content, --tags, --category or --clear-emotion)")
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		updated, err := store.UpdateEntry(cmd.Context(), args[0], patch)
		if errors.Is(err, journal.ErrEntryNotFound) {
			return fmt.Errorf("entry not found: %s", args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to update entry: %w", err)
		}
		printEntry(cmd.OutOrStdout(), updated)
		return nil
	},
}

var deleteEntryCmd = &cobra.Command{
	Use:   "delete [entry-id]",
	Short: "Delete an entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.DeleteEntry(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete entry: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Entry %s deleted.\n", args[0])
		return nil
	},
}

var appendChatCmd = &cobra.Command{
	Use:   "append-chat [entry-id]",
	Short: "Append a chat turn to an entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roleStr, _ := cmd.Flags().GetString("role")
		message, _ := cmd.Flags().GetString("message")
		role := journal.Role(roleStr)
		if role != journal.RoleUser && role != journal.RoleAI {
			return fmt.Errorf("invalid role %q: use user or ai", roleStr)
		}
		if message == "" {
			return errors.New("message is required")
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		entry, err := store.GetEntry(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get entry: %w", err)
		}
		if entry == nil {
			return fmt.Errorf("entry not found: %s", args[0])
		}

		turns := append(entry.AIConversations, journal.AIConversation{
			ID:        utils.NewID(),
			Timestamp: utils.Now(),
			Role:      role,
			Message:   message,
		})
		updated, err := store.UpdateEntry(cmd.Context(), entry.ID, journal.Patch{AIConversations: journal.Some(turns)})
		if err != nil {
			return fmt.Errorf("failed to append chat turn: %w", err)
		}
		printEntry(cmd.OutOrStdout(), updated)
		return nil
	},
}

func initEntriesCmd() {
	createEntryCmd.Flags().String("content", "", "Entry content, or - to read from stdin (required)")
	createEntryCmd.Flags().String("tags", "", "Comma-separated list of tags")
	createEntryCmd.Flags().String("category", string(journal.CategoryOther), "Category: 仕事, プライベート, 学習 or その他")
	createEntryCmd.Flags().StringSlice("image", nil, "Image data URL to attach (repeatable)")
	createEntryCmd.MarkFlagRequired("content")

	listEntriesCmd.Flags().String("tag", "", "List entries carrying this tag")
	listEntriesCmd.Flags().String("category", "", "List entries in this category")
	listEntriesCmd.Flags().String("from", "", "Start of the creation date range (YYYY-MM-DD or RFC 3339)")
	listEntriesCmd.Flags().String("to", "", "End of the creation date range, inclusive")

	updateEntryCmd.Flags().String("content", "", "New content")
	updateEntryCmd.Flags().String("tags", "", "Comma-separated list replacing all tags; empty clears them")
	updateEntryCmd.Flags().String("category", "", "New category")
	updateEntryCmd.Flags().Bool("clear-emotion", false, "Remove the stored emotion analysis")

	appendChatCmd.Flags().String("role", string(journal.RoleUser), "Author of the turn: user or ai")
	appendChatCmd.Flags().String("message", "", "Text of the turn (required)")
	appendChatCmd.MarkFlagRequired("message")

	entriesCmd.AddCommand(createEntryCmd, getEntryCmd, listEntriesCmd, updateEntryCmd, deleteEntryCmd, appendChatCmd)
}
