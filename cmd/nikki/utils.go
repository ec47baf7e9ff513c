package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unowned-ai/nikki/pkg/config"
	pkgdb "github.com/unowned-ai/nikki/pkg/db"
	"github.com/unowned-ai/nikki/pkg/journal"
	"github.com/unowned-ai/nikki/pkg/logging"
	"github.com/unowned-ai/nikki/pkg/search"
	"github.com/unowned-ai/nikki/pkg/utils"
)

var (
	dbPath     string
	walMode    bool
	syncMode   string
	configPath string

	cfg    *config.Config
	logger *zap.Logger
)

// loadSettings resolves the configuration: file, then environment, then
// explicitly set flags.
func loadSettings(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = utils.GetDefaultConfigPath()
	}

	loaded, err := config.Load(path)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		loaded.Database.Path = dbPath
	}
	if flags.Changed("wal") {
		loaded.Database.WAL = walMode
	}
	if flags.Changed("sync") {
		loaded.Database.Sync = syncMode
	}
	if err := loaded.Validate(); err != nil {
		return err
	}
	cfg = loaded

	logger, err = logging.New(cfg.Log.Level, cfg.Log.Development)
	return err
}

func openHandle() (*pkgdb.Handle, error) {
	path, err := utils.ResolveAndEnsureDBPath(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	return pkgdb.NewHandle(pkgdb.Options{
		Path: path,
		WAL:  cfg.Database.WAL,
		Sync: cfg.Database.Sync,
	}, pkgdb.WithLogger(logger)), nil
}

func openStore() (*journal.Store, error) {
	handle, err := openHandle()
	if err != nil {
		return nil, err
	}
	return journal.NewStore(handle, journal.WithLogger(logger)), nil
}

func newEngine() (*search.Engine, error) {
	scorer, err := search.NewScorer(cfg.Search.Scorer, cfg.Search.Threshold)
	if err != nil {
		return nil, err
	}
	return search.NewEngine(search.WithScorer(scorer), search.WithLogger(logger)), nil
}

func parseTagsFlag(tagsStr string) []string {
	tags := []string{}
	for _, tag := range strings.Split(tagsStr, ",") {
		if t := strings.TrimSpace(tag); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// parseDateFlag accepts RFC 3339 or a plain date. A plain end date covers
// the whole day.
func parseDateFlag(value string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD or RFC 3339", value)
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-utils.TimestampPrecision)
	}
	return t, nil
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.RFC3339)
}

func formatTagsList(tags []string) string {
	if len(tags) == 0 {
		return "none"
	}
	return strings.Join(tags, ", ")
}

func printEntry(w io.Writer, entry journal.Entry) {
	fmt.Fprintln(w, "Entry Details:")
	fmt.Fprintf(w, "ID:         %s\n", entry.ID)
	fmt.Fprintf(w, "Category:   %s\n", entry.Category)
	fmt.Fprintf(w, "Tags:       %s\n", formatTagsList(entry.Tags))
	fmt.Fprintf(w, "Images:     %d\n", len(entry.Images))
	fmt.Fprintf(w, "Created At: %s\n", formatTimestamp(entry.CreatedAt))
	fmt.Fprintf(w, "Updated At: %s\n", formatTimestamp(entry.UpdatedAt))
	if ea := entry.EmotionAnalysis; ea != nil {
		fmt.Fprintf(w, "Emotion:    +%.0f / -%.0f (joy %.0f, sadness %.0f, anger %.0f, fear %.0f, surprise %.0f)\n",
			ea.Positive, ea.Negative, ea.Emotions.Joy, ea.Emotions.Sadness, ea.Emotions.Anger, ea.Emotions.Fear, ea.Emotions.Surprise)
	}
	fmt.Fprintln(w, "\nContent:")
	fmt.Fprintln(w, "------------------------------------------------------------")
	fmt.Fprintln(w, entry.Content)
	fmt.Fprintln(w, "------------------------------------------------------------")
	if len(entry.AIConversations) > 0 {
		fmt.Fprintln(w, "Conversation:")
		for _, turn := range entry.AIConversations {
			fmt.Fprintf(w, "  [%s] %s: %s\n", formatTimestamp(turn.Timestamp), turn.Role, turn.Message)
		}
	}
}

func printEntrySummary(w io.Writer, entry journal.Entry) {
	fmt.Fprintf(w, "- %s  %s  [%s]  %s\n", entry.ID, formatTimestamp(entry.CreatedAt), entry.Category, preview(entry.Content, 40))
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}

func readAll(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\n"), nil
}
