package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/unowned-ai/nikki/pkg/utils"
)

// MonthLayout is the format of MonthlySummary.Month.
const MonthLayout = "2006-01"

// WeeklySummary is a generated digest of one week of entries.
type WeeklySummary struct {
	ID           string          `json:"id"`
	WeekStart    time.Time       `json:"week_start"`
	WeekEnd      time.Time       `json:"week_end"`
	Summary      string          `json:"summary"`
	Themes       []string        `json:"themes"`
	EmotionTrend EmotionAnalysis `json:"emotion_trend"`
	GeneratedAt  time.Time       `json:"generated_at"`
}

// MonthlySummary is a generated digest of one calendar month.
type MonthlySummary struct {
	ID           string          `json:"id"`
	Month        string          `json:"month"`
	Summary      string          `json:"summary"`
	Themes       []string        `json:"themes"`
	EmotionTrend EmotionAnalysis `json:"emotion_trend"`
	GeneratedAt  time.Time       `json:"generated_at"`
}

const (
	weeklyColumns  = `id, week_start, week_end, summary, themes, emotion_trend, generated_at`
	monthlyColumns = `id, month, summary, themes, emotion_trend, generated_at`

	putWeeklySummaryStatement = `
	INSERT INTO weekly_summaries (` + weeklyColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		week_start = excluded.week_start,
		week_end = excluded.week_end,
		summary = excluded.summary,
		themes = excluded.themes,
		emotion_trend = excluded.emotion_trend,
		generated_at = excluded.generated_at
	`
	getWeeklySummaryStatement    = `SELECT ` + weeklyColumns + ` FROM weekly_summaries WHERE id = ?`
	listWeeklySummariesStatement = `SELECT ` + weeklyColumns + ` FROM weekly_summaries ORDER BY week_start ASC`
	listWeeklyByRangeStatement   = `SELECT ` + weeklyColumns + ` FROM weekly_summaries WHERE week_start BETWEEN ? AND ? ORDER BY week_start ASC`
	deleteWeeklySummaryStatement = `DELETE FROM weekly_summaries WHERE id = ?`

	putMonthlySummaryStatement = `
	INSERT INTO monthly_summaries (` + monthlyColumns + `)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		month = excluded.month,
		summary = excluded.summary,
		themes = excluded.themes,
		emotion_trend = excluded.emotion_trend,
		generated_at = excluded.generated_at
	`
	getMonthlySummaryStatement    = `SELECT ` + monthlyColumns + ` FROM monthly_summaries WHERE id = ?`
	listMonthlySummariesStatement = `SELECT ` + monthlyColumns + ` FROM monthly_summaries ORDER BY month ASC`
	listMonthlyByMonthStatement   = `SELECT ` + monthlyColumns + ` FROM monthly_summaries WHERE month = ? ORDER BY generated_at ASC`
	deleteMonthlySummaryStatement = `DELETE FROM monthly_summaries WHERE id = ?`
)

// PutWeeklySummary inserts or replaces ws and returns its id. An empty id is
// assigned; a zero GeneratedAt is set to the current time.
func (s *Store) PutWeeklySummary(ctx context.Context, ws WeeklySummary) (string, error) {
	if ws.WeekEnd.Before(ws.WeekStart) {
		return "", fmt.Errorf("%w: week end %s is before week start %s", ErrInvalidSummary, ws.WeekEnd, ws.WeekStart)
	}
	db, err := s.conn(ctx)
	if err != nil {
		return "", err
	}

	if ws.ID == "" {
		ws.ID = s.newID()
	}
	if ws.GeneratedAt.IsZero() {
		ws.GeneratedAt = s.clock()
	}
	themes, trend, err := encodeDigest(ws.Themes, ws.EmotionTrend)
	if err != nil {
		return "", err
	}

	_, err = db.ExecContext(ctx, putWeeklySummaryStatement,
		ws.ID,
		utils.EncodeTime(ws.WeekStart),
		utils.EncodeTime(ws.WeekEnd),
		ws.Summary,
		themes,
		trend,
		utils.EncodeTime(ws.GeneratedAt),
	)
	if err != nil {
		return "", fmt.Errorf("storing weekly summary %s: %w", ws.ID, err)
	}
	return ws.ID, nil
}

// GetWeeklySummary returns the weekly summary with the given id, or nil, nil.
func (s *Store) GetWeeklySummary(ctx context.Context, id string) (*WeeklySummary, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	ws, err := scanWeeklySummary(db.QueryRowContext(ctx, getWeeklySummaryStatement, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting weekly summary %s: %w", id, err)
	}
	return &ws, nil
}

// ListWeeklySummaries returns all weekly summaries ordered by week start.
func (s *Store) ListWeeklySummaries(ctx context.Context) ([]WeeklySummary, error) {
	return s.queryWeekly(ctx, listWeeklySummariesStatement)
}

// GetWeeklySummariesByRange returns weekly summaries whose week starts in [start, end].
func (s *Store) GetWeeklySummariesByRange(ctx context.Context, start, end time.Time) ([]WeeklySummary, error) {
	return s.queryWeekly(ctx, listWeeklyByRangeStatement, utils.EncodeTime(start), utils.EncodeTime(end))
}

// DeleteWeeklySummary removes a weekly summary. Missing ids are not an error.
func (s *Store) DeleteWeeklySummary(ctx context.Context, id string) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, deleteWeeklySummaryStatement, id); err != nil {
		return fmt.Errorf("deleting weekly summary %s: %w", id, err)
	}
	return nil
}

// PutMonthlySummary inserts or replaces ms and returns its id. Month must be
// in YYYY-MM form.
func (s *Store) PutMonthlySummary(ctx context.Context, ms MonthlySummary) (string, error) {
	if _, err := time.Parse(MonthLayout, ms.Month); err != nil {
		return "", fmt.Errorf("%w: month %q is not YYYY-MM", ErrInvalidSummary, ms.Month)
	}
	db, err := s.conn(ctx)
	if err != nil {
		return "", err
	}

	if ms.ID == "" {
		ms.ID = s.newID()
	}
	if ms.GeneratedAt.IsZero() {
		ms.GeneratedAt = s.clock()
	}
	themes, trend, err := encodeDigest(ms.Themes, ms.EmotionTrend)
	if err != nil {
		return "", err
	}

	_, err = db.ExecContext(ctx, putMonthlySummaryStatement,
		ms.ID,
		ms.Month,
		ms.Summary,
		themes,
		trend,
		utils.EncodeTime(ms.GeneratedAt),
	)
	if err != nil {
		return "", fmt.Errorf("storing monthly summary %s: %w", ms.ID, err)
	}
	return ms.ID, nil
}

// GetMonthlySummary returns the monthly summary with the given id, or nil, nil.
func (s *Store) GetMonthlySummary(ctx context.Context, id string) (*MonthlySummary, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	ms, err := scanMonthlySummary(db.QueryRowContext(ctx, getMonthlySummaryStatement, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting monthly summary %s: %w", id, err)
	}
	return &ms, nil
}

// ListMonthlySummaries returns all monthly summaries ordered by month.
func (s *Store) ListMonthlySummaries(ctx context.Context) ([]MonthlySummary, error) {
	return s.queryMonthly(ctx, listMonthlySummariesStatement)
}

// GetMonthlySummariesByMonth returns the summaries generated for month (YYYY-MM).
func (s *Store) GetMonthlySummariesByMonth(ctx context.Context, month string) ([]MonthlySummary, error) {
	return s.queryMonthly(ctx, listMonthlyByMonthStatement, month)
}

// DeleteMonthlySummary removes a monthly summary. Missing ids are not an error.
func (s *Store) DeleteMonthlySummary(ctx context.Context, id string) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, deleteMonthlySummaryStatement, id); err != nil {
		return fmt.Errorf("deleting monthly summary %s: %w", id, err)
	}
	return nil
}

func (s *Store) queryWeekly(ctx context.Context, query string, args ...any) ([]WeeklySummary, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying weekly summaries: %w", err)
	}
	defer rows.Close()

	summaries := []WeeklySummary{}
	for rows.Next() {
		ws, err := scanWeeklySummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning weekly summary: %w", err)
		}
		summaries = append(summaries, ws)
	}
	return summaries, rows.Err()
}

func (s *Store) queryMonthly(ctx context.Context, query string, args ...any) ([]MonthlySummary, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying monthly summaries: %w", err)
	}
	defer rows.Close()

	summaries := []MonthlySummary{}
	for rows.Next() {
		ms, err := scanMonthlySummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning monthly summary: %w", err)
		}
		summaries = append(summaries, ms)
	}
	return summaries, rows.Err()
}

func scanWeeklySummary(scanner rowScanner) (WeeklySummary, error) {
	var (
		ws                            WeeklySummary
		weekStart, weekEnd, generated int64
		themes, trend                 string
	)
	if err := scanner.Scan(&ws.ID, &weekStart, &weekEnd, &ws.Summary, &themes, &trend, &generated); err != nil {
		return WeeklySummary{}, err
	}
	ws.WeekStart = utils.DecodeTime(weekStart)
	ws.WeekEnd = utils.DecodeTime(weekEnd)
	ws.GeneratedAt = utils.DecodeTime(generated)

	var err error
	if ws.Themes, ws.EmotionTrend, err = decodeDigest(themes, trend); err != nil {
		return WeeklySummary{}, fmt.Errorf("decoding weekly summary %s: %w", ws.ID, err)
	}
	return ws, nil
}

func scanMonthlySummary(scanner rowScanner) (MonthlySummary, error) {
	var (
		ms            MonthlySummary
		generated     int64
		themes, trend string
	)
	if err := scanner.Scan(&ms.ID, &ms.Month, &ms.Summary, &themes, &trend, &generated); err != nil {
		return MonthlySummary{}, err
	}
	ms.GeneratedAt = utils.DecodeTime(generated)

	var err error
	if ms.Themes, ms.EmotionTrend, err = decodeDigest(themes, trend); err != nil {
		return MonthlySummary{}, fmt.Errorf("decoding monthly summary %s: %w", ms.ID, err)
	}
	return ms, nil
}

func encodeDigest(themes []string, trend EmotionAnalysis) (string, string, error) {
	if themes == nil {
		themes = []string{}
	}
	t, err := encodeJSON(slices.Clone(themes))
	if err != nil {
		return "", "", fmt.Errorf("encoding themes: %w", err)
	}
	trend.AnalyzedAt = utils.NormalizeTime(trend.AnalyzedAt)
	e, err := encodeJSON(trend)
	if err != nil {
		return "", "", fmt.Errorf("encoding emotion trend: %w", err)
	}
	return t, e, nil
}

func decodeDigest(themesJSON, trendJSON string) ([]string, EmotionAnalysis, error) {
	var (
		themes []string
		trend  EmotionAnalysis
	)
	if err := json.Unmarshal([]byte(themesJSON), &themes); err != nil {
		return nil, EmotionAnalysis{}, err
	}
	if err := json.Unmarshal([]byte(trendJSON), &trend); err != nil {
		return nil, EmotionAnalysis{}, err
	}
	if themes == nil {
		themes = []string{}
	}
	trend.AnalyzedAt = utils.NormalizeTime(trend.AnalyzedAt)
	return themes, trend, nil
}
