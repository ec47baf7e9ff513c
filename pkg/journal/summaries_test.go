package journal

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWeeklySummaries(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	weekStart := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	ws := WeeklySummary{
		WeekStart: weekStart,
		WeekEnd:   weekStart.AddDate(0, 0, 6),
		Summary:   "仕事が忙しい一週間だった",
		Themes:    []string{"仕事", "健康"},
		EmotionTrend: EmotionAnalysis{
			Positive:   60,
			Negative:   40,
			Emotions:   Emotions{Joy: 50},
			AnalyzedAt: weekStart.Add(time.Hour),
		},
	}

	id, err := store.PutWeeklySummary(ctx, ws)
	if err != nil {
		t.Fatalf("PutWeeklySummary failed: %v", err)
	}
	if id == "" {
		t.Fatalf("Expected an assigned id")
	}

	got, err := store.GetWeeklySummary(ctx, id)
	if err != nil {
		t.Fatalf("GetWeeklySummary failed: %v", err)
	}
	if got == nil {
		t.Fatalf("Expected weekly summary %s to exist", id)
	}
	if !got.WeekStart.Equal(ws.WeekStart) || !got.WeekEnd.Equal(ws.WeekEnd) {
		t.Errorf("Week bounds mismatch: got %s..%s", got.WeekStart, got.WeekEnd)
	}
	if got.Summary != ws.Summary || len(got.Themes) != 2 {
		t.Errorf("Summary content mismatch: %+v", got)
	}
	if got.GeneratedAt.IsZero() {
		t.Errorf("Expected GeneratedAt to be defaulted")
	}
	if !got.EmotionTrend.AnalyzedAt.Equal(ws.EmotionTrend.AnalyzedAt) || got.EmotionTrend.Emotions.Joy != 50 {
		t.Errorf("Emotion trend mismatch: %+v", got.EmotionTrend)
	}

	// Putting with the same id replaces the record.
	got.Summary = "書き直した"
	if _, err := store.PutWeeklySummary(ctx, *got); err != nil {
		t.Fatalf("PutWeeklySummary replace failed: %v", err)
	}
	all, err := store.ListWeeklySummaries(ctx)
	if err != nil {
		t.Fatalf("ListWeeklySummaries failed: %v", err)
	}
	if len(all) != 1 || all[0].Summary != "書き直した" {
		t.Errorf("Expected one replaced summary, got %+v", all)
	}

	next := ws
	next.WeekStart = weekStart.AddDate(0, 0, 7)
	next.WeekEnd = next.WeekStart.AddDate(0, 0, 6)
	nextID, err := store.PutWeeklySummary(ctx, next)
	if err != nil {
		t.Fatalf("PutWeeklySummary failed: %v", err)
	}

	inRange, err := store.GetWeeklySummariesByRange(ctx, next.WeekStart, next.WeekEnd)
	if err != nil {
		t.Fatalf("GetWeeklySummariesByRange failed: %v", err)
	}
	if len(inRange) != 1 || inRange[0].ID != nextID {
		t.Errorf("Expected only the second week in range, got %+v", inRange)
	}

	if err := store.DeleteWeeklySummary(ctx, id); err != nil {
		t.Fatalf("DeleteWeeklySummary failed: %v", err)
	}
	if err := store.DeleteWeeklySummary(ctx, id); err != nil {
		t.Fatalf("second DeleteWeeklySummary failed: %v", err)
	}
	missing, err := store.GetWeeklySummary(ctx, id)
	if err != nil || missing != nil {
		t.Errorf("Expected nil, nil after delete, got %+v, %v", missing, err)
	}
}

func TestPutWeeklySummary_InvertedWeek(t *testing.T) {
	store := setupTestStore(t)

	start := time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC)
	_, err := store.PutWeeklySummary(context.Background(), WeeklySummary{WeekStart: start, WeekEnd: start.AddDate(0, 0, -1)})
	if !errors.Is(err, ErrInvalidSummary) {
		t.Fatalf("Expected ErrInvalidSummary, got: %v", err)
	}
}

func TestMonthlySummaries(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	janID, err := store.PutMonthlySummary(ctx, MonthlySummary{Month: "2025-01", Summary: "新年", Themes: []string{"目標"}})
	if err != nil {
		t.Fatalf("PutMonthlySummary failed: %v", err)
	}
	if _, err := store.PutMonthlySummary(ctx, MonthlySummary{Month: "2025-02", Summary: "寒い"}); err != nil {
		t.Fatalf("PutMonthlySummary failed: %v", err)
	}

	jan, err := store.GetMonthlySummary(ctx, janID)
	if err != nil {
		t.Fatalf("GetMonthlySummary failed: %v", err)
	}
	if jan == nil || jan.Month != "2025-01" || jan.Summary != "新年" {
		t.Fatalf("Unexpected monthly summary: %+v", jan)
	}

	all, err := store.ListMonthlySummaries(ctx)
	if err != nil {
		t.Fatalf("ListMonthlySummaries failed: %v", err)
	}
	if len(all) != 2 || all[0].Month != "2025-01" || all[1].Month != "2025-02" {
		t.Errorf("Expected summaries ordered by month, got %+v", all)
	}
	if all[1].Themes == nil {
		t.Errorf("Expected empty themes to decode as an empty slice")
	}

	feb, err := store.GetMonthlySummariesByMonth(ctx, "2025-02")
	if err != nil {
		t.Fatalf("GetMonthlySummariesByMonth failed: %v", err)
	}
	if len(feb) != 1 || feb[0].Summary != "寒い" {
		t.Errorf("Expected the February summary, got %+v", feb)
	}

	if err := store.DeleteMonthlySummary(ctx, janID); err != nil {
		t.Fatalf("DeleteMonthlySummary failed: %v", err)
	}
	if got, err := store.GetMonthlySummary(ctx, janID); err != nil || got != nil {
		t.Errorf("Expected nil, nil after delete, got %+v, %v", got, err)
	}
}

func TestPutMonthlySummary_InvalidMonth(t *testing.T) {
	store := setupTestStore(t)

	for _, month := range []string{"", "2025-13", "2025/01", "January"} {
		_, err := store.PutMonthlySummary(context.Background(), MonthlySummary{Month: month})
		if !errors.Is(err, ErrInvalidSummary) {
			t.Errorf("Month %q: expected ErrInvalidSummary, got %v", month, err)
		}
	}
}
