package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgdb "github.com/unowned-ai/nikki/pkg/db"
	"github.com/unowned-ai/nikki/pkg/journal"
)

func setupTestRouter(t *testing.T, opts ...journal.Option) (http.Handler, *journal.Store) {
	t.Helper()
	handle := pkgdb.NewHandle(pkgdb.Options{Path: filepath.Join(t.TempDir(), "nikki.db")})
	store := journal.NewStore(handle, opts...)
	t.Cleanup(func() { store.Close() })
	return NewRouter(NewAPIHandler(store, nil, nil)), store
}

func do(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func createEntry(t *testing.T, router http.Handler, draft journal.Draft) string {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/entries", draft)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[map[string]string](t, rec)["id"]
}

func TestHealthz(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := do(t, router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestEntryLifecycle(t *testing.T) {
	router, _ := setupTestRouter(t)

	id := createEntry(t, router, journal.Draft{Content: "最初の記録", Tags: []string{"テスト"}, Category: journal.CategoryStudy})
	require.NotEmpty(t, id)

	rec := do(t, router, http.MethodGet, "/entries/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entry := decode[journal.Entry](t, rec)
	assert.Equal(t, "最初の記録", entry.Content)

	rec = do(t, router, http.MethodPatch, "/entries/"+id, map[string]any{
		"id":         "hijack",
		"created_at": "2000-01-01T00:00:00Z",
		"content":    "書き直した",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[journal.Entry](t, rec)
	assert.Equal(t, id, updated.ID)
	assert.Equal(t, "書き直した", updated.Content)
	assert.True(t, updated.CreatedAt.Equal(entry.CreatedAt))
	assert.True(t, updated.UpdatedAt.After(entry.UpdatedAt))
	assert.Equal(t, []string{"テスト"}, updated.Tags)

	rec = do(t, router, http.MethodDelete, "/entries/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, router, http.MethodDelete, "/entries/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodGet, "/entries/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateEntry_Errors(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := do(t, router, http.MethodPost, "/entries", journal.Draft{Content: "x", Category: "趣味"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/entries", bytes.NewBufferString("{not json"))
	raw := httptest.NewRecorder()
	router.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestCreateEntry_WriteConflict(t *testing.T) {
	router, _ := setupTestRouter(t, journal.WithIDGenerator(func() string { return "same" }))

	createEntry(t, router, journal.Draft{Content: "a", Category: journal.CategoryOther})
	rec := do(t, router, http.MethodPost, "/entries", journal.Draft{Content: "b", Category: journal.CategoryOther})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateEntry_NotFound(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := do(t, router, http.MethodPatch, "/entries/missing", map[string]any{"content": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListEntries(t *testing.T) {
	router, _ := setupTestRouter(t)
	work := createEntry(t, router, journal.Draft{Content: "a", Tags: []string{"仕事"}, Category: journal.CategoryWork})
	private := createEntry(t, router, journal.Draft{Content: "b", Tags: []string{"健康"}, Category: journal.CategoryPrivate})

	ids := func(rec *httptest.ResponseRecorder) []string {
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		entries := decode[[]journal.Entry](t, rec)
		out := make([]string, len(entries))
		for i, e := range entries {
			out[i] = e.ID
		}
		return out
	}

	assert.ElementsMatch(t, []string{work, private}, ids(do(t, router, http.MethodGet, "/entries", nil)))
	assert.Equal(t, []string{work}, ids(do(t, router, http.MethodGet, "/entries?tag="+url.QueryEscape("仕事"), nil)))
	assert.Equal(t, []string{private}, ids(do(t, router, http.MethodGet, "/entries?category="+url.QueryEscape("プライベート"), nil)))

	q := url.Values{}
	q.Set("start", time.Now().Add(-time.Hour).UTC().Format(time.RFC3339))
	q.Set("end", time.Now().Add(time.Hour).UTC().Format(time.RFC3339))
	assert.ElementsMatch(t, []string{work, private}, ids(do(t, router, http.MethodGet, "/entries?"+q.Encode(), nil)))

	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/entries?tag=a&category="+url.QueryEscape("仕事"), nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/entries?start=2025-01-01T00:00:00Z", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/entries?category=nope", nil).Code)
}

func TestSearch(t *testing.T) {
	router, _ := setupTestRouter(t)
	work := createEntry(t, router, journal.Draft{
		Content:  "今日は仕事で大きな成果があった。",
		Tags:     []string{"仕事", "達成感"},
		Category: journal.CategoryWork,
	})
	private := createEntry(t, router, journal.Draft{
		Content:  "朝から気分が良い。",
		Tags:     []string{"健康", "運動"},
		Category: journal.CategoryPrivate,
	})

	get := func(q url.Values) []journal.Entry {
		rec := do(t, router, http.MethodGet, "/search?"+q.Encode(), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		return decode[[]journal.Entry](t, rec)
	}

	found := get(url.Values{"q": {"仕事"}})
	require.Len(t, found, 1)
	assert.Equal(t, work, found[0].ID)

	filtered := get(url.Values{"category": {"プライベート"}})
	require.Len(t, filtered, 1)
	assert.Equal(t, private, filtered[0].ID)

	assert.Empty(t, get(url.Values{"q": {"仕事"}, "category": {"プライベート"}}))
	assert.Len(t, get(url.Values{"tag": {"健康", "達成感"}}), 2)

	// Edits through the API are visible to the next search.
	rec := do(t, router, http.MethodPatch, "/entries/"+private, map[string]any{"content": "仕事の前に走った"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, get(url.Values{"q": {"仕事"}}), 2)

	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/search?category=nope", nil).Code)
}

func TestStorageUnavailable(t *testing.T) {
	store := journal.NewStore(pkgdb.NewHandle(pkgdb.Options{}))
	router := NewRouter(NewAPIHandler(store, nil, nil))

	assert.Equal(t, http.StatusServiceUnavailable, do(t, router, http.MethodGet, "/entries", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, router, http.MethodGet, "/search?q=x", nil).Code)
}

func TestWeeklySummaries(t *testing.T) {
	router, _ := setupTestRouter(t)
	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

	rec := do(t, router, http.MethodPut, "/summaries/weekly/w1", journal.WeeklySummary{
		WeekStart: start,
		WeekEnd:   start.AddDate(0, 0, 6),
		Summary:   "良い週",
		Themes:    []string{"健康"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "w1", decode[map[string]string](t, rec)["id"])

	rec = do(t, router, http.MethodGet, "/summaries/weekly/w1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "良い週", decode[journal.WeeklySummary](t, rec).Summary)

	rec = do(t, router, http.MethodGet, "/summaries/weekly", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]journal.WeeklySummary](t, rec), 1)

	rec = do(t, router, http.MethodPut, "/summaries/weekly/bad", journal.WeeklySummary{WeekStart: start, WeekEnd: start.AddDate(0, 0, -1)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, http.StatusNoContent, do(t, router, http.MethodDelete, "/summaries/weekly/w1", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/summaries/weekly/w1", nil).Code)
}

func TestMonthlySummaries(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := do(t, router, http.MethodPut, "/summaries/monthly/m1", journal.MonthlySummary{Month: "2025-01", Summary: "新年"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/summaries/monthly?month=2025-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summaries := decode[[]journal.MonthlySummary](t, rec)
	require.Len(t, summaries, 1)
	assert.Equal(t, "m1", summaries[0].ID)

	rec = do(t, router, http.MethodPut, "/summaries/monthly/m2", journal.MonthlySummary{Month: "January"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, http.StatusNoContent, do(t, router, http.MethodDelete, "/summaries/monthly/m1", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/summaries/monthly/m1", nil).Code)
}
