package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgdb "github.com/unowned-ai/nikki/pkg/db"
	"github.com/unowned-ai/nikki/pkg/journal"
	"github.com/unowned-ai/nikki/pkg/search"
)

func setupTestStore(t *testing.T) (*journal.Store, *search.Engine) {
	t.Helper()
	handle := pkgdb.NewHandle(pkgdb.Options{Path: filepath.Join(t.TempDir(), "nikki.db")})
	store := journal.NewStore(handle)
	t.Cleanup(func() { store.Close() })
	return store, search.NewEngine()
}

func callTool(t *testing.T, handler server.ToolHandlerFunc, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	var request mcp.CallToolRequest
	request.Params.Arguments = args
	result, err := handler(context.Background(), request)
	require.NoError(t, err, "tool handlers report failures as tool errors")
	require.NotNil(t, result)
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

func createViaTool(t *testing.T, store *journal.Store, engine *search.Engine, args map[string]interface{}) string {
	t.Helper()
	result := callTool(t, createEntryHandler(store, engine), args)
	require.False(t, result.IsError, resultText(t, result))

	var created map[string]string
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &created))
	require.NotEmpty(t, created["id"])
	return created["id"]
}

func TestPingHandler(t *testing.T) {
	result, err := pingHandler(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.Equal(t, "pong_nikki", resultText(t, result))
}

func TestCreateAndGetEntry(t *testing.T) {
	store, engine := setupTestStore(t)

	id := createViaTool(t, store, engine, map[string]interface{}{
		"content":  "今日は仕事で大きな成果があった",
		"tags":     "仕事, 達成感,,",
		"category": "仕事",
	})

	result := callTool(t, getEntryHandler(store), map[string]interface{}{"id": id})
	require.False(t, result.IsError)

	var entry journal.Entry
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &entry))
	assert.Equal(t, id, entry.ID)
	assert.Equal(t, []string{"仕事", "達成感"}, entry.Tags)
	assert.Equal(t, journal.CategoryWork, entry.Category)
}

func TestCreateEntry_DefaultsAndErrors(t *testing.T) {
	store, engine := setupTestStore(t)

	id := createViaTool(t, store, engine, map[string]interface{}{"content": "メモ"})
	entry, err := store.GetEntry(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, journal.CategoryOther, entry.Category)
	assert.Empty(t, entry.Tags)

	result := callTool(t, createEntryHandler(store, engine), map[string]interface{}{})
	assert.True(t, result.IsError)

	result = callTool(t, createEntryHandler(store, engine), map[string]interface{}{"content": "x", "category": "趣味"})
	assert.True(t, result.IsError)
}

func TestGetEntry_NotFound(t *testing.T) {
	store, _ := setupTestStore(t)

	result := callTool(t, getEntryHandler(store), map[string]interface{}{"id": "missing"})
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "not found")
}

func TestListEntries(t *testing.T) {
	store, engine := setupTestStore(t)
	work := createViaTool(t, store, engine, map[string]interface{}{"content": "a", "tags": "仕事", "category": "仕事"})
	private := createViaTool(t, store, engine, map[string]interface{}{"content": "b", "tags": "健康", "category": "プライベート"})

	decode := func(result *mcp.CallToolResult) []string {
		require.False(t, result.IsError, resultText(t, result))
		var entries []journal.Entry
		require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &entries))
		ids := make([]string, len(entries))
		for i, e := range entries {
			ids[i] = e.ID
		}
		return ids
	}

	assert.ElementsMatch(t, []string{work, private}, decode(callTool(t, listEntriesHandler(store), nil)))
	assert.Equal(t, []string{work}, decode(callTool(t, listEntriesHandler(store), map[string]interface{}{"tag": "仕事"})))
	assert.Equal(t, []string{private}, decode(callTool(t, listEntriesHandler(store), map[string]interface{}{"category": "プライベート"})))
	assert.ElementsMatch(t, []string{work, private}, decode(callTool(t, listEntriesHandler(store), map[string]interface{}{
		"start": "2000-01-01T00:00:00Z",
		"end":   "2100-01-01T00:00:00Z",
	})))

	assert.True(t, callTool(t, listEntriesHandler(store), map[string]interface{}{"tag": "仕事", "category": "仕事"}).IsError)
	assert.True(t, callTool(t, listEntriesHandler(store), map[string]interface{}{"start": "2000-01-01T00:00:00Z"}).IsError)
	assert.True(t, callTool(t, listEntriesHandler(store), map[string]interface{}{"start": "yesterday", "end": "today"}).IsError)
}

func TestUpdateEntry(t *testing.T) {
	store, engine := setupTestStore(t)
	id := createViaTool(t, store, engine, map[string]interface{}{"content": "before", "tags": "a,b", "category": "学習"})

	result := callTool(t, updateEntryHandler(store, engine), map[string]interface{}{"id": id, "content": "after"})
	require.False(t, result.IsError, resultText(t, result))

	var updated journal.Entry
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &updated))
	assert.Equal(t, "after", updated.Content)
	assert.Equal(t, []string{"a", "b"}, updated.Tags, "absent tags argument keeps tags")
	assert.Equal(t, journal.CategoryStudy, updated.Category)

	result = callTool(t, updateEntryHandler(store, engine), map[string]interface{}{"id": id, "tags": ""})
	require.False(t, result.IsError)
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &updated))
	assert.Empty(t, updated.Tags)

	assert.True(t, callTool(t, updateEntryHandler(store, engine), map[string]interface{}{"id": id}).IsError)
	assert.True(t, callTool(t, updateEntryHandler(store, engine), map[string]interface{}{"id": "missing", "content": "x"}).IsError)
}

func TestDeleteEntry(t *testing.T) {
	store, engine := setupTestStore(t)
	id := createViaTool(t, store, engine, map[string]interface{}{"content": "bye"})

	for i := 0; i < 2; i++ {
		result := callTool(t, deleteEntryHandler(store, engine), map[string]interface{}{"id": id})
		assert.False(t, result.IsError)
	}
	entry, err := store.GetEntry(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestAppendConversation(t *testing.T) {
	store, engine := setupTestStore(t)
	id := createViaTool(t, store, engine, map[string]interface{}{"content": "chat"})

	for _, turn := range []map[string]interface{}{
		{"id": id, "role": "user", "message": "今日はどうだった？"},
		{"id": id, "role": "ai", "message": "楽しかったです"},
	} {
		result := callTool(t, appendConversationHandler(store, engine), turn)
		require.False(t, result.IsError, resultText(t, result))
	}

	entry, err := store.GetEntry(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, entry.AIConversations, 2)
	assert.Equal(t, journal.RoleUser, entry.AIConversations[0].Role)
	assert.Equal(t, "楽しかったです", entry.AIConversations[1].Message)
	assert.NotEqual(t, entry.AIConversations[0].ID, entry.AIConversations[1].ID)

	assert.True(t, callTool(t, appendConversationHandler(store, engine), map[string]interface{}{"id": id, "role": "bot", "message": "x"}).IsError)
	assert.True(t, callTool(t, appendConversationHandler(store, engine), map[string]interface{}{"id": "missing", "role": "ai", "message": "x"}).IsError)
}

func TestSetEmotionAnalysis(t *testing.T) {
	store, engine := setupTestStore(t)
	id := createViaTool(t, store, engine, map[string]interface{}{"content": "嬉しい"})

	result := callTool(t, setEmotionAnalysisHandler(store, engine), map[string]interface{}{
		"id":       id,
		"positive": float64(90),
		"negative": float64(10),
		"joy":      float64(80),
	})
	require.False(t, result.IsError, resultText(t, result))

	entry, err := store.GetEntry(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, entry.EmotionAnalysis)
	assert.Equal(t, 90.0, entry.EmotionAnalysis.Positive)
	assert.Equal(t, 80.0, entry.EmotionAnalysis.Emotions.Joy)
	assert.False(t, entry.EmotionAnalysis.AnalyzedAt.IsZero())

	assert.True(t, callTool(t, setEmotionAnalysisHandler(store, engine), map[string]interface{}{"id": id, "positive": "high"}).IsError)
}

func TestSearchEntries(t *testing.T) {
	store, engine := setupTestStore(t)
	work := createViaTool(t, store, engine, map[string]interface{}{
		"content":  "今日は仕事で大きな成果があった。",
		"tags":     "仕事,達成感",
		"category": "仕事",
	})
	createViaTool(t, store, engine, map[string]interface{}{
		"content":  "朝から気分が良い。",
		"tags":     "健康,運動",
		"category": "プライベート",
	})

	run := func(args map[string]interface{}) []journal.Entry {
		result := callTool(t, searchEntriesHandler(store, engine), args)
		require.False(t, result.IsError, resultText(t, result))
		var entries []journal.Entry
		require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &entries))
		return entries
	}

	found := run(map[string]interface{}{"query": "仕事"})
	require.Len(t, found, 1)
	assert.Equal(t, work, found[0].ID)

	assert.Empty(t, run(map[string]interface{}{"query": "仕事", "category": "プライベート"}))
	assert.Len(t, run(map[string]interface{}{}), 2)
	assert.Len(t, run(map[string]interface{}{"tags": "運動"}), 1)

	// A later write is visible to the next search.
	late := createViaTool(t, store, engine, map[string]interface{}{"content": "仕事の打ち合わせ", "category": "仕事"})
	found = run(map[string]interface{}{"query": "仕事"})
	require.Len(t, found, 2)
	assert.Contains(t, []string{found[0].ID, found[1].ID}, late)

	assert.True(t, callTool(t, searchEntriesHandler(store, engine), map[string]interface{}{"category": "趣味"}).IsError)
}

func TestNewNikkiMCPServer(t *testing.T) {
	handle := pkgdb.NewHandle(pkgdb.Options{Path: filepath.Join(t.TempDir(), "nikki.db")})
	srv, err := NewNikkiMCPServer(context.Background(), handle, nil, nil)
	require.NoError(t, err)
	defer srv.Close()

	assert.NotNil(t, srv.MCPRawServer())
	assert.NotNil(t, srv.Store())

	_, err = NewNikkiMCPServer(context.Background(), pkgdb.NewHandle(pkgdb.Options{}), nil, nil)
	assert.Error(t, err)
}
