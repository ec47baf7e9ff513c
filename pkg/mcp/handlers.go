package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/unowned-ai/nikki/pkg/journal"
	"github.com/unowned-ai/nikki/pkg/search"
	"github.com/unowned-ai/nikki/pkg/utils"
)

// RegisterPingTool registers the simple ping tool.
func RegisterPingTool(s *server.MCPServer) {
	pingTool := mcp.NewTool("ping",
		mcp.WithDescription("Responds with 'pong_nikki' to check if the Nikki MCP server is alive."),
	)
	s.AddTool(pingTool, pingHandler)
}

func pingHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText("pong_nikki"), nil
}

// RegisterCreateEntryTool registers the create_entry tool.
func RegisterCreateEntryTool(s *server.MCPServer, store *journal.Store, engine *search.Engine) {
	createEntryTool := mcp.NewTool("create_entry",
		mcp.WithDescription("Creates a new journal entry and returns its id."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Text of the entry.")),
		mcp.WithString("tags", mcp.Description("Optional comma-separated list of tags.")),
		mcp.WithString("category", mcp.DefaultString(string(journal.CategoryOther)), mcp.Description("One of 仕事, プライベート, 学習, その他. Defaults to その他.")),
	)
	s.AddTool(createEntryTool, createEntryHandler(store, engine))
}

func createEntryHandler(store *journal.Store, engine *search.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		content, contentOk := stringArg(request, "content")
		if !contentOk { // Content can be empty, but the parameter must exist
			return mcp.NewToolResultError("'content' parameter is required."), nil
		}
		tagsStr, _ := stringArg(request, "tags")
		category, _ := stringArg(request, "category")
		if category == "" {
			category = string(journal.CategoryOther)
		}

		id, err := store.AddEntry(ctx, journal.Draft{
			Content:  content,
			Tags:     parseTags(tagsStr),
			Category: journal.Category(category),
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to create entry: %v", err)), nil
		}
		engine.ClearCache()
		return jsonResult(map[string]string{"id": id}, "entry id"), nil
	}
}

// RegisterGetEntryTool registers the get_entry tool.
func RegisterGetEntryTool(s *server.MCPServer, store *journal.Store) {
	getEntryTool := mcp.NewTool("get_entry",
		mcp.WithDescription("Retrieves a journal entry by its id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Id of the entry.")),
	)
	s.AddTool(getEntryTool, getEntryHandler(store))
}

func getEntryHandler(store *journal.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, ok := stringArg(request, "id")
		if !ok || id == "" {
			return mcp.NewToolResultError("'id' parameter is required."), nil
		}

		entry, err := store.GetEntry(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Error retrieving entry '%s': %v", id, err)), nil
		}
		if entry == nil {
			return mcp.NewToolResultError(fmt.Sprintf("Entry '%s' not found.", id)), nil
		}
		return jsonResult(entry, "entry"), nil
	}
}

// RegisterListEntriesTool registers the list_entries tool.
func RegisterListEntriesTool(s *server.MCPServer, store *journal.Store) {
	listEntriesTool := mcp.NewTool("list_entries",
		mcp.WithDescription("Lists entries. At most one of tag, category or start/end selects an index; without any, all entries are listed."),
		mcp.WithString("tag", mcp.Description("Optional tag; lists entries carrying it.")),
		mcp.WithString("category", mcp.Description("Optional category; lists entries in it.")),
		mcp.WithString("start", mcp.Description("Optional RFC 3339 start of a creation date range (inclusive). Requires end.")),
		mcp.WithString("end", mcp.Description("Optional RFC 3339 end of a creation date range (inclusive). Requires start.")),
	)
	s.AddTool(listEntriesTool, listEntriesHandler(store))
}

func listEntriesHandler(store *journal.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tag, _ := stringArg(request, "tag")
		category, _ := stringArg(request, "category")
		start, hasStart, err := timeArg(request, "start")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		end, hasEnd, err := timeArg(request, "end")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if hasStart != hasEnd {
			return mcp.NewToolResultError("'start' and 'end' must be given together."), nil
		}

		selectors := 0
		for _, set := range []bool{tag != "", category != "", hasStart} {
			if set {
				selectors++
			}
		}
		if selectors > 1 {
			return mcp.NewToolResultError("Use at most one of 'tag', 'category' or 'start'/'end'."), nil
		}

		var entries []journal.Entry
		switch {
		case tag != "":
			entries, err = store.GetEntriesByTag(ctx, tag)
		case category != "":
			c, parseErr := journal.ParseCategory(category)
			if parseErr != nil {
				return mcp.NewToolResultError(parseErr.Error()), nil
			}
			entries, err = store.GetEntriesByCategory(ctx, c)
		case hasStart:
			entries, err = store.GetEntriesByDateRange(ctx, start, end)
		default:
			entries, err = store.GetAllEntries(ctx)
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to list entries: %v", err)), nil
		}
		return jsonResult(entries, "entries"), nil
	}
}

// RegisterUpdateEntryTool registers the update_entry tool.
func RegisterUpdateEntryTool(s *server.MCPServer, store *journal.Store, engine *search.Engine) {
	updateEntryTool := mcp.NewTool("update_entry",
		mcp.WithDescription("Updates the content, tags or category of an entry. Omitted fields are kept."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Id of the entry to update.")),
		mcp.WithString("content", mcp.Description("Optional new content.")),
		mcp.WithString("tags", mcp.Description("Optional comma-separated list replacing all tags. An empty string clears them.")),
		mcp.WithString("category", mcp.Description("Optional new category.")),
	)
	s.AddTool(updateEntryTool, updateEntryHandler(store, engine))
}

func updateEntryHandler(store *journal.Store, engine *search.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, ok := stringArg(request, "id")
		if !ok || id == "" {
			return mcp.NewToolResultError("'id' parameter is required."), nil
		}

		var patch journal.Patch
		if v, ok := stringArg(request, "content"); ok {
			patch.Content = journal.Some(v)
		}
		if v, ok := stringArg(request, "tags"); ok {
			patch.Tags = journal.Some(parseTags(v))
		}
		if v, ok := stringArg(request, "category"); ok {
			patch.Category = journal.Some(journal.Category(v))
		}
		if patch.IsEmpty() {
			return mcp.NewToolResultError("No update fields provided (use content, tags, or category)."), nil
		}

		return applyPatch(ctx, store, engine, id, patch), nil
	}
}

// RegisterDeleteEntryTool registers the delete_entry tool.
func RegisterDeleteEntryTool(s *server.MCPServer, store *journal.Store, engine *search.Engine) {
	deleteEntryTool := mcp.NewTool("delete_entry",
		mcp.WithDescription("Deletes an entry. Deleting an unknown id succeeds."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Id of the entry to delete.")),
	)
	s.AddTool(deleteEntryTool, deleteEntryHandler(store, engine))
}

func deleteEntryHandler(store *journal.Store, engine *search.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, ok := stringArg(request, "id")
		if !ok || id == "" {
			return mcp.NewToolResultError("'id' parameter is required."), nil
		}
		if err := store.DeleteEntry(ctx, id); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to delete entry '%s': %v", id, err)), nil
		}
		engine.ClearCache()
		return mcp.NewToolResultText(fmt.Sprintf("Entry '%s' deleted.", id)), nil
	}
}

// RegisterAppendConversationTool registers the append_conversation tool.
func RegisterAppendConversationTool(s *server.MCPServer, store *journal.Store, engine *search.Engine) {
	appendTool := mcp.NewTool("append_conversation",
		mcp.WithDescription("Appends one chat turn to an entry's AI conversation."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Id of the entry.")),
		mcp.WithString("role", mcp.Required(), mcp.Enum(string(journal.RoleUser), string(journal.RoleAI)), mcp.Description("Author of the turn: user or ai.")),
		mcp.WithString("message", mcp.Required(), mcp.Description("Text of the turn.")),
	)
	s.AddTool(appendTool, appendConversationHandler(store, engine))
}

func appendConversationHandler(store *journal.Store, engine *search.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, ok := stringArg(request, "id")
		if !ok || id == "" {
			return mcp.NewToolResultError("'id' parameter is required."), nil
		}
		role, _ := stringArg(request, "role")
		if role != string(journal.RoleUser) && role != string(journal.RoleAI) {
			return mcp.NewToolResultError("'role' must be 'user' or 'ai'."), nil
		}
		message, ok := stringArg(request, "message")
		if !ok || message == "" {
			return mcp.NewToolResultError("'message' parameter is required."), nil
		}

		entry, err := store.GetEntry(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Error retrieving entry '%s': %v", id, err)), nil
		}
		if entry == nil {
			return mcp.NewToolResultError(fmt.Sprintf("Entry '%s' not found.", id)), nil
		}

		turns := append(entry.AIConversations, journal.AIConversation{
			ID:        utils.NewID(),
			Timestamp: utils.Now(),
			Role:      journal.Role(role),
			Message:   message,
		})
		return applyPatch(ctx, store, engine, id, journal.Patch{AIConversations: journal.Some(turns)}), nil
	}
}

// RegisterSetEmotionAnalysisTool registers the set_emotion_analysis tool.
func RegisterSetEmotionAnalysisTool(s *server.MCPServer, store *journal.Store, engine *search.Engine) {
	emotionTool := mcp.NewTool("set_emotion_analysis",
		mcp.WithDescription("Stores the emotion analysis of an entry. Scores range from 0 to 100."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Id of the entry.")),
		mcp.WithNumber("positive", mcp.Required(), mcp.Description("Overall positive score.")),
		mcp.WithNumber("negative", mcp.Required(), mcp.Description("Overall negative score.")),
		mcp.WithNumber("joy", mcp.Description("Joy score.")),
		mcp.WithNumber("sadness", mcp.Description("Sadness score.")),
		mcp.WithNumber("anger", mcp.Description("Anger score.")),
		mcp.WithNumber("fear", mcp.Description("Fear score.")),
		mcp.WithNumber("surprise", mcp.Description("Surprise score.")),
	)
	s.AddTool(emotionTool, setEmotionAnalysisHandler(store, engine))
}

func setEmotionAnalysisHandler(store *journal.Store, engine *search.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, ok := stringArg(request, "id")
		if !ok || id == "" {
			return mcp.NewToolResultError("'id' parameter is required."), nil
		}
		positive, posOk := numberArg(request, "positive")
		negative, negOk := numberArg(request, "negative")
		if !posOk || !negOk {
			return mcp.NewToolResultError("'positive' and 'negative' parameters are required."), nil
		}

		analysis := &journal.EmotionAnalysis{
			Positive:   positive,
			Negative:   negative,
			AnalyzedAt: utils.Now(),
		}
		analysis.Emotions.Joy, _ = numberArg(request, "joy")
		analysis.Emotions.Sadness, _ = numberArg(request, "sadness")
		analysis.Emotions.Anger, _ = numberArg(request, "anger")
		analysis.Emotions.Fear, _ = numberArg(request, "fear")
		analysis.Emotions.Surprise, _ = numberArg(request, "surprise")

		return applyPatch(ctx, store, engine, id, journal.Patch{EmotionAnalysis: journal.Some(analysis)}), nil
	}
}

// RegisterSearchEntriesTool registers the search_entries tool.
func RegisterSearchEntriesTool(s *server.MCPServer, store *journal.Store, engine *search.Engine) {
	searchTool := mcp.NewTool("search_entries",
		mcp.WithDescription("Ranks all entries by fuzzy relevance to a query, then narrows them by tag, category and date range."),
		mcp.WithString("query", mcp.Description("Free text. Empty keeps every entry in stored order.")),
		mcp.WithString("tags", mcp.Description("Optional comma-separated tags; an entry needs at least one.")),
		mcp.WithString("category", mcp.Description("Optional category the entry must be in.")),
		mcp.WithString("start", mcp.Description("Optional RFC 3339 start of the creation date range (inclusive).")),
		mcp.WithString("end", mcp.Description("Optional RFC 3339 end of the creation date range (inclusive).")),
	)
	s.AddTool(searchTool, searchEntriesHandler(store, engine))
}

func searchEntriesHandler(store *journal.Store, engine *search.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, _ := stringArg(request, "query")
		tagsStr, _ := stringArg(request, "tags")
		category, _ := stringArg(request, "category")

		opts := search.FilterOptions{Tags: parseTags(tagsStr)}
		if category != "" {
			c, err := journal.ParseCategory(category)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			opts.Category = c
		}

		start, hasStart, err := timeArg(request, "start")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		end, hasEnd, err := timeArg(request, "end")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if hasStart != hasEnd {
			return mcp.NewToolResultError("'start' and 'end' must be given together."), nil
		}
		if hasStart {
			opts.DateRange = &search.DateRange{Start: start, End: end}
		}

		entries, err := store.GetAllEntries(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to load entries: %v", err)), nil
		}
		return jsonResult(engine.Combine(entries, query, opts), "search results"), nil
	}
}

// applyPatch updates an entry and renders the outcome as a tool result.
func applyPatch(ctx context.Context, store *journal.Store, engine *search.Engine, id string, patch journal.Patch) *mcp.CallToolResult {
	updated, err := store.UpdateEntry(ctx, id, patch)
	if err != nil {
		if errors.Is(err, journal.ErrEntryNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("Entry '%s' not found.", id))
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed to update entry '%s': %v", id, err))
	}
	engine.ClearCache()
	return jsonResult(updated, "updated entry")
}

// RegisterAllTools registers every nikki tool on s.
func RegisterAllTools(s *server.MCPServer, store *journal.Store, engine *search.Engine) {
	RegisterPingTool(s)
	RegisterCreateEntryTool(s, store, engine)
	RegisterGetEntryTool(s, store)
	RegisterListEntriesTool(s, store)
	RegisterUpdateEntryTool(s, store, engine)
	RegisterDeleteEntryTool(s, store, engine)
	RegisterAppendConversationTool(s, store, engine)
	RegisterSetEmotionAnalysisTool(s, store, engine)
	RegisterSearchEntriesTool(s, store, engine)
}
