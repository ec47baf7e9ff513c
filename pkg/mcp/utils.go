package mcp

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// stringArg returns a string argument and whether it was supplied as a string.
func stringArg(request mcp.CallToolRequest, name string) (string, bool) {
	v, ok := request.Params.Arguments[name].(string)
	return v, ok
}

// numberArg returns a numeric argument. JSON numbers arrive as float64.
func numberArg(request mcp.CallToolRequest, name string) (float64, bool) {
	v, ok := request.Params.Arguments[name].(float64)
	return v, ok
}

// timeArg parses an optional RFC 3339 argument.
func timeArg(request mcp.CallToolRequest, name string) (time.Time, bool, error) {
	s, ok := stringArg(request, name)
	if !ok || s == "" {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("'%s' must be an RFC 3339 timestamp: %w", name, err)
	}
	return t, true, nil
}

// parseTags splits a comma-separated tag list, dropping blanks.
func parseTags(tagsStr string) []string {
	tags := []string{}
	for _, tag := range strings.Split(tagsStr, ",") {
		t := strings.TrimSpace(tag)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// jsonResult serializes v as the text content of a tool result.
func jsonResult(v any, what string) *mcp.CallToolResult {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to serialize %s to JSON: %v", what, err))
	}
	return mcp.NewToolResultText(string(b))
}
