package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/unowned-ai/nikki/pkg/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the nikki MCP server (stdio)",
	Long: `Start a Model Context Protocol (MCP) server that exposes nikki entries
and search as MCP tools via STDIO.

If --db is not provided, a system-specific default location is used:
- Windows: %APPDATA%\nikki\nikki.db
- macOS: ~/Library/Application Support/nikki/nikki.db
- Linux: ~/.local/share/nikki/nikki.db

Example:

  nikki mcp --db nikki.db 2> server.log`,
	RunE: func(cmd *cobra.Command, args []string) error {
		handle, err := openHandle()
		if err != nil {
			return err
		}
		engine, err := newEngine()
		if err != nil {
			return err
		}

		srv, err := mcp.NewNikkiMCPServer(cmd.Context(), handle, engine, logger)
		if err != nil {
			return err
		}
		defer srv.Close()

		// Log to stderr so we don't contaminate the JSON-RPC stream on stdout.
		fmt.Fprintf(os.Stderr, "nikki MCP server started. DB: %s\n", handle.Path())
		fmt.Fprintln(os.Stderr, "Available tools: ping, create_entry, get_entry, list_entries, update_entry, delete_entry, append_conversation, set_emotion_analysis, search_entries")
		fmt.Fprintln(os.Stderr, "Listening for MCP JSON-RPC on STDIN/STDOUT ... (Ctrl+C to quit)")

		return srv.Start()
	},
}
