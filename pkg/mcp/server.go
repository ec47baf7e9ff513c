package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	nikkipkg "github.com/unowned-ai/nikki/pkg"
	pkgdb "github.com/unowned-ai/nikki/pkg/db"
	"github.com/unowned-ai/nikki/pkg/journal"
	"github.com/unowned-ai/nikki/pkg/search"
)

type NikkiMCPServer struct {
	mcpServer *server.MCPServer
	handle    *pkgdb.Handle
	store     *journal.Store
	engine    *search.Engine
	logger    *zap.Logger
}

// NewNikkiMCPServer builds an MCP server on top of handle and registers every
// tool. The database is opened, and migrated if needed, before returning.
func NewNikkiMCPServer(ctx context.Context, handle *pkgdb.Handle, engine *search.Engine, logger *zap.Logger) (*NikkiMCPServer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if engine == nil {
		engine = search.NewEngine(search.WithLogger(logger))
	}

	if _, err := handle.Open(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize database '%s': %w", handle.Path(), err)
	}

	s := server.NewMCPServer(
		"Nikki MCP Server",
		nikkipkg.Version,
		server.WithToolCapabilities(false),
		server.WithLogging(),
		server.WithRecovery(),
	)

	store := journal.NewStore(handle, journal.WithLogger(logger))
	RegisterAllTools(s, store, engine)

	return &NikkiMCPServer{
		mcpServer: s,
		handle:    handle,
		store:     store,
		engine:    engine,
		logger:    logger,
	}, nil
}

// Start runs the stdio event loop.
func (s *NikkiMCPServer) Start() error {
	s.logger.Info("serving MCP over stdio", zap.String("db", s.handle.Path()))
	return server.ServeStdio(s.mcpServer)
}

// Store returns the journal store the tools operate on.
func (s *NikkiMCPServer) Store() *journal.Store {
	return s.store
}

// MCPRawServer exposes the raw mcp-go server (useful for additional configuration).
func (s *NikkiMCPServer) MCPRawServer() *server.MCPServer {
	return s.mcpServer
}

// Close releases the database handle.
func (s *NikkiMCPServer) Close() error {
	return s.handle.Close()
}
