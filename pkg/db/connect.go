package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.uber.org/zap"
)

// ErrUnavailable is returned when the storage engine cannot be initialized.
var ErrUnavailable = errors.New("storage unavailable")

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// validSyncModes lists the allowed values for the synchronous pragma.
var validSyncModes = map[string]bool{
	"OFF":    true,
	"NORMAL": true,
	"FULL":   true,
	"EXTRA":  true, // SQLite also supports EXTRA
}

// ValidSyncMode reports whether mode is an accepted synchronous pragma value.
// The empty string is accepted and leaves the SQLite default in place.
func ValidSyncMode(mode string) bool {
	return mode == "" || validSyncModes[strings.ToUpper(mode)]
}

// OpenDBConnection establishes a connection to a SQLite database with specified options.
// baseDSN is the initial data source name (e.g., file path).
// enableWAL sets the journal_mode to WAL if true.
// syncPragma sets the synchronous pragma (e.g., "OFF", "NORMAL", "FULL", "EXTRA").
//
// Foreign keys are enabled and transactions begin IMMEDIATE on every pooled
// connection, so a write transaction takes the write lock up front.
func OpenDBConnection(baseDSN string, enableWAL bool, syncPragma string) (*sql.DB, error) {
	params := url.Values{}
	params.Add("_foreign_keys", "on")
	params.Add("_busy_timeout", "5000")
	params.Add("_txlock", "immediate")

	if enableWAL && baseDSN != MemoryPath {
		params.Add("_journal_mode", "WAL")
	}

	if syncPragma != "" {
		ucSyncPragma := strings.ToUpper(syncPragma)
		if !validSyncModes[ucSyncPragma] {
			return nil, fmt.Errorf("invalid sync pragma value: %s. Must be one of OFF, NORMAL, FULL, EXTRA", syncPragma)
		}
		params.Add("_synchronous", ucSyncPragma)
	}

	constructedDSN := baseDSN
	if strings.Contains(baseDSN, "?") {
		constructedDSN += "&" + params.Encode()
	} else {
		constructedDSN += "?" + params.Encode()
	}

	db, err := sql.Open("sqlite3", constructedDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database with DSN '%s': %w", constructedDSN, err)
	}

	// Every connection to :memory: is a distinct database.
	if baseDSN == MemoryPath {
		db.SetMaxOpenConns(1)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database with DSN '%s': %w", constructedDSN, err)
	}

	return db, nil
}

// Options describes where and how the database is opened.
type Options struct {
	Path string
	WAL  bool
	Sync string
}

// Handle is the lifecycle object for the live database connection. Open is
// memoized: while a connection is live every call returns the same *sql.DB.
// After Close the next Open reinitializes from scratch.
type Handle struct {
	opts          Options
	targetVersion int64
	logger        *zap.Logger

	mu   sync.Mutex
	conn *sql.DB
}

// HandleOption configures a Handle.
type HandleOption func(*Handle)

// WithLogger sets the logger used for lifecycle and migration events.
func WithLogger(logger *zap.Logger) HandleOption {
	return func(h *Handle) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithTargetVersion overrides the schema version applied on open.
func WithTargetVersion(version int64) HandleOption {
	return func(h *Handle) {
		h.targetVersion = version
	}
}

// NewHandle creates a Handle. No connection is made until Open.
func NewHandle(opts Options, options ...HandleOption) *Handle {
	h := &Handle{
		opts:          opts,
		targetVersion: TargetSchemaVersion,
		logger:        zap.NewNop(),
	}
	for _, o := range options {
		o(h)
	}
	return h
}

// Path returns the configured database path.
func (h *Handle) Path() string {
	return h.opts.Path
}

// Open returns the live connection, opening the database and bringing its
// schema up to the target version if no connection is live yet.
// Failures wrap ErrUnavailable.
func (h *Handle) Open(ctx context.Context) (*sql.DB, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conn != nil {
		return h.conn, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if h.opts.Path == "" {
		return nil, fmt.Errorf("%w: database path is empty", ErrUnavailable)
	}

	conn, err := OpenDBConnection(h.opts.Path, h.opts.WAL, h.opts.Sync)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if err := UpgradeDB(h.logger, conn, h.opts.Path, h.targetVersion); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	h.logger.Debug("database opened",
		zap.String("path", h.opts.Path),
		zap.Bool("wal", h.opts.WAL),
		zap.String("sync", h.opts.Sync))
	h.conn = conn
	return conn, nil
}

// Close releases the live connection. Closing a closed handle is a no-op.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conn == nil {
		return nil
	}
	conn := h.conn
	h.conn = nil

	if h.opts.WAL && h.opts.Path != MemoryPath {
		// TRUNCATE mode waits for transactions and writes the WAL back to the main DB.
		if _, err := conn.Exec("PRAGMA wal_checkpoint(TRUNCATE);"); err != nil {
			h.logger.Warn("wal checkpoint failed during close", zap.Error(err))
		}
	}
	h.logger.Debug("database closed", zap.String("path", h.opts.Path))
	return conn.Close()
}

// Destroy closes the handle and removes the database files from disk.
func (h *Handle) Destroy() error {
	if err := h.Close(); err != nil {
		return err
	}
	if h.opts.Path == MemoryPath {
		return nil
	}
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(h.opts.Path + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove database file '%s': %w", h.opts.Path+suffix, err)
		}
	}
	return nil
}
