package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	pkgdb "github.com/unowned-ai/nikki/pkg/db"
	"github.com/unowned-ai/nikki/pkg/utils"
)

var (
	// ErrStorageUnavailable means the storage engine could not be initialized.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrEntryNotFound is returned by UpdateEntry for an unknown id.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrWriteConflict is returned when a generated id collides with a stored record.
	ErrWriteConflict = errors.New("write conflict")
	// ErrInvalidCategory is returned for a category outside the enumeration.
	ErrInvalidCategory = errors.New("invalid category")
	// ErrInvalidSummary is returned for a summary that cannot be stored as given.
	ErrInvalidSummary = errors.New("invalid summary")
)

// Store persists journal entries and summaries. Every operation resolves the
// live connection through the handle, so the store keeps working across a
// Close/Open cycle of the handle.
type Store struct {
	handle *pkgdb.Handle
	newID  utils.IDGenerator
	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithIDGenerator replaces the id generator.
func WithIDGenerator(gen utils.IDGenerator) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates a Store on top of handle.
func NewStore(handle *pkgdb.Handle, opts ...Option) *Store {
	s := &Store{
		handle: handle,
		newID:  utils.NewID,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Close releases the live connection. A later operation reopens it.
func (s *Store) Close() error {
	return s.handle.Close()
}

func (s *Store) conn(ctx context.Context) (*sql.DB, error) {
	conn, err := s.handle.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return conn, nil
}

func (s *Store) clock() time.Time {
	return utils.NormalizeTime(s.now())
}

// isConstraintViolation reports whether err is a primary key or unique
// constraint failure.
func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
