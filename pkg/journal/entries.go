package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/unowned-ai/nikki/pkg/utils"
)

const entryColumns = `e.id, e.content, e.tags, e.category, e.images, e.ai_conversations, e.emotion_analysis, e.created_at, e.updated_at`

const (
	createEntryStatement = `
	INSERT INTO entries (id, content, tags, category, images, ai_conversations, emotion_analysis, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	getEntryStatement = `
	SELECT ` + entryColumns + `
	FROM entries e
	WHERE e.id = ?
	`

	listEntriesStatement = `
	SELECT ` + entryColumns + `
	FROM entries e
	`

	listEntriesByDateRangeStatement = `
	SELECT ` + entryColumns + `
	FROM entries e
	WHERE e.created_at BETWEEN ? AND ?
	`

	listEntriesByTagStatement = `
	SELECT ` + entryColumns + `
	FROM entries e
	JOIN entry_tags et ON et.entry_id = e.id
	WHERE et.tag = ?
	`

	listEntriesByCategoryStatement = `
	SELECT ` + entryColumns + `
	FROM entries e
	WHERE e.category = ?
	`

	updateEntryStatement = `
	UPDATE entries
	SET content = ?, tags = ?, category = ?, images = ?, ai_conversations = ?, emotion_analysis = ?, updated_at = ?
	WHERE id = ?
	`

	deleteEntryStatement = `
	DELETE FROM entries
	WHERE id = ?
	`

	insertEntryTagStatement = `
	INSERT OR IGNORE INTO entry_tags (entry_id, tag)
	VALUES (?, ?)
	`

	deleteEntryTagsStatement = `
	DELETE FROM entry_tags
	WHERE entry_id = ?
	`
)

// AddEntry stores a new entry built from d and returns its assigned id.
func (s *Store) AddEntry(ctx context.Context, d Draft) (string, error) {
	if !d.Category.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, d.Category)
	}

	db, err := s.conn(ctx)
	if err != nil {
		return "", err
	}

	now := s.clock()
	entry := Entry{
		ID:              s.newID(),
		CreatedAt:       now,
		UpdatedAt:       now,
		Content:         d.Content,
		Tags:            slices.Clone(d.Tags),
		Category:        d.Category,
		Images:          slices.Clone(d.Images),
		AIConversations: slices.Clone(d.AIConversations),
		EmotionAnalysis: cloneEmotionAnalysis(d.EmotionAnalysis),
	}
	normalizeEntry(&entry)

	row, err := encodeEntry(entry)
	if err != nil {
		return "", err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(
		ctx,
		createEntryStatement,
		entry.ID,
		row.content,
		row.tags,
		row.category,
		row.images,
		row.aiConversations,
		row.emotionAnalysis,
		row.createdAt,
		row.updatedAt,
	)
	if err != nil {
		if isConstraintViolation(err) {
			s.logger.Warn("entry id collision", zap.String("id", entry.ID))
			return "", fmt.Errorf("%w: entry id %s already exists", ErrWriteConflict, entry.ID)
		}
		return "", fmt.Errorf("inserting entry: %w", err)
	}

	if err := insertEntryTags(ctx, tx, entry.ID, entry.Tags); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing entry: %w", err)
	}

	s.logger.Debug("entry added", zap.String("id", entry.ID), zap.Int("tags", len(entry.Tags)))
	return entry.ID, nil
}

// GetEntry returns the entry with the given id. A missing entry is reported
// as nil, nil.
func (s *Store) GetEntry(ctx context.Context, id string) (*Entry, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	entry, err := scanEntry(db.QueryRowContext(ctx, getEntryStatement, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting entry %s: %w", id, err)
	}
	return &entry, nil
}

// GetAllEntries returns every stored entry in no particular order.
func (s *Store) GetAllEntries(ctx context.Context) ([]Entry, error) {
	return s.queryEntries(ctx, listEntriesStatement)
}

// GetEntriesByDateRange returns the entries created in [start, end], both
// bounds inclusive. start after end yields no entries.
func (s *Store) GetEntriesByDateRange(ctx context.Context, start, end time.Time) ([]Entry, error) {
	return s.queryEntries(ctx, listEntriesByDateRangeStatement, utils.EncodeTime(start), utils.EncodeTime(end))
}

// GetEntriesByTag returns the entries whose tag set contains tag exactly.
func (s *Store) GetEntriesByTag(ctx context.Context, tag string) ([]Entry, error) {
	return s.queryEntries(ctx, listEntriesByTagStatement, tag)
}

// GetEntriesByCategory returns the entries in category.
func (s *Store) GetEntriesByCategory(ctx context.Context, category Category) ([]Entry, error) {
	return s.queryEntries(ctx, listEntriesByCategoryStatement, string(category))
}

// UpdateEntry merges p over the stored entry and returns the result.
// UpdatedAt always moves forward, even for an empty patch.
func (s *Store) UpdateEntry(ctx context.Context, id string, p Patch) (Entry, error) {
	if c, ok := p.Category.Get(); ok && !c.Valid() {
		return Entry{}, fmt.Errorf("%w: %q", ErrInvalidCategory, c)
	}

	db, err := s.conn(ctx)
	if err != nil {
		return Entry{}, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := scanEntry(tx.QueryRowContext(ctx, getEntryStatement, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Debug("update of missing entry", zap.String("id", id))
			return Entry{}, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
		}
		return Entry{}, fmt.Errorf("loading entry %s: %w", id, err)
	}

	updated := p.apply(existing)
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = utils.NextAfter(existing.UpdatedAt, s.clock())
	normalizeEntry(&updated)

	row, err := encodeEntry(updated)
	if err != nil {
		return Entry{}, err
	}

	res, err := tx.ExecContext(
		ctx,
		updateEntryStatement,
		row.content,
		row.tags,
		row.category,
		row.images,
		row.aiConversations,
		row.emotionAnalysis,
		row.updatedAt,
		id,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("updating entry %s: %w", id, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return Entry{}, err
	}
	if rowsAffected == 0 {
		return Entry{}, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}

	if p.Tags.IsSet() {
		if _, err := tx.ExecContext(ctx, deleteEntryTagsStatement, id); err != nil {
			return Entry{}, fmt.Errorf("clearing tags of entry %s: %w", id, err)
		}
		if err := insertEntryTags(ctx, tx, id, updated.Tags); err != nil {
			return Entry{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("committing entry %s: %w", id, err)
	}
	return updated, nil
}

// DeleteEntry removes the entry with the given id. Deleting a missing entry
// succeeds.
func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, deleteEntryTagsStatement, id); err != nil {
		return fmt.Errorf("deleting tags of entry %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, deleteEntryStatement, id); err != nil {
		return fmt.Errorf("deleting entry %s: %w", id, err)
	}
	return tx.Commit()
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]Entry, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entry rows: %w", err)
	}
	return entries, nil
}

func insertEntryTags(ctx context.Context, tx *sql.Tx, entryID string, tags []string) error {
	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx, insertEntryTagStatement, entryID, tag); err != nil {
			return fmt.Errorf("indexing tag %q of entry %s: %w", tag, entryID, err)
		}
	}
	return nil
}

// entryRow is the storage form of an Entry.
type entryRow struct {
	content         string
	tags            string
	category        string
	images          string
	aiConversations string
	emotionAnalysis sql.NullString
	createdAt       int64
	updatedAt       int64
}

func encodeEntry(e Entry) (entryRow, error) {
	row := entryRow{
		content:   e.Content,
		category:  string(e.Category),
		createdAt: utils.EncodeTime(e.CreatedAt),
		updatedAt: utils.EncodeTime(e.UpdatedAt),
	}

	var err error
	if row.tags, err = encodeJSON(e.Tags); err != nil {
		return entryRow{}, fmt.Errorf("encoding tags: %w", err)
	}
	if row.images, err = encodeJSON(e.Images); err != nil {
		return entryRow{}, fmt.Errorf("encoding images: %w", err)
	}
	if row.aiConversations, err = encodeJSON(e.AIConversations); err != nil {
		return entryRow{}, fmt.Errorf("encoding ai conversations: %w", err)
	}
	if e.EmotionAnalysis != nil {
		v, err := encodeJSON(e.EmotionAnalysis)
		if err != nil {
			return entryRow{}, fmt.Errorf("encoding emotion analysis: %w", err)
		}
		row.emotionAnalysis = sql.NullString{String: v, Valid: true}
	}
	return row, nil
}

func scanEntry(scanner rowScanner) (Entry, error) {
	var (
		entry Entry
		row   entryRow
	)
	err := scanner.Scan(
		&entry.ID,
		&row.content,
		&row.tags,
		&row.category,
		&row.images,
		&row.aiConversations,
		&row.emotionAnalysis,
		&row.createdAt,
		&row.updatedAt,
	)
	if err != nil {
		return Entry{}, err
	}

	entry.Content = row.content
	entry.Category = Category(row.category)
	entry.CreatedAt = utils.DecodeTime(row.createdAt)
	entry.UpdatedAt = utils.DecodeTime(row.updatedAt)

	if err := json.Unmarshal([]byte(row.tags), &entry.Tags); err != nil {
		return Entry{}, fmt.Errorf("decoding tags of entry %s: %w", entry.ID, err)
	}
	if err := json.Unmarshal([]byte(row.images), &entry.Images); err != nil {
		return Entry{}, fmt.Errorf("decoding images of entry %s: %w", entry.ID, err)
	}
	if err := json.Unmarshal([]byte(row.aiConversations), &entry.AIConversations); err != nil {
		return Entry{}, fmt.Errorf("decoding ai conversations of entry %s: %w", entry.ID, err)
	}
	if row.emotionAnalysis.Valid {
		var ea EmotionAnalysis
		if err := json.Unmarshal([]byte(row.emotionAnalysis.String), &ea); err != nil {
			return Entry{}, fmt.Errorf("decoding emotion analysis of entry %s: %w", entry.ID, err)
		}
		entry.EmotionAnalysis = &ea
	}

	normalizeEntry(&entry)
	return entry, nil
}

// normalizeEntry brings every timestamp, nested ones included, to the stored
// precision in UTC and replaces nil collections with empty ones.
func normalizeEntry(e *Entry) {
	e.CreatedAt = utils.NormalizeTime(e.CreatedAt)
	e.UpdatedAt = utils.NormalizeTime(e.UpdatedAt)
	if e.Tags == nil {
		e.Tags = []string{}
	}
	if e.Images == nil {
		e.Images = []string{}
	}
	if e.AIConversations == nil {
		e.AIConversations = []AIConversation{}
	}
	for i := range e.AIConversations {
		e.AIConversations[i].Timestamp = utils.NormalizeTime(e.AIConversations[i].Timestamp)
	}
	if e.EmotionAnalysis != nil {
		e.EmotionAnalysis.AnalyzedAt = utils.NormalizeTime(e.EmotionAnalysis.AnalyzedAt)
	}
}

func cloneEmotionAnalysis(ea *EmotionAnalysis) *EmotionAnalysis {
	if ea == nil {
		return nil
	}
	c := *ea
	return &c
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
