package show

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/lumen-core/internal/infrastructure/database"
)

// SQLiteStore keeps the document as the single row of show_document.
// The table is created by the embedded migrations.
type SQLiteStore struct {
	db *database.DB
}

// NewSQLiteStore wraps an open, migrated database.
func NewSQLiteStore(db *database.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Load returns the stored document or Default() when the table is empty.
func (s *SQLiteStore) Load(ctx context.Context) (*Document, error) {
	var body string
	err := s.db.QueryRowContext(ctx, "SELECT body FROM show_document WHERE id = 1").Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying show document: %w", err)
	}
	return Parse([]byte(body))
}

// Save upserts the document row.
func (s *SQLiteStore) Save(ctx context.Context, doc *Document) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO show_document (id, body, fingerprint, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			body = excluded.body,
			fingerprint = excluded.fingerprint,
			updated_at = excluded.updated_at`,
		string(data), Fingerprint(doc), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("saving show document: %w", err)
	}
	return nil
}
