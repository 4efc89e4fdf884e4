package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/gamenode/internal/proto"
	"github.com/vovakirdan/gamenode/internal/store"
)

// Schema creates the tables used by the store.
const Schema = `
CREATE TABLE IF NOT EXISTS card_data (
	id                   INTEGER PRIMARY KEY CHECK (id = 1),
	title_card_data      TEXT NOT NULL DEFAULT '',
	card_data            TEXT NOT NULL DEFAULT '',
	pack_data            TEXT NOT NULL DEFAULT '',
	restricted_list_data TEXT NOT NULL DEFAULT '',
	updated_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLiteStore implements store.CardStore for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ store.CardStore = (*SQLiteStore)(nil)

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, ApplySchema)
}

// ApplySchema creates missing tables.
func ApplySchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply schema without migrations.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Set connection pool limits before setup
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Run setup function (e.g., apply schema)
	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveCardData replaces the stored card data.
func (s *SQLiteStore) SaveCardData(ctx context.Context, data proto.CardData) error {
	query := `
		INSERT INTO card_data (id, title_card_data, card_data, pack_data, restricted_list_data, updated_at)
		VALUES (1, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			title_card_data = excluded.title_card_data,
			card_data = excluded.card_data,
			pack_data = excluded.pack_data,
			restricted_list_data = excluded.restricted_list_data,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		string(data.TitleCardData),
		string(data.CardData),
		string(data.PackData),
		string(data.RestrictedListData),
	)
	if err != nil {
		return fmt.Errorf("upsert card data: %w", err)
	}
	return nil
}

// LoadCardData returns the stored card data, or store.ErrNotFound.
func (s *SQLiteStore) LoadCardData(ctx context.Context) (proto.CardData, error) {
	query := `
		SELECT title_card_data, card_data, pack_data, restricted_list_data
		FROM card_data
		WHERE id = 1
	`
	var title, cards, packs, restricted string
	err := s.db.QueryRowContext(ctx, query).Scan(&title, &cards, &packs, &restricted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return proto.CardData{}, fmt.Errorf("card data: %w", store.ErrNotFound)
		}
		return proto.CardData{}, fmt.Errorf("query card data: %w", err)
	}

	return proto.CardData{
		TitleCardData:      raw(title),
		CardData:           raw(cards),
		PackData:           raw(packs),
		RestrictedListData: raw(restricted),
	}, nil
}

func raw(s string) json.RawMessage {
	if s == "" {
		return nil
	}
	return json.RawMessage(s)
}
