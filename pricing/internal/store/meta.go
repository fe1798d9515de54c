package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"campaign_pricing/pricing/internal/scarcity"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

const metaSchema = `
	CREATE TABLE IF NOT EXISTS product_meta (
		product_id  BIGINT NOT NULL,
		campaign_id BIGINT NOT NULL,
		field       TEXT   NOT NULL,
		value       TEXT   NOT NULL,
		PRIMARY KEY (product_id, campaign_id, field)
	)
`

// MetaStore keeps per product and campaign metadata such as scarcity
// baselines in a SQL table.
type MetaStore struct {
	db      *sql.DB
	dialect Dialect
}

func NewMetaStore(db *sql.DB, dialect Dialect) *MetaStore {
	return &MetaStore{db: db, dialect: dialect}
}

// OpenSQLite opens the single node metadata database at path.
func OpenSQLite(path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	// A single connection keeps :memory: databases shared.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}
	return db, nil
}

func (m *MetaStore) EnsureSchema(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, metaSchema); err != nil {
		return fmt.Errorf("failed to create product_meta: %w", err)
	}
	return nil
}

// bind rewrites $n placeholders for drivers that only take '?'.
func (m *MetaStore) bind(query string) string {
	if m.dialect != SQLite {
		return query
	}
	for i := 4; i >= 1; i-- {
		query = strings.ReplaceAll(query, fmt.Sprintf("$%d", i), "?")
	}
	return query
}

func (m *MetaStore) Get(ctx context.Context, key scarcity.MetaKey) (string, bool, error) {
	query := m.bind(`
		SELECT value FROM product_meta
		WHERE product_id = $1 AND campaign_id = $2 AND field = $3
	`)
	var value string
	err := m.db.QueryRowContext(ctx, query, key.ProductID, key.CampaignID, key.Field).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	} else if err != nil {
		return "", false, fmt.Errorf("failed to get meta %s: %w", key.Field, err)
	}
	return value, true, nil
}

func (m *MetaStore) Set(ctx context.Context, key scarcity.MetaKey, value string) error {
	query := m.bind(`
		INSERT INTO product_meta (product_id, campaign_id, field, value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (product_id, campaign_id, field)
		DO UPDATE SET value = EXCLUDED.value
	`)
	if _, err := m.db.ExecContext(ctx, query, key.ProductID, key.CampaignID, key.Field, value); err != nil {
		return fmt.Errorf("failed to set meta %s: %w", key.Field, err)
	}
	return nil
}

func (m *MetaStore) Delete(ctx context.Context, key scarcity.MetaKey) error {
	query := m.bind(`
		DELETE FROM product_meta
		WHERE product_id = $1 AND campaign_id = $2 AND field = $3
	`)
	if _, err := m.db.ExecContext(ctx, query, key.ProductID, key.CampaignID, key.Field); err != nil {
		return fmt.Errorf("failed to delete meta %s: %w", key.Field, err)
	}
	return nil
}
