package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"rooneyform-scraper/models"
	"rooneyform-scraper/utils"
)

const listingColumns = 16

// PostgresWriter persists exported listings to PostgreSQL, keyed by listing UUID.
type PostgresWriter struct {
	db  *sql.DB
	ctx context.Context
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(ctx context.Context, dsn string, retry *utils.RetryConfig) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if err := retry.Do(ctx, "postgres-ping", func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	pw := &PostgresWriter{db: db, ctx: ctx}
	if err := pw.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.ExecContext(pw.ctx, `
		CREATE TABLE IF NOT EXISTS jersey_listings (
			uuid         UUID PRIMARY KEY,
			team         TEXT,
			brand        TEXT,
			season       TEXT,
			kit_type     TEXT,
			condition    TEXT,
			price        TEXT,
			size         TEXT,
			color        TEXT,
			features     TEXT,
			contacts     TEXT,
			hashtags     TEXT,
			photo_uuids  TEXT[]      NOT NULL DEFAULT '{}',
			post_url     TEXT        NOT NULL DEFAULT '',
			published_at TEXT        NOT NULL DEFAULT '',
			message_id   BIGINT      NOT NULL,
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_jersey_listings_team  ON jersey_listings(team);
		CREATE INDEX IF NOT EXISTS idx_jersey_listings_brand ON jersey_listings(brand);
	`)
	return err
}

// Write upserts listings in batches; a listing already stored under the same
// UUID is replaced by the newer export.
func (pw *PostgresWriter) Write(listings []*models.ListingRecord) (int, error) {
	const batchSize = 50

	written := 0
	for i := 0; i < len(listings); i += batchSize {
		end := i + batchSize
		if end > len(listings) {
			end = len(listings)
		}
		if err := pw.upsertBatch(listings[i:end]); err != nil {
			return written, fmt.Errorf("postgres: upsert: %w", err)
		}
		written += end - i
	}
	return written, nil
}

func (pw *PostgresWriter) upsertBatch(batch []*models.ListingRecord) error {
	args := make([]interface{}, 0, len(batch)*listingColumns)
	for _, l := range batch {
		args = append(args,
			l.UUID, l.Team, l.Brand, l.Season, l.KitType, l.Condition, l.Price,
			l.Size, l.Color, l.Features, l.Contacts, l.Hashtags,
			pq.Array(nonNil(l.PhotoIDs)), l.PostURL, l.Published, l.MessageID,
		)
	}
	_, err := pw.db.ExecContext(pw.ctx, upsertQuery(len(batch)), args...)
	return err
}

func upsertQuery(rows int) string {
	valueStrings := make([]string, 0, rows)
	for idx := 0; idx < rows; idx++ {
		base := idx * listingColumns
		placeholders := make([]string, listingColumns)
		for c := range placeholders {
			placeholders[c] = fmt.Sprintf("$%d", base+c+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
	}

	return fmt.Sprintf(`
		INSERT INTO jersey_listings (uuid, team, brand, season, kit_type, condition, price,
			size, color, features, contacts, hashtags, photo_uuids, post_url, published_at, message_id)
		VALUES %s
		ON CONFLICT (uuid) DO UPDATE SET
			team = EXCLUDED.team,
			brand = EXCLUDED.brand,
			season = EXCLUDED.season,
			kit_type = EXCLUDED.kit_type,
			condition = EXCLUDED.condition,
			price = EXCLUDED.price,
			size = EXCLUDED.size,
			color = EXCLUDED.color,
			features = EXCLUDED.features,
			contacts = EXCLUDED.contacts,
			hashtags = EXCLUDED.hashtags,
			photo_uuids = EXCLUDED.photo_uuids,
			post_url = EXCLUDED.post_url,
			published_at = EXCLUDED.published_at,
			message_id = EXCLUDED.message_id,
			updated_at = NOW()
	`, strings.Join(valueStrings, ","))
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

// FetchAll retrieves all stored listings, newest message first.
func (pw *PostgresWriter) FetchAll() ([]*models.ListingRecord, error) {
	ctx, cancel := context.WithTimeout(pw.ctx, 30*time.Second)
	defer cancel()

	rows, err := pw.db.QueryContext(ctx, `
		SELECT uuid, team, brand, season, kit_type, condition, price, size, color,
		       features, contacts, hashtags, photo_uuids, post_url, published_at, message_id
		FROM jersey_listings
		ORDER BY message_id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	defer rows.Close()

	var listings []*models.ListingRecord
	for rows.Next() {
		l := &models.ListingRecord{}
		if err := rows.Scan(
			&l.UUID, &l.Team, &l.Brand, &l.Season, &l.KitType, &l.Condition, &l.Price,
			&l.Size, &l.Color, &l.Features, &l.Contacts, &l.Hashtags,
			pq.Array(&l.PhotoIDs), &l.PostURL, &l.Published, &l.MessageID,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
