package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/channelintel/backend/internal/domain"
)

// UpsertSource inserts a Source keyed by URL, or updates its name/kind/
// category if the URL is already tracked. Returns the surrogate ID.
func (db *DB) UpsertSource(ctx context.Context, s *domain.Source) (string, error) {
	const q = `
		INSERT INTO sources (url, name, kind, category)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (url) DO UPDATE SET
			name = EXCLUDED.name,
			kind = EXCLUDED.kind,
			category = EXCLUDED.category
		RETURNING id`

	var id pgtype.UUID
	if err := db.Pool.QueryRow(ctx, q, s.URL, SanitizeUTF8(s.Name), s.Kind, s.Category).Scan(&id); err != nil {
		return "", fmt.Errorf("upsert source: %w", err)
	}

	return fromUUID(id), nil
}

// ListSources returns every tracked Source, ordered by creation time.
func (db *DB) ListSources(ctx context.Context) ([]domain.Source, error) {
	const q = `SELECT id, url, name, kind, category, created_at FROM sources ORDER BY created_at ASC`

	rows, err := db.Pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var out []domain.Source

	for rows.Next() {
		var (
			s  domain.Source
			id pgtype.UUID
		)

		if err := rows.Scan(&id, &s.URL, &s.Name, &s.Kind, &s.Category, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}

		s.ID = fromUUID(id)
		out = append(out, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	return out, nil
}

// GetSourceByURL returns the Source tracked under url, or
// apperr.ErrNotFound if none exists.
func (db *DB) GetSourceByURL(ctx context.Context, url string) (*domain.Source, error) {
	const q = `SELECT id, url, name, kind, category, created_at FROM sources WHERE url = $1`

	var (
		s  domain.Source
		id pgtype.UUID
	)

	if err := db.Pool.QueryRow(ctx, q, url).Scan(&id, &s.URL, &s.Name, &s.Kind, &s.Category, &s.CreatedAt); err != nil {
		return nil, wrapNotFound(err, "get source by url")
	}

	s.ID = fromUUID(id)

	return &s, nil
}
