package storage

import (
	"context"
	"fmt"

	"github.com/channelintel/backend/internal/domain"
)

// GetLinkSummary returns the cached summary for url, or
// apperr.ErrNotFound if it has never been resolved successfully.
func (db *DB) GetLinkSummary(ctx context.Context, url string) (*domain.LinkSummary, error) {
	const q = `SELECT url, summary_text, created_at, updated_at FROM link_summaries WHERE url = $1`

	var s domain.LinkSummary
	if err := db.Pool.QueryRow(ctx, q, url).Scan(&s.URL, &s.SummaryText, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, wrapNotFound(err, "get link summary")
	}

	return &s, nil
}

// UpsertLinkSummary caches a successful resolution. Failures are never
// passed to this method — only successful resolutions are cached, per
// the Link Resolver's caching contract.
func (db *DB) UpsertLinkSummary(ctx context.Context, url, summary string) error {
	const q = `
		INSERT INTO link_summaries (url, summary_text, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (url) DO UPDATE SET
			summary_text = EXCLUDED.summary_text,
			updated_at = now()`

	if _, err := db.Pool.Exec(ctx, q, url, SanitizeUTF8(summary)); err != nil {
		return fmt.Errorf("upsert link summary: %w", err)
	}

	return nil
}

// IncrementLinkAttempt records one more failed resolution attempt for
// url and returns the new attempt count. It never caches a summary.
func (db *DB) IncrementLinkAttempt(ctx context.Context, url string) (int, error) {
	const q = `
		INSERT INTO link_attempts (url, attempts, last_tried)
		VALUES ($1, 1, now())
		ON CONFLICT (url) DO UPDATE SET
			attempts = link_attempts.attempts + 1,
			last_tried = now()
		RETURNING attempts`

	var attempts int
	if err := db.Pool.QueryRow(ctx, q, url).Scan(&attempts); err != nil {
		return 0, fmt.Errorf("increment link attempt: %w", err)
	}

	return attempts, nil
}

// LinkAttemptCount returns the number of recorded failed attempts for
// url, or 0 if it has never failed.
func (db *DB) LinkAttemptCount(ctx context.Context, url string) (int, error) {
	const q = `SELECT attempts FROM link_attempts WHERE url = $1`

	var attempts int
	if err := db.Pool.QueryRow(ctx, q, url).Scan(&attempts); err != nil {
		if err.Error() == "no rows in result set" {
			return 0, nil
		}

		return 0, fmt.Errorf("link attempt count: %w", err)
	}

	return attempts, nil
}
