package storage

import (
	"context"
	"fmt"
)

// SaveFeedback records a user-submitted feedback/question/bug report,
// per spec.md §6's POST /feedback contract.
func (db *DB) SaveFeedback(ctx context.Context, email, message, kind string) error {
	const q = `INSERT INTO feedback_submissions (email, message, type) VALUES ($1, $2, $3)`

	if _, err := db.Pool.Exec(ctx, q, email, SanitizeUTF8(message), kind); err != nil {
		return fmt.Errorf("save feedback: %w", err)
	}

	return nil
}

// SaveSubscriber records an email subscription and its optional
// source, ignoring duplicate emails.
func (db *DB) SaveSubscriber(ctx context.Context, email, source string) error {
	const q = `INSERT INTO subscribers (email, source) VALUES ($1, NULLIF($2, '')) ON CONFLICT (email) DO NOTHING`

	if _, err := db.Pool.Exec(ctx, q, email, source); err != nil {
		return fmt.Errorf("save subscriber: %w", err)
	}

	return nil
}
