package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/channelintel/backend/internal/domain"
)

// UpsertMessage inserts a Message keyed by (channel_id, message_id),
// ignoring duplicates. Returns the surrogate ID, and ok=false if the
// message was already present (no row was inserted).
func (db *DB) UpsertMessage(ctx context.Context, m *domain.Message) (id string, ok bool, err error) {
	const q = `
		INSERT INTO messages (kind, channel_id, message_id, source_url, ts, text)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (channel_id, message_id) DO NOTHING
		RETURNING id`

	var pgID pgtype.UUID

	row := db.Pool.QueryRow(ctx, q, m.Kind, m.ChannelID, m.MessageID, m.SourceURL, m.Timestamp, SanitizeUTF8(m.Text))
	if scanErr := row.Scan(&pgID); scanErr != nil {
		if scanErr.Error() == "no rows in result set" {
			return "", false, nil
		}

		return "", false, fmt.Errorf("upsert message: %w", scanErr)
	}

	id = fromUUID(pgID)

	if len(m.ResolvedLinks) > 0 {
		if err := db.saveMessageLinks(ctx, id, m.ResolvedLinks); err != nil {
			return "", false, err
		}
	}

	return id, true, nil
}

func (db *DB) saveMessageLinks(ctx context.Context, messageID string, links []domain.ResolvedLink) error {
	const q = `INSERT INTO message_links (message_id, url, position) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`

	for i, l := range links {
		if _, err := db.Pool.Exec(ctx, q, toUUID(messageID), l.URL, i); err != nil {
			return fmt.Errorf("save message link: %w", err)
		}
	}

	return nil
}

// MessagesInWindow returns every Message with timestamp in [since,
// until), across all channels, ordered by timestamp ascending.
func (db *DB) MessagesInWindow(ctx context.Context, since, until time.Time) ([]domain.Message, error) {
	const q = `
		SELECT m.id, m.kind, m.channel_id, m.message_id, m.source_url, m.ts, m.text, m.processed, m.created_at
		FROM messages m
		WHERE m.ts >= $1 AND m.ts < $2
		ORDER BY m.ts ASC`

	rows, err := db.Pool.Query(ctx, q, since, until)
	if err != nil {
		return nil, fmt.Errorf("messages in window: %w", err)
	}
	defer rows.Close()

	var out []domain.Message

	for rows.Next() {
		var (
			m    domain.Message
			pgID pgtype.UUID
		)

		if err := rows.Scan(&pgID, &m.Kind, &m.ChannelID, &m.MessageID, &m.SourceURL, &m.Timestamp, &m.Text, &m.Processed, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}

		m.ID = fromUUID(pgID)
		out = append(out, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("messages in window: %w", err)
	}

	if err := db.attachLinks(ctx, out); err != nil {
		return nil, err
	}

	return out, nil
}

func (db *DB) attachLinks(ctx context.Context, messages []domain.Message) error {
	if len(messages) == 0 {
		return nil
	}

	ids := make([]pgtype.UUID, len(messages))
	idx := make(map[string]int, len(messages))

	for i, m := range messages {
		ids[i] = toUUID(m.ID)
		idx[m.ID] = i
	}

	const q = `
		SELECT ml.message_id, ml.url, COALESCE(ls.summary_text, '')
		FROM message_links ml
		LEFT JOIN link_summaries ls ON ls.url = ml.url
		WHERE ml.message_id = ANY($1)
		ORDER BY ml.message_id, ml.position`

	rows, err := db.Pool.Query(ctx, q, ids)
	if err != nil {
		return fmt.Errorf("attach links: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			pgMessageID  pgtype.UUID
			url, summary string
		)

		if err := rows.Scan(&pgMessageID, &url, &summary); err != nil {
			return fmt.Errorf("scan message link: %w", err)
		}

		i, found := idx[fromUUID(pgMessageID)]
		if !found {
			continue
		}

		messages[i].ResolvedLinks = append(messages[i].ResolvedLinks, domain.ResolvedLink{URL: url, Summary: summary})
	}

	return rows.Err()
}

// GetMessageByID returns a single Message, or apperr.ErrNotFound.
func (db *DB) GetMessageByID(ctx context.Context, id string) (*domain.Message, error) {
	const q = `
		SELECT id, kind, channel_id, message_id, source_url, ts, text, processed, created_at
		FROM messages WHERE id = $1`

	var (
		m    domain.Message
		pgID pgtype.UUID
	)

	if err := db.Pool.QueryRow(ctx, q, toUUID(id)).Scan(
		&pgID, &m.Kind, &m.ChannelID, &m.MessageID, &m.SourceURL, &m.Timestamp, &m.Text, &m.Processed, &m.CreatedAt,
	); err != nil {
		return nil, wrapNotFound(err, "get message by id")
	}

	m.ID = fromUUID(pgID)

	if err := db.attachLinks(ctx, []domain.Message{m}); err != nil {
		return nil, err
	}

	return &m, nil
}

// MarkMessagesProcessed flags the given message IDs as processed, used
// after a summarization pass consumes a window of messages.
func (db *DB) MarkMessagesProcessed(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pgIDs := make([]pgtype.UUID, len(ids))
	for i, id := range ids {
		pgIDs[i] = toUUID(id)
	}

	const q = `UPDATE messages SET processed = true WHERE id = ANY($1)`

	if _, err := db.Pool.Exec(ctx, q, pgIDs); err != nil {
		return fmt.Errorf("mark messages processed: %w", err)
	}

	return nil
}
