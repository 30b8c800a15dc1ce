package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/channelintel/backend/internal/domain"
)

// SaveTopicSummaries persists one period's worth of TopicSummary rows.
// Each topic is upserted by its unique topic string, matching the
// Insight overwrite-by-topic semantics used elsewhere in the store.
func (db *DB) SaveTopicSummaries(ctx context.Context, period domain.Period, topics []domain.TopicSummary) error {
	const q = `
		INSERT INTO topic_summaries (period, topic, metatopic, importance, summary, message_ids)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (topic) DO UPDATE SET
			period = EXCLUDED.period,
			metatopic = EXCLUDED.metatopic,
			importance = EXCLUDED.importance,
			summary = EXCLUDED.summary,
			message_ids = EXCLUDED.message_ids,
			created_at = now()`

	batch := &pgx.Batch{}

	for _, t := range topics {
		batch.Queue(q, string(period), t.Topic, t.Metatopic, t.Importance, SanitizeUTF8(t.Summary), t.MessageIDs)
	}

	br := db.Pool.SendBatch(ctx, batch)
	defer br.Close()

	for range topics {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("save topic summaries: %w", err)
		}
	}

	return nil
}

// TopicSummariesForPeriod returns the latest persisted TopicSummary rows
// for the given period, most important first, each with its Insight
// joined in when one exists.
func (db *DB) TopicSummariesForPeriod(ctx context.Context, period domain.Period) ([]domain.TopicSummary, error) {
	const q = `
		SELECT t.id, t.topic, t.metatopic, t.importance, t.summary, t.message_ids, t.created_at,
		       i.topic, COALESCE(i.analysis_summary, ''), COALESCE(i.stance, ''),
		       COALESCE(i.rationale_long, ''), COALESCE(i.rationale_short, ''),
		       COALESCE(i.rationale_neutral, ''), i.risks_and_watchouts, i.key_questions_for_user,
		       i.suggested_instruments_long, i.suggested_instruments_short, i.useful_resources,
		       COALESCE(i.created_at, t.created_at)
		FROM topic_summaries t
		LEFT JOIN insights i ON i.topic = t.topic
		WHERE t.period = $1
		ORDER BY t.importance DESC, t.created_at DESC`

	rows, err := db.Pool.Query(ctx, q, string(period))
	if err != nil {
		return nil, fmt.Errorf("topic summaries for period: %w", err)
	}
	defer rows.Close()

	var out []domain.TopicSummary

	for rows.Next() {
		var (
			t            domain.TopicSummary
			pgID         pgtype.UUID
			insightTopic *string
			ins          domain.Insight
			resourcesRaw []byte
		)

		if err := rows.Scan(
			&pgID, &t.Topic, &t.Metatopic, &t.Importance, &t.Summary, &t.MessageIDs, &t.CreatedAt,
			&insightTopic, &ins.AnalysisSummary, &ins.Stance, &ins.RationaleLong, &ins.RationaleShort,
			&ins.RationaleNeutral, &ins.RisksAndWatchouts, &ins.KeyQuestionsForUser,
			&ins.SuggestedInstrumentsLong, &ins.SuggestedInstrumentsShort, &resourcesRaw, &ins.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan topic summary: %w", err)
		}

		t.ID = fromUUID(pgID)

		if insightTopic != nil {
			ins.Topic = *insightTopic
			if err := decodeResources(resourcesRaw, &ins.UsefulResources); err != nil {
				return nil, fmt.Errorf("decode useful resources: %w", err)
			}

			t.Insight = &ins
		}

		out = append(out, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("topic summaries for period: %w", err)
	}

	return out, nil
}
