package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/channelintel/backend/internal/domain"
)

// UpsertInsight persists an Insight, overwriting any prior row for the
// same Topic string. This is the overwrite-by-topic idempotence the
// Insights Generator relies on: re-running an analysis for a topic
// replaces its previous insight rather than accumulating duplicates.
func (db *DB) UpsertInsight(ctx context.Context, in *domain.Insight) error {
	resources, err := json.Marshal(in.UsefulResources)
	if err != nil {
		return fmt.Errorf("marshal useful resources: %w", err)
	}

	const q = `
		INSERT INTO insights (
			topic, analysis_summary, stance, rationale_long, rationale_short, rationale_neutral,
			risks_and_watchouts, key_questions_for_user, suggested_instruments_long,
			suggested_instruments_short, useful_resources, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6,
			COALESCE($7::text[], '{}'), COALESCE($8::text[], '{}'),
			COALESCE($9::text[], '{}'), COALESCE($10::text[], '{}'), $11, now())
		ON CONFLICT (topic) DO UPDATE SET
			analysis_summary = EXCLUDED.analysis_summary,
			stance = EXCLUDED.stance,
			rationale_long = EXCLUDED.rationale_long,
			rationale_short = EXCLUDED.rationale_short,
			rationale_neutral = EXCLUDED.rationale_neutral,
			risks_and_watchouts = EXCLUDED.risks_and_watchouts,
			key_questions_for_user = EXCLUDED.key_questions_for_user,
			suggested_instruments_long = EXCLUDED.suggested_instruments_long,
			suggested_instruments_short = EXCLUDED.suggested_instruments_short,
			useful_resources = EXCLUDED.useful_resources,
			created_at = now()`

	if _, err := db.Pool.Exec(ctx, q,
		in.Topic, SanitizeUTF8(in.AnalysisSummary), string(in.Stance), in.RationaleLong, in.RationaleShort,
		in.RationaleNeutral, in.RisksAndWatchouts, in.KeyQuestionsForUser, in.SuggestedInstrumentsLong,
		in.SuggestedInstrumentsShort, resources,
	); err != nil {
		return fmt.Errorf("upsert insight: %w", err)
	}

	return nil
}

// GetInsightByTopic returns the Insight stored for topic, or
// apperr.ErrNotFound.
func (db *DB) GetInsightByTopic(ctx context.Context, topic string) (*domain.Insight, error) {
	const q = `
		SELECT topic, analysis_summary, stance, rationale_long, rationale_short, rationale_neutral,
		       risks_and_watchouts, key_questions_for_user, suggested_instruments_long,
		       suggested_instruments_short, useful_resources, created_at
		FROM insights WHERE topic = $1`

	var (
		in  domain.Insight
		raw []byte
	)

	if err := db.Pool.QueryRow(ctx, q, topic).Scan(
		&in.Topic, &in.AnalysisSummary, &in.Stance, &in.RationaleLong, &in.RationaleShort, &in.RationaleNeutral,
		&in.RisksAndWatchouts, &in.KeyQuestionsForUser, &in.SuggestedInstrumentsLong, &in.SuggestedInstrumentsShort,
		&raw, &in.CreatedAt,
	); err != nil {
		return nil, wrapNotFound(err, "get insight by topic")
	}

	if err := decodeResources(raw, &in.UsefulResources); err != nil {
		return nil, fmt.Errorf("decode useful resources: %w", err)
	}

	return &in, nil
}

func decodeResources(raw []byte, out *[]domain.UsefulResource) error {
	if len(raw) == 0 {
		*out = nil
		return nil
	}

	return json.Unmarshal(raw, out)
}
