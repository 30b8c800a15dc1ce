package api

import "github.com/channelintel/backend/internal/domain"

type usefulResourceDTO struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

type insightDTO struct {
	Topic                     string              `json:"topic"`
	AnalysisSummary           string              `json:"analysis_summary"`
	Stance                    string              `json:"stance"`
	RationaleLong             string              `json:"rationale_long,omitempty"`
	RationaleShort            string              `json:"rationale_short,omitempty"`
	RationaleNeutral          string              `json:"rationale_neutral,omitempty"`
	RisksAndWatchouts         []string            `json:"risks_and_watchouts,omitempty"`
	KeyQuestionsForUser       []string            `json:"key_questions_for_user,omitempty"`
	SuggestedInstrumentsLong  []string            `json:"suggested_instruments_long,omitempty"`
	SuggestedInstrumentsShort []string            `json:"suggested_instruments_short,omitempty"`
	UsefulResources           []usefulResourceDTO `json:"useful_resources,omitempty"`
}

func insightToDTO(in *domain.Insight) *insightDTO {
	if in == nil {
		return nil
	}

	resources := make([]usefulResourceDTO, 0, len(in.UsefulResources))
	for _, r := range in.UsefulResources {
		resources = append(resources, usefulResourceDTO{URL: r.URL, Description: r.Description})
	}

	return &insightDTO{
		Topic:                     in.Topic,
		AnalysisSummary:           in.AnalysisSummary,
		Stance:                    string(in.Stance),
		RationaleLong:             in.RationaleLong,
		RationaleShort:            in.RationaleShort,
		RationaleNeutral:          in.RationaleNeutral,
		RisksAndWatchouts:         in.RisksAndWatchouts,
		KeyQuestionsForUser:       in.KeyQuestionsForUser,
		SuggestedInstrumentsLong:  in.SuggestedInstrumentsLong,
		SuggestedInstrumentsShort: in.SuggestedInstrumentsShort,
		UsefulResources:           resources,
	}
}

type topicSummaryDTO struct {
	ID         string      `json:"id"`
	Topic      string      `json:"topic"`
	Metatopic  string      `json:"metatopic"`
	Importance int         `json:"importance"`
	Summary    string      `json:"summary"`
	MessageIDs []int64     `json:"message_ids"`
	Insight    *insightDTO `json:"insight,omitempty"`
}

func topicSummaryToDTO(t domain.TopicSummary) topicSummaryDTO {
	return topicSummaryDTO{
		ID:         t.ID,
		Topic:      t.Topic,
		Metatopic:  t.Metatopic,
		Importance: t.Importance,
		Summary:    t.Summary,
		MessageIDs: t.MessageIDs,
		Insight:    insightToDTO(t.Insight),
	}
}

func topicSummariesToDTO(topics []domain.TopicSummary) []topicSummaryDTO {
	out := make([]topicSummaryDTO, 0, len(topics))
	for _, t := range topics {
		out = append(out, topicSummaryToDTO(t))
	}

	return out
}
