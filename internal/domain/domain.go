// Package domain holds the shared value types passed between the
// ingestion, clustering, summarization, and insight-generation
// components.
package domain

import "time"

// Source is a URL-addressable channel tracked by the system.
type Source struct {
	ID        string
	URL       string
	Name      string
	Kind      string
	Category  string
	CreatedAt time.Time
}

// Message is a single timestamped payload fetched from a Source.
type Message struct {
	ID             string
	Kind           string
	ChannelID      string
	MessageID      string
	SourceURL      string
	Timestamp      time.Time
	Text           string
	ResolvedLinks  []ResolvedLink
	Processed      bool
	CreatedAt      time.Time
}

// ResolvedLink is the short textual summary of a URL extracted from a
// Message, cached by URL in LinkSummary.
type ResolvedLink struct {
	URL     string
	Summary string
}

// LinkSummary is the persisted, content-addressed cache entry for a URL.
type LinkSummary struct {
	URL         string
	SummaryText string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Stance enumerates the six permitted values of an Insight's Stance
// field.
type Stance string

const (
	StanceLong               Stance = "long"
	StanceShort              Stance = "short"
	StanceLongNeutral        Stance = "long-neutral"
	StanceShortNeutral       Stance = "short-neutral"
	StanceNeutral            Stance = "neutral"
	StanceNoActionableInsight Stance = "no-actionable-insight"
)

// ValidStances lists every permitted Stance value, in the canonical
// order used for schema enums sent to the model.
var ValidStances = []Stance{
	StanceLong,
	StanceShort,
	StanceLongNeutral,
	StanceShortNeutral,
	StanceNeutral,
	StanceNoActionableInsight,
}

// IsValid reports whether s is one of ValidStances.
func (s Stance) IsValid() bool {
	for _, v := range ValidStances {
		if v == s {
			return true
		}
	}

	return false
}

// TopicSummary is a model-produced grouping of messages with a label and
// importance rating.
type TopicSummary struct {
	ID          string
	Topic       string
	Metatopic   string
	Importance  int
	Summary     string
	MessageIDs  []int64
	CreatedAt   time.Time
	Insight     *Insight
}

// UsefulResource is a single {url, description} pair referenced by an
// Insight.
type UsefulResource struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

// Insight is the structured analytical record attached to a
// TopicSummary by its Topic string.
type Insight struct {
	Topic                     string           `json:"topic"`
	AnalysisSummary           string           `json:"analysis_summary"`
	Stance                    Stance           `json:"stance"`
	RationaleLong             string           `json:"rationale_long,omitempty"`
	RationaleShort            string           `json:"rationale_short,omitempty"`
	RationaleNeutral          string           `json:"rationale_neutral,omitempty"`
	RisksAndWatchouts         []string         `json:"risks_and_watchouts,omitempty"`
	KeyQuestionsForUser       []string         `json:"key_questions_for_user,omitempty"`
	SuggestedInstrumentsLong  []string         `json:"suggested_instruments_long,omitempty"`
	SuggestedInstrumentsShort []string         `json:"suggested_instruments_short,omitempty"`
	UsefulResources           []UsefulResource `json:"useful_resources,omitempty"`
	CreatedAt                 time.Time        `json:"-"`
}

// Channel is a single entry from a Telegram data export, or a partition
// member returned by the Clusterer.
type Channel struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	URL             string     `json:"url,omitempty"`
	LastMessageDate *time.Time `json:"last_message_date,omitempty"`
	Left            bool       `json:"left,omitempty"`
}

// ChannelTopicGroup is one partition group returned by the Clusterer: a
// labeled topic, its detected language, and the member channels.
type ChannelTopicGroup struct {
	Topic    string    `json:"topic"`
	Language string    `json:"language"`
	Channels []Channel `json:"channels"`
}

// ProgressEvent describes the state of a long-running job at a point in
// time. Zero value means "no error, nothing processed yet."
type ProgressEvent struct {
	ProcessedChannels int    `json:"processedChannels"`
	TotalChannels     int    `json:"totalChannels"`
	CurrentChannel    string `json:"currentChannel"`
	Error             string `json:"error,omitempty"`
}

// Period is one of the three supported summarization windows.
type Period string

const (
	Period1Day  Period = "1d"
	Period2Days Period = "2d"
	Period1Week Period = "1w"
)

// Duration returns the time.Duration a Period spans, or false if p is
// not one of the recognized values.
func (p Period) Duration() (time.Duration, bool) {
	switch p {
	case Period1Day:
		return 24 * time.Hour, true
	case Period2Days:
		return 48 * time.Hour, true
	case Period1Week:
		return 7 * 24 * time.Hour, true
	default:
		return 0, false
	}
}
