package search

import (
	"time"

	"github.com/xfeed/xfeed/internal/model"
)

// Mode selects which substrate(s) the planner reads from.
type Mode string

const (
	ModeLexical  Mode = "lexical"
	ModeSemantic Mode = "semantic"
	ModeHybrid   Mode = "hybrid"
)

// SortOrder selects how a Query's results are ordered. The zero value
// ("") behaves like SortRelevance.
type SortOrder string

const (
	SortRelevance  SortOrder = "relevance"
	SortDateAsc    SortOrder = "date_asc"
	SortDateDesc   SortOrder = "date_desc"
	SortEngagement SortOrder = "engagement"
)

// Query is one search request.
type Query struct {
	Text  string
	Mode  Mode
	Limit int
	// Offset skips this many results (after filtering and sorting)
	// before the Limit-sized page is taken.
	Offset int
	// Sort selects the result ordering. When it is anything other than
	// SortRelevance (or empty), relevance scores are discarded and the
	// filtered set is re-ordered by the requested key; ties are broken by
	// ascending (doc_type, doc_id).
	Sort SortOrder
	// Types restricts results to these doc types. Empty means all types.
	Types map[model.DocType]struct{}
	// SinceUnix/UntilUnix bound created_at, inclusive. Nil means unbounded.
	SinceUnix *int64
	UntilUnix *int64
}

// Result is one hydrated, display-ready search hit.
type Result struct {
	DocType   model.DocType  `json:"doc_type"`
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Text      string         `json:"text"`
	Score     float64        `json:"score"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Response wraps a page of results with the metadata a caller needs to
// explain how they were produced.
type Response struct {
	Query   string   `json:"query"`
	Mode    Mode     `json:"mode"`
	Results []Result `json:"results"`
	Total   int      `json:"total"`
}

// ConversationResult is one message in a DM conversation context view,
// annotated with whether it was itself a search hit.
type ConversationResult struct {
	Result
	IsMatch bool `json:"is_match"`
}

// ConversationBlock is the DM context-expansion output shape: one
// conversation's full message list, in order, with the messages that
// matched the originating query annotated via IsMatch.
type ConversationBlock struct {
	ConversationID string               `json:"conversation_id"`
	Messages       []ConversationResult `json:"messages"`
}
