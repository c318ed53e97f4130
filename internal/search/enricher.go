package search

import (
	"context"
	"database/sql"
	"time"

	"github.com/xfeed/xfeed/internal/model"
	"github.com/xfeed/xfeed/internal/storage"
)

// Enricher hydrates (doc_type, doc_id) pairs into display-ready Results by
// joining against the relational store.
type Enricher struct {
	store *storage.Store
}

// NewEnricher returns an Enricher backed by store.
func NewEnricher(store *storage.Store) *Enricher {
	return &Enricher{store: store}
}

// hydrate loads one record and attaches score. ok is false (with a nil
// error) when the id is in the keyword or vector index but has since
// been deleted from the relational store — this is a substrate skew that
// the caller should skip over rather than fail the whole query on.
func (e *Enricher) hydrate(ctx context.Context, docType model.DocType, docID string, score float64) (Result, bool, error) {
	rec, ok, err := e.store.GetRecord(ctx, docType, docID)
	if err != nil {
		return Result{}, false, err
	}
	if !ok {
		return Result{}, false, nil
	}
	return Result{
		DocType:   docType,
		ID:        docID,
		CreatedAt: nullTimeToTime(rec.CreatedAt),
		Text:      rec.Text,
		Score:     score,
		Metadata:  rec.Metadata,
	}, true, nil
}

// Hydrate is the exported single-record form, for callers outside this
// package that need to hydrate one record outside of a ranked search. It
// reports a score of 0.
func (e *Enricher) Hydrate(ctx context.Context, docType model.DocType, docID string) (Result, bool, error) {
	return e.hydrate(ctx, docType, docID, 0)
}

// Conversation loads every message in a DM conversation ordered by
// created_at, annotating which ones are in matchIDs.
func (e *Enricher) Conversation(ctx context.Context, conversationID string, matchIDs map[string]struct{}) ([]ConversationResult, error) {
	msgs, err := e.store.ConversationMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	out := make([]ConversationResult, 0, len(msgs))
	for _, m := range msgs {
		_, isMatch := matchIDs[m.ID]
		out = append(out, ConversationResult{
			Result: Result{
				DocType:   m.DocType,
				ID:        m.ID,
				CreatedAt: nullTimeToTime(m.CreatedAt),
				Text:      m.Text,
				Metadata:  m.Metadata,
			},
			IsMatch: isMatch,
		})
	}
	return out, nil
}

func nullTimeToTime(n sql.NullInt64) time.Time {
	if n.Valid {
		return time.Unix(n.Int64, 0).UTC()
	}
	return time.Time{}
}
