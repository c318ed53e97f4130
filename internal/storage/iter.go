package storage

import (
	"context"
	"database/sql"

	"github.com/xfeed/xfeed/internal/model"
)

// Filter narrows IterRecords to a subset of types and/or a timestamp
// range. A nil/empty Types means all types; nil Since/Until means
// unbounded on that side.
type Filter struct {
	Types      map[model.DocType]struct{}
	SinceUnix  *int64
	UntilUnix  *int64
}

func (f Filter) wantsType(t model.DocType) bool {
	if len(f.Types) == 0 {
		return true
	}
	_, ok := f.Types[t]
	return ok
}

// IterRecords streams every IndexedDoc matching filter, ordered by
// (doc_type, doc_id) ascending — the same canonical order the vector
// index writer uses, so callers building the vector index directly from
// this can skip a separate sort.
func (s *Store) IterRecords(ctx context.Context, filter Filter) ([]model.IndexedDoc, error) {
	var out []model.IndexedDoc
	if filter.wantsType(model.DocTypeTweet) {
		docs, err := s.iterType(ctx, "tweets", "id", "created_at", model.DocTypeTweet, filter)
		if err != nil {
			return nil, err
		}
		out = append(out, docs...)
	}
	if filter.wantsType(model.DocTypeLike) {
		docs, err := s.iterType(ctx, "likes", "id", "liked_at", model.DocTypeLike, filter)
		if err != nil {
			return nil, err
		}
		out = append(out, docs...)
	}
	if filter.wantsType(model.DocTypeDM) {
		docs, err := s.iterType(ctx, "direct_messages", "id", "created_at", model.DocTypeDM, filter)
		if err != nil {
			return nil, err
		}
		out = append(out, docs...)
	}
	if filter.wantsType(model.DocTypeGrok) {
		docs, err := s.iterType(ctx, "grok_messages", "id", "created_at", model.DocTypeGrok, filter)
		if err != nil {
			return nil, err
		}
		out = append(out, docs...)
	}
	return out, nil
}

func (s *Store) iterType(ctx context.Context, table, idCol, tsCol string, docType model.DocType, filter Filter) ([]model.IndexedDoc, error) {
	query := "SELECT " + idCol + ", " + tsCol + " FROM " + table + " WHERE 1=1"
	var args []any
	if filter.SinceUnix != nil {
		query += " AND " + tsCol + " >= ?"
		args = append(args, *filter.SinceUnix)
	}
	if filter.UntilUnix != nil {
		query += " AND " + tsCol + " <= ?"
		args = append(args, *filter.UntilUnix)
	}
	query += " ORDER BY " + idCol + " ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &Error{Kind: Io, Op: "iter_records " + table, Cause: err}
	}
	defer rows.Close()

	var out []model.IndexedDoc
	for rows.Next() {
		var id string
		var ts sql.NullInt64
		if err := rows.Scan(&id, &ts); err != nil {
			return nil, &Error{Kind: Io, Op: "scan " + table, Cause: err}
		}
		out = append(out, model.IndexedDoc{DocType: docType, DocID: id, CreatedAt: ts.Int64})
	}
	return out, rows.Err()
}
