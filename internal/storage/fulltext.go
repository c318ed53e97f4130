package storage

import (
	"context"
	"fmt"
	"sort"

	"github.com/xfeed/xfeed/internal/model"
)

// FullTextHit is one match from the FTS5 fallback search. Score is
// SQLite's bm25() value: more negative means a better match, matching
// fts5's own convention rather than the keyword index's, where a higher
// score is better.
type FullTextHit struct {
	DocType model.DocType
	ID      string
	Score   float64
}

var fullTextTables = []struct {
	table   string
	column  string
	docType model.DocType
}{
	{"tweets_fts", "full_text", model.DocTypeTweet},
	{"likes_fts", "full_text", model.DocTypeLike},
	{"direct_messages_fts", "text", model.DocTypeDM},
	{"grok_messages_fts", "text", model.DocTypeGrok},
}

// SearchFullText is the lexical fallback path exercised when the bleve
// keyword index is unavailable: it queries each variant's FTS5 shadow
// table directly and merges the per-table hit lists by bm25 score.
// Unlike the keyword index, this has no edge-n-gram prefix field and no
// custom query grammar; the query string is passed to FTS5's own MATCH
// syntax as-is.
func (s *Store) SearchFullText(ctx context.Context, query string, limit int) ([]FullTextHit, error) {
	var hits []FullTextHit
	for _, t := range fullTextTables {
		stmt := fmt.Sprintf(`SELECT id, bm25(%s) FROM %s WHERE %s MATCH ? ORDER BY bm25(%s) LIMIT ?`, t.table, t.table, t.table, t.table)
		rows, err := s.db.QueryContext(ctx, stmt, query, limit)
		if err != nil {
			return nil, &Error{Kind: Io, Op: "search_full_text " + t.table, Cause: err}
		}
		for rows.Next() {
			var h FullTextHit
			if err := rows.Scan(&h.ID, &h.Score); err != nil {
				rows.Close()
				return nil, &Error{Kind: Io, Op: "scan_full_text " + t.table, Cause: err}
			}
			h.DocType = t.docType
			hits = append(hits, h)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, &Error{Kind: Io, Op: "iterate_full_text " + t.table, Cause: err}
		}
		rows.Close()
	}

	// Ascending bm25 (best match first), tie-broken ascending doc_id for
	// determinism, matching the keyword index's contract.
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score < hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}
