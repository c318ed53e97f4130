package vector

import (
	"container/heap"

	"github.com/xfeed/xfeed/internal/model"
)

// TypeFilter, when non-nil, restricts the scan to the given set of
// doc types. Whether this is applied during the scan (pushdown) or after
// (post-filter) is a caller decision — Search always applies it during
// the scan when set, since the scan already visits every record anyway;
// internal/search.Planner decides whether to pass it at all (see
// config.Search.TypeFilterPushdown).
type TypeFilter map[model.DocType]struct{}

// TimestampLookup is a pre-fetched (doc_type, doc_id) -> created_at unix
// timestamp table. Search consults it as a plain map lookup during the
// scan; the caller (internal/search.Planner) batch-fetches it from the
// relational store once, before the scan starts, rather than the scan
// issuing one query per candidate.
type TimestampLookup map[timestampKey]int64

type timestampKey struct {
	docType model.DocType
	docID   string
}

// NewTimestampLookup returns an empty lookup ready for Set.
func NewTimestampLookup() TimestampLookup {
	return make(TimestampLookup)
}

// Set records the timestamp for one (doc_type, doc_id) candidate.
func (l TimestampLookup) Set(docType model.DocType, docID string, unixTS int64) {
	l[timestampKey{docType, docID}] = unixTS
}

func (l TimestampLookup) get(docType model.DocType, docID string) (int64, bool) {
	ts, ok := l[timestampKey{docType, docID}]
	return ts, ok
}

// Search performs an exhaustive cosine-similarity scan over every vector
// in the index and returns the top-k highest-scoring hits, ties broken by
// ascending (doc_type, doc_id). Vectors are assumed unit-norm at write
// time, so cosine similarity reduces to a plain dot product.
//
// sinceUnix/untilUnix, when non-nil, restrict the scan to records whose
// timestamp (looked up in timestamps) falls in [since, until]; a nil or
// empty timestamps lookup then excludes every candidate from the result,
// so callers must populate it whenever a date filter is set.
func (idx *Index) Search(query []float32, k int, types TypeFilter, timestamps TimestampLookup, sinceUnix, untilUnix *int64) ([]Result, error) {
	if len(query) != idx.dimension {
		return nil, &Error{Kind: DimensionMismatch, Path: idx.path}
	}
	if k <= 0 {
		return nil, nil
	}

	h := &resultHeap{}
	heap.Init(h)

	for _, e := range idx.entries {
		if types != nil {
			if _, ok := types[e.DocType]; !ok {
				continue
			}
		}
		if sinceUnix != nil || untilUnix != nil {
			ts, ok := timestamps.get(e.DocType, e.DocID)
			if !ok {
				continue
			}
			if sinceUnix != nil && ts < *sinceUnix {
				continue
			}
			if untilUnix != nil && ts > *untilUnix {
				continue
			}
		}

		score := dot(query, e.Vector)
		cand := Result{DocType: e.DocType, DocID: e.DocID, Score: score}

		if h.Len() < k {
			heap.Push(h, cand)
			continue
		}
		if less(cand, (*h)[0]) {
			continue
		}
		heap.Pop(h)
		heap.Push(h, cand)
	}

	out := make([]Result, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(Result)
	}
	return out, nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// less reports whether a ranks strictly below b: lower score is "less",
// and among equal scores, the entry with the lexicographically later
// (doc_type, doc_id) ranks lower (so ascending doc_id sorts first among
// ties when results are read off the heap in descending rank order).
func less(a, b Result) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	if a.DocType != b.DocType {
		return a.DocType > b.DocType
	}
	return a.DocID > b.DocID
}

// resultHeap is a min-heap on rank (see less): popping repeatedly yields
// results in ascending rank, i.e. worst-first, which is exactly what a
// bounded top-k scan needs (evict the worst candidate when a better one
// arrives).
type resultHeap []Result

func (h resultHeap) Len() int            { return len(h) }
func (h resultHeap) Less(i, j int) bool  { return less(h[i], h[j]) }
func (h resultHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *resultHeap) Push(x interface{}) { *h = append(*h, x.(Result)) }
func (h *resultHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
