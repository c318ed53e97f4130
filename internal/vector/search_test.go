package vector

import (
	"path/filepath"
	"testing"

	"github.com/xfeed/xfeed/internal/model"
)

func buildTestIndex(t *testing.T, entries []Entry, dim int) *Index {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.xfvi")
	if err := WriteAtomic(path, entries, dim); err != nil {
		t.Fatal(err)
	}
	idx, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestSearchTopKOrdering(t *testing.T) {
	dim := 4
	// Two entries with identical score against the query; must break the
	// tie by ascending doc_id.
	entries := []Entry{
		{DocType: model.DocTypeTweet, DocID: "9", Vector: []float32{1, 0, 0, 0}},
		{DocType: model.DocTypeTweet, DocID: "2", Vector: []float32{1, 0, 0, 0}},
		{DocType: model.DocTypeTweet, DocID: "5", Vector: []float32{0, 1, 0, 0}},
	}
	idx := buildTestIndex(t, entries, dim)

	res, err := idx.Search([]float32{1, 0, 0, 0}, 2, nil, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 2 {
		t.Fatalf("expected 2 results, got %d", len(res))
	}
	if res[0].DocID != "2" || res[1].DocID != "9" {
		t.Fatalf("expected tie-break by ascending doc_id, got %+v", res)
	}
}

func TestSearchTypeFilter(t *testing.T) {
	dim := 4
	entries := []Entry{
		{DocType: model.DocTypeTweet, DocID: "1", Vector: []float32{1, 0, 0, 0}},
		{DocType: model.DocTypeLike, DocID: "1", Vector: []float32{1, 0, 0, 0}},
	}
	idx := buildTestIndex(t, entries, dim)

	res, err := idx.Search([]float32{1, 0, 0, 0}, 10, TypeFilter{model.DocTypeLike: {}}, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || res[0].DocType != model.DocTypeLike {
		t.Fatalf("expected only like results, got %+v", res)
	}
}

func TestSearchDateFilterUsesTimestampLookup(t *testing.T) {
	dim := 4
	entries := []Entry{
		{DocType: model.DocTypeTweet, DocID: "old", Vector: []float32{1, 0, 0, 0}},
		{DocType: model.DocTypeTweet, DocID: "new", Vector: []float32{1, 0, 0, 0}},
	}
	idx := buildTestIndex(t, entries, dim)

	lookup := NewTimestampLookup()
	lookup.Set(model.DocTypeTweet, "old", 1000)
	lookup.Set(model.DocTypeTweet, "new", 5000)

	since := int64(4000)
	res, err := idx.Search([]float32{1, 0, 0, 0}, 10, nil, lookup, &since, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || res[0].DocID != "new" {
		t.Fatalf("expected only \"new\" to survive the since filter, got %+v", res)
	}
}

func TestSearchDateFilterExcludesCandidatesMissingFromLookup(t *testing.T) {
	dim := 4
	entries := []Entry{
		{DocType: model.DocTypeTweet, DocID: "1", Vector: []float32{1, 0, 0, 0}},
	}
	idx := buildTestIndex(t, entries, dim)

	since := int64(100)
	res, err := idx.Search([]float32{1, 0, 0, 0}, 10, nil, nil, &since, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 0 {
		t.Fatalf("expected a nil lookup with an active since filter to exclude every candidate, got %+v", res)
	}
}

func TestSearchDimensionMismatch(t *testing.T) {
	dim := 4
	idx := buildTestIndex(t, []Entry{{DocType: model.DocTypeTweet, DocID: "1", Vector: []float32{1, 0, 0, 0}}}, dim)
	_, err := idx.Search([]float32{1, 0}, 1, nil, nil, nil, nil)
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}
