package keyword

import (
	"path/filepath"
	"testing"

	"github.com/xfeed/xfeed/internal/model"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	dir := t.TempDir()
	idx, err := Open(filepath.Join(dir, "kw"), 2, 8)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestIndexSearchSingleMatch(t *testing.T) {
	idx := openTestIndex(t)
	w := NewWriter(idx, 0)
	if err := w.AddDoc(model.DocTypeTweet, "1", "Hello Rust", 1000); err != nil {
		t.Fatal(err)
	}
	if err := w.Commit(); err != nil {
		t.Fatal(err)
	}

	res, err := idx.Search("rust", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || res[0].DocID != "1" {
		t.Fatalf("expected one hit for doc 1, got %+v", res)
	}
}

func TestIndexSearchNoMatchIsEmptyNotError(t *testing.T) {
	idx := openTestIndex(t)
	w := NewWriter(idx, 0)
	if err := w.AddDoc(model.DocTypeTweet, "1", "Hello Rust", 1000); err != nil {
		t.Fatal(err)
	}
	if err := w.Commit(); err != nil {
		t.Fatal(err)
	}

	res, err := idx.Search("nonexistentterm", 10)
	if err != nil {
		t.Fatalf("unexpected error for no-match query: %v", err)
	}
	if len(res) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
}

func TestIndexSearchBooleanOperators(t *testing.T) {
	idx := openTestIndex(t)
	w := NewWriter(idx, 0)
	docs := []struct {
		id, text string
	}{
		{"1", "rust and async programming"},
		{"2", "rust snake charmer"},
		{"3", "python async programming"},
	}
	for _, d := range docs {
		if err := w.AddDoc(model.DocTypeTweet, d.id, d.text, 1000); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Commit(); err != nil {
		t.Fatal(err)
	}

	res, err := idx.Search("rust AND async NOT snake", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || res[0].DocID != "1" {
		t.Fatalf("expected only doc 1, got %+v", res)
	}
}

func TestIndexSearchPrefixQuery(t *testing.T) {
	idx := openTestIndex(t)
	w := NewWriter(idx, 0)
	if err := w.AddDoc(model.DocTypeTweet, "1", "hyperjump", 1000); err != nil {
		t.Fatal(err)
	}
	if err := w.Commit(); err != nil {
		t.Fatal(err)
	}

	res, err := idx.Search("hyper*", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || res[0].DocID != "1" {
		t.Fatalf("expected prefix match on doc 1, got %+v", res)
	}
}

func TestWriterSegmentAutoCommit(t *testing.T) {
	idx := openTestIndex(t)
	w := NewWriter(idx, 2)
	for i := 0; i < 3; i++ {
		if err := w.AddDoc(model.DocTypeTweet, string(rune('a'+i)), "hello", 1000); err != nil {
			t.Fatal(err)
		}
	}
	// First two should have auto-committed; flush the remainder.
	if err := w.Commit(); err != nil {
		t.Fatal(err)
	}
	n, err := idx.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("expected 3 docs, got %d", n)
	}
}
