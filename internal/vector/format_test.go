package vector

import (
	"path/filepath"
	"testing"

	"github.com/xfeed/xfeed/internal/model"
)

func unitVec(dim int, lane int) []float32 {
	v := make([]float32, dim)
	v[lane%dim] = 1
	return v
}

func TestBuildAndOpenRoundTrip(t *testing.T) {
	dim := 8
	entries := []Entry{
		{DocType: model.DocTypeTweet, DocID: "2", Vector: unitVec(dim, 1)},
		{DocType: model.DocTypeTweet, DocID: "1", Vector: unitVec(dim, 0)},
		{DocType: model.DocTypeLike, DocID: "1", Vector: unitVec(dim, 2)},
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.xfvi")
	if err := WriteAtomic(path, entries, dim); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}

	idx, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	if idx.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", idx.Len())
	}
	if idx.Dimension() != dim {
		t.Fatalf("expected dimension %d, got %d", dim, idx.Dimension())
	}

	got := idx.IterRecords()
	// Canonical order is (doc_type asc, doc_id lex asc): tweet/1, tweet/2, like/1.
	if got[0].DocType != model.DocTypeTweet || got[0].DocID != "1" {
		t.Fatalf("unexpected first record: %+v", got[0])
	}
	if got[1].DocType != model.DocTypeTweet || got[1].DocID != "2" {
		t.Fatalf("unexpected second record: %+v", got[1])
	}
	if got[2].DocType != model.DocTypeLike || got[2].DocID != "1" {
		t.Fatalf("unexpected third record: %+v", got[2])
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	dim := 4
	entries := []Entry{
		{DocType: model.DocTypeLike, DocID: "b", Vector: unitVec(dim, 0)},
		{DocType: model.DocTypeTweet, DocID: "a", Vector: unitVec(dim, 1)},
	}
	a, err := Build(entries, dim)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Build(entries, dim)
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Fatal("expected byte-identical output for identical input")
	}
}

func TestOpenRejectsCorruptMagic(t *testing.T) {
	dim := 4
	entries := []Entry{{DocType: model.DocTypeTweet, DocID: "1", Vector: unitVec(dim, 0)}}
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.xfvi")
	if err := WriteAtomic(path, entries, dim); err != nil {
		t.Fatal(err)
	}

	corruptFileByte(t, path, 0, 'Z')

	_, err := Open(path)
	if err == nil {
		t.Fatal("expected corrupt-magic open to fail")
	}
	verr, ok := err.(*Error)
	if !ok || verr.Kind != Corrupt {
		t.Fatalf("expected Corrupt error, got %v", err)
	}
}

func TestOpenRejectsTruncatedFile(t *testing.T) {
	dim := 4
	entries := []Entry{{DocType: model.DocTypeTweet, DocID: "1", Vector: unitVec(dim, 0)}}
	data, err := Build(entries, dim)
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.xfvi")
	writeTestFile(t, path, data[:40])

	_, err = Open(path)
	if err == nil {
		t.Fatal("expected truncated file to fail validation")
	}
}

func corruptFileByte(t *testing.T, path string, offset int, b byte) {
	t.Helper()
	data := readTestFile(t, path)
	data[offset] = b
	writeTestFile(t, path, data)
}
