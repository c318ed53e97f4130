package vector

import (
	"os"
	"path/filepath"

	mmap "github.com/blevesearch/mmap-go"
	"github.com/xfeed/xfeed/internal/model"
)

// Index is a read-only handle onto an XFVI file, memory-mapped once for
// the lifetime of the process (per spec's "memory-map the file once per
// process" reader contract).
type Index struct {
	path      string
	region    mmap.MMap
	dimension int
	entries   []Entry // file order (Build's canonical order)
}

// Open validates and memory-maps the XFVI file at path. Any structural
// problem is reported as *Error{Kind: Corrupt} (or VersionUnsupported);
// Open never panics on malformed input.
func Open(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Kind: Corrupt, Path: path, Cause: err}
	}
	defer f.Close()

	region, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, &Error{Kind: Corrupt, Path: path, Cause: err}
	}

	h, err := parseHeader(path, region)
	if err != nil {
		region.Unmap()
		return nil, err
	}
	entries, err := validateAndDecode(path, region, h)
	if err != nil {
		region.Unmap()
		return nil, err
	}

	return &Index{path: path, region: region, dimension: int(h.dimension), entries: entries}, nil
}

// Dimension returns the vector dimension recorded in the file header.
func (idx *Index) Dimension() int { return idx.dimension }

// Len returns the number of vectors in the index.
func (idx *Index) Len() int { return len(idx.entries) }

// IterRecords returns every (doc_type, doc_id, vector) triple in the
// order stored in the file: the canonical order Build sorts into, not
// the order the entries were supplied in.
func (idx *Index) IterRecords() []Entry { return idx.entries }

// Close releases the memory mapping.
func (idx *Index) Close() error {
	if idx.region == nil {
		return nil
	}
	err := idx.region.Unmap()
	idx.region = nil
	return err
}

// WriteAtomic serializes entries to the XFVI format and atomically
// replaces the file at path (build to a temp file in the same directory,
// then rename). A partially written build is never observable at path.
func WriteAtomic(path string, entries []Entry, dimension int) error {
	data, err := Build(entries, dimension)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".xfvi-*.tmp")
	if err != nil {
		return &Error{Kind: Corrupt, Path: path, Cause: err}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &Error{Kind: Corrupt, Path: path, Cause: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return &Error{Kind: Corrupt, Path: path, Cause: err}
	}
	if err := tmp.Close(); err != nil {
		return &Error{Kind: Corrupt, Path: path, Cause: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return &Error{Kind: Corrupt, Path: path, Cause: err}
	}
	return nil
}

// Result is one hit from Search: the matched doc and its cosine
// similarity against the query vector.
type Result struct {
	DocType model.DocType
	DocID   string
	Score   float64
}
