// Package keyword is the inverted-index writer/reader over the fixed
// five-field schema: id, type, text, text_prefix (edge n-grams), and
// created_at. It is built on bleve/v2.
package keyword

import (
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/xfeed/xfeed/internal/model"
)

// Index is a writer+reader handle onto a bleve index directory. The
// writer commits in caller-controlled batches (see Writer below); the
// reader is safe to share across goroutines once opened.
type Index struct {
	bi bleve.Index
}

// Open creates the index at path if it doesn't exist (with the schema's
// mapping, using ngramMin/ngramMax for the text_prefix field), or opens
// it if it does.
func Open(path string, ngramMin, ngramMax int) (*Index, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		im, err := buildIndexMapping(ngramMin, ngramMax)
		if err != nil {
			return nil, &Error{Kind: WriterFailed, Op: "build mapping", Cause: err}
		}
		bi, err := bleve.New(path, im)
		if err != nil {
			return nil, &Error{Kind: Io, Op: "create", Cause: err}
		}
		return &Index{bi: bi}, nil
	}

	bi, err := bleve.Open(path)
	if err != nil {
		return nil, &Error{Kind: Corrupt, Op: "open", Cause: err}
	}
	return &Index{bi: bi}, nil
}

// Close releases the index handle.
func (idx *Index) Close() error {
	if err := idx.bi.Close(); err != nil {
		return &Error{Kind: Io, Op: "close", Cause: err}
	}
	return nil
}

// DocCount returns the number of documents currently in the index.
func (idx *Index) DocCount() (uint64, error) {
	n, err := idx.bi.DocCount()
	if err != nil {
		return 0, &Error{Kind: Io, Op: "doc_count", Cause: err}
	}
	return n, nil
}

// Clear empties the index by closing it, deleting its directory, and
// recreating it at the same path with the same mapping. The steps are not
// atomic: a failure after the delete leaves no index at path.
func (idx *Index) Clear(path string, ngramMin, ngramMax int) error {
	if err := idx.bi.Close(); err != nil {
		return &Error{Kind: Io, Op: "clear close", Cause: err}
	}
	if err := os.RemoveAll(path); err != nil {
		return &Error{Kind: Io, Op: "clear remove", Cause: err}
	}
	im, err := buildIndexMapping(ngramMin, ngramMax)
	if err != nil {
		return &Error{Kind: WriterFailed, Op: "clear build mapping", Cause: err}
	}
	bi, err := bleve.New(path, im)
	if err != nil {
		return &Error{Kind: Io, Op: "clear create", Cause: err}
	}
	idx.bi = bi
	return nil
}

// packedID is the opaque token stored in the "id" field: "(type,doc_id)"
// packed into a single string, per schema.
func packedID(docType model.DocType, docID string) string {
	return string(docType) + ":" + docID
}

func unpackID(id string) (model.DocType, string) {
	for i := 0; i < len(id); i++ {
		if id[i] == ':' {
			return model.DocType(id[:i]), id[i+1:]
		}
	}
	return "", id
}
