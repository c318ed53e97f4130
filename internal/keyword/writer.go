package keyword

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/xfeed/xfeed/internal/model"
)

// Writer batches documents and commits them in bounded-size segments, per
// the schema's writer contract: AddDoc is commutative for distinct ids,
// and idempotent (last write wins) for a duplicate id added twice before
// the same Commit.
type Writer struct {
	idx         *Index
	segmentSize int
	batch       *bleve.Batch
	pending     int
}

// NewWriter returns a Writer that auto-commits every segmentSize
// documents. segmentSize <= 0 means "never auto-commit" (the caller must
// call Commit itself).
func NewWriter(idx *Index, segmentSize int) *Writer {
	return &Writer{idx: idx, segmentSize: segmentSize, batch: idx.bi.NewBatch()}
}

// AddDoc indexes one record under the schema's five logical fields.
func (w *Writer) AddDoc(docType model.DocType, docID string, text string, createdAtUnix int64) error {
	doc := keywordDoc{
		ID:         packedID(docType, docID),
		Type:       string(docType),
		Text:       text,
		TextPrefix: text,
		CreatedAt:  createdAtUnix,
	}
	if err := w.batch.Index(doc.ID, doc); err != nil {
		return &Error{Kind: WriterFailed, Op: "batch index", Cause: err}
	}
	w.pending++
	if w.segmentSize > 0 && w.pending >= w.segmentSize {
		return w.Commit()
	}
	return nil
}

// Commit flushes and publishes whatever is pending. Calling Commit with
// nothing pending is a no-op.
func (w *Writer) Commit() error {
	if w.pending == 0 {
		return nil
	}
	if err := w.idx.bi.Batch(w.batch); err != nil {
		return &Error{Kind: WriterFailed, Op: "batch commit", Cause: err}
	}
	w.batch = w.idx.bi.NewBatch()
	w.pending = 0
	return nil
}
