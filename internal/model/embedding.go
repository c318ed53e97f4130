package model

// Embedding is a unit-norm vector produced by internal/embedder for one
// record, paired with the content hash of the canonicalized text it was
// derived from. Storing ContentHash alongside the vector lets the indexing
// orchestrator skip re-embedding unchanged records (spec: "embed-if-changed").
type Embedding struct {
	DocType     DocType
	DocID       string
	Vector      []float32
	ContentHash [32]byte
}

// IndexedDoc is the minimal projection of a Record: identity, type, and
// creation time, without its text or domain fields. storage.Store.IterRecords
// returns records in this form.
type IndexedDoc struct {
	DocType   DocType
	DocID     string
	CreatedAt int64 // unix seconds, for bleve's numeric created_at field
}
