package keyword

import (
	"sort"

	"github.com/blevesearch/bleve/v2"
	"github.com/xfeed/xfeed/internal/model"
)

// Result is one keyword search hit.
type Result struct {
	DocType model.DocType
	DocID   string
	Score   float64
}

// Search runs q (as produced by Parse, or any bleve query) against the
// index and returns up to limit hits ordered by descending score, ties
// broken by ascending doc_id — determinism is part of the schema's
// public contract, so this re-sorts bleve's own hit order rather than
// trusting it.
func (idx *Index) Search(q string, limit int) ([]Result, error) {
	parsed := Parse(q)
	req := bleve.NewSearchRequestOptions(parsed, limit, 0, false)
	res, err := idx.bi.Search(req)
	if err != nil {
		return nil, &Error{Kind: Io, Op: "search", Cause: err}
	}

	out := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		docType, docID := unpackID(hit.ID)
		out = append(out, Result{DocType: docType, DocID: docID, Score: hit.Score})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].DocID != out[j].DocID {
			return out[i].DocID < out[j].DocID
		}
		return out[i].DocType < out[j].DocType
	})
	return out, nil
}
