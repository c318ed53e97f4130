package search

import "sort"

// rankedID is one entry in a ranked list, keyed by the packed doc
// identity used everywhere rank lists need to compare across lexical
// and semantic result sets.
type rankedID struct {
	docType string
	docID   string
}

// FuseRRF combines any number of ranked id lists with Reciprocal Rank
// Fusion: score(d) = sum over lists containing d of 1/(k + rank + 1),
// where rank is the 0-based position of d in that list. Lists that don't
// contain d simply don't contribute a term. Ties are broken by ascending
// doc_id, then ascending doc_type, so fusion output is fully
// deterministic regardless of the order lists are passed in.
func FuseRRF(k int, lists ...[]rankedID) []rankedID {
	scores := make(map[rankedID]float64)
	for _, list := range lists {
		for rank, id := range list {
			scores[id] += 1.0 / float64(k+rank+1)
		}
	}

	out := make([]rankedID, 0, len(scores))
	for id := range scores {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := scores[out[i]], scores[out[j]]
		if si != sj {
			return si > sj
		}
		if out[i].docID != out[j].docID {
			return out[i].docID < out[j].docID
		}
		return out[i].docType < out[j].docType
	})
	return out
}

// fusedScores exposes the RRF score for each id, for callers (the
// planner) that need to report the fused score alongside the ordering.
func fusedScores(k int, lists ...[]rankedID) map[rankedID]float64 {
	scores := make(map[rankedID]float64)
	for _, list := range lists {
		for rank, id := range list {
			scores[id] += 1.0 / float64(k+rank+1)
		}
	}
	return scores
}
