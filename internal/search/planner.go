// Package search runs queries against the keyword and vector substrates,
// fuses their rankings, and hydrates the winners into display records.
package search

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/xfeed/xfeed/internal/config"
	"github.com/xfeed/xfeed/internal/embedder"
	"github.com/xfeed/xfeed/internal/keyword"
	"github.com/xfeed/xfeed/internal/model"
	"github.com/xfeed/xfeed/internal/storage"
	"github.com/xfeed/xfeed/internal/vector"
)

// Planner runs a Query against one or more substrates and returns
// hydrated, ranked results.
type Planner struct {
	store    *storage.Store
	keyword  *keyword.Index
	vec      *vector.Index
	embed    *embedder.Embedder
	cfg      *config.SearchConfig
	enricher *Enricher
}

// NewPlanner wires a Planner from its substrates. vec may be nil if no
// vector index has been built yet; lexical-mode queries still work, but
// semantic and hybrid queries fail with a NoIndex error. kw may also be
// nil, in which case lexical mode falls back to the relational store's
// FTS5 shadow tables (storage.Store.SearchFullText) instead of bleve;
// hybrid mode still requires kw, since there is no fallback for the
// keyword leg of fusion.
func NewPlanner(store *storage.Store, kw *keyword.Index, vec *vector.Index, emb *embedder.Embedder, cfg *config.SearchConfig) *Planner {
	return &Planner{
		store:    store,
		keyword:  kw,
		vec:      vec,
		embed:    emb,
		cfg:      cfg,
		enricher: NewEnricher(store),
	}
}

// Conversation expands a DM match into its full conversation context
// (the `context` option of the result enricher): every message sharing
// conversationID, ordered by created_at, with matchIDs annotated via
// IsMatch. CLI callers use this to implement `--context`.
func (p *Planner) Conversation(ctx context.Context, conversationID string, matchIDs map[string]struct{}) ([]ConversationResult, error) {
	return p.enricher.Conversation(ctx, conversationID, matchIDs)
}

// candidateLimit computes the expansion size K = max(limit+offset,
// min(cap, multiplier*(limit+offset))), used so fusion and paging have enough of
// the tail of each list to produce a stable ranking and cover the
// requested offset, not just each list's own top page.
func (p *Planner) candidateLimit(limit, offset int) int {
	need := limit + offset
	k := need * p.cfg.HybridCandidateMultiplier
	if k > p.cfg.HybridCandidateCap {
		k = p.cfg.HybridCandidateCap
	}
	if k < need {
		k = need
	}
	return k
}

// Search runs q and returns a page of up to q.Limit hydrated results
// starting at q.Offset.
func (p *Planner) Search(ctx context.Context, q Query) (*Response, error) {
	if q.Limit <= 0 {
		q.Limit = p.cfg.DefaultLimit
	}
	if q.Limit > p.cfg.MaxLimit {
		q.Limit = p.cfg.MaxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	switch q.Sort {
	case "", SortRelevance, SortDateAsc, SortDateDesc, SortEngagement:
	default:
		return nil, &Error{Kind: Parse, Detail: fmt.Sprintf("unknown sort %q", q.Sort)}
	}

	switch q.Mode {
	case ModeLexical:
		return p.searchLexical(ctx, q)
	case ModeSemantic:
		return p.searchSemantic(ctx, q)
	case ModeHybrid, "":
		return p.searchHybrid(ctx, q)
	default:
		return nil, &Error{Kind: Parse, Detail: fmt.Sprintf("unknown mode %q", q.Mode)}
	}
}

func (p *Planner) searchLexical(ctx context.Context, q Query) (*Response, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	limit := p.candidateLimit(q.Limit, q.Offset)

	if p.keyword == nil {
		hits, err := p.store.SearchFullText(ctx, q.Text, limit)
		if err != nil {
			return nil, &Error{Kind: Internal, Detail: "full-text fallback search", Cause: err}
		}
		ids := make([]rankedID, len(hits))
		scoreOf := make(map[rankedID]float64, len(hits))
		for i, h := range hits {
			id := rankedID{docType: string(h.DocType), docID: h.ID}
			ids[i] = id
			scoreOf[id] = -h.Score // bm25 is "lower is better"; invert so higher score still means better here
		}
		return p.buildResponse(ctx, q, ids, scoreOf, ModeLexical)
	}

	hits, err := p.keyword.Search(q.Text, limit)
	if err != nil {
		return nil, &Error{Kind: Internal, Detail: "keyword search", Cause: err}
	}
	ids := make([]rankedID, len(hits))
	scoreOf := make(map[rankedID]float64, len(hits))
	for i, h := range hits {
		id := rankedID{docType: string(h.DocType), docID: h.DocID}
		ids[i] = id
		scoreOf[id] = h.Score
	}
	return p.buildResponse(ctx, q, ids, scoreOf, ModeLexical)
}

func (p *Planner) searchSemantic(ctx context.Context, q Query) (*Response, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	if p.vec == nil {
		return nil, &Error{Kind: NoIndex, Detail: "vector index not built"}
	}
	limit := p.candidateLimit(q.Limit, q.Offset)
	queryVec := p.embed.Embed(q.Text)

	var types vector.TypeFilter
	var since, until *int64
	if p.cfg.TypeFilterPushdown {
		types = toVectorTypeFilter(q.Types)
		since, until = q.SinceUnix, q.UntilUnix
	}
	lookup, err := p.buildTimestampLookup(ctx, since, until)
	if err != nil {
		return nil, &Error{Kind: Internal, Detail: "batch timestamp lookup", Cause: err}
	}
	hits, err := p.vec.Search(queryVec, limit, types, lookup, since, until)
	if err != nil {
		return nil, &Error{Kind: Internal, Detail: "vector search", Cause: err}
	}
	ids := make([]rankedID, len(hits))
	scoreOf := make(map[rankedID]float64, len(hits))
	for i, h := range hits {
		id := rankedID{docType: string(h.DocType), docID: h.DocID}
		ids[i] = id
		scoreOf[id] = h.Score
	}
	return p.buildResponse(ctx, q, ids, scoreOf, ModeSemantic)
}

func (p *Planner) searchHybrid(ctx context.Context, q Query) (*Response, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	if p.vec == nil {
		return nil, &Error{Kind: NoIndex, Detail: "vector index not built"}
	}
	if p.keyword == nil {
		return nil, &Error{Kind: NoIndex, Detail: "keyword index not built"}
	}
	limit := p.candidateLimit(q.Limit, q.Offset)

	var (
		lexicalHits  []keyword.Result
		semanticHits []vector.Result
		wg           sync.WaitGroup
		errCh        = make(chan error, 2)
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		hits, err := p.keyword.Search(q.Text, limit)
		if err != nil {
			errCh <- &Error{Kind: Internal, Detail: "keyword search", Cause: err}
			return
		}
		lexicalHits = hits
	}()
	go func() {
		defer wg.Done()
		queryVec := p.embed.Embed(q.Text)
		var types vector.TypeFilter
		var since, until *int64
		if p.cfg.TypeFilterPushdown {
			types = toVectorTypeFilter(q.Types)
			since, until = q.SinceUnix, q.UntilUnix
		}
		lookup, err := p.buildTimestampLookup(ctx, since, until)
		if err != nil {
			errCh <- &Error{Kind: Internal, Detail: "batch timestamp lookup", Cause: err}
			return
		}
		hits, err := p.vec.Search(queryVec, limit, types, lookup, since, until)
		if err != nil {
			errCh <- &Error{Kind: Internal, Detail: "vector search", Cause: err}
			return
		}
		semanticHits = hits
	}()
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			return nil, err
		}
	}

	lexicalIDs := make([]rankedID, len(lexicalHits))
	for i, h := range lexicalHits {
		lexicalIDs[i] = rankedID{docType: string(h.DocType), docID: h.DocID}
	}
	semanticIDs := make([]rankedID, len(semanticHits))
	for i, h := range semanticHits {
		semanticIDs[i] = rankedID{docType: string(h.DocType), docID: h.DocID}
	}

	scores := fusedScores(p.cfg.RRFConstant, lexicalIDs, semanticIDs)
	fused := FuseRRF(p.cfg.RRFConstant, lexicalIDs, semanticIDs)

	return p.buildResponse(ctx, q, fused, scores, ModeHybrid)
}

// buildResponse applies the type/date filter (when pushdown is off, or
// as a safety net when it's on but the list came from a substrate that
// can't filter, i.e. keyword), enriches the surviving ids, applies the
// sort-override rule, and slices out the q.Offset..q.Offset+q.Limit page.
func (p *Planner) buildResponse(ctx context.Context, q Query, ids []rankedID, scores map[rankedID]float64, mode Mode) (*Response, error) {
	all := make([]Result, 0, len(ids))
	for i, id := range ids {
		if i%64 == 0 {
			if err := ctxErr(ctx); err != nil {
				return nil, err
			}
		}
		docType := model.DocType(id.docType)
		rec, ok, err := p.enricher.hydrate(ctx, docType, id.docID, scores[id])
		if err != nil {
			return nil, &Error{Kind: Internal, Detail: "hydrate", Cause: err}
		}
		if !ok {
			continue
		}
		if !passesFilter(q, rec) {
			continue
		}
		all = append(all, rec)
	}

	sortResults(all, q.Sort)

	total := len(all)
	start := q.Offset
	if start > total {
		start = total
	}
	end := start + q.Limit
	if end > total {
		end = total
	}
	page := append([]Result(nil), all[start:end]...)

	return &Response{Query: q.Text, Mode: mode, Results: page, Total: total}, nil
}

// sortResults applies the sort-override rule: SortRelevance (or the zero
// value) leaves the incoming order untouched, since that order already
// reflects each mode's relevance ranking (keyword/vector score order, or
// fused RRF order). Any other order discards relevance entirely and
// re-sorts by the requested key, ties broken by ascending
// (doc_type, doc_id).
func sortResults(results []Result, order SortOrder) {
	switch order {
	case SortDateAsc:
		sort.SliceStable(results, func(i, j int) bool {
			if !results[i].CreatedAt.Equal(results[j].CreatedAt) {
				return results[i].CreatedAt.Before(results[j].CreatedAt)
			}
			return lessByDocTypeID(results[i], results[j])
		})
	case SortDateDesc:
		sort.SliceStable(results, func(i, j int) bool {
			if !results[i].CreatedAt.Equal(results[j].CreatedAt) {
				return results[i].CreatedAt.After(results[j].CreatedAt)
			}
			return lessByDocTypeID(results[i], results[j])
		})
	case SortEngagement:
		sort.SliceStable(results, func(i, j int) bool {
			ei, ej := engagementOf(results[i]), engagementOf(results[j])
			if ei != ej {
				return ei > ej
			}
			return lessByDocTypeID(results[i], results[j])
		})
	}
}

func lessByDocTypeID(a, b Result) bool {
	if a.DocType != b.DocType {
		return a.DocType < b.DocType
	}
	return a.ID < b.ID
}

// engagementOf sums the favorite/retweet counts a tweet carries in its
// metadata. Other doc types have no engagement signal and sort as 0.
func engagementOf(r Result) int64 {
	var total int64
	total += metadataInt(r.Metadata, "favorite_count")
	total += metadataInt(r.Metadata, "retweet_count")
	return total
}

func metadataInt(meta map[string]any, key string) int64 {
	switch v := meta[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	default:
		return 0
	}
}

func passesFilter(q Query, rec Result) bool {
	if len(q.Types) > 0 {
		if _, ok := q.Types[rec.DocType]; !ok {
			return false
		}
	}
	ts := rec.CreatedAt.Unix()
	if q.SinceUnix != nil && ts < *q.SinceUnix {
		return false
	}
	if q.UntilUnix != nil && ts > *q.UntilUnix {
		return false
	}
	return true
}

// buildTimestampLookup batch-fetches the created_at timestamp for every
// candidate in the vector index, one storage call per doc type, for
// Index.Search's date-range pre-filter. Returns a nil lookup without
// touching the store when no date filter is active, since the scan's
// filter is then a no-op regardless.
func (p *Planner) buildTimestampLookup(ctx context.Context, since, until *int64) (vector.TimestampLookup, error) {
	if since == nil && until == nil {
		return nil, nil
	}
	idsByType := make(map[model.DocType][]string)
	for _, e := range p.vec.IterRecords() {
		idsByType[e.DocType] = append(idsByType[e.DocType], e.DocID)
	}
	lookup := vector.NewTimestampLookup()
	for docType, ids := range idsByType {
		tsByID, err := p.store.TimestampsByType(ctx, docType, ids)
		if err != nil {
			return nil, err
		}
		for id, ts := range tsByID {
			lookup.Set(docType, id, ts)
		}
	}
	return lookup, nil
}

func toVectorTypeFilter(types map[model.DocType]struct{}) vector.TypeFilter {
	if len(types) == 0 {
		return nil
	}
	out := make(vector.TypeFilter, len(types))
	for t := range types {
		out[t] = struct{}{}
	}
	return out
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return &Error{Kind: Cancelled, Detail: "context done", Cause: ctx.Err()}
	default:
		return nil
	}
}
