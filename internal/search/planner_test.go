package search

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/xfeed/xfeed/internal/config"
	"github.com/xfeed/xfeed/internal/embedder"
	"github.com/xfeed/xfeed/internal/keyword"
	"github.com/xfeed/xfeed/internal/model"
	"github.com/xfeed/xfeed/internal/storage"
	"github.com/xfeed/xfeed/internal/vector"
)

// fixture builds a fully wired Planner over three tweets: two about Rust,
// one about Python, so lexical and semantic queries have something
// plausible to disagree or agree on.
func fixture(t *testing.T) *Planner {
	t.Helper()
	dir := t.TempDir()

	store, err := storage.Open(filepath.Join(dir, "xfeed.db"))
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	tweets := []*model.Tweet{
		{IDStr: "1", FullText: "rust async runtimes are getting good", CreatedAt: time.Unix(1000, 0)},
		{IDStr: "2", FullText: "rewrote the parser in rust this weekend", CreatedAt: time.Unix(2000, 0)},
		{IDStr: "3", FullText: "python data pipeline refactor", CreatedAt: time.Unix(3000, 0)},
	}
	ctx := context.Background()
	if err := store.BulkInsertTweets(ctx, tweets, 0); err != nil {
		t.Fatalf("BulkInsertTweets: %v", err)
	}

	kwPath := filepath.Join(dir, "kw")
	kwIdx, err := keyword.Open(kwPath, 2, 8)
	if err != nil {
		t.Fatalf("keyword.Open: %v", err)
	}
	t.Cleanup(func() { kwIdx.Close() })
	w := keyword.NewWriter(kwIdx, 0)
	for _, tw := range tweets {
		if err := w.AddDoc(model.DocTypeTweet, tw.IDStr, tw.FullText, tw.CreatedAt.Unix()); err != nil {
			t.Fatalf("AddDoc: %v", err)
		}
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	emb := embedder.New()
	var entries []vector.Entry
	for _, tw := range tweets {
		vec := emb.Embed(tw.FullText)
		entries = append(entries, vector.Entry{DocType: model.DocTypeTweet, DocID: tw.IDStr, Vector: vec})
		if err := store.PutEmbedding(ctx, model.DocTypeTweet, tw.IDStr, vec, [32]byte{}); err != nil {
			t.Fatalf("PutEmbedding: %v", err)
		}
	}
	vecPath := filepath.Join(dir, "xfeed.xfvi")
	if err := vector.WriteAtomic(vecPath, entries, emb.Dimensions()); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}
	vecIdx, err := vector.Open(vecPath)
	if err != nil {
		t.Fatalf("vector.Open: %v", err)
	}
	t.Cleanup(func() { vecIdx.Close() })

	cfg := &config.SearchConfig{
		DefaultLimit:              20,
		MaxLimit:                  200,
		HybridCandidateMultiplier: 4,
		HybridCandidateCap:        200,
		RRFConstant:               60,
	}
	return NewPlanner(store, kwIdx, vecIdx, emb, cfg)
}

func TestPlannerLexicalFindsRustTweets(t *testing.T) {
	p := fixture(t)
	resp, err := p.Search(context.Background(), Query{Text: "rust", Mode: ModeLexical, Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 {
		t.Fatalf("expected 2 rust hits, got %d (%+v)", resp.Total, resp.Results)
	}
}

func TestPlannerLexicalBooleanExclusion(t *testing.T) {
	p := fixture(t)
	resp, err := p.Search(context.Background(), Query{Text: "rust NOT weekend", Mode: ModeLexical, Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || resp.Results[0].ID != "1" {
		t.Fatalf("expected only tweet 1, got %+v", resp.Results)
	}
}

func TestPlannerHybridReturnsFusedResults(t *testing.T) {
	p := fixture(t)
	resp, err := p.Search(context.Background(), Query{Text: "rust", Mode: ModeHybrid, Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total == 0 {
		t.Fatalf("expected some hybrid hits, got none")
	}
	for _, r := range resp.Results {
		if r.Text == "" {
			t.Fatalf("expected hydrated text, got empty result %+v", r)
		}
	}
}

func TestPlannerTypeFilterExcludesOtherTypes(t *testing.T) {
	p := fixture(t)
	resp, err := p.Search(context.Background(), Query{
		Text:  "rust",
		Mode:  ModeLexical,
		Limit: 10,
		Types: map[model.DocType]struct{}{model.DocTypeLike: {}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 0 {
		t.Fatalf("expected no hits when filtering to likes, got %d", resp.Total)
	}
}

func TestPlannerSemanticRequiresVectorIndex(t *testing.T) {
	p := fixture(t)
	p.vec = nil
	_, err := p.Search(context.Background(), Query{Text: "rust", Mode: ModeSemantic, Limit: 10})
	if err == nil {
		t.Fatal("expected NoIndex error")
	}
	serr, ok := err.(*Error)
	if !ok || serr.Kind != NoIndex {
		t.Fatalf("expected NoIndex error, got %v", err)
	}
}

func TestPlannerLexicalFallsBackToFullTextWhenKeywordIndexMissing(t *testing.T) {
	p := fixture(t)
	p.keyword = nil
	resp, err := p.Search(context.Background(), Query{Text: "rust", Mode: ModeLexical, Limit: 10})
	if err != nil {
		t.Fatalf("expected fallback search to succeed, got %v", err)
	}
	if resp.Total != 2 {
		t.Fatalf("expected 2 rust hits via FTS5 fallback, got %d (%+v)", resp.Total, resp.Results)
	}
}

func TestPlannerHybridRequiresKeywordIndex(t *testing.T) {
	p := fixture(t)
	p.keyword = nil
	_, err := p.Search(context.Background(), Query{Text: "rust", Mode: ModeHybrid, Limit: 10})
	if err == nil {
		t.Fatal("expected NoIndex error")
	}
	serr, ok := err.(*Error)
	if !ok || serr.Kind != NoIndex {
		t.Fatalf("expected NoIndex error, got %v", err)
	}
}

func TestPlannerRejectsCancelledContext(t *testing.T) {
	p := fixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Search(ctx, Query{Text: "rust", Mode: ModeLexical, Limit: 10})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	serr, ok := err.(*Error)
	if !ok || serr.Kind != Cancelled {
		t.Fatalf("expected Cancelled error, got %v", err)
	}
}

func TestPlannerRejectsUnknownSort(t *testing.T) {
	p := fixture(t)
	_, err := p.Search(context.Background(), Query{Text: "rust", Mode: ModeLexical, Limit: 10, Sort: SortOrder("bogus")})
	if err == nil {
		t.Fatal("expected Parse error for unknown sort")
	}
	serr, ok := err.(*Error)
	if !ok || serr.Kind != Parse {
		t.Fatalf("expected Parse error, got %v", err)
	}
}

func TestPlannerSortDateAscAndDesc(t *testing.T) {
	p := fixture(t)
	resp, err := p.Search(context.Background(), Query{Text: "rust OR python", Mode: ModeLexical, Limit: 10, Sort: SortDateAsc})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("expected 3 results, got %d (%+v)", len(resp.Results), resp.Results)
	}
	for i := 1; i < len(resp.Results); i++ {
		if resp.Results[i].CreatedAt.Before(resp.Results[i-1].CreatedAt) {
			t.Fatalf("date_asc not ascending: %+v", resp.Results)
		}
	}

	resp, err = p.Search(context.Background(), Query{Text: "rust OR python", Mode: ModeLexical, Limit: 10, Sort: SortDateDesc})
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(resp.Results); i++ {
		if resp.Results[i].CreatedAt.After(resp.Results[i-1].CreatedAt) {
			t.Fatalf("date_desc not descending: %+v", resp.Results)
		}
	}
}

func TestPlannerOffsetPagesThroughResults(t *testing.T) {
	p := fixture(t)
	full, err := p.Search(context.Background(), Query{Text: "rust OR python", Mode: ModeLexical, Limit: 10, Sort: SortDateAsc})
	if err != nil {
		t.Fatal(err)
	}
	if full.Total != 3 {
		t.Fatalf("expected 3 total, got %d", full.Total)
	}

	page, err := p.Search(context.Background(), Query{Text: "rust OR python", Mode: ModeLexical, Limit: 1, Offset: 1, Sort: SortDateAsc})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Results) != 1 || page.Results[0].ID != full.Results[1].ID {
		t.Fatalf("expected page to start at offset 1 (%s), got %+v", full.Results[1].ID, page.Results)
	}
	if page.Total != 3 {
		t.Fatalf("expected Total to remain 3 regardless of paging, got %d", page.Total)
	}
}

// dmFixture builds a planner over two direct messages in the same
// conversation, only one of which matches the lexical query, mirroring the
// `--types dm --context` scenario: a single conversation block where only
// the matching message carries is_match=true.
func dmFixture(t *testing.T) *Planner {
	t.Helper()
	dir := t.TempDir()

	store, err := storage.Open(filepath.Join(dir, "xfeed.db"))
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	dms := []*model.DirectMessage{
		{MessageIDStr: "d1", ConversationID: "conv-1", SenderID: "bob", RecipientID: "alice", Text: "Hello Bob", CreatedAt: time.Unix(1000, 0)},
		{MessageIDStr: "d2", ConversationID: "conv-1", SenderID: "alice", RecipientID: "bob", Text: "Hi Alice", CreatedAt: time.Unix(2000, 0)},
	}
	ctx := context.Background()
	if err := store.BulkInsertDMs(ctx, dms, 0); err != nil {
		t.Fatalf("BulkInsertDMs: %v", err)
	}

	kwPath := filepath.Join(dir, "kw")
	kwIdx, err := keyword.Open(kwPath, 2, 8)
	if err != nil {
		t.Fatalf("keyword.Open: %v", err)
	}
	t.Cleanup(func() { kwIdx.Close() })
	w := keyword.NewWriter(kwIdx, 0)
	for _, m := range dms {
		if err := w.AddDoc(model.DocTypeDM, m.MessageIDStr, m.Text, m.CreatedAt.Unix()); err != nil {
			t.Fatalf("AddDoc: %v", err)
		}
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	cfg := &config.SearchConfig{
		DefaultLimit:              20,
		MaxLimit:                  200,
		HybridCandidateMultiplier: 4,
		HybridCandidateCap:        200,
		RRFConstant:               60,
	}
	return NewPlanner(store, kwIdx, nil, embedder.New(), cfg)
}

func TestPlannerConversationContextExpansion(t *testing.T) {
	p := dmFixture(t)

	resp, err := p.Search(context.Background(), Query{
		Text:  "Alice",
		Mode:  ModeLexical,
		Limit: 10,
		Types: map[model.DocType]struct{}{model.DocTypeDM: {}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || resp.Results[0].ID != "d2" {
		t.Fatalf("expected exactly the Hi Alice message to match, got %+v", resp.Results)
	}

	matches := map[string]struct{}{resp.Results[0].ID: {}}
	msgs, err := p.Conversation(context.Background(), "conv-1", matches)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected both conversation messages, got %+v", msgs)
	}
	for _, m := range msgs {
		wantMatch := m.ID == "d2"
		if m.IsMatch != wantMatch {
			t.Fatalf("message %s: IsMatch = %v, want %v", m.ID, m.IsMatch, wantMatch)
		}
	}
}
