package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/xfeed/xfeed/internal/config"
	"github.com/xfeed/xfeed/internal/embedder"
	"github.com/xfeed/xfeed/internal/keyword"
	"github.com/xfeed/xfeed/internal/storage"
	"github.com/xfeed/xfeed/internal/vector"
)

const tweetsFixture = `window.YTD.tweets.part0 = [
  {"tweet": {"id_str": "1", "full_text": "rust async runtimes are getting good", "created_at": "Mon Jan 02 15:04:05 +0000 2024", "favorite_count": "3", "retweet_count": "1"}},
  {"tweet": {"id_str": "2", "full_text": "rewrote the parser in rust this weekend", "created_at": "Tue Jan 03 15:04:05 +0000 2024", "favorite_count": "0", "retweet_count": "0"}}
]`

const likesFixture = `window.YTD.like.part0 = [
  {"like": {"tweetId": "9", "fullText": "a cool tweet about rust", "expandedUrl": "https://x.com/i/web/status/9"}}
]`

func writeArchive(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, "tweets.js"), []byte(tweetsFixture), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, "like.js"), []byte(likesFixture), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func buildOrchestrator(t *testing.T) (*Orchestrator, string) {
	t.Helper()
	workDir := t.TempDir()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.DatabasePath = filepath.Join(workDir, "xfeed.db")
	cfg.Storage.KeywordIndexPath = filepath.Join(workDir, "xfeed.kwidx")
	cfg.Storage.VectorIndexPath = filepath.Join(workDir, "xfeed.xfvi")

	store, err := storage.Open(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	kwIdx, err := keyword.Open(cfg.Storage.KeywordIndexPath, cfg.Keyword.EdgeNGramMin, cfg.Keyword.EdgeNGramMax)
	if err != nil {
		t.Fatalf("keyword.Open: %v", err)
	}
	t.Cleanup(func() { kwIdx.Close() })

	emb := embedder.New()
	orch := New(store, kwIdx, cfg.Storage.KeywordIndexPath, cfg.Storage.VectorIndexPath, emb, cfg)
	return orch, cfg.Storage.VectorIndexPath
}

func TestOrchestratorRunPopulatesAllSubstrates(t *testing.T) {
	orch, vecPath := buildOrchestrator(t)
	archiveDir := writeArchive(t)

	report, err := orch.Run(context.Background(), archiveDir, false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.TweetCount != 2 || report.LikeCount != 1 {
		t.Fatalf("expected 2 tweets and 1 like, got %+v", report)
	}
	if report.EmbeddedCount != 3 {
		t.Fatalf("expected 3 records embedded, got %d", report.EmbeddedCount)
	}

	n, err := orch.keywordIdx.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("expected 3 keyword docs, got %d", n)
	}

	vecIdx, err := vector.Open(vecPath)
	if err != nil {
		t.Fatalf("vector.Open: %v", err)
	}
	defer vecIdx.Close()
	if vecIdx.Len() != 3 {
		t.Fatalf("expected 3 vector entries, got %d", vecIdx.Len())
	}
}

func TestOrchestratorRunTwiceIsIdempotentAndSkipsUnchanged(t *testing.T) {
	orch, _ := buildOrchestrator(t)
	archiveDir := writeArchive(t)

	if _, err := orch.Run(context.Background(), archiveDir, false); err != nil {
		t.Fatalf("first run: %v", err)
	}
	report, err := orch.Run(context.Background(), archiveDir, false)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if report.SkippedUnchanged != 3 {
		t.Fatalf("expected second run to skip all 3 unchanged records, got %+v", report)
	}
	if report.EmbeddedCount != 0 {
		t.Fatalf("expected second run to re-embed nothing, got %d", report.EmbeddedCount)
	}
}

func TestOrchestratorForceTruncatesBeforeReindex(t *testing.T) {
	orch, _ := buildOrchestrator(t)
	archiveDir := writeArchive(t)

	if _, err := orch.Run(context.Background(), archiveDir, false); err != nil {
		t.Fatalf("first run: %v", err)
	}
	report, err := orch.Run(context.Background(), archiveDir, true)
	if err != nil {
		t.Fatalf("forced run: %v", err)
	}
	// Force clears the keyword index and the relational embeddings table, so
	// every record looks new again.
	if report.EmbeddedCount != 3 {
		t.Fatalf("expected forced run to re-embed all 3 records, got %+v", report)
	}
}

func TestOrchestratorDiagnoseReportsAgreement(t *testing.T) {
	orch, _ := buildOrchestrator(t)
	archiveDir := writeArchive(t)
	if _, err := orch.Run(context.Background(), archiveDir, false); err != nil {
		t.Fatalf("run: %v", err)
	}

	diag, err := orch.Diagnose(context.Background())
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !diag.Agrees {
		t.Fatalf("expected substrates to agree, got problems: %v", diag.Problems)
	}
}
