package indexer

import (
	"context"
	"fmt"

	"github.com/xfeed/xfeed/internal/storage"
)

// Diagnosis reports whether the three substrates agree on how many
// records exist, and the combined disk usage of the keyword index and
// vector index paths (the relational store file is not included).
type Diagnosis struct {
	RelationalCounts map[string]int
	KeywordDocCount  uint64
	VectorDocCount   int
	Agrees           bool
	Problems         []string
	DiskUsageBytes   int64
}

// Diagnose compares the total relational record count with the keyword
// index's document count and the number of rows in the embeddings table
// (reported as VectorDocCount), and flags a substrate that holds more
// documents than the relational store. Lower counts are not flagged,
// since empty-text and low-signal records are legitimately absent from
// the keyword index or the embeddings. Per-type counts are reported in
// RelationalCounts but not compared.
func (o *Orchestrator) Diagnose(ctx context.Context) (*Diagnosis, error) {
	stats, err := o.store.Statistics(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("read statistics: %w", err)
	}
	relCounts := map[string]int{
		"tweet": stats.TweetCount,
		"like":  stats.LikeCount,
		"dm":    stats.DMCount,
		"grok":  stats.GrokCount,
	}
	relTotal := stats.TweetCount + stats.LikeCount + stats.DMCount + stats.GrokCount

	kwCount, err := o.keywordIdx.DocCount()
	if err != nil {
		return nil, fmt.Errorf("keyword doc count: %w", err)
	}

	vecCount := 0
	rows, err := o.store.AllEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("read embeddings: %w", err)
	}
	vecCount = len(rows)

	d := &Diagnosis{
		RelationalCounts: relCounts,
		KeywordDocCount:  kwCount,
		VectorDocCount:   vecCount,
		Agrees:           true,
	}

	// Keyword count can legitimately be lower than relational total: empty-text
	// records (e.g. a like with no cached tweet text) are never written to the
	// keyword index. It should never be higher.
	if int(kwCount) > relTotal {
		d.Agrees = false
		d.Problems = append(d.Problems, fmt.Sprintf("keyword index has %d docs, more than %d relational records", kwCount, relTotal))
	}
	if vecCount > relTotal {
		d.Agrees = false
		d.Problems = append(d.Problems, fmt.Sprintf("vector index has %d entries, more than %d relational records", vecCount, relTotal))
	}

	diskUsage, err := storage.DiskUsageBytes(o.keywordPath, o.vectorPath)
	if err != nil {
		return nil, fmt.Errorf("disk usage: %w", err)
	}
	d.DiskUsageBytes = diskUsage

	return d, nil
}
