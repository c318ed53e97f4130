// Package indexer drives a full ingestion run: parse an archive
// directory, populate the relational store, rebuild the keyword index,
// and rebuild the vector index, keeping all three substrates in
// lockstep.
package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xfeed/xfeed/internal/archive"
	"github.com/xfeed/xfeed/internal/config"
	"github.com/xfeed/xfeed/internal/embedder"
	"github.com/xfeed/xfeed/internal/keyword"
	"github.com/xfeed/xfeed/internal/model"
	"github.com/xfeed/xfeed/internal/storage"
	"github.com/xfeed/xfeed/internal/vector"
	"go.uber.org/zap"
)

const (
	metaKeySchemaVersion     = "schema_version"
	metaKeyArchiveFingerprint = "archive_fingerprint"
	metaKeyIndexedAt          = "indexed_at"
	metaKeyTweetCount         = "tweet_count"
	metaKeyLikeCount          = "like_count"
	metaKeyDMCount            = "dm_count"
	metaKeyGrokCount          = "grok_count"

	schemaVersion = "1"
)

// Orchestrator runs the end-to-end indexing pipeline over the three
// substrates.
type Orchestrator struct {
	store         *storage.Store
	keywordIdx    *keyword.Index
	keywordPath   string
	vectorPath    string
	embedder      *embedder.Embedder
	cfg           *config.Config
	logger        *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger attaches a logger for progress and warning events.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New builds an Orchestrator from its substrates.
func New(store *storage.Store, keywordIdx *keyword.Index, keywordPath, vectorPath string, emb *embedder.Embedder, cfg *config.Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:       store,
		keywordIdx:  keywordIdx,
		keywordPath: keywordPath,
		vectorPath:  vectorPath,
		embedder:    emb,
		cfg:         cfg,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Report summarizes one ingestion run.
type Report struct {
	ArchiveFingerprint string
	TweetCount         int
	LikeCount          int
	DMCount            int
	GrokCount          int
	Warnings           []model.Warning
	EmbeddedCount      int
	SkippedUnchanged   int
}

// Run executes the full pipeline: truncate (if force), parse, bulk
// insert, keyword index, embed-if-changed, and atomic vector rebuild.
func (o *Orchestrator) Run(ctx context.Context, archiveDir string, force bool) (*Report, error) {
	if force {
		o.logger.Info("truncating existing substrates before reindex")
		if err := o.store.TruncateAll(ctx); err != nil {
			return nil, fmt.Errorf("truncate store: %w", err)
		}
		if err := o.keywordIdx.Clear(o.keywordPath, o.cfg.Keyword.EdgeNGramMin, o.cfg.Keyword.EdgeNGramMax); err != nil {
			return nil, fmt.Errorf("clear keyword index: %w", err)
		}
	}

	o.logger.Info("parsing archive", zap.String("dir", archiveDir))
	result, err := archive.ParseDir(archiveDir)
	if err != nil {
		return nil, fmt.Errorf("parse archive: %w", err)
	}
	for _, w := range result.Manifest.Warnings {
		o.logger.Warn("archive parse warning",
			zap.String("shard", w.ShardFile),
			zap.Int("envelope_index", w.EnvelopeIndex),
			zap.String("cause", w.Cause),
		)
	}

	if err := o.store.BulkInsertTweets(ctx, result.Tweets, 0); err != nil {
		return nil, fmt.Errorf("bulk insert tweets: %w", err)
	}
	if err := o.store.BulkInsertLikes(ctx, result.Likes, 0); err != nil {
		return nil, fmt.Errorf("bulk insert likes: %w", err)
	}
	if err := o.store.BulkInsertDMs(ctx, result.DMs, 0); err != nil {
		return nil, fmt.Errorf("bulk insert dms: %w", err)
	}
	if err := o.store.BulkInsertGrok(ctx, result.Grok, 0); err != nil {
		return nil, fmt.Errorf("bulk insert grok: %w", err)
	}

	if err := o.rebuildKeywordIndex(ctx, result); err != nil {
		return nil, fmt.Errorf("rebuild keyword index: %w", err)
	}

	embedded, skipped, err := o.embedChangedRecords(ctx, result)
	if err != nil {
		return nil, fmt.Errorf("embed records: %w", err)
	}

	if err := o.rebuildVectorIndex(ctx); err != nil {
		return nil, fmt.Errorf("rebuild vector index: %w", err)
	}

	fingerprint := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339)
	for k, v := range map[string]string{
		metaKeySchemaVersion:      schemaVersion,
		metaKeyArchiveFingerprint: fingerprint,
		metaKeyIndexedAt:          now,
		metaKeyTweetCount:         fmt.Sprint(len(result.Tweets)),
		metaKeyLikeCount:          fmt.Sprint(len(result.Likes)),
		metaKeyDMCount:            fmt.Sprint(len(result.DMs)),
		metaKeyGrokCount:          fmt.Sprint(len(result.Grok)),
	} {
		if err := o.store.SetMeta(k, v); err != nil {
			return nil, fmt.Errorf("write meta %s: %w", k, err)
		}
	}

	o.logger.Info("indexing run complete",
		zap.Int("tweets", len(result.Tweets)),
		zap.Int("likes", len(result.Likes)),
		zap.Int("dms", len(result.DMs)),
		zap.Int("grok", len(result.Grok)),
		zap.Int("embedded", embedded),
		zap.Int("skipped_unchanged", skipped),
	)

	return &Report{
		ArchiveFingerprint: fingerprint,
		TweetCount:         len(result.Tweets),
		LikeCount:          len(result.Likes),
		DMCount:            len(result.DMs),
		GrokCount:          len(result.Grok),
		Warnings:           result.Manifest.Warnings,
		EmbeddedCount:      embedded,
		SkippedUnchanged:   skipped,
	}, nil
}

func (o *Orchestrator) rebuildKeywordIndex(ctx context.Context, result *archive.Result) error {
	w := keyword.NewWriter(o.keywordIdx, o.cfg.Keyword.SegmentSize)
	addAll := func(records []model.Record) error {
		for _, r := range records {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if r.IndexableText() == "" {
				continue
			}
			if err := w.AddDoc(r.Type(), r.ID(), r.IndexableText(), r.Timestamp().Unix()); err != nil {
				return err
			}
		}
		return nil
	}
	if err := addAll(toRecords(result.Tweets)); err != nil {
		return err
	}
	if err := addAll(toRecords(result.Likes)); err != nil {
		return err
	}
	if err := addAll(toRecords(result.DMs)); err != nil {
		return err
	}
	if err := addAll(toRecords(result.Grok)); err != nil {
		return err
	}
	return w.Commit()
}

// embedChangedRecords canonicalizes and hashes each record's embeddable
// text, re-embedding only when the content hash differs from what is
// already stored (or is new). Records that canonicalize to nothing (low
// signal, empty) are skipped entirely.
func (o *Orchestrator) embedChangedRecords(ctx context.Context, result *archive.Result) (embedded, skipped int, err error) {
	all := toRecords(result.Tweets)
	all = append(all, toRecords(result.Likes)...)
	all = append(all, toRecords(result.DMs)...)
	all = append(all, toRecords(result.Grok)...)

	isShort := map[model.DocType]bool{
		model.DocTypeTweet: true,
		model.DocTypeLike:  true,
		model.DocTypeDM:    false,
		model.DocTypeGrok:  false,
	}

	for i, r := range all {
		if i%64 == 0 && ctx.Err() != nil {
			return embedded, skipped, ctx.Err()
		}
		text := r.EmbeddableText()
		if text == "" {
			continue
		}
		maxChars := embedder.MaxCharsFor(isShort[r.Type()])
		canonical, ok := embedder.CanonicalizeForEmbedding(text, maxChars)
		if !ok {
			continue
		}
		hash := embedder.ContentHash(canonical)

		existing, found, err := o.store.GetContentHash(ctx, r.Type(), r.ID())
		if err != nil {
			return embedded, skipped, err
		}
		if found && existing == hash {
			skipped++
			continue
		}

		vec := o.embedder.Embed(canonical)
		if err := o.store.PutEmbedding(ctx, r.Type(), r.ID(), vec, hash); err != nil {
			return embedded, skipped, err
		}
		embedded++
	}
	return embedded, skipped, nil
}

func (o *Orchestrator) rebuildVectorIndex(ctx context.Context) error {
	rows, err := o.store.AllEmbeddings(ctx)
	if err != nil {
		return err
	}
	entries := make([]vector.Entry, len(rows))
	for i, row := range rows {
		entries[i] = vector.Entry{DocType: row.DocType, DocID: row.DocID, Vector: row.Vector}
	}
	return vector.WriteAtomic(o.vectorPath, entries, o.embedder.Dimensions())
}

func toRecords[T model.Record](items []T) []model.Record {
	out := make([]model.Record, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}
