// Package main is the xfeed CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/xfeed/xfeed/internal/config"
	"github.com/xfeed/xfeed/internal/embedder"
	"github.com/xfeed/xfeed/internal/indexer"
	"github.com/xfeed/xfeed/internal/keyword"
	"github.com/xfeed/xfeed/internal/model"
	"github.com/xfeed/xfeed/internal/search"
	"github.com/xfeed/xfeed/internal/storage"
	"github.com/xfeed/xfeed/internal/vector"
	"github.com/xfeed/xfeed/pkg/xlog"
	"go.uber.org/zap"
)

const (
	exitOK        = 0
	exitUserErr   = 1
	exitInternal  = 2
	exitCancelled = 130
)

var version = "dev"

const defaultConfigPath = "./xfeed.yaml"

// loadConfig loads config from path, falling back to defaults when the
// file doesn't exist yet (a first "xfeed index" run in a fresh directory
// should not require a config file).
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := &config.Config{}
		config.ApplyDefaults(cfg)
		return cfg, nil
	}
	return config.Load(path)
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(exitUserErr)
	}
	switch os.Args[1] {
	case "index":
		os.Exit(runIndex(os.Args[2:]))
	case "search":
		os.Exit(runSearch(os.Args[2:]))
	case "stats":
		os.Exit(runStats(os.Args[2:]))
	case "doctor":
		os.Exit(runDoctor(os.Args[2:]))
	case "version", "--version", "-v":
		fmt.Printf("xfeed version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(exitUserErr)
	}
}

func printUsage() {
	fmt.Println(`xfeed: search over your X/Twitter archive export

Usage:
  xfeed index [--force] <archive-dir>
  xfeed search [--mode=lexical|semantic|hybrid] [--types=tweet,like,dm,grok] [--limit=N] [--offset=N] [--sort=relevance|date_asc|date_desc|engagement] [--context] <query>
  xfeed stats [--detailed]
  xfeed doctor`)
}

type components struct {
	store    *storage.Store
	keyword  *keyword.Index
	vector   *vector.Index // nil if not yet built
	embedder *embedder.Embedder
	cfg      *config.Config
	logger   *zap.Logger
}

func (c *components) Close() {
	if c.keyword != nil {
		c.keyword.Close()
	}
	if c.vector != nil {
		c.vector.Close()
	}
	if c.store != nil {
		c.store.Close()
	}
}

func openComponents(cfg *config.Config, logger *zap.Logger, requireVector bool) (*components, error) {
	store, err := storage.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	kwIdx, err := keyword.Open(cfg.Storage.KeywordIndexPath, cfg.Keyword.EdgeNGramMin, cfg.Keyword.EdgeNGramMax)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open keyword index: %w", err)
	}
	var vecIdx *vector.Index
	if _, statErr := os.Stat(cfg.Storage.VectorIndexPath); statErr == nil {
		vecIdx, err = vector.Open(cfg.Storage.VectorIndexPath)
		if err != nil {
			kwIdx.Close()
			store.Close()
			return nil, fmt.Errorf("open vector index: %w", err)
		}
	} else if requireVector {
		kwIdx.Close()
		store.Close()
		return nil, fmt.Errorf("vector index not built yet: run 'xfeed index' first")
	}
	return &components{
		store:    store,
		keyword:  kwIdx,
		vector:   vecIdx,
		embedder: embedder.New(),
		cfg:      cfg,
		logger:   logger,
	}, nil
}

func runIndex(args []string) int {
	fs := flag.NewFlagSet("index", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	force := fs.Bool("force", false, "truncate all substrates before reindexing")
	debug := fs.Bool("debug", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return exitUserErr
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: xfeed index [--force] <archive-dir>")
		return exitUserErr
	}
	archiveDir := fs.Arg(0)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return exitUserErr
	}
	logger, err := xlog.New(cfg.Debug || *debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		return exitInternal
	}
	defer logger.Sync()

	comps, err := openComponents(cfg, logger, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitInternal
	}
	defer comps.Close()

	ctx, cancel := signalContext()
	defer cancel()

	orch := indexer.New(comps.store, comps.keyword, cfg.Storage.KeywordIndexPath, cfg.Storage.VectorIndexPath, comps.embedder, cfg, indexer.WithLogger(logger))
	report, err := orch.Run(ctx, archiveDir, *force)
	if err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(os.Stderr, "indexing cancelled")
			return exitCancelled
		}
		fmt.Fprintf(os.Stderr, "index: %v\n", err)
		return exitInternal
	}

	fmt.Printf("indexed %d tweets, %d likes, %d dms, %d grok messages (%d embedded, %d unchanged)\n",
		report.TweetCount, report.LikeCount, report.DMCount, report.GrokCount, report.EmbeddedCount, report.SkippedUnchanged)
	for _, w := range report.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s (envelope %d in %s)\n", w.Cause, w.EnvelopeIndex, w.ShardFile)
	}
	return exitOK
}

func runSearch(args []string) int {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	mode := fs.String("mode", "hybrid", "search mode: lexical, semantic, or hybrid")
	types := fs.String("types", "", "comma-separated doc types to include (tweet,like,dm,grok)")
	limit := fs.Int("limit", 0, "max results (0 = config default)")
	offset := fs.Int("offset", 0, "skip this many results before the page")
	sortOrder := fs.String("sort", "relevance", "sort order: relevance, date_asc, date_desc, or engagement")
	since := fs.String("since", "", "only include records at or after this RFC3339 timestamp")
	until := fs.String("until", "", "only include records at or before this RFC3339 timestamp")
	expandContext := fs.Bool("context", false, "expand direct-message matches into their full conversation")
	jsonOut := fs.Bool("json", false, "emit results as JSON")
	if err := fs.Parse(args); err != nil {
		return exitUserErr
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: xfeed search [flags] <query>")
		return exitUserErr
	}
	queryText := strings.Join(fs.Args(), " ")

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return exitUserErr
	}
	logger, err := xlog.New(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		return exitInternal
	}
	defer logger.Sync()

	comps, err := openComponents(cfg, logger, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitInternal
	}
	defer comps.Close()

	q := search.Query{Text: queryText, Mode: search.Mode(*mode), Limit: *limit, Offset: *offset, Sort: search.SortOrder(*sortOrder)}
	if *types != "" {
		q.Types = map[model.DocType]struct{}{}
		for _, t := range strings.Split(*types, ",") {
			q.Types[model.DocType(strings.TrimSpace(t))] = struct{}{}
		}
	}
	if *since != "" {
		ts, err := time.Parse(time.RFC3339, *since)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid --since: %v\n", err)
			return exitUserErr
		}
		u := ts.Unix()
		q.SinceUnix = &u
	}
	if *until != "" {
		ts, err := time.Parse(time.RFC3339, *until)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid --until: %v\n", err)
			return exitUserErr
		}
		u := ts.Unix()
		q.UntilUnix = &u
	}

	planner := search.NewPlanner(comps.store, comps.keyword, comps.vector, comps.embedder, &cfg.Search)

	ctx, cancel := signalContext()
	defer cancel()

	resp, err := planner.Search(ctx, q)
	if err != nil {
		if serr, ok := err.(*search.Error); ok && serr.Kind == search.Cancelled {
			return exitCancelled
		}
		fmt.Fprintf(os.Stderr, "search: %v\n", err)
		return exitInternal
	}

	if *expandContext {
		blocks, err := buildConversationBlocks(ctx, planner, resp)
		if err != nil {
			fmt.Fprintf(os.Stderr, "context expansion: %v\n", err)
			return exitInternal
		}
		if *jsonOut {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(blocks)
			return exitOK
		}
		for _, b := range blocks {
			fmt.Printf("conversation %s:\n", b.ConversationID)
			for _, m := range b.Messages {
				marker := " "
				if m.IsMatch {
					marker = "*"
				}
				fmt.Printf(" %s [%s] %s\n", marker, m.CreatedAt.Format(time.RFC3339), truncateForDisplay(m.Text, 200))
			}
		}
		return exitOK
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(resp)
		return exitOK
	}
	for i, r := range resp.Results {
		fmt.Printf("%d. [%s] %s  (score %.4f, %s)\n", i+1, r.DocType, r.ID, r.Score, r.CreatedAt.Format(time.RFC3339))
		fmt.Printf("   %s\n", truncateForDisplay(r.Text, 200))
	}
	fmt.Printf("\n%d of %d total results\n", len(resp.Results), resp.Total)
	return exitOK
}

// buildConversationBlocks groups resp's DM results by conversation_id and
// expands each into its full conversation context (the `--context` CLI
// option), annotating the messages that were themselves search hits.
func buildConversationBlocks(ctx context.Context, planner *search.Planner, resp *search.Response) ([]search.ConversationBlock, error) {
	matchesByConv := map[string]map[string]struct{}{}
	var order []string
	for _, r := range resp.Results {
		if r.DocType != model.DocTypeDM {
			continue
		}
		convID, _ := r.Metadata["conversation_id"].(string)
		if convID == "" {
			continue
		}
		if _, ok := matchesByConv[convID]; !ok {
			matchesByConv[convID] = map[string]struct{}{}
			order = append(order, convID)
		}
		matchesByConv[convID][r.ID] = struct{}{}
	}

	blocks := make([]search.ConversationBlock, 0, len(order))
	for _, convID := range order {
		msgs, err := planner.Conversation(ctx, convID, matchesByConv[convID])
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, search.ConversationBlock{ConversationID: convID, Messages: msgs})
	}
	return blocks, nil
}

func runStats(args []string) int {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	detailed := fs.Bool("detailed", false, "include daily histogram and engagement aggregates")
	if err := fs.Parse(args); err != nil {
		return exitUserErr
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return exitUserErr
	}
	store, err := storage.Open(cfg.Storage.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		return exitInternal
	}
	defer store.Close()

	stats, err := store.Statistics(context.Background(), *detailed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stats: %v\n", err)
		return exitInternal
	}
	fmt.Printf("tweets: %d\nlikes: %d\ndms: %d\ngrok: %d\n", stats.TweetCount, stats.LikeCount, stats.DMCount, stats.GrokCount)
	if *detailed {
		fmt.Printf("total favorites: %d\ntotal retweets: %d\nmax favorites: %d\nmax retweets: %d\n",
			stats.TotalFavorites, stats.TotalRetweets, stats.MaxFavorites, stats.MaxRetweets)
		fmt.Printf("days with activity: %d\n", len(stats.DailyHistogram))
	}

	usage, err := storage.DiskUsageBytes(cfg.Storage.DatabasePath, cfg.Storage.KeywordIndexPath, cfg.Storage.VectorIndexPath)
	if err == nil {
		fmt.Printf("disk usage: %s\n", formatBytes(usage))
	}
	return exitOK
}

func runDoctor(args []string) int {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	if err := fs.Parse(args); err != nil {
		return exitUserErr
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return exitUserErr
	}
	comps, err := openComponents(cfg, xlog.Nop(), false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitInternal
	}
	defer comps.Close()

	orch := indexer.New(comps.store, comps.keyword, cfg.Storage.KeywordIndexPath, cfg.Storage.VectorIndexPath, comps.embedder, cfg)
	diag, err := orch.Diagnose(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "doctor: %v\n", err)
		return exitInternal
	}

	fmt.Printf("relational counts: %v\n", diag.RelationalCounts)
	fmt.Printf("keyword docs: %d\n", diag.KeywordDocCount)
	fmt.Printf("vector entries: %d\n", diag.VectorDocCount)
	fmt.Printf("disk usage: %s\n", formatBytes(diag.DiskUsageBytes))
	if diag.Agrees {
		fmt.Println("substrates agree")
		return exitOK
	}
	fmt.Println("substrate disagreement detected:")
	for _, p := range diag.Problems {
		fmt.Printf("  - %s\n", p)
	}
	return exitInternal
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func truncateForDisplay(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return strconv.FormatInt(n, 10) + " B"
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	units := "KMGTPE"
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), units[exp])
}
