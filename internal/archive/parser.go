// Package archive parses an X/Twitter personal-data-export directory into
// the record model in internal/model.
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/xfeed/xfeed/internal/model"
)

// shardKind identifies which record type a shard file contributes.
type shardKind int

const (
	shardUnknown shardKind = iota
	shardTweets
	shardLikes
	shardDMs
	shardGrok
	shardManifest
)

var shardPatterns = []struct {
	re   *regexp.Regexp
	kind shardKind
}{
	{regexp.MustCompile(`^tweets(-part\d+)?\.js$`), shardTweets},
	{regexp.MustCompile(`^like\.js$`), shardLikes},
	{regexp.MustCompile(`^direct-messages(-group)?(-part\d+)?\.js$`), shardDMs},
	{regexp.MustCompile(`^grok-chat-item(-part\d+)?\.js$`), shardGrok},
	{regexp.MustCompile(`^manifest\.js$`), shardManifest},
}

func classifyShard(filename string) shardKind {
	for _, p := range shardPatterns {
		if p.re.MatchString(filename) {
			return p.kind
		}
	}
	return shardUnknown
}

// Result is the outcome of parsing one archive directory.
type Result struct {
	Manifest model.ArchiveManifest
	Tweets   []*model.Tweet
	Likes    []*model.Like
	DMs      []*model.DirectMessage
	Grok     []*model.GrokMessage
}

// ParseDir walks rootDir/data, classifies each shard by filename, and
// parses recognized shards in parallel (bounded by runtime.NumCPU()).
// Per-shard fatal errors abort only that shard; the returned error, if
// any, is the first fatal error encountered, but every shard is still
// attempted (concurrently) before ParseDir returns.
func ParseDir(rootDir string) (*Result, error) {
	dataDir := filepath.Join(rootDir, "data")
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, &Error{Kind: NotFound, Path: dataDir, Cause: err}
	}

	type shardJob struct {
		path string
		kind shardKind
	}
	var jobs []shardJob
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		kind := classifyShard(e.Name())
		if kind == shardUnknown || kind == shardManifest {
			continue
		}
		jobs = append(jobs, shardJob{path: filepath.Join(dataDir, e.Name()), kind: kind})
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].path < jobs[j].path })

	type shardResult struct {
		path     string
		tweets   []*model.Tweet
		likes    []*model.Like
		dms      []*model.DirectMessage
		grok     []*model.GrokMessage
		warnings []model.Warning
		err      error
	}

	results := make([]shardResult, len(jobs))
	sem := make(chan struct{}, max(1, runtime.NumCPU()))
	var wg sync.WaitGroup
	for i, j := range jobs {
		wg.Add(1)
		go func(i int, j shardJob) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			raw, err := os.ReadFile(j.path)
			if err != nil {
				results[i] = shardResult{path: j.path, err: &Error{Kind: UnreadableShard, Path: j.path, Cause: err}}
				return
			}
			body := StripFramingPrefix(raw)

			var r shardResult
			r.path = j.path
			switch j.kind {
			case shardTweets:
				r.tweets, r.warnings, r.err = parseTweets(j.path, body)
			case shardLikes:
				r.likes, r.warnings, r.err = parseLikes(j.path, body)
			case shardDMs:
				r.dms, r.warnings, r.err = parseDMs(j.path, body)
			case shardGrok:
				r.grok, r.warnings, r.err = parseGrok(j.path, body)
			}
			results[i] = r
		}(i, j)
	}
	wg.Wait()

	out := &Result{Manifest: model.ArchiveManifest{RootDir: rootDir}}
	var firstErr error
	for _, r := range results {
		if r.path == "" {
			continue
		}
		out.Manifest.ShardFiles = append(out.Manifest.ShardFiles, r.path)
		out.Manifest.Warnings = append(out.Manifest.Warnings, r.warnings...)
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		out.Tweets = append(out.Tweets, r.tweets...)
		out.Likes = append(out.Likes, r.likes...)
		out.DMs = append(out.DMs, r.dms...)
		out.Grok = append(out.Grok, r.grok...)
	}
	out.Manifest.TweetCount = len(out.Tweets)
	out.Manifest.LikeCount = len(out.Likes)
	out.Manifest.DMCount = len(out.DMs)
	out.Manifest.GrokCount = len(out.Grok)
	return out, firstErr
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func parseTweets(path string, body []byte) ([]*model.Tweet, []model.Warning, error) {
	var envs []tweetEnvelope
	if err := json.Unmarshal(body, &envs); err != nil {
		return nil, nil, &Error{Kind: MalformedJSON, Path: path, Offset: syntaxOffset(err), Cause: err}
	}
	var out []*model.Tweet
	var warnings []model.Warning
	for i, e := range envs {
		p := e.Tweet
		if p.IDStr == "" {
			warnings = append(warnings, model.Warning{ShardFile: path, EnvelopeIndex: i, Cause: "missing tweet payload"})
			continue
		}
		t := &model.Tweet{
			IDStr:             p.IDStr,
			FullText:          p.FullText,
			InReplyToStatusID: p.InReplyToStatusID,
			RetweetedStatusID: p.RetweetedStatusID,
			Lang:              p.Lang,
		}
		if ts, ok := ParseTimestamp(p.CreatedAt); ok {
			t.CreatedAt = ts
		} else if p.CreatedAt != "" {
			warnings = append(warnings, model.Warning{ShardFile: path, EnvelopeIndex: i, Cause: "unparseable created_at: " + p.CreatedAt})
		}
		t.FavoriteCount = parseIntOrWarn(p.FavoriteCount, path, i, "favorite_count", &warnings)
		t.RetweetCount = parseIntOrWarn(p.RetweetCount, path, i, "retweet_count", &warnings)
		out = append(out, t)
	}
	return out, warnings, nil
}

func parseLikes(path string, body []byte) ([]*model.Like, []model.Warning, error) {
	var envs []likeEnvelope
	if err := json.Unmarshal(body, &envs); err != nil {
		return nil, nil, &Error{Kind: MalformedJSON, Path: path, Offset: syntaxOffset(err), Cause: err}
	}
	var out []*model.Like
	var warnings []model.Warning
	for i, e := range envs {
		p := e.Like
		if p.TweetID == "" {
			warnings = append(warnings, model.Warning{ShardFile: path, EnvelopeIndex: i, Cause: "missing like payload"})
			continue
		}
		out = append(out, &model.Like{
			TweetIDStr:         p.TweetID,
			FullText:           p.FullText,
			ExpandedURL:        p.ExpandedURL,
			TimestampEstimated: true,
		})
	}
	return out, warnings, nil
}

func parseDMs(path string, body []byte) ([]*model.DirectMessage, []model.Warning, error) {
	var envs []dmEnvelope
	if err := json.Unmarshal(body, &envs); err != nil {
		return nil, nil, &Error{Kind: MalformedJSON, Path: path, Offset: syntaxOffset(err), Cause: err}
	}
	var out []*model.DirectMessage
	var warnings []model.Warning
	for i, e := range envs {
		conv := e.DMConversation
		for _, m := range conv.Messages {
			if m.MessageCreate == nil {
				warnings = append(warnings, model.Warning{ShardFile: path, EnvelopeIndex: i, Cause: "message without messageCreate"})
				continue
			}
			mc := m.MessageCreate
			dm := &model.DirectMessage{
				MessageIDStr:   mc.ID,
				ConversationID: conv.ConversationID,
				SenderID:       mc.SenderID,
				RecipientID:    mc.RecipientID,
				Text:           mc.Text,
			}
			if ts, ok := ParseTimestamp(mc.CreatedAt); ok {
				dm.CreatedAt = ts
			} else if mc.CreatedAt != "" {
				warnings = append(warnings, model.Warning{ShardFile: path, EnvelopeIndex: i, Cause: "unparseable createdAt: " + mc.CreatedAt})
			}
			out = append(out, dm)
		}
	}
	return out, warnings, nil
}

func parseGrok(path string, body []byte) ([]*model.GrokMessage, []model.Warning, error) {
	var envs []grokEnvelope
	if err := json.Unmarshal(body, &envs); err != nil {
		return nil, nil, &Error{Kind: MalformedJSON, Path: path, Offset: syntaxOffset(err), Cause: err}
	}
	var out []*model.GrokMessage
	var warnings []model.Warning
	for i, e := range envs {
		p := e.GrokChatItem
		if p.ID == "" {
			warnings = append(warnings, model.Warning{ShardFile: path, EnvelopeIndex: i, Cause: "missing grokChatItem payload"})
			continue
		}
		g := &model.GrokMessage{
			MessageIDStr:   p.ID,
			ConversationID: p.ConversationID,
			Sender:         p.Sender,
			Text:           p.Message,
		}
		if ts, ok := ParseTimestamp(p.CreatedAt); ok {
			g.CreatedAt = ts
		} else if p.CreatedAt != "" {
			warnings = append(warnings, model.Warning{ShardFile: path, EnvelopeIndex: i, Cause: "unparseable createdAt: " + p.CreatedAt})
		}
		out = append(out, g)
	}
	return out, warnings, nil
}

func parseIntOrWarn(s, path string, envelopeIdx int, field string, warnings *[]model.Warning) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		*warnings = append(*warnings, model.Warning{ShardFile: path, EnvelopeIndex: envelopeIdx, Cause: fmt.Sprintf("unparseable %s: %q", field, s)})
		return 0
	}
	return n
}

func syntaxOffset(err error) int64 {
	if se, ok := err.(*json.SyntaxError); ok {
		return se.Offset
	}
	return 0
}
