// Package model defines the record types held in a personal archive:
// tweets, likes, direct messages, and grok conversation turns.
package model

import "time"

// DocType discriminates the four record kinds. The vector index stores
// it as a one-byte code rather than as this string (see internal/vector).
type DocType string

const (
	DocTypeTweet   DocType = "tweet"
	DocTypeLike    DocType = "like"
	DocTypeDM      DocType = "dm"
	DocTypeGrok    DocType = "grok"
)

// Record is the capability set shared by every archive record. A concrete
// type may return "" from IndexableText or EmbeddableText when it has no
// meaningful text (e.g. a like pointing at a deleted tweet with no cached
// text).
type Record interface {
	ID() string
	Type() DocType
	Timestamp() time.Time
	IndexableText() string
	EmbeddableText() string
	Metadata() map[string]any
}

// Tweet is an authored tweet, reply, or retweet from tweets.js.
type Tweet struct {
	IDStr            string
	FullText         string
	CreatedAt        time.Time
	InReplyToStatusID string
	RetweetedStatusID string
	FavoriteCount    int
	RetweetCount     int
	Lang             string
}

func (t *Tweet) ID() string        { return t.IDStr }
func (t *Tweet) Type() DocType     { return DocTypeTweet }
func (t *Tweet) Timestamp() time.Time { return t.CreatedAt }
func (t *Tweet) IndexableText() string  { return t.FullText }
func (t *Tweet) EmbeddableText() string { return t.FullText }
func (t *Tweet) Metadata() map[string]any {
	return map[string]any{
		"in_reply_to_status_id": t.InReplyToStatusID,
		"retweeted_status_id":   t.RetweetedStatusID,
		"favorite_count":        t.FavoriteCount,
		"retweet_count":         t.RetweetCount,
		"lang":                  t.Lang,
	}
}

// Like is a favorited tweet from like.js. Twitter's export only carries the
// liked tweet's cached text and ID, never the author or engagement counts.
type Like struct {
	TweetIDStr  string
	FullText    string
	ExpandedURL string
	// LikedAt is absent from the export; internal/archive leaves it zero
	// (the store writes NULL for it) and sets TimestampEstimated, reported
	// as Metadata()["timestamp_is_estimated"].
	LikedAt            time.Time
	TimestampEstimated bool
}

func (l *Like) ID() string        { return l.TweetIDStr }
func (l *Like) Type() DocType     { return DocTypeLike }
func (l *Like) Timestamp() time.Time { return l.LikedAt }
func (l *Like) IndexableText() string  { return l.FullText }
func (l *Like) EmbeddableText() string { return l.FullText }
func (l *Like) Metadata() map[string]any {
	return map[string]any{
		"expanded_url":            l.ExpandedURL,
		"timestamp_is_estimated":  l.TimestampEstimated,
	}
}

// DirectMessage is one flattened message from a conversation in
// direct-messages.js (or direct-messages-group.js).
type DirectMessage struct {
	MessageIDStr   string
	ConversationID string
	SenderID       string
	RecipientID    string
	Text           string
	CreatedAt      time.Time
}

func (d *DirectMessage) ID() string        { return d.MessageIDStr }
func (d *DirectMessage) Type() DocType     { return DocTypeDM }
func (d *DirectMessage) Timestamp() time.Time { return d.CreatedAt }
func (d *DirectMessage) IndexableText() string  { return d.Text }
func (d *DirectMessage) EmbeddableText() string { return d.Text }
func (d *DirectMessage) Metadata() map[string]any {
	return map[string]any{
		"conversation_id": d.ConversationID,
		"sender_id":       d.SenderID,
		"recipient_id":    d.RecipientID,
	}
}

// GrokMessage is one turn of a conversation with Grok, from
// grok-chat-item.js or similar.
type GrokMessage struct {
	MessageIDStr   string
	ConversationID string
	Sender         string // "user" or "grok"
	Text           string
	CreatedAt      time.Time
}

func (g *GrokMessage) ID() string        { return g.MessageIDStr }
func (g *GrokMessage) Type() DocType     { return DocTypeGrok }
func (g *GrokMessage) Timestamp() time.Time { return g.CreatedAt }
func (g *GrokMessage) IndexableText() string  { return g.Text }
func (g *GrokMessage) EmbeddableText() string { return g.Text }
func (g *GrokMessage) Metadata() map[string]any {
	return map[string]any{
		"conversation_id": g.ConversationID,
		"sender":          g.Sender,
	}
}

// Conversation is a derived grouping of direct messages sharing a
// ConversationID, ordered by CreatedAt. It is never persisted as its own
// table. (internal/search.Enricher builds its conversation view as
// []search.ConversationResult rather than as this type.)
type Conversation struct {
	ID       string
	Messages []*DirectMessage
}

// ArchiveManifest describes one ingested archive directory: which shard
// files were parsed, how many records of each type they yielded in total,
// and any per-envelope warnings recorded along the way. It is
// parse-time-only.
type ArchiveManifest struct {
	RootDir       string
	ShardFiles    []string
	TweetCount    int
	LikeCount     int
	DMCount       int
	GrokCount     int
	Warnings      []Warning
}

// Warning is a non-fatal problem encountered while parsing a shard.
type Warning struct {
	ShardFile      string
	EnvelopeIndex  int
	Cause          string
}
