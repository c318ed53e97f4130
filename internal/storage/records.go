package storage

import (
	"context"
	"database/sql"

	"github.com/xfeed/xfeed/internal/model"
)

const defaultBatchSize = 500

// BulkInsertTweets upserts tweets in batches of batchSize, one
// transaction per batch, keeping the primary table and its FTS5 shadow
// in lockstep within the same transaction.
func (s *Store) BulkInsertTweets(ctx context.Context, tweets []*model.Tweet, batchSize int) error {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	for start := 0; start < len(tweets); start += batchSize {
		end := min(start+batchSize, len(tweets))
		if err := s.insertTweetBatch(ctx, tweets[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) insertTweetBatch(ctx context.Context, batch []*model.Tweet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &Error{Kind: Io, Op: "insert tweets begin", Cause: err}
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO tweets
		(id, full_text, created_at, in_reply_to_status_id, retweeted_status_id, favorite_count, retweet_count, lang)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			full_text=excluded.full_text, created_at=excluded.created_at,
			in_reply_to_status_id=excluded.in_reply_to_status_id,
			retweeted_status_id=excluded.retweeted_status_id,
			favorite_count=excluded.favorite_count, retweet_count=excluded.retweet_count,
			lang=excluded.lang`)
	if err != nil {
		return &Error{Kind: Corruption, Op: "prepare tweets", Cause: err}
	}
	defer stmt.Close()

	ftsStmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO tweets_fts(rowid, id, full_text)
		VALUES ((SELECT rowid FROM tweets WHERE id = ?), ?, ?)`)
	if err != nil {
		return &Error{Kind: Corruption, Op: "prepare tweets_fts", Cause: err}
	}
	defer ftsStmt.Close()

	for _, t := range batch {
		var createdAt sql.NullInt64
		if !t.CreatedAt.IsZero() {
			createdAt = sql.NullInt64{Int64: t.CreatedAt.Unix(), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, t.IDStr, t.FullText, createdAt, t.InReplyToStatusID, t.RetweetedStatusID, t.FavoriteCount, t.RetweetCount, t.Lang); err != nil {
			return &Error{Kind: Corruption, Op: "insert tweet " + t.IDStr, Cause: err}
		}
		if _, err := ftsStmt.ExecContext(ctx, t.IDStr, t.IDStr, t.FullText); err != nil {
			return &Error{Kind: Corruption, Op: "insert tweet fts " + t.IDStr, Cause: err}
		}
	}
	return tx.Commit()
}

// BulkInsertLikes upserts likes in batches, mirroring BulkInsertTweets.
func (s *Store) BulkInsertLikes(ctx context.Context, likes []*model.Like, batchSize int) error {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	for start := 0; start < len(likes); start += batchSize {
		end := min(start+batchSize, len(likes))
		if err := s.insertLikeBatch(ctx, likes[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) insertLikeBatch(ctx context.Context, batch []*model.Like) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &Error{Kind: Io, Op: "insert likes begin", Cause: err}
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO likes (id, full_text, expanded_url, liked_at, timestamp_estimated)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			full_text=excluded.full_text, expanded_url=excluded.expanded_url,
			liked_at=excluded.liked_at, timestamp_estimated=excluded.timestamp_estimated`)
	if err != nil {
		return &Error{Kind: Corruption, Op: "prepare likes", Cause: err}
	}
	defer stmt.Close()

	ftsStmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO likes_fts(rowid, id, full_text)
		VALUES ((SELECT rowid FROM likes WHERE id = ?), ?, ?)`)
	if err != nil {
		return &Error{Kind: Corruption, Op: "prepare likes_fts", Cause: err}
	}
	defer ftsStmt.Close()

	for _, l := range batch {
		var likedAt sql.NullInt64
		if !l.LikedAt.IsZero() {
			likedAt = sql.NullInt64{Int64: l.LikedAt.Unix(), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, l.TweetIDStr, l.FullText, l.ExpandedURL, likedAt, l.TimestampEstimated); err != nil {
			return &Error{Kind: Corruption, Op: "insert like " + l.TweetIDStr, Cause: err}
		}
		if _, err := ftsStmt.ExecContext(ctx, l.TweetIDStr, l.TweetIDStr, l.FullText); err != nil {
			return &Error{Kind: Corruption, Op: "insert like fts " + l.TweetIDStr, Cause: err}
		}
	}
	return tx.Commit()
}

// BulkInsertDMs upserts direct messages in batches.
func (s *Store) BulkInsertDMs(ctx context.Context, dms []*model.DirectMessage, batchSize int) error {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	for start := 0; start < len(dms); start += batchSize {
		end := min(start+batchSize, len(dms))
		if err := s.insertDMBatch(ctx, dms[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) insertDMBatch(ctx context.Context, batch []*model.DirectMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &Error{Kind: Io, Op: "insert dms begin", Cause: err}
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO direct_messages (id, conversation_id, sender_id, recipient_id, text, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			conversation_id=excluded.conversation_id, sender_id=excluded.sender_id,
			recipient_id=excluded.recipient_id, text=excluded.text, created_at=excluded.created_at`)
	if err != nil {
		return &Error{Kind: Corruption, Op: "prepare dms", Cause: err}
	}
	defer stmt.Close()

	ftsStmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO direct_messages_fts(rowid, id, text)
		VALUES ((SELECT rowid FROM direct_messages WHERE id = ?), ?, ?)`)
	if err != nil {
		return &Error{Kind: Corruption, Op: "prepare dms_fts", Cause: err}
	}
	defer ftsStmt.Close()

	for _, m := range batch {
		var createdAt sql.NullInt64
		if !m.CreatedAt.IsZero() {
			createdAt = sql.NullInt64{Int64: m.CreatedAt.Unix(), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, m.MessageIDStr, m.ConversationID, m.SenderID, m.RecipientID, m.Text, createdAt); err != nil {
			return &Error{Kind: Corruption, Op: "insert dm " + m.MessageIDStr, Cause: err}
		}
		if _, err := ftsStmt.ExecContext(ctx, m.MessageIDStr, m.MessageIDStr, m.Text); err != nil {
			return &Error{Kind: Corruption, Op: "insert dm fts " + m.MessageIDStr, Cause: err}
		}
	}
	return tx.Commit()
}

// BulkInsertGrok upserts grok conversation turns in batches.
func (s *Store) BulkInsertGrok(ctx context.Context, msgs []*model.GrokMessage, batchSize int) error {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	for start := 0; start < len(msgs); start += batchSize {
		end := min(start+batchSize, len(msgs))
		if err := s.insertGrokBatch(ctx, msgs[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) insertGrokBatch(ctx context.Context, batch []*model.GrokMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &Error{Kind: Io, Op: "insert grok begin", Cause: err}
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO grok_messages (id, conversation_id, sender, text, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			conversation_id=excluded.conversation_id, sender=excluded.sender,
			text=excluded.text, created_at=excluded.created_at`)
	if err != nil {
		return &Error{Kind: Corruption, Op: "prepare grok", Cause: err}
	}
	defer stmt.Close()

	ftsStmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO grok_messages_fts(rowid, id, text)
		VALUES ((SELECT rowid FROM grok_messages WHERE id = ?), ?, ?)`)
	if err != nil {
		return &Error{Kind: Corruption, Op: "prepare grok_fts", Cause: err}
	}
	defer ftsStmt.Close()

	for _, g := range batch {
		var createdAt sql.NullInt64
		if !g.CreatedAt.IsZero() {
			createdAt = sql.NullInt64{Int64: g.CreatedAt.Unix(), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, g.MessageIDStr, g.ConversationID, g.Sender, g.Text, createdAt); err != nil {
			return &Error{Kind: Corruption, Op: "insert grok " + g.MessageIDStr, Cause: err}
		}
		if _, err := ftsStmt.ExecContext(ctx, g.MessageIDStr, g.MessageIDStr, g.Text); err != nil {
			return &Error{Kind: Corruption, Op: "insert grok fts " + g.MessageIDStr, Cause: err}
		}
	}
	return tx.Commit()
}

// GetRecord hydrates a single (doc_type, doc_id) pair into a DisplayRecord.
// It returns ok=false (not an error) when the id is absent, so callers
// can skip a missing hydration target while still failing on a real I/O
// error. internal/search.Planner skips such targets without logging them.
func (s *Store) GetRecord(ctx context.Context, docType model.DocType, docID string) (*DisplayRecord, bool, error) {
	switch docType {
	case model.DocTypeTweet:
		return s.getTweetRecord(ctx, docID)
	case model.DocTypeLike:
		return s.getLikeRecord(ctx, docID)
	case model.DocTypeDM:
		return s.getDMRecord(ctx, docID)
	case model.DocTypeGrok:
		return s.getGrokRecord(ctx, docID)
	default:
		return nil, false, &Error{Kind: Corruption, Op: "get_record", Cause: sql.ErrNoRows}
	}
}

// DisplayRecord is the hydrated shape the enricher turns into the JSON
// output contract (doc_type/id/created_at/text/metadata — score is added
// by the caller, since the store has no notion of ranking).
type DisplayRecord struct {
	DocType   model.DocType
	ID        string
	CreatedAt sql.NullInt64
	Text      string
	Metadata  map[string]any
}

func (s *Store) getTweetRecord(ctx context.Context, id string) (*DisplayRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, full_text, created_at, in_reply_to_status_id, retweeted_status_id, favorite_count, retweet_count, lang FROM tweets WHERE id = ?`, id)
	var r DisplayRecord
	var inReply, retweeted, lang sql.NullString
	var fav, ret int
	r.DocType = model.DocTypeTweet
	if err := row.Scan(&r.ID, &r.Text, &r.CreatedAt, &inReply, &retweeted, &fav, &ret, &lang); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, &Error{Kind: Io, Op: "get tweet", Cause: err}
	}
	r.Metadata = map[string]any{
		"in_reply_to_status_id": inReply.String,
		"retweeted_status_id":   retweeted.String,
		"favorite_count":        fav,
		"retweet_count":         ret,
		"lang":                  lang.String,
	}
	return &r, true, nil
}

func (s *Store) getLikeRecord(ctx context.Context, id string) (*DisplayRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, full_text, expanded_url, liked_at, timestamp_estimated FROM likes WHERE id = ?`, id)
	var r DisplayRecord
	var text, url sql.NullString
	var estimated bool
	r.DocType = model.DocTypeLike
	if err := row.Scan(&r.ID, &text, &url, &r.CreatedAt, &estimated); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, &Error{Kind: Io, Op: "get like", Cause: err}
	}
	r.Text = text.String
	r.Metadata = map[string]any{
		"expanded_url":           url.String,
		"timestamp_is_estimated": estimated,
	}
	return &r, true, nil
}

func (s *Store) getDMRecord(ctx context.Context, id string) (*DisplayRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, conversation_id, sender_id, recipient_id, text, created_at FROM direct_messages WHERE id = ?`, id)
	var r DisplayRecord
	var conv, sender, recipient sql.NullString
	r.DocType = model.DocTypeDM
	if err := row.Scan(&r.ID, &conv, &sender, &recipient, &r.Text, &r.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, &Error{Kind: Io, Op: "get dm", Cause: err}
	}
	r.Metadata = map[string]any{
		"conversation_id": conv.String,
		"sender_id":       sender.String,
		"recipient_id":    recipient.String,
	}
	return &r, true, nil
}

func (s *Store) getGrokRecord(ctx context.Context, id string) (*DisplayRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, conversation_id, sender, text, created_at FROM grok_messages WHERE id = ?`, id)
	var r DisplayRecord
	var conv, sender sql.NullString
	r.DocType = model.DocTypeGrok
	if err := row.Scan(&r.ID, &conv, &sender, &r.Text, &r.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, &Error{Kind: Io, Op: "get grok message", Cause: err}
	}
	r.Metadata = map[string]any{
		"conversation_id": conv.String,
		"sender":          sender.String,
	}
	return &r, true, nil
}

// ConversationMessages returns every direct message sharing conversationID,
// ordered by created_at ascending, for DM context expansion.
func (s *Store) ConversationMessages(ctx context.Context, conversationID string) ([]*DisplayRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, conversation_id, sender_id, recipient_id, text, created_at
		FROM direct_messages WHERE conversation_id = ? ORDER BY created_at ASC`, conversationID)
	if err != nil {
		return nil, &Error{Kind: Io, Op: "conversation_messages", Cause: err}
	}
	defer rows.Close()

	var out []*DisplayRecord
	for rows.Next() {
		var r DisplayRecord
		var conv, sender, recipient sql.NullString
		r.DocType = model.DocTypeDM
		if err := rows.Scan(&r.ID, &conv, &sender, &recipient, &r.Text, &r.CreatedAt); err != nil {
			return nil, &Error{Kind: Io, Op: "scan conversation message", Cause: err}
		}
		r.Metadata = map[string]any{
			"conversation_id": conv.String,
			"sender_id":       sender.String,
			"recipient_id":    recipient.String,
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
