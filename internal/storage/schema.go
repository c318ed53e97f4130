package storage

// currentSchemaVersion is the schema version this build of the store
// knows how to create and migrate to. Open upgrades any older store by
// running the migrations between its recorded version and this one.
const currentSchemaVersion = 1

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS tweets (
		id TEXT PRIMARY KEY,
		full_text TEXT NOT NULL,
		created_at INTEGER,
		in_reply_to_status_id TEXT,
		retweeted_status_id TEXT,
		favorite_count INTEGER NOT NULL DEFAULT 0,
		retweet_count INTEGER NOT NULL DEFAULT 0,
		lang TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tweets_created_at ON tweets(created_at)`,

	`CREATE TABLE IF NOT EXISTS likes (
		id TEXT PRIMARY KEY,
		full_text TEXT,
		expanded_url TEXT,
		liked_at INTEGER,
		timestamp_estimated INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_likes_liked_at ON likes(liked_at)`,

	`CREATE TABLE IF NOT EXISTS direct_messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		sender_id TEXT,
		recipient_id TEXT,
		text TEXT,
		created_at INTEGER
	)`,
	`CREATE INDEX IF NOT EXISTS idx_dm_conversation ON direct_messages(conversation_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS grok_messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT,
		sender TEXT,
		text TEXT,
		created_at INTEGER
	)`,
	`CREATE INDEX IF NOT EXISTS idx_grok_conversation ON grok_messages(conversation_id, created_at)`,

	`CREATE VIRTUAL TABLE IF NOT EXISTS tweets_fts USING fts5(id UNINDEXED, full_text)`,
	`CREATE VIRTUAL TABLE IF NOT EXISTS likes_fts USING fts5(id UNINDEXED, full_text)`,
	`CREATE VIRTUAL TABLE IF NOT EXISTS direct_messages_fts USING fts5(id UNINDEXED, text)`,
	`CREATE VIRTUAL TABLE IF NOT EXISTS grok_messages_fts USING fts5(id UNINDEXED, text)`,

	`CREATE TABLE IF NOT EXISTS embeddings (
		doc_type TEXT NOT NULL,
		doc_id TEXT NOT NULL,
		dim INTEGER NOT NULL,
		vec_blob BLOB NOT NULL,
		content_hash BLOB NOT NULL,
		PRIMARY KEY (doc_type, doc_id)
	)`,

	`CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT
	)`,
}

// migrations maps "from version" to the statements that bring the store
// up to "from version + 1". There are none yet: schema version 1 is the
// only version this build has ever produced.
var migrations = map[int][]string{}
