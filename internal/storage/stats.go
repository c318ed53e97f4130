package storage

import "context"

// Stats is the result of Statistics: unconditional per-type counts, plus
// (when requested) a temporal histogram and engagement aggregates.
type Stats struct {
	TweetCount int
	LikeCount  int
	DMCount    int
	GrokCount  int

	// Detailed fields, populated only when Statistics(ctx, true) is called.
	DailyHistogram   map[string]int // "YYYY-MM-DD" (UTC) -> record count, across all types
	TotalFavorites   int64
	TotalRetweets    int64
	MaxFavorites     int64
	MaxRetweets      int64
}

// Statistics returns per-type row counts, and when detailed is true, also
// a day-bucketed temporal histogram and tweet engagement aggregates.
func (s *Store) Statistics(ctx context.Context, detailed bool) (*Stats, error) {
	st := &Stats{}
	counts := []struct {
		table string
		dst   *int
	}{
		{"tweets", &st.TweetCount},
		{"likes", &st.LikeCount},
		{"direct_messages", &st.DMCount},
		{"grok_messages", &st.GrokCount},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dst); err != nil {
			return nil, &Error{Kind: Io, Op: "count " + c.table, Cause: err}
		}
	}
	if !detailed {
		return st, nil
	}

	st.DailyHistogram = map[string]int{}
	histQueries := []struct {
		table string
		tsCol string
	}{
		{"tweets", "created_at"},
		{"likes", "liked_at"},
		{"direct_messages", "created_at"},
		{"grok_messages", "created_at"},
	}
	for _, h := range histQueries {
		rows, err := s.db.QueryContext(ctx,
			"SELECT date("+h.tsCol+", 'unixepoch') AS day, COUNT(*) FROM "+h.table+
				" WHERE "+h.tsCol+" IS NOT NULL GROUP BY day")
		if err != nil {
			return nil, &Error{Kind: Io, Op: "histogram " + h.table, Cause: err}
		}
		for rows.Next() {
			var day string
			var n int
			if err := rows.Scan(&day, &n); err != nil {
				rows.Close()
				return nil, &Error{Kind: Io, Op: "scan histogram " + h.table, Cause: err}
			}
			st.DailyHistogram[day] += n
		}
		rows.Close()
	}

	row := s.db.QueryRowContext(ctx, `SELECT
		COALESCE(SUM(favorite_count), 0), COALESCE(SUM(retweet_count), 0),
		COALESCE(MAX(favorite_count), 0), COALESCE(MAX(retweet_count), 0)
		FROM tweets`)
	if err := row.Scan(&st.TotalFavorites, &st.TotalRetweets, &st.MaxFavorites, &st.MaxRetweets); err != nil {
		return nil, &Error{Kind: Io, Op: "engagement aggregates", Cause: err}
	}
	return st, nil
}
