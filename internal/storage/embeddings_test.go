package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/xfeed/xfeed/internal/model"
)

func TestTimestampsByTypeBatchesBeyondBatchSize(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	n := timestampBatchSize + 7
	tweets := make([]*model.Tweet, n)
	ids := make([]string, n)
	for i := range tweets {
		id := fmt.Sprintf("%d", i+1)
		ids[i] = id
		tweets[i] = &model.Tweet{IDStr: id, FullText: "x", CreatedAt: time.Unix(int64(i), 0)}
	}
	if err := s.BulkInsertTweets(ctx, tweets, 0); err != nil {
		t.Fatalf("BulkInsertTweets: %v", err)
	}

	got, err := s.TimestampsByType(ctx, model.DocTypeTweet, ids)
	if err != nil {
		t.Fatalf("TimestampsByType: %v", err)
	}
	if len(got) != n {
		t.Fatalf("expected %d timestamps, got %d", n, len(got))
	}
	for i, id := range ids {
		if got[id] != int64(i) {
			t.Fatalf("id %s: got ts %d, want %d", id, got[id], i)
		}
	}
}

func TestTimestampsByTypeMissingIDsAreOmitted(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.BulkInsertTweets(ctx, []*model.Tweet{
		{IDStr: "1", FullText: "x", CreatedAt: time.Unix(42, 0)},
	}, 0); err != nil {
		t.Fatal(err)
	}

	got, err := s.TimestampsByType(ctx, model.DocTypeTweet, []string{"1", "missing"})
	if err != nil {
		t.Fatalf("TimestampsByType: %v", err)
	}
	if len(got) != 1 || got["1"] != 42 {
		t.Fatalf("expected only id 1 present with ts 42, got %+v", got)
	}
}

func TestTimestampsByTypeUnknownDocTypeReturnsNil(t *testing.T) {
	s := openTestStore(t)
	got, err := s.TimestampsByType(context.Background(), model.DocType("bogus"), []string{"1"})
	if err != nil {
		t.Fatalf("TimestampsByType: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil map for unknown doc type, got %+v", got)
	}
}
