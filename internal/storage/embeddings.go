package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/xfeed/xfeed/internal/model"
)

// PutEmbedding inserts or replaces the embedding row for (doc_type,
// doc_id). vec is stored at full float32 precision; the XFVI vector
// index file (internal/vector) is the only place components are narrowed
// to float16, keeping this table usable as a lossless source for
// rebuilding that file.
func (s *Store) PutEmbedding(ctx context.Context, docType model.DocType, docID string, vec []float32, contentHash [32]byte) error {
	blob := make([]byte, 4*len(vec))
	for i, c := range vec {
		binary.LittleEndian.PutUint32(blob[i*4:i*4+4], math.Float32bits(c))
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO embeddings (doc_type, doc_id, dim, vec_blob, content_hash)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(doc_type, doc_id) DO UPDATE SET
			dim=excluded.dim, vec_blob=excluded.vec_blob, content_hash=excluded.content_hash`,
		string(docType), docID, len(vec), blob, contentHash[:])
	if err != nil {
		return &Error{Kind: Corruption, Op: "put_embedding", Cause: err}
	}
	return nil
}

// GetContentHash returns the stored content hash for (doc_type, doc_id),
// used by the indexing orchestrator to decide whether a record's text
// changed since the last run and therefore needs re-embedding.
func (s *Store) GetContentHash(ctx context.Context, docType model.DocType, docID string) (hash [32]byte, ok bool, err error) {
	var blob []byte
	row := s.db.QueryRowContext(ctx, `SELECT content_hash FROM embeddings WHERE doc_type = ? AND doc_id = ?`, string(docType), docID)
	if scanErr := row.Scan(&blob); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return hash, false, nil
		}
		return hash, false, &Error{Kind: Io, Op: "get_content_hash", Cause: scanErr}
	}
	copy(hash[:], blob)
	return hash, true, nil
}

// AllEmbeddings streams every embedding row, used by the indexing
// orchestrator to rebuild the vector index file from scratch.
func (s *Store) AllEmbeddings(ctx context.Context) ([]EmbeddingRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT doc_type, doc_id, dim, vec_blob FROM embeddings`)
	if err != nil {
		return nil, &Error{Kind: Io, Op: "all_embeddings", Cause: err}
	}
	defer rows.Close()

	var out []EmbeddingRow
	for rows.Next() {
		var docType, docID string
		var dim int
		var blob []byte
		if err := rows.Scan(&docType, &docID, &dim, &blob); err != nil {
			return nil, &Error{Kind: Io, Op: "scan embedding", Cause: err}
		}
		vec := make([]float32, dim)
		for i := range vec {
			vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4 : i*4+4]))
		}
		out = append(out, EmbeddingRow{DocType: model.DocType(docType), DocID: docID, Vector: vec})
	}
	return out, rows.Err()
}

// EmbeddingRow is one row of the embeddings table, widened back to
// float32.
type EmbeddingRow struct {
	DocType model.DocType
	DocID   string
	Vector  []float32
}

func timestampTable(docType model.DocType) (table, idCol, tsCol string, ok bool) {
	switch docType {
	case model.DocTypeTweet:
		return "tweets", "id", "created_at", true
	case model.DocTypeLike:
		return "likes", "id", "liked_at", true
	case model.DocTypeDM:
		return "direct_messages", "id", "created_at", true
	case model.DocTypeGrok:
		return "grok_messages", "id", "created_at", true
	default:
		return "", "", "", false
	}
}

const timestampBatchSize = 500

// TimestampsByType batch-fetches the UTC unix-seconds timestamp for every
// id in ids, one query per batch of timestampBatchSize ids rather than one
// query per id. Used by the vector index's optional date-range pre-filter
// to build a internal/vector.TimestampLookup for the whole candidate set
// up front, instead of the exhaustive scan looking up each candidate
// individually.
func (s *Store) TimestampsByType(ctx context.Context, docType model.DocType, ids []string) (map[string]int64, error) {
	table, idCol, tsCol, ok := timestampTable(docType)
	if !ok || len(ids) == 0 {
		return nil, nil
	}

	out := make(map[string]int64, len(ids))
	for start := 0; start < len(ids); start += timestampBatchSize {
		end := min(start+timestampBatchSize, len(ids))
		batch := ids[start:end]

		placeholders := make([]string, len(batch))
		args := make([]any, len(batch))
		for i, id := range batch {
			placeholders[i] = "?"
			args[i] = id
		}
		stmt := fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s IN (%s)", idCol, tsCol, table, idCol, strings.Join(placeholders, ","))
		rows, err := s.db.QueryContext(ctx, stmt, args...)
		if err != nil {
			return nil, &Error{Kind: Io, Op: "timestamps_by_type " + table, Cause: err}
		}
		for rows.Next() {
			var id string
			var ts sql.NullInt64
			if err := rows.Scan(&id, &ts); err != nil {
				rows.Close()
				return nil, &Error{Kind: Io, Op: "scan timestamps_by_type " + table, Cause: err}
			}
			if ts.Valid {
				out[id] = ts.Int64
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, &Error{Kind: Io, Op: "iterate timestamps_by_type " + table, Cause: err}
		}
		rows.Close()
	}
	return out, nil
}
