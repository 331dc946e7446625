package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/knou-assistant/internal/core/domain"
)

const idBatchSize = 500

// ChunkRepository is the relational catalog of indexed chunks. Scan order is
// insertion order.
type ChunkRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewChunkRepository(db *sql.DB) *ChunkRepository {
	return &ChunkRepository{db: db, now: time.Now}
}

func (r *ChunkRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2025071601)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS chunks (
	seq BIGSERIAL,
	id TEXT PRIMARY KEY,
	text TEXT NOT NULL,
	date TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL,
	source TEXT NOT NULL DEFAULT '',
	indexed_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chunks_seq ON chunks(seq);
CREATE INDEX IF NOT EXISTS idx_chunks_date ON chunks(date);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// SaveChunks inserts chunks in one transaction. Existing ids are left as they
// are.
func (r *ChunkRepository) SaveChunks(ctx context.Context, docs []domain.Document) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save chunks tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO chunks (id, text, date, title, type, source, indexed_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO NOTHING
`)
	if err != nil {
		return fmt.Errorf("prepare insert chunk: %w", err)
	}
	defer stmt.Close()

	indexedAt := r.now().UTC()
	for _, doc := range docs {
		_, err := stmt.ExecContext(ctx,
			doc.ID, doc.Text, doc.Metadata.Date, doc.Metadata.Title,
			string(doc.Metadata.Type), doc.Metadata.Source, indexedAt,
		)
		if err != nil {
			return fmt.Errorf("insert chunk %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save chunks tx: %w", err)
	}
	return nil
}

func (r *ChunkRepository) ListChunks(ctx context.Context) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, text, date, title, type, source
FROM chunks
ORDER BY seq
`)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// GetChunks returns the known chunks in the order of ids. Unknown ids are
// skipped.
func (r *ChunkRepository) GetChunks(ctx context.Context, ids []string) ([]domain.Document, error) {
	found := make(map[string]domain.Document, len(ids))
	for _, batch := range idBatches(ids) {
		query := `
SELECT id, text, date, title, type, source
FROM chunks
WHERE id IN (` + placeholders(len(batch)) + `)`

		rows, err := r.db.QueryContext(ctx, query, anyArgs(batch)...)
		if err != nil {
			return nil, fmt.Errorf("get chunks: %w", err)
		}
		docs, err := scanChunks(rows)
		rows.Close()
		if err != nil {
			return nil, err
		}
		for _, doc := range docs {
			found[doc.ID] = doc
		}
	}

	out := make([]domain.Document, 0, len(found))
	for _, id := range ids {
		if doc, ok := found[id]; ok {
			out = append(out, doc)
			delete(found, id)
		}
	}
	return out, nil
}

func (r *ChunkRepository) ExistingIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	for _, batch := range idBatches(ids) {
		query := `SELECT id FROM chunks WHERE id IN (` + placeholders(len(batch)) + `)`

		rows, err := r.db.QueryContext(ctx, query, anyArgs(batch)...)
		if err != nil {
			return nil, fmt.Errorf("list existing chunk ids: %w", err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan chunk id: %w", err)
			}
			out[id] = struct{}{}
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("iterate chunk ids: %w", err)
		}
	}
	return out, nil
}

func scanChunks(rows *sql.Rows) ([]domain.Document, error) {
	var out []domain.Document
	for rows.Next() {
		var doc domain.Document
		var docType string
		if err := rows.Scan(
			&doc.ID, &doc.Text, &doc.Metadata.Date, &doc.Metadata.Title, &docType, &doc.Metadata.Source,
		); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		doc.Metadata.Type = domain.DocumentType(docType)
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return out, nil
}

func idBatches(ids []string) [][]string {
	var out [][]string
	for start := 0; start < len(ids); start += idBatchSize {
		out = append(out, ids[start:min(start+idBatchSize, len(ids))])
	}
	return out
}

func placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(parts, ",")
}

func anyArgs(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
