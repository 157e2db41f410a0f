// Package index provides a persistent semantic index over catalog entries.
//
// Entries are keyed by slugified server name and stored in SQLite together
// with their embedding vector, the indexed document text, and the descriptor
// metadata. Nearest-neighbor search embeds the query and ranks entries by
// cosine similarity in memory; catalogs are small enough that a linear scan
// is fine.
package index

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
	_ "modernc.org/sqlite"

	"github.com/toolscout-ai/toolscout/internal/logging"
	"github.com/toolscout-ai/toolscout/pkg/types"
)

const (
	// MaxResults is the hard ceiling on search result counts.
	MaxResults = 30
	// upsertBatchSize bounds how many documents are embedded per call.
	upsertBatchSize = 50
)

// ScoredServer is a search hit with its similarity score (1 - cosine distance).
type ScoredServer struct {
	types.ServerDescriptor
	Similarity float64 `json:"similarity"`
}

// Index is the SQLite-backed similarity index.
type Index struct {
	db       *sql.DB
	embedder embedding.Embedder
}

// New opens (creating if needed) the index at the given path.
func New(path string, embedder embedding.Embedder) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open index db: %w", err)
	}
	// SQLite supports a single writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ix := &Index{db: db, embedder: embedder}
	if err := ix.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate index: %w", err)
	}

	return ix, nil
}

// Close closes the underlying database.
func (ix *Index) Close() error {
	return ix.db.Close()
}

func (ix *Index) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS servers (
		slug        TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		type        TEXT NOT NULL DEFAULT 'stdio',
		source      TEXT NOT NULL DEFAULT '',
		command     TEXT NOT NULL DEFAULT '',
		url         TEXT NOT NULL DEFAULT '',
		document    TEXT NOT NULL,
		embedding   BLOB NOT NULL
	);`
	_, err := ix.db.Exec(schema)
	return err
}

// Upsert indexes the given servers, replacing any existing entries with the
// same slug. Large inputs are embedded in batches.
func (ix *Index) Upsert(ctx context.Context, servers []types.ServerDescriptor) error {
	if len(servers) == 0 {
		return nil
	}

	// Drop entries without a usable key.
	valid := servers[:0:0]
	for _, d := range servers {
		if d.Slug() != "" {
			valid = append(valid, d)
		}
	}

	for start := 0; start < len(valid); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(valid) {
			end = len(valid)
		}
		if err := ix.upsertBatch(ctx, valid[start:end]); err != nil {
			return err
		}
	}

	log := logging.Component("index")
	log.Debug().Int("count", len(valid)).Msg("indexed servers")
	return nil
}

func (ix *Index) upsertBatch(ctx context.Context, servers []types.ServerDescriptor) error {
	docs := make([]string, len(servers))
	for i, d := range servers {
		docs[i] = d.SearchText()
	}

	vectors, err := ix.embedder.EmbedStrings(ctx, docs)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}
	if len(vectors) != len(servers) {
		return fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(servers))
	}

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO servers (slug, name, description, type, source, command, url, document, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			type = excluded.type,
			source = excluded.source,
			command = excluded.command,
			url = excluded.url,
			document = excluded.document,
			embedding = excluded.embedding`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i, d := range servers {
		_, err := stmt.ExecContext(ctx,
			d.Slug(), d.Name, d.Description, string(d.Type), d.Source, d.Command, d.URL,
			docs[i], encodeVector(vectors[i]))
		if err != nil {
			return fmt.Errorf("upsert %q: %w", d.Slug(), err)
		}
	}

	return tx.Commit()
}

// Search returns the servers most similar to the query, ordered by descending
// similarity. A blank query yields an empty result; k is clamped to
// MaxResults. Ties break deterministically on slug order.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]ScoredServer, error) {
	if strings.TrimSpace(query) == "" || k <= 0 {
		return nil, nil
	}
	if k > MaxResults {
		k = MaxResults
	}

	vectors, err := ix.embedder.EmbedStrings(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(vectors))
	}
	queryVec := vectors[0]

	rows, err := ix.db.QueryContext(ctx,
		`SELECT slug, name, description, type, source, command, url, embedding FROM servers`)
	if err != nil {
		return nil, fmt.Errorf("scan index: %w", err)
	}
	defer rows.Close()

	type scored struct {
		slug string
		hit  ScoredServer
	}
	var hits []scored

	for rows.Next() {
		var slug string
		var d types.ServerDescriptor
		var transport string
		var blob []byte
		if err := rows.Scan(&slug, &d.Name, &d.Description, &transport, &d.Source, &d.Command, &d.URL, &blob); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		d.Type = types.TransportType(transport)

		hits = append(hits, scored{
			slug: slug,
			hit: ScoredServer{
				ServerDescriptor: d,
				Similarity:       cosineSimilarity(queryVec, decodeVector(blob)),
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].hit.Similarity != hits[j].hit.Similarity {
			return hits[i].hit.Similarity > hits[j].hit.Similarity
		}
		return hits[i].slug < hits[j].slug
	})

	if len(hits) > k {
		hits = hits[:k]
	}

	out := make([]ScoredServer, len(hits))
	for i, h := range hits {
		out[i] = h.hit
	}
	return out, nil
}

// ListAll returns every indexed descriptor. No ordering guarantee.
func (ix *Index) ListAll(ctx context.Context) ([]types.ServerDescriptor, error) {
	rows, err := ix.db.QueryContext(ctx,
		`SELECT name, description, type, source, command, url FROM servers`)
	if err != nil {
		return nil, fmt.Errorf("list index: %w", err)
	}
	defer rows.Close()

	var out []types.ServerDescriptor
	for rows.Next() {
		var d types.ServerDescriptor
		var transport string
		if err := rows.Scan(&d.Name, &d.Description, &transport, &d.Source, &d.Command, &d.URL); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		d.Type = types.TransportType(transport)
		out = append(out, d)
	}
	return out, rows.Err()
}

// Count returns the number of indexed entries.
func (ix *Index) Count(ctx context.Context) (int, error) {
	var n int
	err := ix.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM servers`).Scan(&n)
	return n, err
}

// encodeVector packs a vector as little-endian float64s.
func encodeVector(v []float64) []byte {
	buf := make([]byte, 8*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	return buf
}

// decodeVector unpacks a vector encoded by encodeVector.
func decodeVector(buf []byte) []float64 {
	v := make([]float64, len(buf)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return v
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths or zero vectors score 0.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
