package searchinfra

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/TryAwesome/CVibe-sub002/matching/search"
	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// DefaultIndexName is the HNSW index created by the migrations
const DefaultIndexName = "job_embeddings_hnsw_idx"

// PgvectorIndex answers top-k queries from the HNSW cosine index and
// re-scores the returned vectors in float64.
type PgvectorIndex struct {
	db        *sqlx.DB
	indexName string
	efSearch  int
}

var _ search.Strategy = (*PgvectorIndex)(nil)

func NewPgvectorIndex(db *sqlx.DB, efSearch int) *PgvectorIndex {
	return &PgvectorIndex{
		db:        db,
		indexName: DefaultIndexName,
		efSearch:  efSearch,
	}
}

func (p *PgvectorIndex) Name() string { return "index" }

type hitModel struct {
	JobID       string          `db:"job_id"`
	Embedding   pgvector.Vector `db:"embedding"`
	FirstSeenAt time.Time       `db:"first_seen_at"`
}

func (p *PgvectorIndex) TopK(ctx context.Context, query kernel.Vector, k int, pool []kernel.JobID) ([]search.Hit, error) {
	if k <= 0 || query.IsZero() || (pool != nil && len(pool) == 0) {
		return []search.Hit{}, nil
	}

	tx, err := p.db.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, search.ErrSearchUnavailable().WithCause(err)
	}
	defer tx.Rollback()

	var present bool
	if err := tx.GetContext(ctx, &present, `SELECT to_regclass($1) IS NOT NULL`, p.indexName); err != nil {
		return nil, search.ErrSearchUnavailable().WithCause(err)
	}
	if !present {
		return nil, search.ErrSearchUnavailable().WithDetail("index", p.indexName)
	}

	if p.efSearch > 0 {
		// SET does not accept bind parameters
		if _, err := tx.ExecContext(ctx, "SET LOCAL hnsw.ef_search = "+strconv.Itoa(p.efSearch)); err != nil {
			return nil, search.ErrSearchUnavailable().WithCause(err)
		}
	}

	q := `
		SELECT e.job_id, e.embedding, j.first_seen_at
		FROM job_embeddings e
		JOIN jobs j ON j.id = e.job_id
		WHERE j.is_active
		  AND (j.expires_at IS NULL OR j.expires_at > now())
		  AND ($2::uuid[] IS NULL OR e.job_id = ANY($2::uuid[]))
		ORDER BY e.embedding <=> $1
		LIMIT $3`

	var models []hitModel
	if err := tx.SelectContext(ctx, &models, q, pgvector.NewVector(query), poolArg(pool), k); err != nil {
		return nil, search.ErrSearchUnavailable().WithCause(fmt.Errorf("index query: %w", err))
	}
	if err := tx.Commit(); err != nil {
		return nil, search.ErrSearchUnavailable().WithCause(err)
	}

	hits := make([]search.Hit, 0, len(models))
	for _, m := range models {
		sim, ok := search.Cosine(query, kernel.Vector(m.Embedding.Slice()))
		if !ok {
			continue
		}
		hits = append(hits, search.Hit{
			JobID:       kernel.JobID(m.JobID),
			Score:       sim,
			FirstSeenAt: m.FirstSeenAt,
		})
	}
	search.SortHits(hits)
	return search.Truncate(hits, k), nil
}

func poolArg(pool []kernel.JobID) any {
	if pool == nil {
		return pq.Array([]string(nil))
	}
	ids := make([]string, len(pool))
	for i, id := range pool {
		ids[i] = id.String()
	}
	return pq.Array(ids)
}
