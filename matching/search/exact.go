package search

import (
	"context"

	"github.com/TryAwesome/CVibe-sub002/matching/embedding"
	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
	"github.com/TryAwesome/CVibe-sub002/pkg/logx"
)

// VectorSource is the slice of the embedding store exact search reads.
type VectorSource interface {
	GetAllWithVectors(ctx context.Context, jobIDs []kernel.JobID) ([]embedding.JobVector, error)
	AllActiveWithVectors(ctx context.Context, limit int, cursor kernel.JobID) ([]embedding.JobVector, kernel.JobID, error)
}

// Exact scans every candidate vector and is the correctness reference.
type Exact struct {
	source   VectorSource
	pageSize int
}

var _ Strategy = (*Exact)(nil)

func NewExact(source VectorSource, pageSize int) *Exact {
	if pageSize <= 0 {
		pageSize = 500
	}
	return &Exact{source: source, pageSize: pageSize}
}

func (e *Exact) Name() string { return "exact" }

func (e *Exact) TopK(ctx context.Context, query kernel.Vector, k int, pool []kernel.JobID) ([]Hit, error) {
	if degenerate(query, k, pool) {
		return []Hit{}, nil
	}

	acc := newAccumulator(query, k)

	if pool != nil {
		vectors, err := e.source.GetAllWithVectors(ctx, pool)
		if err != nil {
			return nil, ErrSearchUnavailable().WithCause(err)
		}
		for _, v := range vectors {
			if v.IsActive {
				acc.add(v)
			}
		}
		return acc.result(), nil
	}

	var cursor kernel.JobID
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors, next, err := e.source.AllActiveWithVectors(ctx, e.pageSize, cursor)
		if err != nil {
			return nil, ErrSearchUnavailable().WithCause(err)
		}
		for _, v := range vectors {
			acc.add(v)
		}
		if next.IsEmpty() {
			break
		}
		cursor = next
	}
	return acc.result(), nil
}

// accumulator holds at most 4k hits between compactions.
type accumulator struct {
	query      kernel.Vector
	k          int
	hits       []Hit
	mismatched int
}

func newAccumulator(query kernel.Vector, k int) *accumulator {
	return &accumulator{query: query, k: k}
}

func (a *accumulator) add(v embedding.JobVector) {
	sim, ok := Cosine(a.query, v.Vector)
	if !ok {
		if len(v.Vector) != len(a.query) {
			a.mismatched++
		}
		return
	}
	a.hits = append(a.hits, Hit{JobID: v.JobID, Score: sim, FirstSeenAt: v.FirstSeenAt})
	if len(a.hits) >= 4*a.k {
		a.compact()
	}
}

func (a *accumulator) compact() {
	SortHits(a.hits)
	a.hits = Truncate(a.hits, a.k)
}

func (a *accumulator) result() []Hit {
	if a.mismatched > 0 {
		logx.Warnf("Exact search skipped %d vectors with a foreign dimension", a.mismatched)
	}
	a.compact()
	if a.hits == nil {
		return []Hit{}
	}
	return a.hits
}
