package search

import (
	"context"

	"github.com/TryAwesome/CVibe-sub002/pkg/errx"
	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
	"github.com/TryAwesome/CVibe-sub002/pkg/logx"
)

// CorpusCounter reports how many matchable jobs carry a vector.
type CorpusCounter interface {
	CountActive(ctx context.Context) (int, error)
}

// Fallback serves queries from the index and falls back to an exact scan
// when the index fails, as long as the corpus is small enough to scan.
type Fallback struct {
	index          Strategy
	exact          Strategy
	corpus         CorpusCounter
	exactMaxCorpus int
}

var _ Strategy = (*Fallback)(nil)

func NewFallback(index, exact Strategy, corpus CorpusCounter, exactMaxCorpus int) *Fallback {
	return &Fallback{
		index:          index,
		exact:          exact,
		corpus:         corpus,
		exactMaxCorpus: exactMaxCorpus,
	}
}

func (f *Fallback) Name() string { return "fallback" }

func (f *Fallback) TopK(ctx context.Context, query kernel.Vector, k int, pool []kernel.JobID) ([]Hit, error) {
	if degenerate(query, k, pool) {
		return []Hit{}, nil
	}

	// a bounded pool is always cheap enough to scan
	if pool != nil && len(pool) <= f.exactMaxCorpus {
		return f.exact.TopK(ctx, query, k, pool)
	}

	hits, err := f.index.TopK(ctx, query, k, pool)
	if err == nil {
		return hits, nil
	}
	if !errx.Is(err, CodeSearchUnavailable) {
		return nil, err
	}

	n, cerr := f.corpus.CountActive(ctx)
	if cerr != nil {
		return nil, ErrSearchUnavailable().WithCause(cerr)
	}
	if n > f.exactMaxCorpus {
		return nil, ErrSearchUnavailable().
			WithDetail("corpus", n).
			WithDetail("exact_max_corpus", f.exactMaxCorpus).
			WithCause(err)
	}

	logx.Warnf("Index search unavailable, scanning %d vectors exactly: %v", n, err)
	return f.exact.TopK(ctx, query, k, pool)
}
