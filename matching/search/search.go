// Package search ranks job vectors against a profile vector.
package search

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
)

// Hit is one ranked candidate. Score is raw cosine similarity in [-1, 1].
type Hit struct {
	JobID       kernel.JobID `json:"job_id"`
	Score       float64      `json:"score"`
	FirstSeenAt time.Time    `json:"first_seen_at"`
}

// Strategy returns the k jobs most similar to query. A nil pool means every
// matchable job; an empty non-nil pool yields no hits.
type Strategy interface {
	Name() string
	TopK(ctx context.Context, query kernel.Vector, k int, pool []kernel.JobID) ([]Hit, error)
}

// Cosine computes cosine similarity in float64. ok is false when the
// dimensions differ or either vector has zero norm.
func Cosine(a, b kernel.Vector) (sim float64, ok bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, false
	}
	sim = dot / (math.Sqrt(na) * math.Sqrt(nb))
	return clamp(sim), true
}

// SortHits orders by score desc, then most recently seen job, then job id.
func SortHits(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		return less(hits[i], hits[j])
	})
}

func less(a, b Hit) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if !a.FirstSeenAt.Equal(b.FirstSeenAt) {
		return a.FirstSeenAt.After(b.FirstSeenAt)
	}
	return a.JobID < b.JobID
}

// Truncate keeps the first k hits.
func Truncate(hits []Hit, k int) []Hit {
	if len(hits) > k {
		return hits[:k]
	}
	return hits
}

// RecallMisses counts ids of the exact top-k missing from the approximate one.
func RecallMisses(exact, approx []Hit) int {
	seen := make(map[kernel.JobID]struct{}, len(approx))
	for _, h := range approx {
		seen[h.JobID] = struct{}{}
	}
	misses := 0
	for _, h := range exact {
		if _, ok := seen[h.JobID]; !ok {
			misses++
		}
	}
	return misses
}

func clamp(x float64) float64 {
	switch {
	case x > 1:
		return 1
	case x < -1:
		return -1
	}
	return x
}

// degenerate reports the inputs for which every strategy returns no hits.
func degenerate(query kernel.Vector, k int, pool []kernel.JobID) bool {
	return k <= 0 || query.IsZero() || (pool != nil && len(pool) == 0)
}
