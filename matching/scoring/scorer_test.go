package scoring

import (
	"testing"

	"github.com/TryAwesome/CVibe-sub002/pkg/errx"
	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore_WorkedExample(t *testing.T) {
	s := NewScorer(DefaultWeights)
	p := Profile{Vector: kernel.Vector{1, 0}, Skills: []string{"go", "sql"}}
	c := Candidate{JobID: "j1", Vector: kernel.Vector{1, 0}, Skills: []string{"Go", "SQL", "Kafka"}}

	// similarity 0.8 normalizes to 90
	res, err := s.Score(p, c, 0.8)

	require.NoError(t, err)
	assert.Equal(t, 81, res.Score)
	assert.Equal(t, []string{"Go", "SQL"}, res.MatchedSkills)
	assert.Equal(t, []string{"Kafka"}, res.MissingSkills)
	assert.Equal(t, "Excellent match. Strong overlap in Go, SQL. Missing Kafka.", res.Rationale)
}

func TestScore_Bounds(t *testing.T) {
	s := NewScorer(DefaultWeights)
	p := Profile{Skills: []string{"Go"}}

	tests := []struct {
		name string
		sim  float64
		job  []string
		want int
	}{
		{"perfect", 1, []string{"Go"}, 100},
		{"opposite, no overlap", -1, []string{"Rust"}, 0},
		{"out of range high", 3, []string{"Go"}, 100},
		{"out of range low", -3, []string{"Rust"}, 0},
		{"no job skills", 0, nil, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.Score(p, Candidate{Skills: tt.job}, tt.sim)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Score)
			assert.GreaterOrEqual(t, res.Score, 0)
			assert.LessOrEqual(t, res.Score, 100)
		})
	}
}

func TestScore_DimensionMismatchIsInvalidProfile(t *testing.T) {
	s := NewScorer(DefaultWeights)

	_, err := s.Score(
		Profile{Vector: kernel.Vector{1, 0, 0}},
		Candidate{Vector: kernel.Vector{1, 0}},
		0.5,
	)

	assert.True(t, errx.Is(err, CodeInvalidProfile))
}

func TestScore_Deterministic(t *testing.T) {
	s := NewScorer(DefaultWeights)
	p := Profile{Skills: []string{"python", "Docker", "k8s"}}
	c := Candidate{Skills: []string{"Kubernetes", "Docker", "Python", "Terraform", "AWS"}}

	first, err := s.Score(p, c, 0.42)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := s.Score(p, c, 0.42)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestOverlap_DisjointAndOrdered(t *testing.T) {
	matched, missing := Overlap(
		[]string{" GO ", "postgresql"},
		[]string{"Kafka", "Go", "PostgreSQL", "go", "Redis"},
	)

	assert.Equal(t, []string{"Go", "PostgreSQL"}, matched)
	assert.Equal(t, []string{"Kafka", "Redis"}, missing)
	for _, m := range matched {
		assert.NotContains(t, missing, m)
	}
}

func TestRationale(t *testing.T) {
	tests := []struct {
		name    string
		score   int
		matched []string
		missing []string
		none    bool
		want    string
	}{
		{"strong", 65, []string{"A", "B", "C", "D"}, []string{"E", "F", "G"}, false,
			"Strong match. Strong overlap in A, B, C. Missing E, F."},
		{"good no overlap", 45, nil, []string{"X"}, false, "Good potential. Missing X."},
		{"possible", 10, nil, nil, true,
			"Possible fit. No specific skills listed; ranked on profile similarity."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Rationale(tt.score, tt.matched, tt.missing, tt.none))
		})
	}
}
