// Package scoring turns a similarity and two skill lists into a 0-100
// match score with a short human-readable rationale.
package scoring

import (
	"math"

	"github.com/TryAwesome/CVibe-sub002/matching/skill"
	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
)

// Weights blends normalized similarity with skill overlap. They must sum to 1.
type Weights struct {
	Similarity float64
	Skills     float64
}

var DefaultWeights = Weights{Similarity: 0.6, Skills: 0.4}

// Profile is the user side of a comparison
type Profile struct {
	Vector kernel.Vector
	Skills []string
}

// Candidate is the job side of a comparison. Vector is only used to verify
// the dimension and may be nil.
type Candidate struct {
	JobID  kernel.JobID
	Vector kernel.Vector
	Skills []string
}

type Result struct {
	JobID         kernel.JobID
	Score         int
	Rationale     string
	MatchedSkills []string
	MissingSkills []string
	Similarity    float64
	SkillOverlap  float64
}

type Scorer struct {
	weights Weights
}

func NewScorer(w Weights) *Scorer {
	return &Scorer{weights: w}
}

// Score is deterministic: equal inputs always produce an equal Result.
func (s *Scorer) Score(p Profile, c Candidate, similarity float64) (*Result, error) {
	if len(c.Vector) > 0 && len(p.Vector) != len(c.Vector) {
		return nil, ErrInvalidProfile().
			WithDetail("job_id", c.JobID.String()).
			WithDetail("profile_dim", len(p.Vector)).
			WithDetail("job_dim", len(c.Vector))
	}

	matched, missing := Overlap(p.Skills, c.Skills)

	ratio := 0.0
	if total := len(matched) + len(missing); total > 0 {
		ratio = float64(len(matched)) / float64(total)
	}

	raw := s.weights.Similarity*NormalizeSimilarity(similarity) + s.weights.Skills*ratio*100
	score := int(math.Round(raw))
	score = max(0, min(100, score))

	return &Result{
		JobID:         c.JobID,
		Score:         score,
		Rationale:     Rationale(score, matched, missing, len(c.Skills) == 0),
		MatchedSkills: matched,
		MissingSkills: missing,
		Similarity:    similarity,
		SkillOverlap:  ratio,
	}, nil
}

// NormalizeSimilarity maps cosine in [-1, 1] to [0, 100]
func NormalizeSimilarity(sim float64) float64 {
	if math.IsNaN(sim) {
		return 0
	}
	sim = max(-1, min(1, sim))
	return (sim + 1) / 2 * 100
}

// Overlap splits the job's skills into those the profile has and those it
// lacks. Both lists keep the job's order and spelling and never intersect.
func Overlap(profileSkills, jobSkills []string) (matched, missing []string) {
	have := skill.NewSet(profileSkills)
	matched = []string{}
	missing = []string{}
	for _, name := range skill.Dedupe(jobSkills) {
		if have.Has(name) {
			matched = append(matched, name)
		} else {
			missing = append(missing, name)
		}
	}
	return matched, missing
}
