package embedding

import (
	"math"
	"time"

	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
)

// Embedding is the single vector stored for a job
type Embedding struct {
	JobID     kernel.JobID  `db:"job_id" json:"job_id"`
	Vector    kernel.Vector `db:"embedding" json:"-"`
	Model     string        `db:"model" json:"model"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// JobVector is an embedding joined with the job attributes search needs
type JobVector struct {
	JobID       kernel.JobID
	Vector      kernel.Vector
	FirstSeenAt time.Time
	IsActive    bool
}

// Validate checks a vector against the configured dimension
func Validate(v kernel.Vector, dim int) error {
	if len(v) != dim {
		return ErrInvalidDimension().
			WithDetail("expected", dim).
			WithDetail("got", len(v))
	}
	for i, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return ErrInvalidVector().WithDetail("index", i)
		}
	}
	return nil
}
