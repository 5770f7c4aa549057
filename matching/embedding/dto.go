package embedding

import "time"

// PutEmbeddingRequest - DTO sent by the crawler's embedding step
type PutEmbeddingRequest struct {
	Vector  []float32 `json:"vector" validate:"required"`
	Model   string    `json:"model"`
	Upgrade bool      `json:"upgrade"`
}

// EmbeddingResponse - metadata of a stored embedding
type EmbeddingResponse struct {
	JobID     string    `json:"job_id"`
	Model     string    `json:"model"`
	Dimension int       `json:"dimension"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BackfillResponse - outcome of one backfill pass
type BackfillResponse struct {
	Requested int `json:"requested"`
	Stored    int `json:"stored"`
	Skipped   int `json:"skipped"`
}

func (e *Embedding) ToResponse() EmbeddingResponse {
	return EmbeddingResponse{
		JobID:     e.JobID.String(),
		Model:     e.Model,
		Dimension: e.Vector.Dim(),
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}
