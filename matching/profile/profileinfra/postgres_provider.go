package profileinfra

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/TryAwesome/CVibe-sub002/matching/job"
	"github.com/TryAwesome/CVibe-sub002/matching/profile"
	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// PostgresProfileProvider reads the profile service's tables
type PostgresProfileProvider struct {
	db *sqlx.DB
}

var _ profile.Provider = (*PostgresProfileProvider)(nil)

func NewPostgresProfileProvider(db *sqlx.DB) *PostgresProfileProvider {
	return &PostgresProfileProvider{db: db}
}

// ============================================================================
// Database Model
// ============================================================================

const preferenceColumns = `
	COALESCE(up.remote_only, false) AS remote_only,
	COALESCE(up.preferred_locations, '{}') AS preferred_locations,
	COALESCE(up.min_experience_level, '') AS min_experience_level,
	COALESCE(up.max_experience_level, '') AS max_experience_level,
	GREATEST(pe.updated_at, COALESCE(up.updated_at, pe.updated_at)) AS updated_at`

type userModel struct {
	UserID             string         `db:"user_id"`
	RemoteOnly         bool           `db:"remote_only"`
	PreferredLocations pq.StringArray `db:"preferred_locations"`
	MinLevel           string         `db:"min_experience_level"`
	MaxLevel           string         `db:"max_experience_level"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

type profileModel struct {
	userModel
	Embedding pgvector.Vector `db:"embedding"`
}

func (m *userModel) preferences() profile.Preferences {
	// unknown levels from the profile service disable that bound
	minLevel, _ := job.ParseExperienceLevel(m.MinLevel)
	maxLevel, _ := job.ParseExperienceLevel(m.MaxLevel)
	return profile.Preferences{
		RemoteOnly: m.RemoteOnly,
		Locations:  []string(m.PreferredLocations),
		MinLevel:   minLevel,
		MaxLevel:   maxLevel,
	}
}

func (m *userModel) toUserVersion() profile.UserVersion {
	return profile.UserVersion{
		UserID:      kernel.UserID(m.UserID),
		Version:     profile.VersionOf(m.UpdatedAt),
		Preferences: m.preferences(),
	}
}

// ============================================================================
// Provider Implementation
// ============================================================================

// GetProfile loads vector, skills, preferences and version
func (p *PostgresProfileProvider) GetProfile(ctx context.Context, userID kernel.UserID) (*profile.Profile, error) {
	query := `
		SELECT pe.user_id, pe.embedding, ` + preferenceColumns + `
		FROM profile_embeddings pe
		LEFT JOIN user_profiles up ON up.user_id = pe.user_id
		WHERE pe.user_id = $1`

	var model profileModel
	if err := p.db.GetContext(ctx, &model, query, userID.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, profile.ErrProfileNotFound().WithDetail("user_id", userID.String())
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	skills, err := p.GetProfileSkills(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &profile.Profile{
		UserID:      userID,
		Vector:      kernel.Vector(model.Embedding.Slice()),
		Skills:      skills,
		Preferences: model.preferences(),
		Version:     profile.VersionOf(model.UpdatedAt),
		UpdatedAt:   model.UpdatedAt,
	}, nil
}

// GetProfileVector returns only the profile embedding
func (p *PostgresProfileProvider) GetProfileVector(ctx context.Context, userID kernel.UserID) (kernel.Vector, error) {
	var v pgvector.Vector
	err := p.db.GetContext(ctx, &v, `SELECT embedding FROM profile_embeddings WHERE user_id = $1`, userID.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, profile.ErrProfileNotFound().WithDetail("user_id", userID.String())
		}
		return nil, fmt.Errorf("failed to get profile vector: %w", err)
	}
	return kernel.Vector(v.Slice()), nil
}

// GetProfileSkills returns the profile's skills in declared order
func (p *PostgresProfileProvider) GetProfileSkills(ctx context.Context, userID kernel.UserID) ([]string, error) {
	query := `
		SELECT skill_name FROM profile_skills
		WHERE user_id = $1
		ORDER BY position, skill_name`

	skills := []string{}
	if err := p.db.SelectContext(ctx, &skills, query, userID.String()); err != nil {
		return nil, fmt.Errorf("failed to get profile skills: %w", err)
	}
	return skills, nil
}

// ListUsers pages through users with a profile vector, ordered by id
func (p *PostgresProfileProvider) ListUsers(ctx context.Context, cursor kernel.UserID, limit int) ([]profile.UserVersion, kernel.UserID, error) {
	query := `
		SELECT pe.user_id, ` + preferenceColumns + `
		FROM profile_embeddings pe
		LEFT JOIN user_profiles up ON up.user_id = pe.user_id
		WHERE ($1 = '' OR pe.user_id > $1::uuid)
		ORDER BY pe.user_id
		LIMIT $2`

	var models []userModel
	if err := p.db.SelectContext(ctx, &models, query, cursor.String(), limit); err != nil {
		return nil, "", fmt.Errorf("failed to list profile users: %w", err)
	}

	out := make([]profile.UserVersion, len(models))
	for i := range models {
		out[i] = models[i].toUserVersion()
	}

	var next kernel.UserID
	if limit > 0 && len(models) == limit {
		next = kernel.UserID(models[len(models)-1].UserID)
	}
	return out, next, nil
}
