package profile

import (
	"context"

	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
)

// Provider is the read side of the profile service
type Provider interface {
	// GetProfile loads vector, skills, preferences and version in one call
	GetProfile(ctx context.Context, userID kernel.UserID) (*Profile, error)

	// GetProfileVector returns only the profile embedding
	GetProfileVector(ctx context.Context, userID kernel.UserID) (kernel.Vector, error)

	// GetProfileSkills returns the profile's skills in declared order
	GetProfileSkills(ctx context.Context, userID kernel.UserID) ([]string, error)

	// ListUsers pages through users that have a profile vector, ordered by id
	ListUsers(ctx context.Context, cursor kernel.UserID, limit int) ([]UserVersion, kernel.UserID, error)
}
