package matchingtest

import (
	"context"
	"sort"
	"sync"

	"github.com/TryAwesome/CVibe-sub002/matching/profile"
	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
)

// ProfileProvider is an in-memory profile.Provider
type ProfileProvider struct {
	mu       sync.Mutex
	profiles map[kernel.UserID]*profile.Profile
}

var _ profile.Provider = (*ProfileProvider)(nil)

func NewProfileProvider() *ProfileProvider {
	return &ProfileProvider{profiles: make(map[kernel.UserID]*profile.Profile)}
}

func (p *ProfileProvider) Put(pr *profile.Profile) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := *pr
	p.profiles[pr.UserID] = &cp
}

func (p *ProfileProvider) GetProfile(_ context.Context, userID kernel.UserID) (*profile.Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pr, ok := p.profiles[userID]
	if !ok {
		return nil, profile.ErrProfileNotFound().WithDetail("user_id", userID.String())
	}
	cp := *pr
	return &cp, nil
}

func (p *ProfileProvider) GetProfileVector(ctx context.Context, userID kernel.UserID) (kernel.Vector, error) {
	pr, err := p.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return pr.Vector, nil
}

func (p *ProfileProvider) GetProfileSkills(ctx context.Context, userID kernel.UserID) ([]string, error) {
	pr, err := p.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return pr.Skills, nil
}

func (p *ProfileProvider) ListUsers(_ context.Context, cursor kernel.UserID, limit int) ([]profile.UserVersion, kernel.UserID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]kernel.UserID, 0, len(p.profiles))
	for id := range p.profiles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, k int) bool { return ids[i] < ids[k] })

	out := []profile.UserVersion{}
	for _, id := range ids {
		if cursor != "" && id <= cursor {
			continue
		}
		pr := p.profiles[id]
		out = append(out, profile.UserVersion{UserID: id, Version: pr.Version, Preferences: pr.Preferences})
		if len(out) == limit {
			return out, id, nil
		}
	}
	return out, "", nil
}
