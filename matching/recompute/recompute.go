package recompute

import (
	"time"

	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
)

// State of a user's recompute lifecycle
type State string

const (
	StateIdle    State = "IDLE"
	StateQueued  State = "QUEUED"
	StateScoring State = "SCORING"
	StateFailed  State = "FAILED"
)

// Reason records what caused a trigger
type Reason string

const (
	ReasonProfileChanged Reason = "PROFILE_CHANGED"
	ReasonJobEmbedded    Reason = "JOB_EMBEDDED"
	ReasonSweep          Reason = "SWEEP"
	ReasonManual         Reason = "MANUAL"
	ReasonRetry          Reason = "RETRY"
	ReasonPending        Reason = "PENDING"
)

// Trigger is the queue payload; one per user at a time
type Trigger struct {
	UserID     kernel.UserID `json:"user_id"`
	Reason     Reason        `json:"reason"`
	Attempt    int           `json:"attempt"`
	EnqueuedAt time.Time     `json:"enqueued_at"`
}

// UserState is the persisted lease row of one user
type UserState struct {
	UserID           kernel.UserID         `db:"user_id" json:"user_id"`
	State            State                 `db:"state" json:"state"`
	Pending          bool                  `db:"pending" json:"pending"`
	LeaseOwner       string                `db:"lease_owner" json:"lease_owner,omitempty"`
	LeaseUntil       *time.Time            `db:"lease_until" json:"lease_until,omitempty"`
	ProfileVersion   kernel.ProfileVersion `db:"profile_version" json:"profile_version"`
	LastRecomputedAt *time.Time            `db:"last_recomputed_at" json:"last_recomputed_at,omitempty"`
	LastError        string                `db:"last_error" json:"last_error,omitempty"`
	Attempts         int                   `db:"attempts" json:"attempts"`
	UpdatedAt        time.Time             `db:"updated_at" json:"updated_at"`
}

// Outcome is what a finished run reports when releasing its lease
type Outcome struct {
	Failed         bool
	Cancelled      bool
	Err            string
	ProfileVersion kernel.ProfileVersion
	At             time.Time
}

// ============================================================================
// Domain Methods
// ============================================================================

// NewUserState is the implicit state of a user never seen before
func NewUserState(userID kernel.UserID) *UserState {
	return &UserState{UserID: userID, State: StateIdle}
}

// LeaseHeld reports whether a live lease exists at now
func (s *UserState) LeaseHeld(now time.Time) bool {
	return s.State == StateScoring && s.LeaseUntil != nil && s.LeaseUntil.After(now)
}

// MarkTriggered applies a trigger and reports whether it must be enqueued.
// A fresh QUEUED state coalesces; a live SCORING state records pending.
// A QUEUED state older than staleBefore is treated as lost and re-enqueued.
func (s *UserState) MarkTriggered(now, staleBefore time.Time) bool {
	switch {
	case s.State == StateQueued && s.UpdatedAt.After(staleBefore):
		return false
	case s.LeaseHeld(now):
		s.Pending = true
		s.UpdatedAt = now
		return false
	default:
		s.State = StateQueued
		s.Pending = false
		s.UpdatedAt = now
		return true
	}
}

// Acquire takes the lease unless a live one exists. Owners renew through
// Extend, never through Acquire.
func (s *UserState) Acquire(owner string, ttl time.Duration, now time.Time) bool {
	if s.LeaseHeld(now) {
		return false
	}
	until := now.Add(ttl)
	s.State = StateScoring
	s.LeaseOwner = owner
	s.LeaseUntil = &until
	s.UpdatedAt = now
	return true
}

// Extend pushes the lease held by owner out to now+ttl. It fails once the
// lease has been released or taken over.
func (s *UserState) Extend(owner string, ttl time.Duration, now time.Time) bool {
	if s.State != StateScoring || s.LeaseOwner != owner {
		return false
	}
	until := now.Add(ttl)
	s.LeaseUntil = &until
	s.UpdatedAt = now
	return true
}

// Release ends a run held by owner. A pending trigger turns the state back to
// QUEUED and the returned requeue flag asks the caller to enqueue it.
func (s *UserState) Release(owner string, out Outcome) (requeue bool, err error) {
	if s.State != StateScoring || s.LeaseOwner != owner {
		return false, ErrLeaseLost().
			WithDetail("user_id", s.UserID.String()).
			WithDetail("owner", owner)
	}

	switch {
	case out.Failed:
		s.State = StateFailed
		s.Attempts++
	case out.Cancelled:
		s.State = StateIdle
	default:
		s.State = StateIdle
		s.Attempts = 0
		at := out.At
		s.LastRecomputedAt = &at
		s.ProfileVersion = out.ProfileVersion
	}
	s.LastError = out.Err

	if s.Pending {
		s.State = StateQueued
		requeue = true
	}
	s.Pending = false
	s.LeaseOwner = ""
	s.LeaseUntil = nil
	s.UpdatedAt = out.At
	return requeue, nil
}

// NeedsRecompute decides whether a sweep should trigger the user. A nil state
// means the user was never computed. QUEUED users are returned so a lost
// queue entry gets re-enqueued; MarkTriggered coalesces the fresh ones.
func NeedsRecompute(s *UserState, version kernel.ProfileVersion, now time.Time, freshness time.Duration) bool {
	switch {
	case s == nil:
		return true
	case s.LeaseHeld(now):
		return false
	case s.State == StateQueued, s.LastRecomputedAt == nil:
		return true
	case version > s.ProfileVersion:
		return true
	}
	return s.LastRecomputedAt.Before(now.Add(-freshness))
}

// RunResult summarizes one recompute run
type RunResult struct {
	UserID         kernel.UserID         `json:"user_id"`
	ProfileVersion kernel.ProfileVersion `json:"profile_version"`
	Candidates     int                   `json:"candidates"`
	Scored         int                   `json:"scored"`
	Skipped        int                   `json:"skipped"`
	Upserted       int                   `json:"upserted"`
	BelowThreshold int                   `json:"below_threshold"`
	Duration       time.Duration         `json:"duration"`
}
