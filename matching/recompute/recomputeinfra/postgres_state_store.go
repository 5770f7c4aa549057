package recomputeinfra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/TryAwesome/CVibe-sub002/matching/recompute"
	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
	"github.com/jackc/pgx/v5"
)

// DB is the subset of *pgxpool.Pool the state store uses
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStateStore keeps recompute lease rows in recompute_state. Each
// transition is one conditional statement so concurrent workers never both
// hold a user's lease.
type PostgresStateStore struct {
	db DB
}

var _ recompute.StateStore = (*PostgresStateStore)(nil)

func NewPostgresStateStore(db DB) *PostgresStateStore {
	return &PostgresStateStore{db: db}
}

const stateColumns = `
	user_id::text, state, pending, lease_owner, lease_until, profile_version,
	last_recomputed_at, last_error, attempts, updated_at`

// MarkTriggered inserts or moves the row to QUEUED. No row comes back when a
// fresh QUEUED row already exists; a live SCORING row only gets pending set.
func (s *PostgresStateStore) MarkTriggered(ctx context.Context, userID kernel.UserID, now, staleBefore time.Time) (bool, error) {
	query := `
		INSERT INTO recompute_state AS s (user_id, state, pending, attempts, updated_at)
		VALUES ($1, 'QUEUED', false, 0, $2)
		ON CONFLICT (user_id) DO UPDATE SET
			state = CASE WHEN s.state = 'SCORING' AND s.lease_until > $2 THEN s.state ELSE 'QUEUED' END,
			pending = (s.state = 'SCORING' AND s.lease_until > $2),
			updated_at = $2
		WHERE NOT (s.state = 'QUEUED' AND s.updated_at > $3)
		RETURNING state`

	var state string
	err := s.db.QueryRow(ctx, query, userID.String(), now, staleBefore).Scan(&state)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to mark recompute triggered: %w", err)
	}
	return recompute.State(state) == recompute.StateQueued, nil
}

// Acquire takes the lease unless a live one is held, by any owner
func (s *PostgresStateStore) Acquire(ctx context.Context, userID kernel.UserID, owner string, ttl time.Duration, now time.Time) (*recompute.UserState, error) {
	query := `
		INSERT INTO recompute_state AS s (user_id, state, pending, lease_owner, lease_until, attempts, updated_at)
		VALUES ($1, 'SCORING', false, $2, $3, 0, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			state = 'SCORING',
			lease_owner = $2,
			lease_until = $3,
			updated_at = $4
		WHERE s.state <> 'SCORING'
		   OR s.lease_until IS NULL
		   OR s.lease_until <= $4
		RETURNING ` + stateColumns

	st, err := scanState(s.db.QueryRow(ctx, query, userID.String(), owner, now.Add(ttl), now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to acquire recompute lease: %w", err)
	}
	return st, nil
}

// Extend renews the lease only while owner still holds it
func (s *PostgresStateStore) Extend(ctx context.Context, userID kernel.UserID, owner string, ttl time.Duration, now time.Time) (bool, error) {
	query := `
		UPDATE recompute_state SET
			lease_until = $3,
			updated_at = $4
		WHERE user_id = $1 AND state = 'SCORING' AND lease_owner = $2
		RETURNING lease_until`

	var until time.Time
	err := s.db.QueryRow(ctx, query, userID.String(), owner, now.Add(ttl), now).Scan(&until)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to extend recompute lease: %w", err)
	}
	return true, nil
}

// Release ends the run held by owner
func (s *PostgresStateStore) Release(ctx context.Context, userID kernel.UserID, owner string, out recompute.Outcome) (*recompute.UserState, bool, error) {
	query := `
		UPDATE recompute_state SET
			state = CASE WHEN pending THEN 'QUEUED' WHEN $3 THEN 'FAILED' ELSE 'IDLE' END,
			attempts = CASE WHEN $3 THEN attempts + 1 WHEN $4 THEN attempts ELSE 0 END,
			last_recomputed_at = CASE WHEN $3 OR $4 THEN last_recomputed_at ELSE $6 END,
			profile_version = CASE WHEN $3 OR $4 THEN profile_version ELSE $5 END,
			last_error = NULLIF($7, ''),
			pending = false,
			lease_owner = NULL,
			lease_until = NULL,
			updated_at = $6
		WHERE user_id = $1 AND state = 'SCORING' AND lease_owner = $2
		RETURNING ` + stateColumns

	st, err := scanState(s.db.QueryRow(ctx, query,
		userID.String(),
		owner,
		out.Failed,
		out.Cancelled,
		int64(out.ProfileVersion),
		out.At,
		out.Err,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, recompute.ErrLeaseLost().
				WithDetail("user_id", userID.String()).
				WithDetail("owner", owner)
		}
		return nil, false, fmt.Errorf("failed to release recompute lease: %w", err)
	}
	return st, st.State == recompute.StateQueued, nil
}

// Get returns a user's state, or a fresh IDLE state when none is stored
func (s *PostgresStateStore) Get(ctx context.Context, userID kernel.UserID) (*recompute.UserState, error) {
	query := `SELECT ` + stateColumns + ` FROM recompute_state WHERE user_id = $1`

	st, err := scanState(s.db.QueryRow(ctx, query, userID.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return recompute.NewUserState(userID), nil
		}
		return nil, fmt.Errorf("failed to get recompute state: %w", err)
	}
	return st, nil
}

// GetMany returns stored states keyed by user
func (s *PostgresStateStore) GetMany(ctx context.Context, userIDs []kernel.UserID) (map[kernel.UserID]*recompute.UserState, error) {
	out := make(map[kernel.UserID]*recompute.UserState, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	ids := make([]string, len(userIDs))
	for i, id := range userIDs {
		ids[i] = id.String()
	}

	rows, err := s.db.Query(ctx, `SELECT `+stateColumns+` FROM recompute_state WHERE user_id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get recompute states: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		st, err := scanState(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recompute state: %w", err)
		}
		out[st.UserID] = st
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recompute states: %w", err)
	}
	return out, nil
}

func scanState(row pgx.Row) (*recompute.UserState, error) {
	var (
		st        recompute.UserState
		userID    string
		state     string
		owner     *string
		version   int64
		lastError *string
	)
	err := row.Scan(
		&userID,
		&state,
		&st.Pending,
		&owner,
		&st.LeaseUntil,
		&version,
		&st.LastRecomputedAt,
		&lastError,
		&st.Attempts,
		&st.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	st.UserID = kernel.UserID(userID)
	st.State = recompute.State(state)
	st.ProfileVersion = kernel.ProfileVersion(version)
	if owner != nil {
		st.LeaseOwner = *owner
	}
	if lastError != nil {
		st.LastError = *lastError
	}
	return &st, nil
}
