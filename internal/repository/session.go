// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mint-game-backend/internal/model"
)

// sessionColumns is the column list shared by every query returning a full
// session row. Scan order must match scanSession.
const sessionColumns = `
	address, game_start_time, client_start_time, game_end_time,
	client_end_time, score, last_update, validation_result,
	rejection_reason, ip_address, user_agent`

// SessionRepository handles game session persistence. One row per wallet
// address; every mutation is a single conditional statement so concurrent
// calls for the same address cannot interleave partial writes.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository instance.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create starts a new session for the address. A terminal session (score
// already written) rejects with ErrSessionExists; a non-terminal session
// left over from an abandoned game is overwritten in place. The terminal
// check and the write are one statement, closing the race between two
// concurrent starts for the same address.
func (r *SessionRepository) Create(ctx context.Context, address string, clientStartTime string, req model.RequestInfo) (time.Time, error) {
	const query = `
		INSERT INTO game_sessions (
			address, game_start_time, client_start_time, last_update,
			ip_address, user_agent
		)
		VALUES ($1, NOW(), $2, NOW(), $3, $4)
		ON CONFLICT (address) DO UPDATE SET
			game_start_time   = NOW(),
			client_start_time = EXCLUDED.client_start_time,
			game_end_time     = NULL,
			client_end_time   = NULL,
			score             = NULL,
			validation_result = NULL,
			rejection_reason  = NULL,
			last_update       = NOW(),
			ip_address        = EXCLUDED.ip_address,
			user_agent        = EXCLUDED.user_agent
		WHERE game_sessions.score IS NULL
		RETURNING game_start_time
	`

	req = req.Normalized()

	var startTime time.Time
	err := r.pool.QueryRow(ctx, query, address, clientStartTime, req.IPAddress, req.UserAgent).Scan(&startTime)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The conflict row was terminal, so the conditional update
			// matched nothing.
			return time.Time{}, ErrSessionExists
		}
		return time.Time{}, wrapStoreError("create session", err)
	}

	return startTime, nil
}

// Get retrieves the session for an address.
// Returns ErrSessionNotFound if none exists.
func (r *SessionRepository) Get(ctx context.Context, address string) (*model.GameSession, error) {
	const query = `
		SELECT` + sessionColumns + `
		FROM game_sessions
		WHERE address = $1
	`

	session, err := scanSession(r.pool.QueryRow(ctx, query, address))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, wrapStoreError("get session", err)
	}

	return session, nil
}

// UpdateScore attaches the reported score and end times to an existing
// session. Never inserts. A session that already carries a verdict is
// immutable and rejects with ErrSessionTerminal.
func (r *SessionRepository) UpdateScore(ctx context.Context, address string, score float64, gameEndTime time.Time, clientEndTime string) (*model.GameSession, error) {
	const query = `
		UPDATE game_sessions SET
			score           = $2,
			game_end_time   = $3,
			client_end_time = $4,
			last_update     = NOW()
		WHERE address = $1 AND validation_result IS NULL
		RETURNING` + sessionColumns

	session, err := scanSession(r.pool.QueryRow(ctx, query, address, score, gameEndTime, clientEndTime))
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, wrapStoreError("update session score", err)
	}

	// Distinguish "no session" from "session already validated". The
	// conditional update above already guaranteed atomicity; this read is
	// only error classification.
	existing, getErr := r.Get(ctx, address)
	if getErr != nil {
		return nil, getErr
	}
	if existing.IsValidated() {
		return nil, ErrSessionTerminal
	}
	return nil, ErrSessionNotFound
}

// SaveValidation writes the verdict for a scored session. The verdict is
// written only where none exists yet, so concurrent re-validations cannot
// overwrite each other; when the verdict is already present the stored row
// is returned unchanged.
func (r *SessionRepository) SaveValidation(ctx context.Context, address string, validationResult string, rejectionReason *string) (*model.GameSession, error) {
	const query = `
		UPDATE game_sessions SET
			validation_result = $2,
			rejection_reason  = $3,
			last_update       = NOW()
		WHERE address = $1 AND score IS NOT NULL AND validation_result IS NULL
		RETURNING` + sessionColumns

	session, err := scanSession(r.pool.QueryRow(ctx, query, address, validationResult, rejectionReason))
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, wrapStoreError("save validation result", err)
	}

	existing, getErr := r.Get(ctx, address)
	if getErr != nil {
		return nil, getErr
	}
	if existing.IsValidated() {
		// A concurrent call (or an earlier run of the same pipeline) already
		// wrote the verdict. Idempotent success.
		return existing, nil
	}
	return nil, ErrSessionNotFound
}

// Stats returns aggregate counts over all sessions.
func (r *SessionRepository) Stats(ctx context.Context) (model.SessionStats, error) {
	const query = `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE validation_result = 'VALID'),
			COUNT(*) FILTER (WHERE validation_result = 'INVALID')
		FROM game_sessions
	`

	var stats model.SessionStats
	err := r.pool.QueryRow(ctx, query).Scan(&stats.Total, &stats.Completed, &stats.Invalid)
	if err != nil {
		return model.SessionStats{}, wrapStoreError("get session stats", err)
	}

	return stats, nil
}

// scanSession scans a full session row in sessionColumns order.
func scanSession(row pgx.Row) (*model.GameSession, error) {
	var s model.GameSession
	err := row.Scan(
		&s.Address,
		&s.GameStartTime,
		&s.ClientStartTime,
		&s.GameEndTime,
		&s.ClientEndTime,
		&s.Score,
		&s.LastUpdate,
		&s.ValidationResult,
		&s.RejectionReason,
		&s.IPAddress,
		&s.UserAgent,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
