package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Closed set of error kinds surfaced by the session store. Callers
// discriminate with errors.Is; free-text driver messages never leak into
// control flow.
var (
	// ErrSessionNotFound is returned when no session exists for an address.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExists is returned when a start is attempted for an address
	// whose session is already terminal (score written).
	ErrSessionExists = errors.New("session already completed for this address")
	// ErrSessionTerminal is returned when a score update targets a session
	// that already carries a verdict.
	ErrSessionTerminal = errors.New("session already validated")
	// ErrStoreUnavailable is returned for connection-level failures.
	ErrStoreUnavailable = errors.New("session store unavailable")
)

// wrapStoreError maps driver errors onto the closed error set, preserving
// the cause in the chain.
func wrapStoreError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "08") {
		// Class 08 - connection exception
		return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
	}

	return fmt.Errorf("failed to %s: %w", op, err)
}
