package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/abhinav-sys/Job-Scheduler-Execution-Engine-API/internal/domain"
)

// classify adds operation context and tags transient failures with
// domain.ErrStoreUnavailable, so callers can pick between 503 (API) and
// try-again-next-tick (worker) without knowing postgres error codes.
// Domain sentinels pass through untouched.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrJobNotFound):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	}

	// Check violations guard the schedule-shape invariants; a write that
	// trips one is a malformed job, not a store problem.
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.CheckViolation {
		return domain.NewValidationError("invalid job: violates %s", pgErr.ConstraintName)
	}

	if isTransient(err) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgerrcode.IsConnectionException(pgErr.Code),
			pgerrcode.IsInsufficientResources(pgErr.Code),
			pgerrcode.IsOperatorIntervention(pgErr.Code),
			pgerrcode.IsTransactionRollback(pgErr.Code):
			return true
		}
		return pgErr.Code == pgerrcode.LockNotAvailable
	}

	// Dial and reset failures never reach the server, so there is no
	// PgError to inspect.
	var netErr net.Error
	return errors.As(err, &netErr)
}
