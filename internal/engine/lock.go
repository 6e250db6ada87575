package engine

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/vireodb/vireo/internal/verr"
)

const (
	// DefaultLockScope names the advisory lock every runner contends on.
	DefaultLockScope = "vireo-migrations"

	// DefaultLockTimeout bounds how long a runner waits for the lock.
	DefaultLockTimeout = 30 * time.Second

	// advisoryPollInterval spaces out pg_try_advisory_lock attempts.
	advisoryPollInterval = 250 * time.Millisecond
)

// LockHandle represents a held advisory lock. Release must be called
// exactly once, usually deferred with a fresh context so the lock is
// freed even when the original context is already cancelled.
type LockHandle struct {
	session *Session
	dialect SQLDialect
	scope   string
}

// AcquireLock takes the named application lock on the session's
// connection, waiting up to timeout. A lock held by another session
// past the deadline yields ErrLockTimeout.
func AcquireLock(ctx context.Context, s *Session, d SQLDialect, scope string, timeout time.Duration) (*LockHandle, error) {
	if scope == "" {
		scope = DefaultLockScope
	}
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}

	switch d.Name() {
	case "sqlserver":
		if err := acquireAppLock(ctx, s, scope, timeout); err != nil {
			return nil, err
		}
	case "postgres":
		if err := acquireAdvisoryLock(ctx, s, scope, timeout); err != nil {
			return nil, err
		}
	default:
		return nil, verr.Newf(verr.ErrLockTimeout, "dialect %q has no advisory lock support", d.Name()).
			WithScope(scope)
	}

	return &LockHandle{session: s, dialect: d, scope: scope}, nil
}

// acquireAppLock uses sp_getapplock with session ownership so the lock
// survives transaction boundaries. Negative return values mean the lock
// was not granted.
func acquireAppLock(ctx context.Context, s *Session, scope string, timeout time.Duration) error {
	query := `DECLARE @result INT;
EXEC @result = sp_getapplock @Resource = @p1, @LockMode = 'Exclusive', @LockOwner = 'Session', @LockTimeout = @p2;
SELECT @result`

	var result int
	row := s.QueryRow(ctx, query, scope, timeout.Milliseconds())
	if err := row.Scan(&result); err != nil {
		return verr.Wrap(verr.ErrLockTimeout, err, "failed to request application lock").
			WithScope(scope)
	}
	if result < 0 {
		return verr.Newf(verr.ErrLockTimeout, "application lock not granted (status %d)", result).
			WithScope(scope)
	}
	return nil
}

// acquireAdvisoryLock polls pg_try_advisory_lock until granted or the
// deadline passes. The non-blocking form is used so the wait honors ctx.
func acquireAdvisoryLock(ctx context.Context, s *Session, scope string, timeout time.Duration) error {
	key := lockKey(scope)
	deadline := time.Now().Add(timeout)

	for {
		var granted bool
		row := s.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key)
		if err := row.Scan(&granted); err != nil {
			return verr.Wrap(verr.ErrLockTimeout, err, "failed to request advisory lock").
				WithScope(scope)
		}
		if granted {
			return nil
		}
		if time.Now().After(deadline) {
			return verr.Newf(verr.ErrLockTimeout, "advisory lock not granted within %s", timeout).
				WithScope(scope)
		}
		select {
		case <-ctx.Done():
			return verr.Wrap(verr.ErrLockTimeout, ctx.Err(), "lock wait cancelled").
				WithScope(scope)
		case <-time.After(advisoryPollInterval):
		}
	}
}

// Release frees the advisory lock. The caller's context should not be
// the one that may already have failed the migration run.
func (h *LockHandle) Release(ctx context.Context) error {
	switch h.dialect.Name() {
	case "sqlserver":
		query := "EXEC sp_releaseapplock @Resource = @p1, @LockOwner = 'Session'"
		if err := h.session.Exec(ctx, query, h.scope); err != nil {
			return verr.Wrap(verr.ErrLockRelease, err, "failed to release application lock").
				WithScope(h.scope)
		}
	case "postgres":
		var released bool
		row := h.session.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", lockKey(h.scope))
		if err := row.Scan(&released); err != nil {
			return verr.Wrap(verr.ErrLockRelease, err, "failed to release advisory lock").
				WithScope(h.scope)
		}
		if !released {
			return verr.New(verr.ErrLockRelease, "advisory lock was not held by this session").
				WithScope(h.scope)
		}
	}
	return nil
}

// lockKey maps a scope name onto the 64-bit advisory lock keyspace.
func lockKey(scope string) int64 {
	h := fnv.New64a()
	h.Write([]byte(scope))
	return int64(h.Sum64())
}
