package orchestrators

import (
	"context"
	"log/slog"
	"time"
)

// SessionPurger removes expired sessions.
type SessionPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// PurgeSessions runs one purge pass.
// POST: returns the number of sessions removed
func PurgeSessions(ctx context.Context, purger SessionPurger) (int64, error) {
	n, err := purger.PurgeExpired(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.Info("sessions_purged", "count", n)
	}
	return n, nil
}

// StartSessionPurger periodically purges expired sessions.
// PRE: stopCh is provided to signal shutdown
// POST: worker runs until stopCh is closed
func StartSessionPurger(purger SessionPurger, interval time.Duration, stopCh <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				if _, err := PurgeSessions(ctx, purger); err != nil {
					slog.Error("session_purge_failed", "error", err.Error())
				}
				cancel()
			case <-stopCh:
				slog.Info("session_purger_stopped")
				return
			}
		}
	}()
}
