package repo

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Sweep deletes expired idempotency records and database sessions. It
// returns the number of rows removed from each table.
func Sweep(ctx context.Context, db *gorm.DB, now time.Time) (keys, sessions int64, err error) {
	keys, err = PurgeExpiredIdempotency(ctx, db, now)
	if err != nil {
		return 0, 0, err
	}
	sessions, err = PurgeExpiredSessions(ctx, db, now)
	return keys, sessions, err
}

// RunJanitor calls Sweep every interval until ctx is cancelled. Failures are
// logged and retried on the next tick.
func RunJanitor(ctx context.Context, db *gorm.DB, interval time.Duration, logger zerolog.Logger) {
	if interval <= 0 {
		interval = time.Hour
	}
	l := logger.With().Str("component", "janitor").Logger()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	l.Info().Dur("interval", interval).Msg("janitor started")
	for {
		select {
		case <-ctx.Done():
			l.Info().Msg("janitor stopped")
			return
		case now := <-ticker.C:
			keys, sessions, err := Sweep(ctx, db, now.UTC())
			if err != nil {
				l.Warn().Err(err).Msg("sweep failed")
				continue
			}
			if keys+sessions > 0 {
				l.Debug().Int64("idempotency_keys", keys).Int64("sessions", sessions).Msg("swept expired rows")
			}
		}
	}
}
