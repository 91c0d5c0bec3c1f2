package jobs

import (
	"context"
	"log"
	"time"
)

// OtpPurger removes stale OTP rows; satisfied by services.PaymentMethodService
type OtpPurger interface {
	PurgeOtps(ctx context.Context, cutoff time.Time) (int64, error)
}

type OtpCleanupJob struct {
	purger    OtpPurger
	retention time.Duration
	nowFn     func() time.Time
}

// NewOtpCleanupJob keeps used or expired codes for retention before deleting them
func NewOtpCleanupJob(purger OtpPurger, retention time.Duration) *OtpCleanupJob {
	return &OtpCleanupJob{
		purger:    purger,
		retention: retention,
		nowFn:     time.Now,
	}
}

// RunOnce purges a single batch and returns the number of deleted rows
func (j *OtpCleanupJob) RunOnce(ctx context.Context) (int64, error) {
	cutoff := j.nowFn().Add(-j.retention)
	deleted, err := j.purger.PurgeOtps(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		log.Printf("[otp-cleanup] purged %d OTP codes older than %s", deleted, cutoff.UTC().Format(time.RFC3339))
	}
	return deleted, nil
}

// Start begins the periodic cleanup until ctx is cancelled
func (j *OtpCleanupJob) Start(ctx context.Context, interval time.Duration) {
	go func() {
		// Run immediately on start
		if _, err := j.RunOnce(ctx); err != nil {
			log.Printf("[otp-cleanup] initial purge error: %v", err)
		}

		// Then run periodically
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := j.RunOnce(ctx); err != nil {
					log.Printf("[otp-cleanup] purge error: %v", err)
				}
			}
		}
	}()
}
