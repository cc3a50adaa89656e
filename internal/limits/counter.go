package limits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"trackadmin/internal/models"
)

// Counter tracks per-technician verification counts per UTC day, used to
// enforce a technician's DailyLimit. With a redis client configured the
// count is an INCR key expiring at midnight UTC; without one it falls back
// to counting verification_logs rows. Only created verifications count;
// deduplicated repeats do not.
type Counter struct {
	RDB *redis.Client // optional
	DB  *gorm.DB
}

func dayKey(technicianID int64, day time.Time) string {
	return fmt.Sprintf("verify:count:%d:%s", technicianID, day.UTC().Format("20060102"))
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// CreatedToday returns how many verifications the technician created today.
func (c Counter) CreatedToday(ctx context.Context, technicianID int64, now time.Time) (int64, error) {
	if c.RDB == nil {
		return c.dbCount(ctx, technicianID, now)
	}

	key := dayKey(technicianID, now)
	n, err := c.RDB.Get(ctx, key).Int64()
	if err == nil {
		return n, nil
	}
	if !errors.Is(err, redis.Nil) {
		return 0, err
	}

	// Key missing (first check since midnight or after a restart): seed it
	// from the store so restarts do not reset the limit.
	n, err = c.dbCount(ctx, technicianID, now)
	if err != nil {
		return 0, err
	}
	c.RDB.SetNX(ctx, key, n, startOfDay(now).Add(24*time.Hour).Sub(now.UTC()))
	return n, nil
}

// Increment records one created verification against today's counter.
// No-op without redis: the fallback count reads the log table directly.
func (c Counter) Increment(ctx context.Context, technicianID int64, now time.Time) error {
	if c.RDB == nil {
		return nil
	}
	key := dayKey(technicianID, now)
	if err := c.RDB.Incr(ctx, key).Err(); err != nil {
		return err
	}
	return c.RDB.ExpireAt(ctx, key, startOfDay(now).Add(24*time.Hour)).Err()
}

func (c Counter) dbCount(ctx context.Context, technicianID int64, now time.Time) (int64, error) {
	var n int64
	err := c.DB.WithContext(ctx).
		Model(&models.VerificationLog{}).
		Where("technician_id = ? AND verified_at >= ?", technicianID, startOfDay(now)).
		Count(&n).Error
	return n, err
}
