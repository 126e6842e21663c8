// services/scheduler.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"hunter-progression/models"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// PurgeStats counts rows removed by one retention pass.
type PurgeStats struct {
	Quests     int64
	Gates      int64
	Objectives int64
}

// PurgeHistory deletes quest day-buckets and resolved gates older than
// cutoff. Rows that can still be claimed are kept. This is storage hygiene
// only; no lifecycle transition happens here.
func PurgeHistory(ctx context.Context, db *gorm.DB, cutoff time.Time) (PurgeStats, error) {
	var stats PurgeStats
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("date < ? AND (claimed = ? OR completed = ?)", cutoff.UTC().Format(models.DateLayout), true, false).
			Delete(&models.UserQuest{})
		if res.Error != nil {
			return fmt.Errorf("purge quests: %w", res.Error)
		}
		stats.Quests = res.RowsAffected

		stale := tx.Model(&models.UserGate{}).
			Select("id").
			Where("status IN ? AND resolved_at < ?",
				[]models.GateStatus{models.GateExpired, models.GateFailed, models.GateAbandoned, models.GateCompleted}, cutoff).
			Where("(status <> ? OR claimed_at IS NOT NULL)", models.GateCompleted)

		res = tx.Where("user_gate_id IN (?)", stale).Delete(&models.UserGateObjective{})
		if res.Error != nil {
			return fmt.Errorf("purge gate objectives: %w", res.Error)
		}
		stats.Objectives = res.RowsAffected

		res = tx.Where("id IN (?)", stale).Delete(&models.UserGate{})
		if res.Error != nil {
			return fmt.Errorf("purge gates: %w", res.Error)
		}
		stats.Gates = res.RowsAffected
		return nil
	})
	return stats, err
}

// StartRetentionScheduler runs PurgeHistory every interval, keeping
// retentionDays of history. The caller shuts the scheduler down.
func StartRetentionScheduler(db *gorm.DB, retentionDays int, interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
			stats, err := PurgeHistory(context.Background(), db, cutoff)
			if err != nil {
				slog.Error("[Scheduler] Retention pass failed", "error", err)
				return
			}
			slog.Info("[Scheduler] Retention pass done",
				"cutoff", cutoff.Format(models.DateLayout),
				"quests", stats.Quests,
				"gates", stats.Gates,
				"objectives", stats.Objectives,
			)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("schedule retention job: %w", err)
	}

	sched.Start()
	return sched, nil
}
