// workers/strength_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"hunter-progression/models"
	"hunter-progression/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RemoteLift matches one entry of the workout-history lifts feed.
type RemoteLift struct {
	UserID     string    `json:"user_id"`
	ExerciseID string    `json:"exercise_id"`
	BestE1RM   float64   `json:"best_e1rm"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// GetLiftChangesResponse is the top-level structure of the feed response.
type GetLiftChangesResponse struct {
	Lifts []RemoteLift `json:"lifts"`
}

// StrengthSyncWorker mirrors best e1RM per (user, exercise) into
// strength_snapshots for lift achievements.
type StrengthSyncWorker struct {
	db           *gorm.DB
	interval     time.Duration
	baseURL      string // e.g. "http://localhost:8600"
	endpointPath string // e.g. "/api/v1/public/lifts"
	serviceToken string
	httpClient   *http.Client
}

func NewStrengthSyncWorker(db *gorm.DB, baseURL, endpointPath, serviceToken string, interval time.Duration) *StrengthSyncWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &StrengthSyncWorker{
		db:           db,
		interval:     interval,
		baseURL:      baseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient:   utils.HTTPClient,
	}
}

func (w *StrengthSyncWorker) Start(ctx context.Context) {
	slog.Info("🔁 Starting Strength Sync Worker (workout-history → strength_snapshots)", "interval", w.interval)
	go w.run(ctx)
}

func (w *StrengthSyncWorker) run(ctx context.Context) {
	if err := w.SyncOnce(ctx); err != nil {
		slog.Warn("⚠️ Initial strength sync failed", "error", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.SyncOnce(ctx); err != nil {
				slog.Error("❌ Strength sync batch failed", "error", err)
			}
		case <-ctx.Done():
			slog.Info("⏹️ Strength Sync Worker stopped")
			return
		}
	}
}

// SyncOnce pulls every lift changed since the newest local snapshot.
func (w *StrengthSyncWorker) SyncOnce(ctx context.Context) error {
	since, err := w.lastSyncTime(ctx)
	if err != nil {
		return err
	}
	return w.syncBatch(ctx, since)
}

// lastSyncTime is the newest remote timestamp seen so far, or the epoch.
func (w *StrengthSyncWorker) lastSyncTime(ctx context.Context) (time.Time, error) {
	var latest models.StrengthSnapshot
	err := w.db.WithContext(ctx).Order("source_updated DESC").First(&latest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Unix(0, 0).UTC(), nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read last strength sync: %w", err)
	}
	return latest.SourceUpdated, nil
}

func (w *StrengthSyncWorker) syncBatch(ctx context.Context, since time.Time) error {
	sinceStr := since.UTC().Format(time.RFC3339)

	base, err := url.Parse(w.baseURL)
	if err != nil {
		return fmt.Errorf("invalid strength sync URL '%s': %w", w.baseURL, err)
	}
	endpointURL := base.JoinPath(w.endpointPath)
	q := endpointURL.Query()
	q.Set("since", sinceStr)
	endpointURL.RawQuery = q.Encode()
	finalURL := endpointURL.String()

	slog.Debug("[SYNC] ➡️ GET", "url", finalURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request to %s: %w", finalURL, err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request to workout-history failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("workout-history returned %d: %s", resp.StatusCode, string(body))
	}

	var response GetLiftChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode lifts response: %w", err)
	}
	if len(response.Lifts) == 0 {
		slog.Debug("[SYNC] ✅ No lift changes", "since", sinceStr)
		return nil
	}

	var upserted, skipped, failed int
	for _, l := range response.Lifts {
		if l.UserID == "" || l.ExerciseID == "" {
			skipped++
			continue
		}
		snap := models.StrengthSnapshot{
			ExternalUserID: l.UserID,
			ExerciseID:     l.ExerciseID,
			BestE1RM:       l.BestE1RM,
			SourceUpdated:  l.UpdatedAt.UTC(),
		}
		err := w.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_user_id"}, {Name: "exercise_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"best_e1rm", "source_updated", "synced_at"}),
		}).Create(&snap).Error
		if err != nil {
			failed++
			slog.Warn("[SYNC] ⚠️ Failed to upsert strength snapshot",
				"user_id", l.UserID, "exercise_id", l.ExerciseID, "error", err)
			continue
		}
		upserted++
	}

	slog.Info("[SYNC] ✅ Strength snapshots synced",
		"received", len(response.Lifts), "upserted", upserted, "skipped", skipped, "errors", failed, "since", sinceStr)
	if failed > 0 {
		return fmt.Errorf("%d of %d strength snapshots failed to upsert", failed, len(response.Lifts))
	}
	return nil
}
