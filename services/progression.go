package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"hunter-progression/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// XPWeights define direct event XP (tunable via env)
type XPWeights struct {
	WorkoutXP        int64 // granted once per new workout
	PersonalRecordXP int64 // per set flagged as a new PR
}

var DefaultXPWeights = XPWeights{
	WorkoutXP:        20,
	PersonalRecordXP: 50,
}

// EventXP is the direct XP of one event.
func (w XPWeights) EventXP(t EventTotals) int64 {
	return t.Workouts*w.WorkoutXP + t.PRs*w.PersonalRecordXP
}

type ProgressionService struct {
	DB           *gorm.DB
	Weights      XPWeights
	Achievements *AchievementService
	Now          func() time.Time
}

func NewProgressionService(db *gorm.DB, weights XPWeights, achievements *AchievementService) *ProgressionService {
	return &ProgressionService{DB: db, Weights: weights, Achievements: achievements, Now: utcNow}
}

// EnsureProgressRecord ensures a UserProgress row exists (idempotent)
func (s *ProgressionService) EnsureProgressRecord(ctx context.Context, externalUserID string) (*models.UserProgress, error) {
	var prog *models.UserProgress
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureProgress(tx, externalUserID); err != nil {
			return err
		}
		var p models.UserProgress
		if err := tx.Where("external_user_id = ?", externalUserID).First(&p).Error; err != nil {
			return fmt.Errorf("load progress for %s: %w", externalUserID, err)
		}
		prog = &p
		return nil
	})
	return prog, err
}

// GetProgress returns the ledger for a user, creating an empty one on first read.
func (s *ProgressionService) GetProgress(ctx context.Context, externalUserID string) (*models.UserProgress, error) {
	var prog models.UserProgress
	err := s.DB.WithContext(ctx).Where("external_user_id = ?", externalUserID).First(&prog).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.EnsureProgressRecord(ctx, externalUserID)
	}
	if err != nil {
		return nil, fmt.Errorf("load progress for %s: %w", externalUserID, err)
	}
	return &prog, nil
}

// AwardXP adds xp to the locked progress row inside tx.
func (s *ProgressionService) AwardXP(tx *gorm.DB, prog *models.UserProgress, xp int64, reason string) (models.LevelChange, error) {
	return awardXP(tx, prog, xp, reason, s.Now())
}

// GrantXP is the operator grant: award, then run achievement detection in
// the same transaction.
func (s *ProgressionService) GrantXP(ctx context.Context, externalUserID string, xp int64, reason string) (*models.RewardResult, error) {
	if xp < 0 {
		return nil, ErrNegativeXP
	}
	var result models.RewardResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prog, err := lockProgress(tx, externalUserID)
		if err != nil {
			return err
		}
		prevLevel, prevRank := prog.Level, prog.Rank
		if _, err := s.AwardXP(tx, prog, xp, reason); err != nil {
			return err
		}
		unlocked, achXP, err := s.Achievements.Detect(tx, prog)
		if err != nil {
			return err
		}
		result = models.RewardResult{
			XPAwarded:            xp,
			Breakdown:            models.RewardBreakdown{BaseXP: xp},
			Level:                levelChange(prevLevel, prevRank, prog, xp+achXP),
			AchievementsUnlocked: unlocked,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// awardXP is the only writer of total_xp. It always saves prog, so callers
// bump counters on prog before calling it. Level and rank are re-derived by
// the model's save hook; milestones are stamped here.
func awardXP(tx *gorm.DB, prog *models.UserProgress, xp int64, reason string, now time.Time) (models.LevelChange, error) {
	if xp < 0 {
		return models.LevelChange{}, ErrNegativeXP
	}
	if xp > models.MaxTotalXP-prog.TotalXP {
		return models.LevelChange{}, ErrXPLimit
	}
	prevLevel, prevRank := prog.Level, prog.Rank

	prog.TotalXP += xp
	newLevel := models.LevelForXP(prog.TotalXP)
	if newLevel > prevLevel {
		prog.LastLevelUpAt = &now
	}
	if models.RankForLevel(newLevel) != prevRank {
		prog.LastRankUpAt = &now
	}
	if err := tx.Save(prog).Error; err != nil {
		return models.LevelChange{}, fmt.Errorf("save progress for %s: %w", prog.ExternalUserID, err)
	}

	change := levelChange(prevLevel, prevRank, prog, xp)
	if xp == 0 {
		return change, nil
	}
	slog.Info("XP awarded",
		"user_id", prog.ExternalUserID,
		"xp", xp,
		"total_xp", prog.TotalXP,
		"level", prog.Level,
		"rank", string(prog.Rank),
		"reason", reason,
	)
	if change.RankChanged {
		slog.Info("Rank up", "user_id", prog.ExternalUserID, "from", string(prevRank), "to", string(prog.Rank))
	}
	return change, nil
}

func utcNow() time.Time { return time.Now().UTC() }

func levelChange(prevLevel int, prevRank models.Rank, prog *models.UserProgress, awarded int64) models.LevelChange {
	return models.LevelChange{
		XPAwarded:     awarded,
		TotalXP:       prog.TotalXP,
		PreviousLevel: prevLevel,
		NewLevel:      prog.Level,
		LeveledUp:     prog.Level > prevLevel,
		PreviousRank:  prevRank,
		NewRank:       prog.Rank,
		RankChanged:   prog.Rank != prevRank,
	}
}

// ensureProgress inserts an empty ledger row if none exists.
func ensureProgress(tx *gorm.DB, externalUserID string) error {
	prog := models.UserProgress{ExternalUserID: externalUserID}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_user_id"}},
		DoNothing: true,
	}).Create(&prog).Error
	if err != nil {
		return fmt.Errorf("ensure progress for %s: %w", externalUserID, err)
	}
	return nil
}

// lockProgress loads the user's ledger row FOR UPDATE, creating it first if
// needed. Every per-user write goes through here, which serializes them.
func lockProgress(tx *gorm.DB, externalUserID string) (*models.UserProgress, error) {
	if err := ensureProgress(tx, externalUserID); err != nil {
		return nil, err
	}
	var prog models.UserProgress
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("external_user_id = ?", externalUserID).
		First(&prog).Error; err != nil {
		return nil, fmt.Errorf("lock progress for %s: %w", externalUserID, err)
	}
	return &prog, nil
}
