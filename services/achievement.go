package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"hunter-progression/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StrengthSource supplies best e1RM per exercise for lift conditions. It is
// read inside the caller's transaction, so implementations must not do
// network I/O.
type StrengthSource interface {
	BestE1RM(db *gorm.DB, userID string) (map[string]float64, error)
}

// SnapshotStrengthSource reads the strength_snapshots mirror kept fresh by
// the strength sync worker.
type SnapshotStrengthSource struct{}

func (SnapshotStrengthSource) BestE1RM(db *gorm.DB, userID string) (map[string]float64, error) {
	var rows []models.StrengthSnapshot
	if err := db.Where("external_user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load strength snapshot for %s: %w", userID, err)
	}
	lifts := make(map[string]float64, len(rows))
	for _, r := range rows {
		lifts[r.ExerciseID] = r.BestE1RM
	}
	return lifts, nil
}

// AchievementView is one catalog achievement with the user's unlock state.
type AchievementView struct {
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Rarity      string     `json:"rarity"`
	XPReward    int64      `json:"xp_reward"`
	Unlocked    bool       `json:"unlocked"`
	UnlockedAt  *time.Time `json:"unlocked_at,omitempty"`
}

type AchievementService struct {
	DB       *gorm.DB
	Catalog  *Catalog
	Strength StrengthSource
	Now      func() time.Time
}

func NewAchievementService(db *gorm.DB, catalog *Catalog, strength StrengthSource) *AchievementService {
	return &AchievementService{DB: db, Catalog: catalog, Strength: strength, Now: utcNow}
}

// ListAchievements returns every catalog achievement, unlocked ones carrying
// their unlock time.
func (s *AchievementService) ListAchievements(ctx context.Context, userID string) ([]AchievementView, error) {
	var rows []models.UserAchievement
	if err := s.DB.WithContext(ctx).Where("external_user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load achievements for %s: %w", userID, err)
	}
	unlockedAt := make(map[string]time.Time, len(rows))
	for _, r := range rows {
		unlockedAt[r.AchievementCode] = r.UnlockedAt
	}

	views := make([]AchievementView, 0, len(s.Catalog.Achievements))
	for _, def := range s.Catalog.Achievements {
		v := AchievementView{
			Code:        def.Code,
			Name:        def.Name,
			Description: def.Description,
			Rarity:      def.Rarity,
			XPReward:    def.XPReward,
		}
		if at, ok := unlockedAt[def.Code]; ok {
			v.Unlocked = true
			v.UnlockedAt = &at
		}
		views = append(views, v)
	}
	return views, nil
}

// Detect unlocks every achievement prog now satisfies and awards its XP
// through the ledger. It repeats until a pass unlocks nothing, so XP from one
// unlock can satisfy a level or XP condition in the same call. Returns the
// newly unlocked codes and the XP they granted.
func (s *AchievementService) Detect(tx *gorm.DB, prog *models.UserProgress) ([]string, int64, error) {
	var have []string
	if err := tx.Model(&models.UserAchievement{}).
		Where("external_user_id = ?", prog.ExternalUserID).
		Pluck("achievement_code", &have).Error; err != nil {
		return nil, 0, fmt.Errorf("load unlocked achievements for %s: %w", prog.ExternalUserID, err)
	}
	unlocked := make(map[string]bool, len(have))
	for _, c := range have {
		unlocked[c] = true
	}

	var lifts map[string]float64
	liftsLoaded := false

	newCodes := []string{}
	var totalXP int64
	now := s.Now()
	for {
		progressed := false
		for _, def := range s.Catalog.Achievements {
			if unlocked[def.Code] {
				continue
			}
			if def.Condition.Metric == models.MetricLiftE1RM && !liftsLoaded {
				var err error
				if lifts, err = s.Strength.BestE1RM(tx, prog.ExternalUserID); err != nil {
					return nil, 0, err
				}
				liftsLoaded = true
			}
			if !MeetsCondition(def.Condition, prog, lifts) {
				continue
			}

			unlocked[def.Code] = true
			row := models.UserAchievement{
				ExternalUserID:  prog.ExternalUserID,
				AchievementCode: def.Code,
				UnlockedAt:      now,
				XPAwarded:       def.XPReward,
				CatalogVersion:  s.Catalog.Version,
			}
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
			if res.Error != nil {
				return nil, 0, fmt.Errorf("unlock %s for %s: %w", def.Code, prog.ExternalUserID, res.Error)
			}
			if res.RowsAffected == 0 {
				continue
			}

			if _, err := awardXP(tx, prog, def.XPReward, "achievement_"+def.Code, now); err != nil {
				return nil, 0, err
			}
			newCodes = append(newCodes, def.Code)
			totalXP += def.XPReward
			progressed = true
			slog.Info("🎖️ Achievement unlocked", "user_id", prog.ExternalUserID, "code", def.Code, "xp", def.XPReward)
		}
		if !progressed {
			break
		}
	}
	return newCodes, totalXP, nil
}

// MeetsCondition checks one unlock condition against aggregate state.
// Unknown metrics never match.
func MeetsCondition(cond models.UnlockCondition, prog *models.UserProgress, lifts map[string]float64) bool {
	switch cond.Metric {
	case models.MetricWorkoutCount:
		return float64(prog.TotalWorkouts) >= cond.Threshold
	case models.MetricPRCount:
		return float64(prog.TotalPRs) >= cond.Threshold
	case models.MetricLevel:
		return float64(prog.Level) >= cond.Threshold
	case models.MetricRank:
		return cond.Rank.IsValid() && prog.Rank.Ordinal() >= cond.Rank.Ordinal()
	case models.MetricTotalXP:
		return float64(prog.TotalXP) >= cond.Threshold
	case models.MetricTotalVolume:
		return float64(prog.TotalVolume) >= cond.Threshold
	case models.MetricLongestStreak:
		return float64(prog.LongestStreak) >= cond.Threshold
	case models.MetricQuestsClaimed:
		return float64(prog.QuestsClaimed) >= cond.Threshold
	case models.MetricGatesCleared:
		return float64(prog.GatesCleared) >= cond.Threshold
	case models.MetricLiftE1RM:
		best, ok := lifts[cond.ExerciseID]
		return ok && best >= cond.Threshold
	default:
		return false
	}
}
