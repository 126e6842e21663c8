package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AchievementMetric is the aggregate an unlock condition is checked against.
type AchievementMetric string

const (
	MetricWorkoutCount  AchievementMetric = "workout_count"
	MetricPRCount       AchievementMetric = "pr_count"
	MetricLevel         AchievementMetric = "level"
	MetricRank          AchievementMetric = "rank"
	MetricTotalXP       AchievementMetric = "total_xp"
	MetricTotalVolume   AchievementMetric = "total_volume"
	MetricLongestStreak AchievementMetric = "longest_streak"
	MetricQuestsClaimed AchievementMetric = "quests_claimed"
	MetricGatesCleared  AchievementMetric = "gates_cleared"
	MetricLiftE1RM      AchievementMetric = "lift_e1rm" // needs ExerciseID
)

func (m AchievementMetric) IsValid() bool {
	switch m {
	case MetricWorkoutCount, MetricPRCount, MetricLevel, MetricRank, MetricTotalXP,
		MetricTotalVolume, MetricLongestStreak, MetricQuestsClaimed, MetricGatesCleared, MetricLiftE1RM:
		return true
	default:
		return false
	}
}

// UnlockCondition: metric >= Threshold, or rank reached for MetricRank.
type UnlockCondition struct {
	Metric     AchievementMetric `json:"metric"`
	Threshold  float64           `json:"threshold,omitempty"`
	Rank       Rank              `json:"rank,omitempty"`
	ExerciseID string            `json:"exercise_id,omitempty"`
}

// AchievementDefinition: static catalog entry
type AchievementDefinition struct {
	Code        string          `json:"code"` // e.g. "first_workout", "bench_100"
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Rarity      string          `json:"rarity"` // common, rare, epic, legendary
	XPReward    int64           `json:"xp_reward"`
	Condition   UnlockCondition `json:"condition"`
}

// UserAchievement: unlock record, insert-only
type UserAchievement struct {
	ID              string    `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID  string    `gorm:"not null;uniqueIndex:idx_user_achievement,priority:1" json:"external_user_id"`
	AchievementCode string    `gorm:"not null;uniqueIndex:idx_user_achievement,priority:2" json:"achievement_code"`
	UnlockedAt      time.Time `gorm:"not null" json:"unlocked_at"`
	XPAwarded       int64     `gorm:"not null;default:0" json:"xp_awarded"`
	CatalogVersion  string    `json:"catalog_version"`
}

func (a *UserAchievement) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
