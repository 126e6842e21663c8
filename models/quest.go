package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Difficulty tiers for daily quest definitions.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) IsValid() bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

// QuestDefinition is a catalog entry. Loaded at start-up, never mutated.
type QuestDefinition struct {
	Code          string        `json:"code"`
	Name          string        `json:"name"`
	Description   string        `json:"description,omitempty"`
	ObjectiveType ObjectiveType `json:"objective_type"`
	TargetValue   int64         `json:"target_value"`
	XPReward      int64         `json:"xp_reward"`
	Difficulty    Difficulty    `json:"difficulty"`
}

// UserQuest is one day's instance of a QuestDefinition.
type UserQuest struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"not null;uniqueIndex:idx_user_quest_slot,priority:1;uniqueIndex:idx_user_quest_code,priority:1" json:"external_user_id"`
	Date           string `gorm:"type:varchar(10);not null;uniqueIndex:idx_user_quest_slot,priority:2;uniqueIndex:idx_user_quest_code,priority:2" json:"date"`
	Slot           int    `gorm:"not null;uniqueIndex:idx_user_quest_slot,priority:3" json:"slot"`
	QuestCode      string `gorm:"not null;uniqueIndex:idx_user_quest_code,priority:3" json:"quest_code"`

	Name          string        `json:"name"`
	Description   string        `json:"description,omitempty"`
	ObjectiveType ObjectiveType `gorm:"type:varchar(32);not null" json:"objective_type"`
	Difficulty    Difficulty    `gorm:"type:varchar(16);not null" json:"difficulty"`
	TargetValue   int64         `gorm:"not null" json:"target_value"`
	XPReward      int64         `gorm:"not null" json:"xp_reward"`

	Progress    int64      `gorm:"not null;default:0" json:"progress"`
	Completed   bool       `gorm:"not null;default:false" json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Claimed     bool       `gorm:"not null;default:false" json:"claimed"`
	ClaimedAt   *time.Time `json:"claimed_at,omitempty"`

	CatalogVersion string    `json:"catalog_version"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (q *UserQuest) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}

// PercentComplete is capped at 100.
func (q *UserQuest) PercentComplete() float64 {
	if q.TargetValue <= 0 {
		return 100
	}
	pct := float64(q.Progress) / float64(q.TargetValue) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}
