package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserProgress is the per-hunter ledger. Level and Rank are stored for querying
// but always re-derived from TotalXP on save.
type UserProgress struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // links to profile service

	// Core progression
	TotalXP int64 `json:"total_xp" gorm:"not null;default:0"`
	Level   int   `json:"level" gorm:"not null;default:1"`
	Rank    Rank  `json:"rank" gorm:"type:varchar(2);not null;default:'E'"`

	// Streaks are reported by the workout-logging service; we keep the high-water mark.
	CurrentStreak int    `json:"current_streak" gorm:"default:0"`
	LongestStreak int    `json:"longest_streak" gorm:"default:0"`
	LastEventDate string `json:"last_event_date,omitempty" gorm:"type:varchar(10)"`
	Timezone      string `json:"timezone" gorm:"type:varchar(64);not null;default:'UTC'"`

	// Lifetime counters (achievement inputs)
	TotalWorkouts int64 `json:"total_workouts" gorm:"default:0"`
	TotalSets     int64 `json:"total_sets" gorm:"default:0"`
	TotalReps     int64 `json:"total_reps" gorm:"default:0"`
	TotalVolume   int64 `json:"total_volume" gorm:"default:0"`
	TotalPRs      int64 `json:"total_prs" gorm:"default:0"`
	QuestsClaimed int64 `json:"quests_claimed" gorm:"default:0"`
	GatesCleared  int64 `json:"gates_cleared" gorm:"default:0"`

	// Milestones
	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`
	LastRankUpAt  *time.Time `json:"last_rank_up_at,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times. Ledger and idempotency rows are never
// deleted, so there is no soft-delete column.
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (p *UserProgress) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Timezone == "" {
		p.Timezone = "UTC"
	}
	p.derive()
	return nil
}

func (p *UserProgress) BeforeSave(tx *gorm.DB) error {
	p.derive()
	return nil
}

func (p *UserProgress) derive() {
	p.Level = LevelForXP(p.TotalXP)
	p.Rank = RankForLevel(p.Level)
}

// Location resolves the hunter's timezone, falling back to UTC.
func (p *UserProgress) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LocalDate is the day bucket (YYYY-MM-DD) of t in the hunter's timezone.
func (p *UserProgress) LocalDate(t time.Time) string {
	return t.In(p.Location()).Format(DateLayout)
}

const DateLayout = "2006-01-02"
