package models

import "time"

// StrengthSnapshot mirrors the workout-history service's best e1RM per lift.
// Table name: strength_snapshots
type StrengthSnapshot struct {
	ExternalUserID string    `gorm:"primaryKey;type:varchar(128)" json:"user_id"`
	ExerciseID     string    `gorm:"primaryKey;type:varchar(128)" json:"exercise_id"`
	BestE1RM       float64   `gorm:"column:best_e1rm;not null" json:"best_e1rm"`
	SourceUpdated  time.Time `gorm:"not null;index" json:"updated_at"` // remote clock, drives ?since=
	SyncedAt       time.Time `gorm:"autoUpdateTime" json:"-"`
}
