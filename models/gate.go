package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GateStatus is the lifecycle state of a UserGate.
type GateStatus string

const (
	GateAvailable GateStatus = "available"
	GateActive    GateStatus = "active"
	GateCompleted GateStatus = "completed"
	GateFailed    GateStatus = "failed"
	GateExpired   GateStatus = "expired"
	GateAbandoned GateStatus = "abandoned"
)

// Unresolved gates hold the per-definition slot.
func (s GateStatus) Unresolved() bool {
	return s == GateAvailable || s == GateActive
}

// ObjectiveSpec is one objective of a GateDefinition.
type ObjectiveSpec struct {
	Type          ObjectiveType `json:"type"`
	Target        int64         `json:"target"`
	TargetFormula TargetFormula `json:"target_formula,omitempty"`
	Required      bool          `json:"required"`
	XPBonus       int64         `json:"xp_bonus,omitempty"`
	Description   string        `json:"description,omitempty"`
}

// GateDefinition is a catalog entry for a spawnable dungeon.
type GateDefinition struct {
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Rank          Rank            `json:"rank"`
	MinLevel      int             `json:"min_level"`
	DurationHours int             `json:"duration_hours"`
	BaseXPReward  int64           `json:"base_xp_reward"`
	RarityWeight  int             `json:"rarity_weight"`
	Objectives    []ObjectiveSpec `json:"objectives"`
}

// UserGate is a spawned gate instance.
type UserGate struct {
	ID             string     `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string     `gorm:"index;not null" json:"external_user_id"`
	GateCode       string     `gorm:"index;not null" json:"gate_code"`
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	Rank           Rank       `gorm:"type:varchar(2);not null" json:"rank"`
	Status         GateStatus `gorm:"type:varchar(16);index;not null" json:"status"`

	SpawnedAt   time.Time  `gorm:"not null" json:"spawned_at"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	ExpiresAt   time.Time  `gorm:"not null" json:"expires_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	ClaimedAt   *time.Time `json:"claimed_at,omitempty"`

	IsRareGate          bool  `gorm:"not null;default:false" json:"is_rare_gate"`
	IsStretch           bool  `gorm:"not null;default:false" json:"is_stretch"`
	StretchBonusPercent int   `gorm:"not null;default:0" json:"stretch_bonus_percent,omitempty"`
	BaseXPReward        int64 `gorm:"not null" json:"base_xp_reward"`
	RewardXP            int64 `gorm:"not null;default:0" json:"reward_xp,omitempty"`

	// OpenSlot is "<user>:<gate code>" while the gate is available or active
	// and NULL otherwise; the unique index allows one unresolved instance per
	// (user, definition).
	OpenSlot *string `gorm:"uniqueIndex" json:"-"`

	CatalogVersion string              `json:"catalog_version"`
	Objectives     []UserGateObjective `gorm:"foreignKey:UserGateID" json:"objectives"`
	CreatedAt      time.Time           `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time           `json:"updated_at" gorm:"autoUpdateTime"`
}

func (g *UserGate) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	return nil
}

// OpenSlotKey builds the unresolved-slot key for a user and definition.
func OpenSlotKey(userID, gateCode string) string {
	return userID + ":" + gateCode
}

// UserGateObjective is a materialized ObjectiveSpec with its progress.
type UserGateObjective struct {
	ID          string        `gorm:"primaryKey;type:uuid" json:"id"`
	UserGateID  string        `gorm:"type:uuid;index;not null" json:"-"`
	Position    int           `gorm:"not null" json:"position"`
	Type        ObjectiveType `gorm:"type:varchar(32);not null" json:"type"`
	Description string        `json:"description,omitempty"`
	Target      int64         `gorm:"not null" json:"target"`
	Progress    int64         `gorm:"not null;default:0" json:"progress"`
	Required    bool          `gorm:"not null" json:"required"`
	XPBonus     int64         `gorm:"not null;default:0" json:"xp_bonus,omitempty"`
	IsCompleted bool          `gorm:"not null;default:false" json:"is_completed"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

func (o *UserGateObjective) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}
