package models

// LevelChange is what the ledger reports for every award.
type LevelChange struct {
	XPAwarded     int64 `json:"xp_awarded"`
	TotalXP       int64 `json:"total_xp"`
	PreviousLevel int   `json:"previous_level"`
	NewLevel      int   `json:"new_level"`
	LeveledUp     bool  `json:"leveled_up"`
	PreviousRank  Rank  `json:"previous_rank"`
	NewRank       Rank  `json:"new_rank"`
	RankChanged   bool  `json:"rank_changed"`
}

// RewardBreakdown itemizes a gate or quest reward.
type RewardBreakdown struct {
	BaseXP         int64 `json:"base_xp"`
	StretchBonus   int64 `json:"stretch_bonus_xp,omitempty"`
	ObjectiveBonus int64 `json:"objective_bonus_xp,omitempty"`
}

// RewardResult is returned by quest and gate claims. A repeated claim
// returns the stored reward with AlreadyClaimed set and no ledger change.
type RewardResult struct {
	XPAwarded            int64           `json:"xp_awarded"`
	Breakdown            RewardBreakdown `json:"breakdown"`
	AlreadyClaimed       bool            `json:"already_claimed"`
	Level                LevelChange     `json:"level"`
	AchievementsUnlocked []string        `json:"achievements_unlocked"`
}

type QuestAdvance struct {
	QuestID      string `json:"quest_id"`
	QuestCode    string `json:"quest_code"`
	Progress     int64  `json:"progress"`
	Target       int64  `json:"target"`
	NowCompleted bool   `json:"now_completed"`
}

type GateAdvance struct {
	GateID       string     `json:"gate_id"`
	GateCode     string     `json:"gate_code"`
	Status       GateStatus `json:"status"`
	NowCompleted bool       `json:"now_completed"`
}

// ProgressionSummary is the response to a workout-completion event.
type ProgressionSummary struct {
	WorkoutID string `json:"workout_id"`

	XPDelta       int64 `json:"xp_delta"` // event XP + achievement XP
	EventXP       int64 `json:"event_xp"` // workout + PR XP
	AchievementXP int64 `json:"achievement_xp"`
	TotalXP       int64 `json:"total_xp"`

	LeveledUp     bool `json:"leveled_up"`
	PreviousLevel int  `json:"previous_level"`
	NewLevel      int  `json:"new_level"`
	RankChanged   bool `json:"rank_changed"`
	PreviousRank  Rank `json:"previous_rank"`
	NewRank       Rank `json:"new_rank"`

	QuestsAdvanced       []QuestAdvance `json:"quests_advanced"`
	GatesAdvanced        []GateAdvance  `json:"gates_advanced"`
	GateSpawned          *string        `json:"gate_spawned,omitempty"` // user gate id
	AchievementsUnlocked []string       `json:"achievements_unlocked"`

	Duplicate bool `json:"duplicate"`
}
