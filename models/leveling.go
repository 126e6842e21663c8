package models

import "math"

// Rank is the coarse hunter tier derived from level.
type Rank string

const (
	RankE Rank = "E"
	RankD Rank = "D"
	RankC Rank = "C"
	RankB Rank = "B"
	RankA Rank = "A"
	RankS Rank = "S"
)

// rankFloors maps each rank to the first level that reaches it, lowest first.
var rankFloors = []struct {
	Rank     Rank
	MinLevel int
}{
	{RankE, 1},
	{RankD, 11},
	{RankC, 26},
	{RankB, 46},
	{RankA, 71},
	{RankS, 91},
}

// BaseXPPerLevel scales the level curve.
const BaseXPPerLevel = 100

// MaxTotalXP caps the ledger. MaxLevel is the level curve's ceiling; its
// threshold lies above MaxTotalXP, so every storable total maps to a level
// below it.
const (
	MaxTotalXP int64 = 1_000_000_000_000_000
	MaxLevel         = 1_000_000_000
)

// XPForLevel returns the cumulative XP at which level L is reached:
// floor(100 × L^1.5).
func XPForLevel(level int) int64 {
	if level < 1 {
		level = 1
	}
	return int64(math.Floor(float64(BaseXPPerLevel) * math.Pow(float64(level), 1.5)))
}

// LevelForXP returns the largest level L with XPForLevel(L) <= xp, and 1 below
// XPForLevel(2).
func LevelForXP(xp int64) int {
	if xp < XPForLevel(2) {
		return 1
	}
	// Invert the curve for a starting guess, then correct float drift.
	if xp >= XPForLevel(MaxLevel) {
		return MaxLevel
	}
	level := int(math.Pow(float64(xp)/BaseXPPerLevel, 2.0/3.0))
	level = min(max(level, 1), MaxLevel)
	for level > 1 && XPForLevel(level) > xp {
		level--
	}
	for level < MaxLevel && XPForLevel(level+1) <= xp {
		level++
	}
	return level
}

// RankForLevel is a step function over rankFloors.
func RankForLevel(level int) Rank {
	rank := RankE
	for _, f := range rankFloors {
		if level >= f.MinLevel {
			rank = f.Rank
		}
	}
	return rank
}

// Ordinal orders ranks E=1 … S=6; unknown ranks are 0.
func (r Rank) Ordinal() int {
	for i, f := range rankFloors {
		if f.Rank == r {
			return i + 1
		}
	}
	return 0
}

func (r Rank) IsValid() bool {
	return r.Ordinal() > 0
}

// Magnitude scales rank-scaled gate objective targets.
func (r Rank) Magnitude() float64 {
	switch r {
	case RankD:
		return 1.5
	case RankC:
		return 2
	case RankB:
		return 3
	case RankA:
		return 4
	case RankS:
		return 5
	default:
		return 1
	}
}

// QuestScale scales additive daily-quest targets with the hunter's rank.
func (r Rank) QuestScale() float64 {
	switch r {
	case RankD:
		return 1.25
	case RankC:
		return 1.5
	case RankB:
		return 2
	case RankA:
		return 2.5
	case RankS:
		return 3
	default:
		return 1
	}
}

// Name is the display label used in responses.
func (r Rank) Name() string {
	switch r {
	case RankE:
		return "E-Rank Hunter"
	case RankD:
		return "D-Rank Hunter"
	case RankC:
		return "C-Rank Hunter"
	case RankB:
		return "B-Rank Hunter"
	case RankA:
		return "A-Rank Hunter"
	case RankS:
		return "S-Rank Hunter"
	default:
		return "Unranked"
	}
}
