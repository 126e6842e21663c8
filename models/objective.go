package models

// ObjectiveType is the closed set of progress measures an objective can track.
type ObjectiveType string

const (
	ObjectiveTotalReps    ObjectiveType = "total_reps"
	ObjectiveTotalVolume  ObjectiveType = "total_volume"
	ObjectiveTotalSets    ObjectiveType = "total_sets"
	ObjectiveCompoundSets ObjectiveType = "compound_sets"
	ObjectiveWorkoutCount ObjectiveType = "workout_count"
	ObjectivePR           ObjectiveType = "pr"
	ObjectiveStreak       ObjectiveType = "streak"
)

func (t ObjectiveType) IsValid() bool {
	switch t {
	case ObjectiveTotalReps, ObjectiveTotalVolume, ObjectiveTotalSets,
		ObjectiveCompoundSets, ObjectiveWorkoutCount, ObjectivePR, ObjectiveStreak:
		return true
	default:
		return false
	}
}

// Replaces reports whether progress is a "reached N" value rather than an
// accumulated one.
func (t ObjectiveType) Replaces() bool {
	return t == ObjectiveStreak
}

// Scales reports whether quest targets of this type grow with rank.
func (t ObjectiveType) Scales() bool {
	switch t {
	case ObjectiveTotalReps, ObjectiveTotalVolume, ObjectiveTotalSets, ObjectiveCompoundSets:
		return true
	default:
		return false
	}
}

// TargetFormula controls how a gate objective target is materialized at spawn.
type TargetFormula string

const (
	TargetFlat       TargetFormula = "flat"
	TargetRankScaled TargetFormula = "rank_scaled"
)
