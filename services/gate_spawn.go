package services

import (
	"math"
	"time"

	"hunter-progression/models"
)

// SpawnParams tunes SelectGateSpawn. The Force fields are set by operator
// spawns and override the corresponding filter or roll.
type SpawnParams struct {
	RareChance          float64
	StretchChance       float64
	StretchBonusPercent int

	ForceRank    models.Rank
	ForceRare    *bool
	ForceStretch *bool
}

// SpawnDecision is the outcome of a successful spawn draw.
type SpawnDecision struct {
	Definition          *models.GateDefinition
	IsRare              bool
	IsStretch           bool
	StretchBonusPercent int
}

// SelectGateSpawn filters defs to those the hunter qualifies for and has no
// unresolved instance of (open, keyed by gate code), then draws one weighted
// by rarity and rolls the rare and stretch flags independently. Random draws
// happen in a fixed order so a seeded source reproduces the same decision.
func SelectGateSpawn(defs []models.GateDefinition, level int, open map[string]bool, rng RandSource, p SpawnParams) (SpawnDecision, bool) {
	var eligible []*models.GateDefinition
	total := 0
	for i := range defs {
		d := &defs[i]
		if d.MinLevel > level || open[d.Code] || d.RarityWeight <= 0 {
			continue
		}
		if p.ForceRank != "" && d.Rank != p.ForceRank {
			continue
		}
		eligible = append(eligible, d)
		total += d.RarityWeight
	}
	if len(eligible) == 0 {
		return SpawnDecision{}, false
	}

	pick := rng.IntN(total)
	var chosen *models.GateDefinition
	for _, d := range eligible {
		if pick < d.RarityWeight {
			chosen = d
			break
		}
		pick -= d.RarityWeight
	}

	decision := SpawnDecision{Definition: chosen}
	if p.ForceRare != nil {
		decision.IsRare = *p.ForceRare
	} else {
		decision.IsRare = rng.Float64() < p.RareChance
	}
	if p.ForceStretch != nil {
		decision.IsStretch = *p.ForceStretch
	} else {
		decision.IsStretch = rng.Float64() < p.StretchChance
	}
	if decision.IsStretch {
		decision.StretchBonusPercent = p.StretchBonusPercent
	}
	return decision, true
}

// ObjectiveTarget materializes a spec's target for a gate of the given rank.
func ObjectiveTarget(spec models.ObjectiveSpec, rank models.Rank) int64 {
	if spec.TargetFormula == models.TargetRankScaled {
		return int64(math.Ceil(float64(spec.Target) * rank.Magnitude()))
	}
	return spec.Target
}

// MaterializeGate builds the available UserGate for a decision. The deadline
// is fixed here; accepting the gate does not move it.
func MaterializeGate(userID string, d SpawnDecision, now time.Time, catalogVersion string) *models.UserGate {
	def := d.Definition
	slot := models.OpenSlotKey(userID, def.Code)
	gate := &models.UserGate{
		ExternalUserID:      userID,
		GateCode:            def.Code,
		Name:                def.Name,
		Description:         def.Description,
		Rank:                def.Rank,
		Status:              models.GateAvailable,
		SpawnedAt:           now,
		ExpiresAt:           now.Add(time.Duration(def.DurationHours) * time.Hour),
		IsRareGate:          d.IsRare,
		IsStretch:           d.IsStretch,
		StretchBonusPercent: d.StretchBonusPercent,
		BaseXPReward:        def.BaseXPReward,
		OpenSlot:            &slot,
		CatalogVersion:      catalogVersion,
	}
	for i, spec := range def.Objectives {
		gate.Objectives = append(gate.Objectives, models.UserGateObjective{
			Position:    i,
			Type:        spec.Type,
			Description: spec.Description,
			Target:      ObjectiveTarget(spec, def.Rank),
			Required:    spec.Required,
			XPBonus:     spec.XPBonus,
		})
	}
	return gate
}

// GateReward computes the claim reward:
// base × (100 + stretch%) / 100 when stretched, plus the bonus of every
// completed non-required objective.
func GateReward(g *models.UserGate) (int64, models.RewardBreakdown) {
	b := models.RewardBreakdown{BaseXP: g.BaseXPReward}
	if g.IsStretch && g.StretchBonusPercent > 0 {
		b.StretchBonus = g.BaseXPReward * int64(g.StretchBonusPercent) / 100
	}
	for _, o := range g.Objectives {
		if !o.Required && o.IsCompleted {
			b.ObjectiveBonus += o.XPBonus
		}
	}
	return b.BaseXP + b.StretchBonus + b.ObjectiveBonus, b
}

// objectivesMet: every required objective is complete, or every objective
// when none is required.
func objectivesMet(objs []models.UserGateObjective) bool {
	anyRequired := false
	for _, o := range objs {
		if o.Required {
			anyRequired = true
			if !o.IsCompleted {
				return false
			}
		}
	}
	if anyRequired {
		return true
	}
	for _, o := range objs {
		if !o.IsCompleted {
			return false
		}
	}
	return len(objs) > 0
}
