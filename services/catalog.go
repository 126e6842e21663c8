package services

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"hunter-progression/models"

	"github.com/gosimple/slug"
)

//go:embed catalog_default.json
var defaultCatalogJSON []byte

// Catalog is the immutable, versioned reference data (quests, gates,
// achievements) loaded once at start-up. Instance rows copy what they need and
// record Version.
type Catalog struct {
	Version      string                         `json:"version"`
	Quests       []models.QuestDefinition       `json:"quests"`
	Gates        []models.GateDefinition        `json:"gates"`
	Achievements []models.AchievementDefinition `json:"achievements"`

	gatesByCode map[string]*models.GateDefinition
}

// DefaultCatalog is the catalog compiled into the binary.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalogJSON)
	if err != nil {
		panic("built-in catalog is invalid: " + err.Error())
	}
	return c
}

// ObjectFetcher is the read side of an object store.
type ObjectFetcher interface {
	GetObject(ctx context.Context, key string) ([]byte, error)
}

// LoadCatalog fetches and parses the catalog stored under key. With no
// store or key it returns the built-in catalog.
func LoadCatalog(ctx context.Context, store ObjectFetcher, key string) (*Catalog, error) {
	if store == nil || key == "" {
		return DefaultCatalog(), nil
	}
	data, err := store.GetObject(ctx, key)
	if err != nil {
		return nil, err
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", key, err)
	}
	slog.Info("Catalog loaded from object store", "key", key, "version", c.Version,
		"quests", len(c.Quests), "gates", len(c.Gates), "achievements", len(c.Achievements))
	return c, nil
}

// ParseCatalog decodes and validates a catalog document. Entries without a
// code get one derived from their name.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if c.Version == "" {
		return nil, errors.New("catalog: version is required")
	}
	if err := c.normalize(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Gate returns the definition for code.
func (c *Catalog) Gate(code string) (*models.GateDefinition, bool) {
	g, ok := c.gatesByCode[code]
	return g, ok
}

func codeFor(code, name string) string {
	if code != "" {
		return code
	}
	return strings.ReplaceAll(slug.Make(name), "-", "_")
}

func (c *Catalog) normalize() error {
	var errs []error

	seen := map[string]bool{}
	easy := 0
	for i := range c.Quests {
		q := &c.Quests[i]
		q.Code = codeFor(q.Code, q.Name)
		switch {
		case q.Code == "":
			errs = append(errs, fmt.Errorf("quest %d: code or name is required", i))
		case seen[q.Code]:
			errs = append(errs, fmt.Errorf("quest %s: duplicate code", q.Code))
		case !q.ObjectiveType.IsValid():
			errs = append(errs, fmt.Errorf("quest %s: unknown objective type %q", q.Code, q.ObjectiveType))
		case !q.Difficulty.IsValid():
			errs = append(errs, fmt.Errorf("quest %s: unknown difficulty %q", q.Code, q.Difficulty))
		case q.TargetValue <= 0 || q.XPReward < 0:
			errs = append(errs, fmt.Errorf("quest %s: target must be positive and reward non-negative", q.Code))
		}
		seen[q.Code] = true
		if q.Difficulty == models.DifficultyEasy {
			easy++
		}
	}
	if len(c.Quests) < DailyQuestCount {
		errs = append(errs, fmt.Errorf("catalog: need at least %d quests, have %d", DailyQuestCount, len(c.Quests)))
	}
	if easy == 0 {
		errs = append(errs, errors.New("catalog: need at least one easy quest"))
	}

	c.gatesByCode = make(map[string]*models.GateDefinition, len(c.Gates))
	for i := range c.Gates {
		g := &c.Gates[i]
		g.Code = codeFor(g.Code, g.Name)
		if _, dup := c.gatesByCode[g.Code]; dup || g.Code == "" {
			errs = append(errs, fmt.Errorf("gate %d (%s): missing or duplicate code", i, g.Code))
			continue
		}
		c.gatesByCode[g.Code] = g
		if !g.Rank.IsValid() {
			errs = append(errs, fmt.Errorf("gate %s: unknown rank %q", g.Code, g.Rank))
		}
		if g.MinLevel < 1 {
			g.MinLevel = 1
		}
		if g.DurationHours <= 0 || g.RarityWeight <= 0 || g.BaseXPReward < 0 {
			errs = append(errs, fmt.Errorf("gate %s: duration and rarity weight must be positive", g.Code))
		}
		if len(g.Objectives) == 0 {
			errs = append(errs, fmt.Errorf("gate %s: no objectives", g.Code))
		}
		for j := range g.Objectives {
			o := &g.Objectives[j]
			if o.TargetFormula == "" {
				o.TargetFormula = models.TargetFlat
			}
			if !o.Type.IsValid() || o.Target <= 0 || o.XPBonus < 0 {
				errs = append(errs, fmt.Errorf("gate %s objective %d: invalid type, target or bonus", g.Code, j))
			}
			if o.TargetFormula != models.TargetFlat && o.TargetFormula != models.TargetRankScaled {
				errs = append(errs, fmt.Errorf("gate %s objective %d: unknown target formula %q", g.Code, j, o.TargetFormula))
			}
		}
	}

	seen = map[string]bool{}
	for i := range c.Achievements {
		a := &c.Achievements[i]
		a.Code = codeFor(a.Code, a.Name)
		if a.Code == "" || seen[a.Code] {
			errs = append(errs, fmt.Errorf("achievement %d (%s): missing or duplicate code", i, a.Code))
		}
		seen[a.Code] = true
		cond := a.Condition
		switch {
		case !cond.Metric.IsValid():
			errs = append(errs, fmt.Errorf("achievement %s: unknown metric %q", a.Code, cond.Metric))
		case cond.Metric == models.MetricRank && !cond.Rank.IsValid():
			errs = append(errs, fmt.Errorf("achievement %s: rank condition needs a rank", a.Code))
		case cond.Metric == models.MetricLiftE1RM && cond.ExerciseID == "":
			errs = append(errs, fmt.Errorf("achievement %s: lift condition needs an exercise_id", a.Code))
		case a.XPReward < 0:
			errs = append(errs, fmt.Errorf("achievement %s: negative reward", a.Code))
		}
	}

	return errors.Join(errs...)
}
