// Package reward computes exp/gold/item bundles for combat victories and
// tracks dungeon-clear milestones.
package reward

import (
	"math"

	"github.com/ericogr/dungeon-depths/internal/game"
)

// DifficultyMultiplier scales stage gold and exp. The table is part of
// the public reward contract: legendary gold is exactly 5x normal.
var difficultyMultipliers = map[game.Difficulty]float64{
	game.DifficultyEasy:      0.8,
	game.DifficultyNormal:    1.0,
	game.DifficultyHard:      1.5,
	game.DifficultyLegendary: 5.0,
}

// firstClearBonusMultiplier is the extra share granted on a player's
// first victory at a stage.
const firstClearBonusMultiplier = 0.5

// Multiplier returns the reward multiplier for a difficulty, defaulting
// to normal for unknown values.
func Multiplier(d game.Difficulty) float64 {
	if m, ok := difficultyMultipliers[d]; ok {
		return m
	}
	return 1.0
}

// Resolver computes reward bundles. It is stateless; milestone state is
// supplied by the caller.
type Resolver struct{}

// NewResolver builds a resolver.
func NewResolver() *Resolver { return &Resolver{} }

// Resolve computes the bundle for a victorious stage. Items are attached
// by the caller (drop rolls live in the loot package).
func (r *Resolver) Resolve(stage game.Stage, difficulty game.Difficulty, firstClear bool) game.RewardBundle {
	mult := Multiplier(difficulty)
	gold := int(math.Round(float64(stage.RewardGold) * mult))
	exp := int(math.Round(float64(stage.RewardExp) * mult))

	if firstClear {
		gold += int(math.Round(float64(gold) * firstClearBonusMultiplier))
		exp += int(math.Round(float64(exp) * firstClearBonusMultiplier))
	}

	return game.RewardBundle{Exp: exp, Gold: gold, FirstClear: firstClear}
}

// MilestoneUnlock is one newly crossed clear-count threshold.
type MilestoneUnlock struct {
	Clears    int
	Title     string
	BonusGold int
}

// CrossedMilestones returns the thresholds newly crossed by the record's
// TotalClears that have not been unlocked before, and marks them unlocked
// on the record so the bonus can never be granted twice.
func (r *Resolver) CrossedMilestones(record *game.MilestoneRecord, thresholds []game.MilestoneThreshold) []MilestoneUnlock {
	if record == nil {
		return nil
	}
	unlocked := record.UnlockedThresholds()
	var out []MilestoneUnlock
	for _, t := range thresholds {
		if record.TotalClears < t.Clears || unlocked[t.Clears] {
			continue
		}
		record.AddUnlocked(t.Clears)
		out = append(out, MilestoneUnlock{Clears: t.Clears, Title: t.Title, BonusGold: t.BonusGold})
	}
	return out
}
