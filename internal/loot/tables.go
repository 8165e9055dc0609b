package loot

import "github.com/ericogr/dungeon-depths/internal/game"

// RarityConfig controls the stat-roll window and bonus-line count for one
// rarity tier. Bonus counts are non-decreasing in rarity rank.
type RarityConfig struct {
	MinMultiplier float64
	MaxMultiplier float64
	BonusCount    int
}

var rarityTable = map[game.Rarity]RarityConfig{
	game.RarityCommon:    {MinMultiplier: 0.85, MaxMultiplier: 1.00, BonusCount: 0},
	game.RarityUncommon:  {MinMultiplier: 0.95, MaxMultiplier: 1.10, BonusCount: 1},
	game.RarityRare:      {MinMultiplier: 1.05, MaxMultiplier: 1.25, BonusCount: 1},
	game.RarityEpic:      {MinMultiplier: 1.20, MaxMultiplier: 1.45, BonusCount: 2},
	game.RarityLegendary: {MinMultiplier: 1.40, MaxMultiplier: 1.80, BonusCount: 3},
}

// bonusStat is one entry of the fixed bonus pool. Values roll uniformly
// in [min, max].
type bonusStat struct {
	name string
	min  float64
	max  float64
}

// bonusPool is ordered; the generator draws indexes from it so a fixed
// seed always yields the same lines.
var bonusPool = []bonusStat{
	{name: "crit_rate", min: 0.01, max: 0.08},
	{name: "crit_damage", min: 0.05, max: 0.30},
	{name: "attack_speed", min: 0.02, max: 0.12},
	{name: "lifesteal", min: 0.01, max: 0.06},
	{name: "dodge", min: 0.01, max: 0.05},
	{name: "accuracy", min: 0.01, max: 0.05},
}

// DropConfig is the per-tier drop behaviour: overall drop probability and
// rarity weights. Boss and elite tiers bias toward higher rarities and
// higher drop chance than normal monsters.
type DropConfig struct {
	DropRate float64
	Weights  map[game.Rarity]int
}

var dropTable = map[game.MonsterTier]DropConfig{
	game.TierNormal: {
		DropRate: 0.30,
		Weights: map[game.Rarity]int{
			game.RarityCommon:   70,
			game.RarityUncommon: 22,
			game.RarityRare:     7,
			game.RarityEpic:     1,
		},
	},
	game.TierElite: {
		DropRate: 0.60,
		Weights: map[game.Rarity]int{
			game.RarityCommon:    35,
			game.RarityUncommon:  35,
			game.RarityRare:      22,
			game.RarityEpic:      7,
			game.RarityLegendary: 1,
		},
	},
	game.TierBoss: {
		DropRate: 1.0,
		Weights: map[game.Rarity]int{
			game.RarityUncommon:  25,
			game.RarityRare:      40,
			game.RarityEpic:      27,
			game.RarityLegendary: 8,
		},
	},
}

// orderedRarities fixes the iteration order for weighted picks.
var orderedRarities = []game.Rarity{
	game.RarityCommon,
	game.RarityUncommon,
	game.RarityRare,
	game.RarityEpic,
	game.RarityLegendary,
}
