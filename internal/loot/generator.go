// Package loot implements the seeded deterministic item generator and the
// per-tier drop rolls that feed combat rewards.
package loot

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ericogr/dungeon-depths/internal/game"
)

// levelScalePerLevel is the flat per-level growth applied to rolled base
// stats. Levels are used exactly as supplied: out-of-range values (150,
// negatives) pass through the formula unvalidated.
const levelScalePerLevel = 0.05

// Catalog is the read-only base-item source the generator rolls from.
type Catalog interface {
	GetItemByID(id string) *game.BaseItem
	ItemIDs() []string
}

// GenerateOptions are the inputs to one generation call. A nil Seed means
// "derive one"; a supplied Seed makes the call exactly reproducible.
type GenerateOptions struct {
	BaseItemID string
	Level      int
	Rarity     game.Rarity
	Seed       *int64
}

// Generator produces loot. Safe for concurrent use: every call builds its
// own random stream from the generation seed.
type Generator struct {
	catalog Catalog
	seedFn  func() (int64, error)
	now     func() time.Time
}

// NewGenerator builds a generator over the given base-item catalog.
func NewGenerator(catalog Catalog) *Generator {
	return &Generator{catalog: catalog, seedFn: NewSeed, now: time.Now}
}

// WithSeedFn overrides seed derivation; tests pin it.
func (g *Generator) WithSeedFn(fn func() (int64, error)) *Generator {
	if fn != nil {
		g.seedFn = fn
	}
	return g
}

// WithClock overrides the timestamp source; tests pin it.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	if now != nil {
		g.now = now
	}
	return g
}

// GenerateItem rolls one item. Two calls with identical options including
// the same explicit seed yield identical base and bonus stats.
func (g *Generator) GenerateItem(opts GenerateOptions) (*game.GeneratedItem, error) {
	cfg, ok := rarityTable[opts.Rarity]
	if !ok {
		return nil, fmt.Errorf("%w: %q", game.ErrInvalidRarity, opts.Rarity)
	}
	base := g.catalog.GetItemByID(opts.BaseItemID)
	if base == nil {
		return nil, fmt.Errorf("%w: %q", game.ErrInvalidBaseItem, opts.BaseItemID)
	}

	seed := int64(0)
	if opts.Seed != nil {
		seed = *opts.Seed
	} else {
		derived, err := g.seedFn()
		if err != nil {
			return nil, fmt.Errorf("derive seed: %w", err)
		}
		seed = derived
	}
	rng := rand.New(rand.NewSource(seed))

	item := &game.GeneratedItem{
		UniqueID:    uuid.NewString(),
		BaseItemID:  base.ID,
		Rarity:      opts.Rarity,
		Level:       opts.Level,
		Seed:        seed,
		GeneratedAt: g.now(),
		BaseStats:   rollBaseStats(rng, base, cfg, opts.Level),
		BonusStats:  rollBonusStats(rng, cfg.BonusCount),
		SetID:       base.SetID,
	}
	return item, nil
}

// rollBaseStats applies a rarity-window multiplier and level scaling to
// each base stat. Stats are visited in sorted key order so the draw
// sequence is fixed for a given seed.
func rollBaseStats(rng *rand.Rand, base *game.BaseItem, cfg RarityConfig, level int) map[string]int {
	keys := make([]string, 0, len(base.Stats))
	for k := range base.Stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	levelScale := 1 + levelScalePerLevel*float64(level)
	out := make(map[string]int, len(keys))
	for _, k := range keys {
		mult := cfg.MinMultiplier + rng.Float64()*(cfg.MaxMultiplier-cfg.MinMultiplier)
		out[k] = int(math.Round(float64(base.Stats[k]) * mult * levelScale))
	}
	return out
}

// rollBonusStats draws count distinct lines from the fixed bonus pool.
func rollBonusStats(rng *rand.Rand, count int) []game.BonusStat {
	if count <= 0 {
		return nil
	}
	if count > len(bonusPool) {
		count = len(bonusPool)
	}
	picked := rng.Perm(len(bonusPool))[:count]
	sort.Ints(picked)

	out := make([]game.BonusStat, 0, count)
	for _, idx := range picked {
		b := bonusPool[idx]
		value := b.min + rng.Float64()*(b.max-b.min)
		out = append(out, game.BonusStat{
			Stat:  b.name,
			Value: math.Round(value*1000) / 1000,
		})
	}
	return out
}

// GenerateDropItem rolls a monster drop. It returns (nil, nil) when the
// drop roll fails; tier decides both the drop probability and the rarity
// weighting.
func (g *Generator) GenerateDropItem(monsterLevel int, tier game.MonsterTier) (*game.GeneratedItem, error) {
	cfg, ok := dropTable[tier]
	if !ok {
		cfg = dropTable[game.TierNormal]
	}

	seed, err := g.seedFn()
	if err != nil {
		return nil, fmt.Errorf("derive drop seed: %w", err)
	}
	rng := rand.New(rand.NewSource(seed))

	if rng.Float64() >= cfg.DropRate {
		return nil, nil
	}

	ids := g.catalog.ItemIDs()
	if len(ids) == 0 {
		return nil, nil
	}
	baseID := ids[rng.Intn(len(ids))]
	rarity := pickRarity(rng, cfg.Weights)

	// Re-derive the generation stream from the recorded seed so the item
	// is reproducible from its own (baseItemId, level, rarity, seed)
	// tuple alone.
	itemSeed := rng.Int63()
	return g.GenerateItem(GenerateOptions{
		BaseItemID: baseID,
		Level:      monsterLevel,
		Rarity:     rarity,
		Seed:       &itemSeed,
	})
}

// pickRarity makes a weighted draw over the tier's rarity table.
func pickRarity(rng *rand.Rand, weights map[game.Rarity]int) game.Rarity {
	total := 0
	for _, r := range orderedRarities {
		total += weights[r]
	}
	if total <= 0 {
		return game.RarityCommon
	}
	roll := rng.Intn(total)
	for _, r := range orderedRarities {
		roll -= weights[r]
		if roll < 0 {
			return r
		}
	}
	return game.RarityCommon
}
