package engine

import (
	"math"

	"github.com/ericogr/dungeon-depths/internal/game"
)

// AttachEffect adds a status effect to the combatant. An existing effect
// of the same type is refreshed rather than stacked.
func AttachEffect(c *game.Combatant, spec game.EffectSpec) {
	if existing := c.Effect(spec.Type); existing != nil {
		existing.Magnitude = spec.Magnitude
		existing.RemainingTurns = spec.Duration
		return
	}
	c.Effects = append(c.Effects, game.StatusEffect{
		Type:           spec.Type,
		Magnitude:      spec.Magnitude,
		RemainingTurns: spec.Duration,
	})
}

// ConsumeDefend removes a defend stance from the combatant, if present,
// and returns its defense multiplier. Defend lasts a single incoming
// resolution, not a full turn window.
func ConsumeDefend(c *game.Combatant) float64 {
	for i := range c.Effects {
		if c.Effects[i].Type == game.EffectDefend {
			mult := c.Effects[i].Magnitude
			c.Effects = append(c.Effects[:i], c.Effects[i+1:]...)
			if mult < 1 {
				mult = 1
			}
			return mult
		}
	}
	return 1
}

// EffectiveAttack returns the combatant's attack with active buffs applied.
func EffectiveAttack(c *game.Combatant) int {
	atk := float64(c.Stats.Attack)
	if e := c.Effect(game.EffectBuffAttack); e != nil {
		atk *= e.Magnitude
	}
	if atk < 0 {
		atk = 0
	}
	return int(math.Round(atk))
}

// EffectiveDefense returns the combatant's defense with active buffs
// applied. The defend stance is handled separately at resolution time.
func EffectiveDefense(c *game.Combatant) int {
	def := float64(c.Stats.Defense)
	if e := c.Effect(game.EffectBuffDefense); e != nil {
		def *= e.Magnitude
	}
	if def < 0 {
		def = 0
	}
	return int(math.Round(def))
}

// IsStunned reports whether the combatant must skip its action.
func IsStunned(c *game.Combatant) bool {
	return c.Effect(game.EffectStun) != nil
}

// TickTurn runs once per completed turn: poison damage lands, every
// effect's remaining-turn counter drops by one (expired effects are
// removed), and skill cooldowns decrement with a floor of zero. HP is
// clamped to [0, MaxHP] throughout.
func TickTurn(combatants []*game.Combatant) {
	for _, c := range combatants {
		if !c.IsAlive() {
			continue
		}
		if e := c.Effect(game.EffectPoison); e != nil {
			dmg := int(e.Magnitude)
			if dmg < 1 {
				dmg = 1
			}
			c.HP -= dmg
			if c.HP < 0 {
				c.HP = 0
			}
		}

		kept := c.Effects[:0]
		for _, e := range c.Effects {
			// Defend is consumed at the next incoming-damage resolution
			// (or dropped when the defender next acts), not at a turn
			// boundary.
			if e.Type != game.EffectDefend {
				e.RemainingTurns--
			}
			if e.RemainingTurns > 0 {
				kept = append(kept, e)
			}
		}
		c.Effects = kept

		for i := range c.Skills {
			if c.Skills[i].Cooldown > 0 {
				c.Skills[i].Cooldown--
			}
		}
	}
}
