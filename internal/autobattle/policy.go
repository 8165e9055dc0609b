// Package autobattle selects the player's action when auto-battle mode is
// on. The policy is fully deterministic for a given combat snapshot so it
// can be unit-tested; only the damage calculator's crit/miss rolls make
// the resulting battle stochastic.
package autobattle

import (
	"fmt"

	"github.com/ericogr/dungeon-depths/internal/engine"
	"github.com/ericogr/dungeon-depths/internal/game"
)

const (
	// lowHPThreshold triggers healing when a heal is available.
	lowHPThreshold = 0.35
	// criticalHPThreshold triggers defend when no heal exists.
	criticalHPThreshold = 0.15
)

// Policy decides actions against a skill registry.
type Policy struct {
	reg *engine.Registry
}

// New builds a policy over the given registry.
func New(reg *engine.Registry) *Policy {
	return &Policy{reg: reg}
}

// Choose returns the action the given actor should take. The priority is:
// heal when low, best damage skill when it beats a plain attack, plain
// attack otherwise, defend only at critical HP with no heal available.
func (p *Policy) Choose(state *game.CombatState, actorID string) (game.ActionType, string, string, error) {
	actor := state.Combatant(actorID)
	if actor == nil {
		return "", "", "", fmt.Errorf("%w: %s", game.ErrCombatantNotFound, actorID)
	}

	ratio := actor.HPRatio()
	if ratio < lowHPThreshold {
		if healID := p.bestHeal(actor); healID != "" {
			return game.ActionSkill, healID, actor.ID, nil
		}
		if ratio < criticalHPThreshold {
			return game.ActionDefend, "", "", nil
		}
	}

	target := HighestThreat(state.Living(opposing(actor.Team)))
	targetID := ""
	if target != nil {
		targetID = target.ID
	}

	if skillID := p.bestDamageSkill(actor); skillID != "" {
		return game.ActionSkill, skillID, targetID, nil
	}
	return game.ActionAttack, "", targetID, nil
}

// bestHeal returns the usable healing skill restoring the most HP.
func (p *Policy) bestHeal(actor *game.Combatant) string {
	best := ""
	bestAmount := 0
	for _, st := range actor.Skills {
		if !p.reg.Usable(actor, st.SkillID) {
			continue
		}
		skill, err := p.reg.Get(st.SkillID)
		if err != nil || !skill.IsHealing() {
			continue
		}
		if skill.HealAmount > bestAmount {
			bestAmount = skill.HealAmount
			best = st.SkillID
		}
	}
	return best
}

// bestDamageSkill returns the usable offensive skill whose expected damage
// (multiplier x attack, target defense ignored) beats a plain attack, or
// "" when none does.
func (p *Policy) bestDamageSkill(actor *game.Combatant) string {
	attack := float64(engine.EffectiveAttack(actor))
	best := ""
	bestDamage := attack
	for _, st := range actor.Skills {
		if !p.reg.Usable(actor, st.SkillID) {
			continue
		}
		skill, err := p.reg.Get(st.SkillID)
		if err != nil || skill.IsHealing() || skill.Target == game.TargetSelf {
			continue
		}
		expected := skill.DamageMultiplier * attack
		if expected > bestDamage {
			bestDamage = expected
			best = st.SkillID
		}
	}
	return best
}

// HighestThreat picks the living enemy with the highest attack stat; ties
// go to the lowest HP so weakened targets are finished off first.
func HighestThreat(enemies []*game.Combatant) *game.Combatant {
	var target *game.Combatant
	for _, e := range enemies {
		if target == nil {
			target = e
			continue
		}
		if e.Stats.Attack > target.Stats.Attack ||
			(e.Stats.Attack == target.Stats.Attack && e.HP < target.HP) {
			target = e
		}
	}
	return target
}

func opposing(t game.Team) game.Team {
	if t == game.TeamPlayer {
		return game.TeamEnemy
	}
	return game.TeamPlayer
}
