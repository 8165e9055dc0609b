package engine

import (
	"fmt"

	"github.com/ericogr/dungeon-depths/internal/game"
)

// Registry resolves skill identifiers to their configured definitions.
// Per-combatant cooldown state lives on the combatants themselves
// (game.SkillState); the registry is immutable after construction.
type Registry struct {
	skills map[string]game.Skill
}

// NewRegistry builds a registry from configured skill definitions.
func NewRegistry(skills []game.Skill) *Registry {
	m := make(map[string]game.Skill, len(skills))
	for _, s := range skills {
		m[s.ID] = s
	}
	return &Registry{skills: m}
}

// Get returns the skill definition for id.
func (r *Registry) Get(id string) (game.Skill, error) {
	s, ok := r.skills[id]
	if !ok {
		return game.Skill{}, fmt.Errorf("%w: %s", game.ErrSkillUnknown, id)
	}
	return s, nil
}

// Spend validates the actor can use the skill right now, then deducts MP
// and arms the cooldown. Callers apply the skill's effect afterwards.
func (r *Registry) Spend(actor *game.Combatant, skillID string) (game.Skill, error) {
	skill, err := r.Get(skillID)
	if err != nil {
		return game.Skill{}, err
	}
	state := actor.SkillState(skillID)
	if state == nil {
		return game.Skill{}, fmt.Errorf("%w: %s", game.ErrSkillUnknown, skillID)
	}
	if state.Cooldown > 0 {
		return game.Skill{}, fmt.Errorf("%w: %s (%d turns left)", game.ErrSkillOnCooldown, skillID, state.Cooldown)
	}
	if actor.MP < skill.MPCost {
		return game.Skill{}, fmt.Errorf("%w: %s needs %d MP, have %d", game.ErrInsufficientMP, skillID, skill.MPCost, actor.MP)
	}
	actor.MP -= skill.MPCost
	state.Cooldown = skill.Cooldown
	return skill, nil
}

// Usable reports whether the actor could use the skill this turn without
// mutating any state. The auto-battle policy relies on this.
func (r *Registry) Usable(actor *game.Combatant, skillID string) bool {
	skill, err := r.Get(skillID)
	if err != nil {
		return false
	}
	state := actor.SkillState(skillID)
	if state == nil || state.Cooldown > 0 {
		return false
	}
	return actor.MP >= skill.MPCost
}
