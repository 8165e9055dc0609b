package engine

import (
	"sort"

	"github.com/ericogr/dungeon-depths/internal/game"
)

// TurnOrder returns the living combatants sorted for one round: speed
// descending, player team before enemy on equal speed, then stable
// insertion order. The sort is stable so roster order is the final
// tie-break.
func TurnOrder(combatants []*game.Combatant) []*game.Combatant {
	order := make([]*game.Combatant, 0, len(combatants))
	for _, c := range combatants {
		if c.IsAlive() {
			order = append(order, c)
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].Stats.Speed != order[j].Stats.Speed {
			return order[i].Stats.Speed > order[j].Stats.Speed
		}
		return order[i].Team == game.TeamPlayer && order[j].Team == game.TeamEnemy
	})
	return order
}

// Scheduler walks combatants through rounds. The order is recomputed at
// every round boundary so speed changes mid-fight take effect on the next
// pass.
type Scheduler struct {
	queue []*game.Combatant
}

// NextActor pops the next living actor, starting a new round (and bumping
// state.Round) when the current pass is exhausted. Returns nil when no
// one can act.
func (sc *Scheduler) NextActor(state *game.CombatState) *game.Combatant {
	for {
		for len(sc.queue) > 0 {
			actor := sc.queue[0]
			sc.queue = sc.queue[1:]
			if actor.IsAlive() {
				return actor
			}
		}
		order := TurnOrder(state.Combatants)
		if len(order) == 0 {
			return nil
		}
		state.Round++
		sc.queue = order
	}
}

// Requeue puts an actor back at the head of the current pass. Used when
// an action fails validation so the slot is not lost.
func (sc *Scheduler) Requeue(c *game.Combatant) {
	sc.queue = append([]*game.Combatant{c}, sc.queue...)
}

// Peek returns the actor NextActor would yield without consuming it.
func (sc *Scheduler) Peek(state *game.CombatState) *game.Combatant {
	for _, c := range sc.queue {
		if c.IsAlive() {
			return c
		}
	}
	order := TurnOrder(state.Combatants)
	if len(order) == 0 {
		return nil
	}
	return order[0]
}
