package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ericogr/dungeon-depths/internal/game"
)

// potionHealRatio is the fraction of max HP restored by a consumable
// (inventory bookkeeping is owned by an external service).
const potionHealRatio = 0.3

// DamageEvent records one target's outcome within an action.
type DamageEvent struct {
	TargetID string       `json:"target_id"`
	Result   DamageResult `json:"result"`
	TargetHP int          `json:"target_hp"`
	Healed   int          `json:"healed,omitempty"`
}

// ActionOutcome is what one ExecuteAction call produced, including any
// enemy turns auto-resolved before control returns to the player.
type ActionOutcome struct {
	Action  game.CombatAction `json:"action"`
	Events  []DamageEvent     `json:"events"`
	Summary []string          `json:"summary"`
	Phase   game.Phase        `json:"phase"`
}

// Session is one combat encounter's state machine. It owns the combat
// state and serializes all mutation through ExecuteAction; the caller
// (session manager) provides external synchronization.
type Session struct {
	State *game.CombatState

	reg   *Registry
	rng   Source
	sched Scheduler

	// rewardFn computes the reward bundle exactly once when the phase
	// enters victory. Set by the session manager before the first action.
	rewardFn func(*game.CombatState) *game.RewardBundle
}

// NewSession initializes all combatants at full HP/MP with zero cooldowns
// and no status effects, then transitions straight to the active phase.
// No externally observable preparing state persists.
func NewSession(stageIndex int, ch *game.Character, monsters []game.MonsterSpec, reg *Registry) *Session {
	state := &game.CombatState{
		ID:         uuid.NewString(),
		Phase:      game.PhasePreparing,
		StageIndex: stageIndex,
	}

	player := &game.Combatant{
		ID:     ch.ID,
		Team:   game.TeamPlayer,
		Name:   ch.Name,
		Level:  ch.Level,
		HP:     ch.Stats.MaxHP,
		MaxHP:  ch.Stats.MaxHP,
		MP:     ch.Stats.MaxMP,
		MaxMP:  ch.Stats.MaxMP,
		Stats:  ch.Stats,
		Skills: skillStates(ch.SkillIDs),
	}
	state.Combatants = append(state.Combatants, player)

	for i, m := range monsters {
		state.Combatants = append(state.Combatants, &game.Combatant{
			ID:     fmt.Sprintf("%s-%d", m.ID, i),
			Team:   game.TeamEnemy,
			Name:   m.Name,
			Level:  m.Level,
			Tier:   m.Tier,
			HP:     m.Stats.MaxHP,
			MaxHP:  m.Stats.MaxHP,
			MP:     m.Stats.MaxMP,
			MaxMP:  m.Stats.MaxMP,
			Stats:  m.Stats,
			Skills: skillStates(m.SkillIDs),
		})
	}

	state.Phase = game.PhaseActive
	return &Session{State: state, reg: reg, rng: defaultSource()}
}

func skillStates(ids []string) []game.SkillState {
	out := make([]game.SkillState, 0, len(ids))
	for _, id := range ids {
		out = append(out, game.SkillState{SkillID: id})
	}
	return out
}

// WithRandSource replaces the session's random stream. Tests use this to
// pin crit and miss rolls.
func (s *Session) WithRandSource(rng Source) *Session {
	if rng != nil {
		s.rng = rng
	}
	return s
}

// WithRewardFn installs the victory reward computation.
func (s *Session) WithRewardFn(fn func(*game.CombatState) *game.RewardBundle) *Session {
	s.rewardFn = fn
	return s
}

// NextActor exposes the combatant the scheduler would dispatch next.
func (s *Session) NextActor() *game.Combatant {
	return s.sched.Peek(s.State)
}

// ExecuteAction applies one player-team action, then auto-resolves enemy
// turns until control returns to a player-team combatant or the combat
// reaches a terminal phase.
func (s *Session) ExecuteAction(actorID string, actionType game.ActionType, skillID string, targetID string) (*ActionOutcome, error) {
	if s.State.Phase.IsTerminal() {
		return nil, game.ErrActionAfterTerminal
	}
	actor := s.State.Combatant(actorID)
	if actor == nil {
		return nil, fmt.Errorf("%w: %s", game.ErrCombatantNotFound, actorID)
	}
	if !actor.IsAlive() {
		return nil, fmt.Errorf("%w: %s is down", game.ErrNotActorTurn, actorID)
	}

	outcome := &ActionOutcome{}

	// Faster enemies act before the player's submission lands.
	if err := s.runEnemyTurns(outcome); err != nil {
		return nil, err
	}
	if s.State.Phase.IsTerminal() {
		outcome.Phase = s.State.Phase
		return outcome, nil
	}

	if next := s.sched.Peek(s.State); next == nil || next.ID != actorID {
		return nil, fmt.Errorf("%w: %s", game.ErrNotActorTurn, actorID)
	}
	if err := s.takeTurn(actor, actionType, skillID, targetID, outcome); err != nil {
		return nil, err
	}

	// Enemy turns run on the engine's own policy until a player-team
	// combatant is up again.
	if err := s.runEnemyTurns(outcome); err != nil {
		return nil, err
	}

	outcome.Phase = s.State.Phase
	return outcome, nil
}

func (s *Session) runEnemyTurns(outcome *ActionOutcome) error {
	for !s.State.Phase.IsTerminal() {
		next := s.sched.Peek(s.State)
		if next == nil || next.Team != game.TeamEnemy {
			return nil
		}
		enemyAction, enemySkill, enemyTarget := s.chooseEnemyAction(next)
		if err := s.takeTurn(next, enemyAction, enemySkill, enemyTarget, outcome); err != nil {
			// Enemy decisions are made against live state; a failure here
			// is an engine bug, not caller input.
			return fmt.Errorf("enemy turn for %s: %w", next.ID, err)
		}
	}
	return nil
}

// takeTurn consumes the scheduled slot for the actor, applies its action,
// ticks the turn boundary and checks terminal conditions.
func (s *Session) takeTurn(actor *game.Combatant, actionType game.ActionType, skillID, targetID string, outcome *ActionOutcome) error {
	scheduled := s.sched.NextActor(s.State)
	if scheduled == nil || scheduled.ID != actor.ID {
		return fmt.Errorf("%w: %s", game.ErrNotActorTurn, actor.ID)
	}

	// A lingering defend stance from the previous round lapses when the
	// defender acts again.
	if actionType != game.ActionDefend {
		ConsumeDefend(actor)
	}

	if IsStunned(actor) {
		s.State.Turn++
		s.record(actor, actionType, skillID, nil)
		outcome.Summary = append(outcome.Summary, actor.Name+" is stunned and loses the turn")
		s.afterTurn()
		return nil
	}

	var targets []string
	var err error
	switch actionType {
	case game.ActionAttack:
		targets, err = s.execAttack(actor, targetID, outcome)
	case game.ActionSkill:
		targets, err = s.execSkill(actor, skillID, targetID, outcome)
	case game.ActionDefend:
		AttachEffect(actor, game.EffectSpec{Type: game.EffectDefend, Magnitude: 1.5, Duration: 1})
		outcome.Summary = append(outcome.Summary, actor.Name+" takes a defensive stance")
	case game.ActionItem:
		healed := s.heal(actor, int(float64(actor.MaxHP)*potionHealRatio))
		outcome.Events = append(outcome.Events, DamageEvent{TargetID: actor.ID, TargetHP: actor.HP, Healed: healed})
		outcome.Summary = append(outcome.Summary, fmt.Sprintf("%s uses a potion and recovers %d HP", actor.Name, healed))
	case game.ActionFlee:
		if actor.Team == game.TeamPlayer {
			s.State.Phase = game.PhaseFled
			outcome.Summary = append(outcome.Summary, actor.Name+" fled the battle")
		}
	default:
		err = fmt.Errorf("unknown action type %q", actionType)
	}
	if err != nil {
		// Give the slot back so the caller can retry with a valid action.
		s.sched.Requeue(actor)
		return err
	}

	s.State.Turn++
	s.record(actor, actionType, skillID, targets)
	s.afterTurn()
	return nil
}

func (s *Session) record(actor *game.Combatant, actionType game.ActionType, skillID string, targets []string) {
	s.State.ActionLog = append(s.State.ActionLog, game.CombatAction{
		ID:        uuid.NewString(),
		Turn:      s.State.Turn,
		ActorID:   actor.ID,
		Type:      actionType,
		SkillID:   skillID,
		TargetIDs: targets,
		CreatedAt: time.Now(),
	})
}

// afterTurn runs the per-turn boundary work and terminal checks.
func (s *Session) afterTurn() {
	if s.State.Phase.IsTerminal() {
		s.finalize()
		return
	}
	TickTurn(s.State.Combatants)

	if len(s.State.Living(game.TeamEnemy)) == 0 {
		s.State.Phase = game.PhaseVictory
	} else if len(s.State.Living(game.TeamPlayer)) == 0 {
		s.State.Phase = game.PhaseDefeat
	}
	s.finalize()
}

// finalize computes rewards once when victory is first reached.
func (s *Session) finalize() {
	if s.State.Phase != game.PhaseVictory || s.State.Rewards != nil || s.rewardFn == nil {
		return
	}
	s.State.Rewards = s.rewardFn(s.State)
}

func (s *Session) execAttack(actor *game.Combatant, targetID string, outcome *ActionOutcome) ([]string, error) {
	target, err := s.resolveEnemyTarget(actor, targetID)
	if err != nil {
		return nil, err
	}
	s.applyHit(actor, target, 1.0, outcome)
	return []string{target.ID}, nil
}

func (s *Session) execSkill(actor *game.Combatant, skillID, targetID string, outcome *ActionOutcome) ([]string, error) {
	def, err := s.reg.Get(skillID)
	if err != nil {
		return nil, err
	}
	// Resolve the target before spending MP so a bad target id doesn't
	// burn resources.
	var single *game.Combatant
	if def.Target != game.TargetSelf && def.Target != game.TargetAllEnemies {
		if single, err = s.resolveEnemyTarget(actor, targetID); err != nil {
			return nil, err
		}
	}

	skill, err := s.reg.Spend(actor, skillID)
	if err != nil {
		return nil, err
	}

	switch skill.Target {
	case game.TargetSelf:
		var targets []string
		if skill.IsHealing() {
			healed := s.heal(actor, skill.HealAmount)
			outcome.Events = append(outcome.Events, DamageEvent{TargetID: actor.ID, TargetHP: actor.HP, Healed: healed})
			outcome.Summary = append(outcome.Summary, fmt.Sprintf("%s casts %s and recovers %d HP", actor.Name, skill.Name, healed))
		}
		if skill.Effect != nil {
			AttachEffect(actor, *skill.Effect)
			outcome.Summary = append(outcome.Summary, fmt.Sprintf("%s gains %s", actor.Name, skill.Effect.Type))
		}
		targets = append(targets, actor.ID)
		return targets, nil

	case game.TargetAllEnemies:
		var targets []string
		for _, target := range s.State.Living(enemyTeamOf(actor.Team)) {
			s.applySkillHit(actor, target, skill, outcome)
			targets = append(targets, target.ID)
		}
		return targets, nil

	default: // single-enemy
		s.applySkillHit(actor, single, skill, outcome)
		return []string{single.ID}, nil
	}
}

func (s *Session) applySkillHit(actor, target *game.Combatant, skill game.Skill, outcome *ActionOutcome) {
	mult := skill.DamageMultiplier
	if mult <= 0 {
		mult = 1.0
	}
	s.applyHit(actor, target, mult, outcome)
	if skill.Effect != nil && target.IsAlive() {
		AttachEffect(target, *skill.Effect)
		outcome.Summary = append(outcome.Summary, fmt.Sprintf("%s is afflicted by %s", target.Name, skill.Effect.Type))
	}
}

// applyHit resolves one damage event: effective stats, defend stance,
// crit/miss rolls, and the HP floor at zero.
func (s *Session) applyHit(actor, target *game.Combatant, multiplier float64, outcome *ActionOutcome) {
	attack := int(float64(EffectiveAttack(actor)) * multiplier)
	defense := EffectiveDefense(target)
	defense = int(float64(defense) * ConsumeDefend(target))

	result := CalculateDamage(DamageInput{
		Attack:     attack,
		Defense:    defense,
		CritRate:   actor.Stats.CritRate,
		CritDamage: actor.Stats.CritDamage,
		Dodge:      target.Stats.Dodge,
		Accuracy:   actor.Stats.Accuracy,
	}, s.rng)

	if !result.IsMiss {
		target.HP -= result.Damage
		if target.HP < 0 {
			target.HP = 0
		}
	}

	outcome.Events = append(outcome.Events, DamageEvent{TargetID: target.ID, Result: result, TargetHP: target.HP})
	switch {
	case result.IsMiss:
		outcome.Summary = append(outcome.Summary, fmt.Sprintf("%s attacks %s but misses", actor.Name, target.Name))
	case result.IsCritical:
		outcome.Summary = append(outcome.Summary, fmt.Sprintf("%s critically hits %s for %d", actor.Name, target.Name, result.Damage))
	default:
		outcome.Summary = append(outcome.Summary, fmt.Sprintf("%s hits %s for %d", actor.Name, target.Name, result.Damage))
	}
	if !target.IsAlive() {
		outcome.Summary = append(outcome.Summary, target.Name+" is defeated")
	}
}

func (s *Session) heal(c *game.Combatant, amount int) int {
	if amount < 0 {
		amount = 0
	}
	before := c.HP
	c.HP += amount
	if c.HP > c.MaxHP {
		c.HP = c.MaxHP
	}
	return c.HP - before
}

// resolveEnemyTarget picks the requested living enemy, falling back to the
// first living opponent when no target was named.
func (s *Session) resolveEnemyTarget(actor *game.Combatant, targetID string) (*game.Combatant, error) {
	enemies := s.State.Living(enemyTeamOf(actor.Team))
	if len(enemies) == 0 {
		return nil, fmt.Errorf("%w: no living targets", game.ErrCombatantNotFound)
	}
	if targetID == "" {
		return enemies[0], nil
	}
	for _, e := range enemies {
		if e.ID == targetID {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", game.ErrCombatantNotFound, targetID)
}

func enemyTeamOf(t game.Team) game.Team {
	if t == game.TeamPlayer {
		return game.TeamEnemy
	}
	return game.TeamPlayer
}

// chooseEnemyAction is the monsters' built-in policy: the strongest
// affordable skill when it beats a plain attack, otherwise attack; the
// target is always the weakest living opponent. Deterministic given the
// same state.
func (s *Session) chooseEnemyAction(actor *game.Combatant) (game.ActionType, string, string) {
	var target *game.Combatant
	for _, c := range s.State.Living(enemyTeamOf(actor.Team)) {
		if target == nil || c.HP < target.HP {
			target = c
		}
	}
	targetID := ""
	if target != nil {
		targetID = target.ID
	}

	attack := float64(EffectiveAttack(actor))
	bestSkill := ""
	bestDamage := attack
	for _, st := range actor.Skills {
		if !s.reg.Usable(actor, st.SkillID) {
			continue
		}
		skill, err := s.reg.Get(st.SkillID)
		if err != nil || skill.IsHealing() || skill.Target == game.TargetSelf {
			continue
		}
		expected := skill.DamageMultiplier * attack
		if expected > bestDamage {
			bestDamage = expected
			bestSkill = st.SkillID
		}
	}
	if bestSkill != "" {
		return game.ActionSkill, bestSkill, targetID
	}
	return game.ActionAttack, "", targetID
}
