package game

import (
	"time"
)

// Team identifies which side of a combat a combatant fights for.
type Team string

const (
	TeamPlayer Team = "player"
	TeamEnemy  Team = "enemy"
)

// Phase is the state of a combat session's state machine. Transitions are
// one-directional: preparing -> active -> victory|defeat|fled. Terminal
// phases are sticky.
type Phase string

const (
	PhasePreparing Phase = "preparing"
	PhaseActive    Phase = "active"
	PhaseVictory   Phase = "victory"
	PhaseDefeat    Phase = "defeat"
	PhaseFled      Phase = "fled"
)

// IsTerminal reports whether no further actions are accepted in this phase.
func (p Phase) IsTerminal() bool {
	return p == PhaseVictory || p == PhaseDefeat || p == PhaseFled
}

// ActionType enumerates the actions a combatant may take on its turn.
type ActionType string

const (
	ActionAttack ActionType = "attack"
	ActionSkill  ActionType = "skill"
	ActionDefend ActionType = "defend"
	ActionItem   ActionType = "item"
	ActionFlee   ActionType = "flee"
)

// EffectType enumerates timed status effects.
type EffectType string

const (
	EffectDefend      EffectType = "defend"
	EffectBuffAttack  EffectType = "buff_attack"
	EffectBuffDefense EffectType = "buff_defense"
	EffectPoison      EffectType = "poison"
	EffectStun        EffectType = "stun"
)

// TargetKind describes who a skill may be aimed at.
type TargetKind string

const (
	TargetSelf        TargetKind = "self"
	TargetSingleEnemy TargetKind = "single-enemy"
	TargetAllEnemies  TargetKind = "all-enemies"
)

// Rarity is one of five ordered item tiers.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

var rarityRanks = map[Rarity]int{
	RarityCommon:    0,
	RarityUncommon:  1,
	RarityRare:      2,
	RarityEpic:      3,
	RarityLegendary: 4,
}

// Rank returns the ordinal of the rarity (common=0 .. legendary=4) and
// whether the rarity is one of the five defined tiers.
func (r Rarity) Rank() (int, bool) {
	rank, ok := rarityRanks[r]
	return rank, ok
}

// Difficulty scales dungeon rewards and drop rates.
type Difficulty string

const (
	DifficultyEasy      Difficulty = "easy"
	DifficultyNormal    Difficulty = "normal"
	DifficultyHard      Difficulty = "hard"
	DifficultyLegendary Difficulty = "legendary"
)

// MonsterTier drives drop probability and rarity weighting.
type MonsterTier string

const (
	TierNormal MonsterTier = "normal"
	TierElite  MonsterTier = "elite"
	TierBoss   MonsterTier = "boss"
)

// SessionStatus is the lifecycle state of a dungeon run.
type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionFailed     SessionStatus = "failed"
)

// CombatStats is the numeric stat block shared by characters and monsters.
// Rates (crit, dodge, accuracy, resistance) are fractions in [0,1];
// CritDamage is a multiplier (1.5 = +50%).
type CombatStats struct {
	MaxHP      int     `json:"max_hp"`
	MaxMP      int     `json:"max_mp"`
	Attack     int     `json:"attack"`
	Defense    int     `json:"defense"`
	Speed      int     `json:"speed"`
	CritRate   float64 `json:"crit_rate"`
	CritDamage float64 `json:"crit_damage"`
	Dodge      float64 `json:"dodge"`
	Accuracy   float64 `json:"accuracy"`
	Resistance float64 `json:"resistance"`
}

// Character is a read-only snapshot of the externally owned character at
// the moment a dungeon session starts.
type Character struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Level     int         `json:"level"`
	Stats     CombatStats `json:"stats"`
	HP        int         `json:"hp"`
	MP        int         `json:"mp"`
	Energy    int         `json:"energy"`
	MaxEnergy int         `json:"max_energy"`
	Gold      int         `json:"gold"`
	Gems      int         `json:"gems"`
	SkillIDs  []string    `json:"skill_ids"`
}

// StatusEffect is a timed modifier attached to a combatant. RemainingTurns
// is decremented once per turn boundary; the effect is removed at zero.
type StatusEffect struct {
	Type           EffectType `json:"type"`
	Magnitude      float64    `json:"magnitude"`
	RemainingTurns int        `json:"remaining_turns"`
}

// SkillState tracks one combatant's remaining cooldown for a skill.
type SkillState struct {
	SkillID  string `json:"skill_id"`
	Cooldown int    `json:"cooldown"`
}

// Combatant is a live battle participant. Created when a combat session
// starts and mutated only through session actions.
type Combatant struct {
	ID      string         `json:"id"`
	Team    Team           `json:"team"`
	Name    string         `json:"name"`
	Level   int            `json:"level"`
	Tier    MonsterTier    `json:"tier,omitempty"`
	HP      int            `json:"hp"`
	MaxHP   int            `json:"max_hp"`
	MP      int            `json:"mp"`
	MaxMP   int            `json:"max_mp"`
	Stats   CombatStats    `json:"stats"`
	Effects []StatusEffect `json:"effects"`
	Skills  []SkillState   `json:"skills"`
}

// IsAlive reports whether the combatant can still act or be targeted.
func (c *Combatant) IsAlive() bool { return c.HP > 0 }

// HPRatio returns current HP as a fraction of max HP.
func (c *Combatant) HPRatio() float64 {
	if c.MaxHP <= 0 {
		return 0
	}
	return float64(c.HP) / float64(c.MaxHP)
}

// Effect returns a pointer to the first active effect of the given type,
// or nil when absent.
func (c *Combatant) Effect(t EffectType) *StatusEffect {
	for i := range c.Effects {
		if c.Effects[i].Type == t {
			return &c.Effects[i]
		}
	}
	return nil
}

// SkillState returns the cooldown tracker for the given skill, or nil when
// the combatant does not know it.
func (c *Combatant) SkillState(skillID string) *SkillState {
	for i := range c.Skills {
		if c.Skills[i].SkillID == skillID {
			return &c.Skills[i]
		}
	}
	return nil
}

// CombatAction is one recorded action. Immutable once appended to the log.
type CombatAction struct {
	ID        string     `json:"id"`
	Turn      int        `json:"turn"`
	ActorID   string     `json:"actor_id"`
	Type      ActionType `json:"type"`
	SkillID   string     `json:"skill_id,omitempty"`
	TargetIDs []string   `json:"target_ids,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// RewardBundle is the computed outcome of a victorious combat.
type RewardBundle struct {
	Exp            int             `json:"exp"`
	Gold           int             `json:"gold"`
	Items          []GeneratedItem `json:"items"`
	FirstClear     bool            `json:"first_clear"`
	MilestoneGold  int             `json:"milestone_gold,omitempty"`
	UnlockedTitles []string        `json:"unlocked_titles,omitempty"`
}

// CombatState is the session-scoped combat aggregate. Rewards stays nil
// until the session reaches victory and is computed exactly once.
type CombatState struct {
	ID         string         `json:"id"`
	Phase      Phase          `json:"phase"`
	Combatants []*Combatant   `json:"combatants"`
	Turn       int            `json:"turn"`
	Round      int            `json:"round"`
	ActionLog  []CombatAction `json:"action_log"`
	Rewards    *RewardBundle  `json:"rewards,omitempty"`
	StageIndex int            `json:"stage_index"`
}

// Living returns the living combatants on the given team, in stable order.
func (s *CombatState) Living(team Team) []*Combatant {
	var out []*Combatant
	for _, c := range s.Combatants {
		if c.Team == team && c.IsAlive() {
			out = append(out, c)
		}
	}
	return out
}

// Combatant returns the combatant with the given id, or nil.
func (s *CombatState) Combatant(id string) *Combatant {
	for _, c := range s.Combatants {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// DungeonSession is one player's run through a dungeon. Owned by the
// session manager; created on entry, archived on exit or abandonment.
type DungeonSession struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	DungeonID   string        `json:"dungeon_id"`
	Difficulty  Difficulty    `json:"difficulty"`
	Stage       int           `json:"stage"`
	TotalStages int           `json:"total_stages"`
	Accumulated RewardBundle  `json:"accumulated"`
	Combat      *CombatState  `json:"combat,omitempty"`
	Status      SessionStatus `json:"status"`
	AutoBattle  bool          `json:"auto_battle"`
	StartedAt   time.Time     `json:"started_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// BonusStat is one rolled bonus line on a generated item.
type BonusStat struct {
	Stat  string  `json:"stat"`
	Value float64 `json:"value"`
}

// GeneratedItem is one piece of loot. Once generated from a given
// (baseItemId, level, rarity, seed) tuple its stats are fixed forever.
type GeneratedItem struct {
	UniqueID    string         `json:"unique_id"`
	BaseItemID  string         `json:"base_item_id"`
	Rarity      Rarity         `json:"rarity"`
	Level       int            `json:"level"`
	Seed        int64          `json:"seed"`
	GeneratedAt time.Time      `json:"generated_at"`
	BaseStats   map[string]int `json:"base_stats"`
	BonusStats  []BonusStat    `json:"bonus_stats,omitempty"`
	SetID       string         `json:"set_id,omitempty"`
}

// BaseItem is a catalog entry the generator rolls from.
type BaseItem struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Slot  string         `json:"slot"`
	Stats map[string]int `json:"stats"`
	SetID string         `json:"set_id,omitempty"`
}

// EffectSpec is the configured status effect a skill applies.
type EffectSpec struct {
	Type      EffectType `json:"type"`
	Magnitude float64    `json:"magnitude"`
	Duration  int        `json:"duration"`
}

// Skill is a configured combat skill definition.
type Skill struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	MPCost           int         `json:"mp_cost"`
	Cooldown         int         `json:"cooldown"`
	DamageMultiplier float64     `json:"damage_multiplier"`
	HealAmount       int         `json:"heal_amount"`
	Effect           *EffectSpec `json:"effect,omitempty"`
	Target           TargetKind  `json:"target"`
}

// IsHealing reports whether using the skill restores HP.
func (s Skill) IsHealing() bool { return s.HealAmount > 0 }

// MonsterSpec describes one monster slot in a stage roster.
type MonsterSpec struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Level    int         `json:"level"`
	Tier     MonsterTier `json:"tier"`
	Stats    CombatStats `json:"stats"`
	SkillIDs []string    `json:"skill_ids,omitempty"`
}

// Stage is one combat encounter inside a dungeon.
type Stage struct {
	Index      int           `json:"index"`
	Monsters   []MonsterSpec `json:"monsters"`
	RewardExp  int           `json:"reward_exp"`
	RewardGold int           `json:"reward_gold"`
}

// MilestoneThreshold unlocks a title and one-time gold bonus when a
// player's total clears for a dungeon crosses Clears.
type MilestoneThreshold struct {
	Clears    int    `json:"clears"`
	Title     string `json:"title"`
	BonusGold int    `json:"bonus_gold"`
}

// DungeonDefinition is the static catalog entry for one dungeon.
type DungeonDefinition struct {
	ID            string               `json:"id"`
	Name          string               `json:"name"`
	RequiredLevel int                  `json:"required_level"`
	EnergyCost    int                  `json:"energy_cost"`
	Stages        []Stage              `json:"stages"`
	Milestones    []MilestoneThreshold `json:"milestones,omitempty"`
}

// Statistics is the aggregate read model for one player's dungeon history.
type Statistics struct {
	UserID          string `json:"user_id"`
	TotalClears     int    `json:"total_clears"`
	TotalGoldEarned int    `json:"total_gold_earned"`
	BestTimeMs      int64  `json:"best_time_ms"`
	DungeonsCleared int    `json:"dungeons_cleared"`
}
