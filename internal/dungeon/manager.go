// Package dungeon orchestrates the dungeon flow: enter -> stage combat ->
// next stage -> exit. It owns one combat session at a time per dungeon
// run and serializes concurrent mutation of each run through a
// priority/timeout mutex.
package dungeon

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ericogr/dungeon-depths/internal/asyncmutex"
	"github.com/ericogr/dungeon-depths/internal/autobattle"
	"github.com/ericogr/dungeon-depths/internal/constants"
	"github.com/ericogr/dungeon-depths/internal/engine"
	"github.com/ericogr/dungeon-depths/internal/game"
	"github.com/ericogr/dungeon-depths/internal/logging"
	"github.com/ericogr/dungeon-depths/internal/loot"
	"github.com/ericogr/dungeon-depths/internal/reward"
)

// CharacterService is the authoritative source for character snapshots
// and energy spend. The core never writes character state except through
// this interface.
type CharacterService interface {
	GetCharacter(userID string) (*game.Character, error)
	UseEnergy(userID string, amount int) error
}

// Catalog is the read-only dungeon configuration source.
type Catalog interface {
	GetDungeon(id string) *game.DungeonDefinition
	StagesForDungeon(id string) []game.Stage
}

// Persistence receives milestone and progress side effects. The core does
// not define the storage format.
type Persistence interface {
	GetDungeonProgress(userID, dungeonID string) (*game.DungeonProgressRecord, error)
	SaveDungeonProgress(userID, dungeonID string, stage int, completed bool) error
	RecordDungeonClear(userID, dungeonID string, durationMs int64, goldEarned int) (*game.MilestoneRecord, error)
	UpdateMilestone(record *game.MilestoneRecord) error
	GrantGold(userID string, amount int) error
}

// RewardListener observes granted reward bundles.
type RewardListener func(userID string, bundle game.RewardBundle)

type entry struct {
	lock    asyncmutex.Mutex
	session *game.DungeonSession
	combat  *engine.Session
	dungeon game.DungeonDefinition
}

// Manager is the dungeon session manager. The sessions map is the only
// shared mutable resource; it is guarded by mu for map shape and by each
// entry's lock for session state. No lock spans multiple sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	chars    CharacterService
	catalog  Catalog
	persist  Persistence
	registry *engine.Registry
	items    *loot.Generator
	rewards  *reward.Resolver
	policy   *autobattle.Policy

	mutexTimeout time.Duration
	now          func() time.Time

	listenerMu sync.RWMutex
	listeners  []RewardListener
}

// NewManager wires the session manager from its collaborators. All
// dependencies are constructed once at startup and passed in; there are
// no ambient globals.
func NewManager(chars CharacterService, catalog Catalog, persist Persistence, registry *engine.Registry, items *loot.Generator, mutexTimeout time.Duration) *Manager {
	return &Manager{
		sessions:     make(map[string]*entry),
		chars:        chars,
		catalog:      catalog,
		persist:      persist,
		registry:     registry,
		items:        items,
		rewards:      reward.NewResolver(),
		policy:       autobattle.New(registry),
		mutexTimeout: mutexTimeout,
		now:          time.Now,
	}
}

// WithClock overrides the time source; tests pin it.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	if now != nil {
		m.now = now
	}
	return m
}

// OnRewardGranted subscribes a listener to reward grants. Listeners run
// synchronously inside the granting operation; keep them cheap.
func (m *Manager) OnRewardGranted(l RewardListener) {
	m.listenerMu.Lock()
	defer m.listenerMu.Unlock()
	m.listeners = append(m.listeners, l)
}

func (m *Manager) notifyReward(userID string, bundle game.RewardBundle) {
	m.listenerMu.RLock()
	listeners := m.listeners
	m.listenerMu.RUnlock()
	for _, l := range listeners {
		l(userID, bundle)
	}
}

// EnterDungeon validates entry requirements, deducts energy through the
// character service, creates the dungeon session with its first combat
// and returns the session id.
func (m *Manager) EnterDungeon(userID, dungeonID string, difficulty game.Difficulty) (string, error) {
	ch, err := m.chars.GetCharacter(userID)
	if err != nil {
		return "", err
	}
	if ch == nil {
		return "", fmt.Errorf("%w: %s", game.ErrCharacterNotFound, userID)
	}
	def := m.catalog.GetDungeon(dungeonID)
	if def == nil {
		return "", fmt.Errorf("%w: %s", game.ErrDungeonNotFound, dungeonID)
	}
	if ch.Level < def.RequiredLevel {
		return "", fmt.Errorf("%w: level %d < required %d", game.ErrLevelTooLow, ch.Level, def.RequiredLevel)
	}
	if ch.Energy < def.EnergyCost {
		return "", fmt.Errorf("%w: have %d, need %d", game.ErrInsufficientEnergy, ch.Energy, def.EnergyCost)
	}
	if difficulty == "" {
		difficulty = game.DifficultyNormal
	}
	if err := m.chars.UseEnergy(userID, def.EnergyCost); err != nil {
		return "", err
	}

	now := m.now()
	session := &game.DungeonSession{
		ID:          uuid.NewString(),
		UserID:      userID,
		DungeonID:   dungeonID,
		Difficulty:  difficulty,
		TotalStages: len(def.Stages),
		Status:      game.SessionInProgress,
		StartedAt:   now,
		UpdatedAt:   now,
	}
	e := &entry{session: session, dungeon: *def}
	m.startCombat(e, ch, 0)

	m.mu.Lock()
	m.sessions[session.ID] = e
	m.mu.Unlock()

	logging.Info("dungeon entered", logging.Fields{
		"session_id": session.ID,
		"user_id":    userID,
		"dungeon_id": dungeonID,
		"difficulty": string(difficulty),
	})
	return session.ID, nil
}

// startCombat builds a fresh combat session for the given stage and
// installs the victory reward computation.
func (m *Manager) startCombat(e *entry, ch *game.Character, stageIndex int) {
	stage := e.dungeon.Stages[stageIndex]
	combat := engine.NewSession(stageIndex, ch, stage.Monsters, m.registry)
	combat.WithRewardFn(m.rewardFnFor(e, stage))
	e.combat = combat
	e.session.Stage = stageIndex
	e.session.Combat = combat.State
}

// rewardFnFor builds the closure the combat session invokes exactly once
// when its phase enters victory. Persistence failures are logged, never
// surfaced into combat resolution, so the run keeps moving.
func (m *Manager) rewardFnFor(e *entry, stage game.Stage) func(*game.CombatState) *game.RewardBundle {
	return func(state *game.CombatState) *game.RewardBundle {
		s := e.session
		firstClear := false
		progress, err := m.persist.GetDungeonProgress(s.UserID, s.DungeonID)
		if err != nil {
			logging.Error("failed to read dungeon progress", err, logging.Fields{"session_id": s.ID})
		} else {
			firstClear = progress.HighestStage <= stage.Index
		}

		bundle := m.rewards.Resolve(stage, s.Difficulty, firstClear)

		for _, mon := range stage.Monsters {
			item, err := m.items.GenerateDropItem(mon.Level, mon.Tier)
			if err != nil {
				logging.Error("drop generation failed", err, logging.Fields{"monster_id": mon.ID})
				continue
			}
			if item != nil {
				bundle.Items = append(bundle.Items, *item)
			}
		}

		finalStage := stage.Index == len(e.dungeon.Stages)-1
		if err := m.persist.SaveDungeonProgress(s.UserID, s.DungeonID, stage.Index+1, finalStage); err != nil {
			logging.Error("failed to save dungeon progress", err, logging.Fields{"session_id": s.ID})
		}

		if finalStage {
			duration := m.now().Sub(s.StartedAt).Milliseconds()
			record, err := m.persist.RecordDungeonClear(s.UserID, s.DungeonID, duration, bundle.Gold)
			if err != nil {
				logging.Error("failed to record dungeon clear", err, logging.Fields{"session_id": s.ID})
			} else {
				for _, unlock := range m.rewards.CrossedMilestones(record, e.dungeon.Milestones) {
					bundle.MilestoneGold += unlock.BonusGold
					bundle.UnlockedTitles = append(bundle.UnlockedTitles, unlock.Title)
				}
				if err := m.persist.UpdateMilestone(record); err != nil {
					logging.Error("failed to update milestone record", err, logging.Fields{"session_id": s.ID})
				}
			}
		}

		if err := m.persist.GrantGold(s.UserID, bundle.Gold+bundle.MilestoneGold); err != nil {
			logging.Error("failed to grant gold", err, logging.Fields{"session_id": s.ID})
		}

		m.notifyReward(s.UserID, bundle)
		return &bundle
	}
}

// lockEntry resolves the session and acquires its mutex.
func (m *Manager) lockEntry(sessionID string, priority int) (*entry, error) {
	m.mu.RLock()
	e, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", game.ErrSessionNotFound, sessionID)
	}
	if err := e.lock.Lock(priority, m.mutexTimeout); err != nil {
		return nil, err
	}
	return e, nil
}

// ExecuteAction applies one player action to the session's current combat
// and advances the dungeon run when the combat resolves.
func (m *Manager) ExecuteAction(sessionID, actorID string, actionType game.ActionType, skillID, targetID string) (*engine.ActionOutcome, error) {
	e, err := m.lockEntry(sessionID, constants.PriorityUserAction)
	if err != nil {
		return nil, err
	}
	defer e.lock.Unlock()

	if e.combat == nil {
		return nil, fmt.Errorf("%w: session has no active combat", game.ErrActionAfterTerminal)
	}

	outcome, err := e.combat.ExecuteAction(actorID, actionType, skillID, targetID)
	if err != nil {
		return nil, err
	}
	e.session.UpdatedAt = m.now()

	switch outcome.Phase {
	case game.PhaseVictory:
		m.accumulate(e)
		if e.session.Stage == e.session.TotalStages-1 {
			e.session.Status = game.SessionCompleted
			logging.Info("dungeon completed", logging.Fields{"session_id": sessionID, "user_id": e.session.UserID})
		}
	case game.PhaseDefeat, game.PhaseFled:
		e.session.Status = game.SessionFailed
	}

	return outcome, nil
}

func (m *Manager) accumulate(e *entry) {
	rewards := e.combat.State.Rewards
	if rewards == nil {
		return
	}
	acc := &e.session.Accumulated
	acc.Exp += rewards.Exp
	acc.Gold += rewards.Gold + rewards.MilestoneGold
	acc.Items = append(acc.Items, rewards.Items...)
	acc.UnlockedTitles = append(acc.UnlockedTitles, rewards.UnlockedTitles...)
}

// ProceedToNextStage advances a victorious session to the next stage and
// spins up a fresh combat for its monster roster.
func (m *Manager) ProceedToNextStage(sessionID string) (*game.CombatState, error) {
	e, err := m.lockEntry(sessionID, constants.PriorityUserAction)
	if err != nil {
		return nil, err
	}
	defer e.lock.Unlock()

	s := e.session
	if s.Status == game.SessionCompleted || s.Stage >= s.TotalStages-1 {
		return nil, fmt.Errorf("%w: %s", game.ErrDungeonComplete, s.DungeonID)
	}

	ch, err := m.chars.GetCharacter(s.UserID)
	if err != nil {
		return nil, err
	}

	m.startCombat(e, ch, s.Stage+1)
	s.UpdatedAt = m.now()
	logging.Info("advanced to next stage", logging.Fields{"session_id": sessionID, "stage": s.Stage})
	return e.combat.State, nil
}

// AbandonDungeon marks the run failed and releases its combat. Safe to
// call from any phase; no rewards are granted.
func (m *Manager) AbandonDungeon(sessionID string) error {
	e, err := m.lockEntry(sessionID, constants.PriorityUserAction)
	if err != nil {
		return err
	}

	e.session.Status = game.SessionFailed
	e.session.Combat = nil
	e.combat = nil
	e.session.UpdatedAt = m.now()
	e.lock.Unlock()

	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	logging.Info("dungeon abandoned", logging.Fields{"session_id": sessionID})
	return nil
}

// GetCombatState returns the current combat state, or nil when the
// session has no active combat.
func (m *Manager) GetCombatState(sessionID string) (*game.CombatState, error) {
	e, err := m.lockEntry(sessionID, constants.PriorityUserAction)
	if err != nil {
		return nil, err
	}
	defer e.lock.Unlock()
	return e.session.Combat, nil
}

// GetSession returns the dungeon session aggregate.
func (m *Manager) GetSession(sessionID string) (*game.DungeonSession, error) {
	e, err := m.lockEntry(sessionID, constants.PriorityUserAction)
	if err != nil {
		return nil, err
	}
	defer e.lock.Unlock()
	return e.session, nil
}

// SetAutoBattle toggles auto-battle mode for the session.
func (m *Manager) SetAutoBattle(sessionID string, enabled bool) error {
	e, err := m.lockEntry(sessionID, constants.PriorityUserAction)
	if err != nil {
		return err
	}
	defer e.lock.Unlock()
	e.session.AutoBattle = enabled
	return nil
}

// GetAutoBattleAction asks the policy for the player's next action in the
// session's current combat.
func (m *Manager) GetAutoBattleAction(sessionID string) (game.ActionType, string, string, error) {
	e, err := m.lockEntry(sessionID, constants.PriorityUserAction)
	if err != nil {
		return "", "", "", err
	}
	defer e.lock.Unlock()

	if e.combat == nil {
		return "", "", "", fmt.Errorf("%w: session has no active combat", game.ErrActionAfterTerminal)
	}
	return m.policy.Choose(e.combat.State, e.session.UserID)
}

// StartSweeper expires sessions idle beyond ttl. Runs until stop is
// closed.
func (m *Manager) StartSweeper(interval, ttl time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				m.sweep(ttl)
			}
		}
	}()
}

func (m *Manager) sweep(ttl time.Duration) {
	cutoff := m.now().Add(-ttl)

	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		e, err := m.lockEntry(id, constants.PrioritySweeper)
		if err != nil {
			continue
		}
		expired := e.session.UpdatedAt.Before(cutoff)
		if expired && e.session.Status == game.SessionInProgress {
			e.session.Status = game.SessionFailed
			e.session.Combat = nil
			e.combat = nil
		}
		e.lock.Unlock()

		if expired {
			m.mu.Lock()
			delete(m.sessions, id)
			m.mu.Unlock()
			logging.Info("expired idle dungeon session", logging.Fields{"session_id": id})
		}
	}
}
