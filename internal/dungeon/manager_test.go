package dungeon

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ericogr/dungeon-depths/internal/engine"
	"github.com/ericogr/dungeon-depths/internal/game"
	"github.com/ericogr/dungeon-depths/internal/loot"
)

type fakeChars struct {
	chars      map[string]*game.Character
	energyUsed int
}

func (f *fakeChars) GetCharacter(userID string) (*game.Character, error) {
	ch, ok := f.chars[userID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", game.ErrCharacterNotFound, userID)
	}
	cp := *ch
	return &cp, nil
}

func (f *fakeChars) UseEnergy(userID string, amount int) error {
	ch, ok := f.chars[userID]
	if !ok {
		return fmt.Errorf("%w: %s", game.ErrCharacterNotFound, userID)
	}
	if ch.Energy < amount {
		return fmt.Errorf("%w: have %d, need %d", game.ErrInsufficientEnergy, ch.Energy, amount)
	}
	ch.Energy -= amount
	f.energyUsed += amount
	return nil
}

type fakeDungeonCatalog struct {
	defs map[string]*game.DungeonDefinition
}

func (f *fakeDungeonCatalog) GetDungeon(id string) *game.DungeonDefinition { return f.defs[id] }
func (f *fakeDungeonCatalog) StagesForDungeon(id string) []game.Stage {
	if d := f.defs[id]; d != nil {
		return d.Stages
	}
	return nil
}

type fakePersist struct {
	progress    map[string]*game.DungeonProgressRecord
	milestones  map[string]*game.MilestoneRecord
	goldGranted int
	clears      int
}

func newFakePersist() *fakePersist {
	return &fakePersist{
		progress:   make(map[string]*game.DungeonProgressRecord),
		milestones: make(map[string]*game.MilestoneRecord),
	}
}

func key(userID, dungeonID string) string { return userID + "/" + dungeonID }

func (f *fakePersist) GetDungeonProgress(userID, dungeonID string) (*game.DungeonProgressRecord, error) {
	if p, ok := f.progress[key(userID, dungeonID)]; ok {
		return p, nil
	}
	return &game.DungeonProgressRecord{UserID: userID, DungeonID: dungeonID}, nil
}

func (f *fakePersist) SaveDungeonProgress(userID, dungeonID string, stage int, completed bool) error {
	p, _ := f.GetDungeonProgress(userID, dungeonID)
	if stage > p.HighestStage {
		p.HighestStage = stage
	}
	if completed {
		p.Completed = true
	}
	f.progress[key(userID, dungeonID)] = p
	return nil
}

func (f *fakePersist) RecordDungeonClear(userID, dungeonID string, durationMs int64, goldEarned int) (*game.MilestoneRecord, error) {
	rec, ok := f.milestones[key(userID, dungeonID)]
	if !ok {
		rec = &game.MilestoneRecord{UserID: userID, DungeonID: dungeonID}
		f.milestones[key(userID, dungeonID)] = rec
	}
	rec.TotalClears++
	rec.TotalGoldEarned += goldEarned
	f.clears++
	return rec, nil
}

func (f *fakePersist) UpdateMilestone(record *game.MilestoneRecord) error {
	f.milestones[key(record.UserID, record.DungeonID)] = record
	return nil
}

func (f *fakePersist) GrantGold(userID string, amount int) error {
	f.goldGranted += amount
	return nil
}

type fakeItemCatalog struct{}

func (fakeItemCatalog) GetItemByID(id string) *game.BaseItem {
	if id != "rusty_sword" {
		return nil
	}
	return &game.BaseItem{ID: "rusty_sword", Name: "Rusty Sword", Slot: "weapon", Stats: map[string]int{"attack": 12}}
}
func (fakeItemCatalog) ItemIDs() []string { return []string{"rusty_sword"} }

func testHero() *game.Character {
	return &game.Character{
		ID:    "demo",
		Name:  "Aldric",
		Level: 5,
		Stats: game.CombatStats{
			MaxHP: 200, MaxMP: 60, Attack: 30, Defense: 20, Speed: 80,
			CritDamage: 1.5, Accuracy: 1,
		},
		Energy:    50,
		MaxEnergy: 50,
	}
}

func goblinStage(index int) game.Stage {
	return game.Stage{
		Index:      index,
		RewardExp:  25,
		RewardGold: 40,
		Monsters: []game.MonsterSpec{{
			ID:   "goblin",
			Name: "Goblin",
			Tier: game.TierNormal,
			Stats: game.CombatStats{
				MaxHP: 60, Attack: 10, Speed: 35,
				CritDamage: 1.5, Accuracy: 1,
			},
		}},
	}
}

func testDungeon(id string, stages ...game.Stage) *game.DungeonDefinition {
	return &game.DungeonDefinition{
		ID:            id,
		Name:          id,
		RequiredLevel: 1,
		EnergyCost:    5,
		Stages:        stages,
		Milestones:    []game.MilestoneThreshold{{Clears: 1, Title: "First Blood", BonusGold: 100}},
	}
}

func newTestManager(defs ...*game.DungeonDefinition) (*Manager, *fakeChars, *fakePersist) {
	chars := &fakeChars{chars: map[string]*game.Character{"demo": testHero()}}
	cat := &fakeDungeonCatalog{defs: make(map[string]*game.DungeonDefinition)}
	for _, d := range defs {
		cat.defs[d.ID] = d
	}
	persist := newFakePersist()
	registry := engine.NewRegistry(nil)
	items := loot.NewGenerator(fakeItemCatalog{})
	m := NewManager(chars, cat, persist, registry, items, time.Second)
	return m, chars, persist
}

// fightToVictory drives the combat with plain attacks until it resolves.
func fightToVictory(t *testing.T, m *Manager, sessionID string) *engine.ActionOutcome {
	t.Helper()
	for i := 0; i < 50; i++ {
		outcome, err := m.ExecuteAction(sessionID, "demo", game.ActionAttack, "", "")
		if err != nil {
			t.Fatalf("attack %d: %v", i, err)
		}
		if outcome.Phase == game.PhaseVictory {
			return outcome
		}
		if outcome.Phase.IsTerminal() {
			t.Fatalf("combat ended in %s", outcome.Phase)
		}
	}
	t.Fatalf("combat never resolved")
	return nil
}

func TestEnterDungeon_EnergyGate(t *testing.T) {
	m, chars, _ := newTestManager(testDungeon("warrens", goblinStage(0)))
	chars.chars["demo"].Energy = 0

	if _, err := m.EnterDungeon("demo", "warrens", game.DifficultyNormal); !errors.Is(err, game.ErrInsufficientEnergy) {
		t.Fatalf("expected ErrInsufficientEnergy, got %v", err)
	}
	if chars.energyUsed != 0 {
		t.Fatalf("energy deducted despite rejection: %d", chars.energyUsed)
	}
}

func TestEnterDungeon_LevelGate(t *testing.T) {
	def := testDungeon("crypt", goblinStage(0))
	def.RequiredLevel = 8
	m, _, _ := newTestManager(def)

	if _, err := m.EnterDungeon("demo", "crypt", game.DifficultyNormal); !errors.Is(err, game.ErrLevelTooLow) {
		t.Fatalf("expected ErrLevelTooLow, got %v", err)
	}
}

func TestEnterDungeon_NotFound(t *testing.T) {
	m, _, _ := newTestManager(testDungeon("warrens", goblinStage(0)))

	if _, err := m.EnterDungeon("ghost", "warrens", game.DifficultyNormal); !errors.Is(err, game.ErrCharacterNotFound) {
		t.Fatalf("expected ErrCharacterNotFound, got %v", err)
	}
	if _, err := m.EnterDungeon("demo", "nowhere", game.DifficultyNormal); !errors.Is(err, game.ErrDungeonNotFound) {
		t.Fatalf("expected ErrDungeonNotFound, got %v", err)
	}
}

func TestEnterDungeon_DeductsEnergyAndStartsCombat(t *testing.T) {
	m, chars, _ := newTestManager(testDungeon("warrens", goblinStage(0)))

	sessionID, err := m.EnterDungeon("demo", "warrens", game.DifficultyEasy)
	if err != nil {
		t.Fatalf("EnterDungeon: %v", err)
	}
	if sessionID == "" {
		t.Fatalf("empty session id")
	}
	if chars.chars["demo"].Energy != 45 {
		t.Fatalf("energy = %d, want 45", chars.chars["demo"].Energy)
	}

	state, err := m.GetCombatState(sessionID)
	if err != nil {
		t.Fatalf("GetCombatState: %v", err)
	}
	if state.Phase != game.PhaseActive {
		t.Fatalf("combat phase = %s, want active", state.Phase)
	}
	if len(state.Living(game.TeamEnemy)) != 1 {
		t.Fatalf("expected 1 enemy, got %d", len(state.Living(game.TeamEnemy)))
	}
}

func TestFullRun_SingleStageVictory(t *testing.T) {
	m, _, persist := newTestManager(testDungeon("warrens", goblinStage(0)))

	var notified []game.RewardBundle
	m.OnRewardGranted(func(userID string, bundle game.RewardBundle) {
		notified = append(notified, bundle)
	})

	sessionID, err := m.EnterDungeon("demo", "warrens", game.DifficultyEasy)
	if err != nil {
		t.Fatalf("EnterDungeon: %v", err)
	}
	outcome := fightToVictory(t, m, sessionID)
	if outcome.Phase != game.PhaseVictory {
		t.Fatalf("phase = %s", outcome.Phase)
	}

	session, err := m.GetSession(sessionID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if session.Status != game.SessionCompleted {
		t.Fatalf("status = %s, want completed", session.Status)
	}
	if session.Accumulated.Gold <= 0 || session.Accumulated.Exp <= 0 {
		t.Fatalf("rewards missing: %+v", session.Accumulated)
	}
	if !session.Combat.Rewards.FirstClear {
		t.Fatalf("first clear not flagged")
	}

	if persist.clears != 1 {
		t.Fatalf("clears recorded = %d, want 1", persist.clears)
	}
	if persist.goldGranted <= 0 {
		t.Fatalf("no gold granted")
	}
	rec := persist.milestones[key("demo", "warrens")]
	if rec == nil || !rec.UnlockedThresholds()[1] {
		t.Fatalf("first-clear milestone not unlocked: %+v", rec)
	}
	if len(session.Accumulated.UnlockedTitles) != 1 || session.Accumulated.UnlockedTitles[0] != "First Blood" {
		t.Fatalf("milestone title missing: %+v", session.Accumulated.UnlockedTitles)
	}

	if len(notified) != 1 {
		t.Fatalf("listener fired %d times", len(notified))
	}

	// Terminal state is sticky through the manager too.
	if _, err := m.ExecuteAction(sessionID, "demo", game.ActionAttack, "", ""); !errors.Is(err, game.ErrActionAfterTerminal) {
		t.Fatalf("expected ErrActionAfterTerminal, got %v", err)
	}
	if _, err := m.ProceedToNextStage(sessionID); !errors.Is(err, game.ErrDungeonComplete) {
		t.Fatalf("expected ErrDungeonComplete, got %v", err)
	}
}

func TestFullRun_MultiStageAdvance(t *testing.T) {
	m, _, persist := newTestManager(testDungeon("warrens", goblinStage(0), goblinStage(1)))

	sessionID, err := m.EnterDungeon("demo", "warrens", game.DifficultyNormal)
	if err != nil {
		t.Fatalf("EnterDungeon: %v", err)
	}

	fightToVictory(t, m, sessionID)
	session, _ := m.GetSession(sessionID)
	if session.Status != game.SessionInProgress {
		t.Fatalf("mid-run status = %s", session.Status)
	}
	if persist.clears != 0 {
		t.Fatalf("clear recorded before the final stage")
	}

	state, err := m.ProceedToNextStage(sessionID)
	if err != nil {
		t.Fatalf("ProceedToNextStage: %v", err)
	}
	if state.StageIndex != 1 {
		t.Fatalf("stage index = %d, want 1", state.StageIndex)
	}
	if state.Phase != game.PhaseActive {
		t.Fatalf("new combat phase = %s", state.Phase)
	}

	fightToVictory(t, m, sessionID)
	session, _ = m.GetSession(sessionID)
	if session.Status != game.SessionCompleted {
		t.Fatalf("final status = %s", session.Status)
	}
	if persist.clears != 1 {
		t.Fatalf("clears = %d, want 1", persist.clears)
	}
	if _, err := m.ProceedToNextStage(sessionID); !errors.Is(err, game.ErrDungeonComplete) {
		t.Fatalf("expected ErrDungeonComplete, got %v", err)
	}
}

func TestAbandonDungeon(t *testing.T) {
	m, _, persist := newTestManager(testDungeon("warrens", goblinStage(0)))

	sessionID, err := m.EnterDungeon("demo", "warrens", game.DifficultyNormal)
	if err != nil {
		t.Fatalf("EnterDungeon: %v", err)
	}
	if err := m.AbandonDungeon(sessionID); err != nil {
		t.Fatalf("AbandonDungeon: %v", err)
	}
	if _, err := m.GetCombatState(sessionID); !errors.Is(err, game.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after abandon, got %v", err)
	}
	if persist.goldGranted != 0 {
		t.Fatalf("abandoned run granted gold")
	}
}

func TestSessionNotFound(t *testing.T) {
	m, _, _ := newTestManager(testDungeon("warrens", goblinStage(0)))

	if _, err := m.ExecuteAction("nope", "demo", game.ActionAttack, "", ""); !errors.Is(err, game.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := m.GetSession("nope"); !errors.Is(err, game.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestAutoBattle(t *testing.T) {
	m, _, _ := newTestManager(testDungeon("warrens", goblinStage(0)))

	sessionID, err := m.EnterDungeon("demo", "warrens", game.DifficultyNormal)
	if err != nil {
		t.Fatalf("EnterDungeon: %v", err)
	}
	if err := m.SetAutoBattle(sessionID, true); err != nil {
		t.Fatalf("SetAutoBattle: %v", err)
	}
	session, _ := m.GetSession(sessionID)
	if !session.AutoBattle {
		t.Fatalf("auto-battle flag not set")
	}

	actionType, skillID, targetID, err := m.GetAutoBattleAction(sessionID)
	if err != nil {
		t.Fatalf("GetAutoBattleAction: %v", err)
	}
	if actionType != game.ActionAttack || skillID != "" {
		t.Fatalf("unexpected action %s/%s", actionType, skillID)
	}
	if targetID != "goblin-0" {
		t.Fatalf("target = %s, want goblin-0", targetID)
	}
}

func TestSweep_ExpiresIdleSessions(t *testing.T) {
	m, _, _ := newTestManager(testDungeon("warrens", goblinStage(0)))
	current := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.WithClock(func() time.Time { return current })

	sessionID, err := m.EnterDungeon("demo", "warrens", game.DifficultyNormal)
	if err != nil {
		t.Fatalf("EnterDungeon: %v", err)
	}

	// Fresh session survives a sweep.
	m.sweep(30 * time.Minute)
	if _, err := m.GetSession(sessionID); err != nil {
		t.Fatalf("fresh session swept: %v", err)
	}

	current = current.Add(time.Hour)
	m.sweep(30 * time.Minute)
	if _, err := m.GetSession(sessionID); !errors.Is(err, game.ErrSessionNotFound) {
		t.Fatalf("idle session not expired, got %v", err)
	}
}
