package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ericogr/dungeon-depths/internal/catalog"
	"github.com/ericogr/dungeon-depths/internal/dungeon"
	"github.com/ericogr/dungeon-depths/internal/engine"
	"github.com/ericogr/dungeon-depths/internal/game"
	"github.com/ericogr/dungeon-depths/internal/loot"
)

// fakeRepo backs both the character service and the persistence adapter
// for handler tests. Everything lives in memory.
type fakeRepo struct {
	chars map[string]*game.Character
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{chars: map[string]*game.Character{
		"demo": {
			ID: "demo", Name: "Aldric", Level: 5,
			Stats: game.CombatStats{
				MaxHP: 200, MaxMP: 60, Attack: 30, Defense: 20, Speed: 80,
				CritDamage: 1.5, Accuracy: 1,
			},
			Energy: 50, MaxEnergy: 50,
		},
	}}
}

func (f *fakeRepo) GetCharacter(userID string) (*game.Character, error) {
	ch, ok := f.chars[userID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", game.ErrCharacterNotFound, userID)
	}
	cp := *ch
	return &cp, nil
}

func (f *fakeRepo) UseEnergy(userID string, amount int) error {
	ch, ok := f.chars[userID]
	if !ok {
		return fmt.Errorf("%w: %s", game.ErrCharacterNotFound, userID)
	}
	if ch.Energy < amount {
		return fmt.Errorf("%w: have %d, need %d", game.ErrInsufficientEnergy, ch.Energy, amount)
	}
	ch.Energy -= amount
	return nil
}

func (f *fakeRepo) GrantGold(userID string, amount int) error { return nil }

func (f *fakeRepo) GetDungeonProgress(userID, dungeonID string) (*game.DungeonProgressRecord, error) {
	return &game.DungeonProgressRecord{UserID: userID, DungeonID: dungeonID}, nil
}

func (f *fakeRepo) SaveDungeonProgress(userID, dungeonID string, stage int, completed bool) error {
	return nil
}

func (f *fakeRepo) RecordDungeonClear(userID, dungeonID string, durationMs int64, goldEarned int) (*game.MilestoneRecord, error) {
	return &game.MilestoneRecord{UserID: userID, DungeonID: dungeonID, TotalClears: 1}, nil
}

func (f *fakeRepo) UpdateMilestone(record *game.MilestoneRecord) error { return nil }

func (f *fakeRepo) GetMilestone(userID, dungeonID string) (*game.MilestoneRecord, error) {
	return &game.MilestoneRecord{UserID: userID, DungeonID: dungeonID}, nil
}

func (f *fakeRepo) GetStatistics(userID string) (*game.Statistics, error) {
	return &game.Statistics{UserID: userID, TotalClears: 3, TotalGoldEarned: 500}, nil
}

func testRouter(t *testing.T) (*gin.Engine, *fakeRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := newFakeRepo()
	dungeons := catalog.NewDungeons([]game.DungeonDefinition{{
		ID: "warrens", Name: "Warrens", RequiredLevel: 1, EnergyCost: 5,
		Stages: []game.Stage{{
			Index: 0, RewardExp: 25, RewardGold: 40,
			Monsters: []game.MonsterSpec{{
				ID: "goblin", Name: "Goblin", Tier: game.TierNormal,
				Stats: game.CombatStats{MaxHP: 60, Attack: 10, Speed: 35, CritDamage: 1.5, Accuracy: 1},
			}},
		}},
	}})
	items := catalog.NewItems([]game.BaseItem{{ID: "rusty_sword", Stats: map[string]int{"attack": 12}}})
	registry := engine.NewRegistry(nil)
	manager := dungeon.NewManager(repo, dungeons, repo, registry, loot.NewGenerator(items), time.Second)

	router := gin.New()
	NewDungeonHandler(manager, repo, dungeons).RegisterRoutes(router)
	return router, repo
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func enter(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/dungeons/warrens/enter", gin.H{"user_id": "demo", "difficulty": "normal"})
	if w.Code != http.StatusCreated {
		t.Fatalf("enter status = %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.SessionID == "" {
		t.Fatalf("empty session id")
	}
	return resp.SessionID
}

func TestHandler_ListDungeons(t *testing.T) {
	router, _ := testRouter(t)
	w := doJSON(t, router, http.MethodGet, "/api/dungeons", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var defs []game.DungeonDefinition
	if err := json.Unmarshal(w.Body.Bytes(), &defs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(defs) != 1 || defs[0].ID != "warrens" {
		t.Fatalf("unexpected list: %+v", defs)
	}
}

func TestHandler_EnterValidation(t *testing.T) {
	router, repo := testRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/dungeons/warrens/enter", gin.H{"difficulty": "normal"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing user_id status = %d", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/api/dungeons/nowhere/enter", gin.H{"user_id": "demo"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown dungeon status = %d", w.Code)
	}

	repo.chars["demo"].Energy = 0
	w = doJSON(t, router, http.MethodPost, "/api/dungeons/warrens/enter", gin.H{"user_id": "demo"})
	if w.Code != http.StatusConflict {
		t.Fatalf("insufficient energy status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestHandler_CombatFlow(t *testing.T) {
	router, _ := testRouter(t)
	sessionID := enter(t, router)

	var phase game.Phase
	for i := 0; i < 10 && phase != game.PhaseVictory; i++ {
		w := doJSON(t, router, http.MethodPost, "/api/sessions/"+sessionID+"/actions",
			gin.H{"actor_id": "demo", "type": "attack"})
		if w.Code != http.StatusOK {
			t.Fatalf("action status = %d, body %s", w.Code, w.Body.String())
		}
		var outcome engine.ActionOutcome
		if err := json.Unmarshal(w.Body.Bytes(), &outcome); err != nil {
			t.Fatalf("decode outcome: %v", err)
		}
		phase = outcome.Phase
	}
	if phase != game.PhaseVictory {
		t.Fatalf("combat never resolved, phase %s", phase)
	}

	w := doJSON(t, router, http.MethodGet, "/api/sessions/"+sessionID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("state status = %d", w.Code)
	}
	var session game.DungeonSession
	if err := json.Unmarshal(w.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if session.Status != game.SessionCompleted {
		t.Fatalf("session status = %s", session.Status)
	}
	if session.Accumulated.Gold <= 0 {
		t.Fatalf("no gold accumulated: %+v", session.Accumulated)
	}

	// Terminal combat maps to 409.
	w = doJSON(t, router, http.MethodPost, "/api/sessions/"+sessionID+"/actions",
		gin.H{"actor_id": "demo", "type": "attack"})
	if w.Code != http.StatusConflict {
		t.Fatalf("post-victory action status = %d", w.Code)
	}
}

func TestHandler_AbandonAndNotFound(t *testing.T) {
	router, _ := testRouter(t)
	sessionID := enter(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/sessions/"+sessionID+"/abandon", gin.H{})
	if w.Code != http.StatusOK {
		t.Fatalf("abandon status = %d", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/api/sessions/"+sessionID, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("after abandon status = %d", w.Code)
	}
	w = doJSON(t, router, http.MethodPost, "/api/sessions/ghost/actions", gin.H{"actor_id": "demo", "type": "attack"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown session status = %d", w.Code)
	}
}

func TestHandler_AutoBattle(t *testing.T) {
	router, _ := testRouter(t)
	sessionID := enter(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/sessions/"+sessionID+"/auto-battle", gin.H{"enabled": true})
	if w.Code != http.StatusOK {
		t.Fatalf("set auto-battle status = %d", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/api/sessions/"+sessionID+"/auto-action", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("auto action status = %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Type     game.ActionType `json:"type"`
		TargetID string          `json:"target_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Type != game.ActionAttack || resp.TargetID != "goblin-0" {
		t.Fatalf("unexpected auto action: %+v", resp)
	}
}

func TestHandler_Statistics(t *testing.T) {
	router, _ := testRouter(t)
	w := doJSON(t, router, http.MethodGet, "/api/players/demo/statistics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("statistics status = %d", w.Code)
	}
	var stats game.Statistics
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.UserID != "demo" || stats.TotalClears != 3 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
