package reward

import (
	"testing"

	"github.com/ericogr/dungeon-depths/internal/game"
)

func TestMultiplier_LegendaryIsFiveTimesNormal(t *testing.T) {
	if got := Multiplier(game.DifficultyLegendary) / Multiplier(game.DifficultyNormal); got != 5.0 {
		t.Fatalf("legendary/normal ratio = %v, want 5.0", got)
	}
}

func TestMultiplier_UnknownDefaultsToNormal(t *testing.T) {
	if got := Multiplier("nightmare"); got != 1.0 {
		t.Fatalf("unknown difficulty multiplier = %v, want 1.0", got)
	}
}

func TestResolve_DifficultyScaling(t *testing.T) {
	r := NewResolver()
	stage := game.Stage{RewardGold: 40, RewardExp: 25}

	normal := r.Resolve(stage, game.DifficultyNormal, false)
	if normal.Gold != 40 || normal.Exp != 25 {
		t.Fatalf("normal bundle = %+v", normal)
	}

	legendary := r.Resolve(stage, game.DifficultyLegendary, false)
	if legendary.Gold != 5*normal.Gold {
		t.Fatalf("legendary gold = %d, want %d", legendary.Gold, 5*normal.Gold)
	}
	if legendary.Exp != 5*normal.Exp {
		t.Fatalf("legendary exp = %d, want %d", legendary.Exp, 5*normal.Exp)
	}

	easy := r.Resolve(stage, game.DifficultyEasy, false)
	if easy.Gold != 32 || easy.Exp != 20 {
		t.Fatalf("easy bundle = %+v", easy)
	}
}

func TestResolve_FirstClearBonus(t *testing.T) {
	r := NewResolver()
	stage := game.Stage{RewardGold: 40, RewardExp: 25}

	repeat := r.Resolve(stage, game.DifficultyNormal, false)
	first := r.Resolve(stage, game.DifficultyNormal, true)
	if !first.FirstClear || repeat.FirstClear {
		t.Fatalf("first-clear flag wrong: first=%v repeat=%v", first.FirstClear, repeat.FirstClear)
	}
	if first.Gold != 60 || first.Exp != 38 {
		t.Fatalf("first-clear bundle = %+v", first)
	}
	if first.Gold <= repeat.Gold {
		t.Fatalf("first clear must pay more: %d <= %d", first.Gold, repeat.Gold)
	}
}

func TestCrossedMilestones_GrantedOnce(t *testing.T) {
	r := NewResolver()
	thresholds := []game.MilestoneThreshold{
		{Clears: 1, Title: "Warrens Raider", BonusGold: 100},
		{Clears: 10, Title: "Goblin Bane", BonusGold: 500},
		{Clears: 50, Title: "King Slayer", BonusGold: 2500},
	}
	record := &game.MilestoneRecord{UserID: "u1", DungeonID: "goblin_warrens", TotalClears: 10}

	unlocks := r.CrossedMilestones(record, thresholds)
	if len(unlocks) != 2 {
		t.Fatalf("expected 2 unlocks at 10 clears, got %d", len(unlocks))
	}
	if unlocks[0].Title != "Warrens Raider" || unlocks[1].Title != "Goblin Bane" {
		t.Fatalf("unexpected unlock order: %+v", unlocks)
	}

	// A second pass over the same record pays nothing.
	if again := r.CrossedMilestones(record, thresholds); len(again) != 0 {
		t.Fatalf("milestones granted twice: %+v", again)
	}

	record.TotalClears = 50
	late := r.CrossedMilestones(record, thresholds)
	if len(late) != 1 || late[0].Clears != 50 {
		t.Fatalf("expected only the 50-clear unlock, got %+v", late)
	}
}

func TestCrossedMilestones_NilRecord(t *testing.T) {
	r := NewResolver()
	if got := r.CrossedMilestones(nil, []game.MilestoneThreshold{{Clears: 1}}); got != nil {
		t.Fatalf("nil record must yield nil, got %+v", got)
	}
}
