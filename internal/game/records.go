package game

import (
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// Persisted records. The combat core never touches these directly; they
// back the character service and persistence adapter implemented in
// internal/storage.

// CharacterRecord is the stored character row. Combat-stat columns are
// flattened so the table stays queryable without JSON extraction.
type CharacterRecord struct {
	gorm.Model
	UserID     string `json:"user_id" gorm:"uniqueIndex"`
	Name       string `json:"name"`
	Level      int    `json:"level"`
	MaxHP      int    `json:"max_hp"`
	MaxMP      int    `json:"max_mp"`
	Attack     int    `json:"attack"`
	Defense    int    `json:"defense"`
	Speed      int    `json:"speed"`
	CritRate   float64 `json:"crit_rate"`
	CritDamage float64 `json:"crit_damage"`
	Dodge      float64 `json:"dodge"`
	Accuracy   float64 `json:"accuracy"`
	Resistance float64 `json:"resistance"`
	Energy     int    `json:"energy"`
	MaxEnergy  int    `json:"max_energy"`
	Gold       int    `json:"gold"`
	Gems       int    `json:"gems"`
	// SkillIDs is a comma-separated list; the roster is small and only
	// ever read whole.
	SkillIDs string `json:"skill_ids"`
}

// Snapshot converts the stored row into the read-only combat snapshot.
func (r *CharacterRecord) Snapshot() *Character {
	var skills []string
	if r.SkillIDs != "" {
		skills = strings.Split(r.SkillIDs, ",")
	}
	stats := CombatStats{
		MaxHP:      r.MaxHP,
		MaxMP:      r.MaxMP,
		Attack:     r.Attack,
		Defense:    r.Defense,
		Speed:      r.Speed,
		CritRate:   r.CritRate,
		CritDamage: r.CritDamage,
		Dodge:      r.Dodge,
		Accuracy:   r.Accuracy,
		Resistance: r.Resistance,
	}
	return &Character{
		ID:        r.UserID,
		Name:      r.Name,
		Level:     r.Level,
		Stats:     stats,
		HP:        r.MaxHP,
		MP:        r.MaxMP,
		Energy:    r.Energy,
		MaxEnergy: r.MaxEnergy,
		Gold:      r.Gold,
		Gems:      r.Gems,
		SkillIDs:  skills,
	}
}

// DungeonProgressRecord tracks how far a user has pushed into a dungeon.
type DungeonProgressRecord struct {
	gorm.Model
	UserID       string `json:"user_id" gorm:"index:idx_progress_user_dungeon,unique"`
	DungeonID    string `json:"dungeon_id" gorm:"index:idx_progress_user_dungeon,unique"`
	HighestStage int    `json:"highest_stage"`
	Completed    bool   `json:"completed"`
}

// MilestoneRecord is the per-user, per-dungeon clear ledger. Unlocked
// thresholds grow monotonically and are stored as a comma-separated list
// of clear counts so a bonus can never be granted twice.
type MilestoneRecord struct {
	gorm.Model
	UserID          string `json:"user_id" gorm:"index:idx_milestone_user_dungeon,unique"`
	DungeonID       string `json:"dungeon_id" gorm:"index:idx_milestone_user_dungeon,unique"`
	TotalClears     int    `json:"total_clears"`
	BestTimeMs      int64  `json:"best_time_ms"`
	TotalGoldEarned int    `json:"total_gold_earned"`
	Unlocked        string `json:"unlocked"`
}

// UnlockedThresholds parses the stored threshold list.
func (m *MilestoneRecord) UnlockedThresholds() map[int]bool {
	out := make(map[int]bool)
	if m.Unlocked == "" {
		return out
	}
	for _, part := range strings.Split(m.Unlocked, ",") {
		if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			out[n] = true
		}
	}
	return out
}

// AddUnlocked records a newly crossed threshold.
func (m *MilestoneRecord) AddUnlocked(clears int) {
	if m.UnlockedThresholds()[clears] {
		return
	}
	if m.Unlocked == "" {
		m.Unlocked = strconv.Itoa(clears)
		return
	}
	m.Unlocked += "," + strconv.Itoa(clears)
}
