package storage

import (
	"github.com/ericogr/dungeon-depths/internal/game"
)

// Repository is the persistence boundary the dungeon core depends on. It
// covers the character service contract (snapshot reads, energy spend)
// and the persistence-adapter side effects (progress, clears, stats).
type Repository interface {
	// Character service
	GetCharacter(userID string) (*game.Character, error)
	UseEnergy(userID string, amount int) error
	GrantGold(userID string, amount int) error

	// Persistence adapter
	GetDungeonProgress(userID, dungeonID string) (*game.DungeonProgressRecord, error)
	SaveDungeonProgress(userID, dungeonID string, stage int, completed bool) error
	RecordDungeonClear(userID, dungeonID string, durationMs int64, goldEarned int) (*game.MilestoneRecord, error)
	UpdateMilestone(record *game.MilestoneRecord) error
	GetMilestone(userID, dungeonID string) (*game.MilestoneRecord, error)
	GetStatistics(userID string) (*game.Statistics, error)
}
