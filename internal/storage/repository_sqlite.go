package storage

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ericogr/dungeon-depths/internal/dedupe"
	"github.com/ericogr/dungeon-depths/internal/game"
)

type sqliteRepository struct {
	db *gorm.DB
}

// NewSQLiteRepository wraps a migrated gorm database.
func NewSQLiteRepository(db *gorm.DB) Repository {
	return &sqliteRepository{db: db}
}

func (r *sqliteRepository) getRecord(userID string) (*game.CharacterRecord, error) {
	var rec game.CharacterRecord
	err := r.db.Where("user_id = ?", userID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", game.ErrCharacterNotFound, userID)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *sqliteRepository) GetCharacter(userID string) (*game.Character, error) {
	rec, err := r.getRecord(userID)
	if err != nil {
		return nil, err
	}
	return rec.Snapshot(), nil
}

func (r *sqliteRepository) UseEnergy(userID string, amount int) error {
	rec, err := r.getRecord(userID)
	if err != nil {
		return err
	}
	if rec.Energy < amount {
		return fmt.Errorf("%w: have %d, need %d", game.ErrInsufficientEnergy, rec.Energy, amount)
	}
	return r.db.Model(rec).Update("energy", rec.Energy-amount).Error
}

func (r *sqliteRepository) GrantGold(userID string, amount int) error {
	if amount <= 0 {
		return nil
	}
	rec, err := r.getRecord(userID)
	if err != nil {
		return err
	}
	return r.db.Model(rec).Update("gold", rec.Gold+amount).Error
}

func (r *sqliteRepository) GetDungeonProgress(userID, dungeonID string) (*game.DungeonProgressRecord, error) {
	var rec game.DungeonProgressRecord
	err := r.db.Where("user_id = ? AND dungeon_id = ?", userID, dungeonID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &game.DungeonProgressRecord{UserID: userID, DungeonID: dungeonID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *sqliteRepository) SaveDungeonProgress(userID, dungeonID string, stage int, completed bool) error {
	var rec game.DungeonProgressRecord
	err := r.db.Where("user_id = ? AND dungeon_id = ?", userID, dungeonID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rec = game.DungeonProgressRecord{UserID: userID, DungeonID: dungeonID}
	} else if err != nil {
		return err
	}
	if stage > rec.HighestStage {
		rec.HighestStage = stage
	}
	if completed {
		rec.Completed = true
	}
	return r.db.Save(&rec).Error
}

func (r *sqliteRepository) GetMilestone(userID, dungeonID string) (*game.MilestoneRecord, error) {
	var rec game.MilestoneRecord
	err := r.db.Where("user_id = ? AND dungeon_id = ?", userID, dungeonID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &game.MilestoneRecord{UserID: userID, DungeonID: dungeonID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *sqliteRepository) RecordDungeonClear(userID, dungeonID string, durationMs int64, goldEarned int) (*game.MilestoneRecord, error) {
	rec, err := r.GetMilestone(userID, dungeonID)
	if err != nil {
		return nil, err
	}
	rec.TotalClears++
	rec.TotalGoldEarned += goldEarned
	if durationMs > 0 && (rec.BestTimeMs == 0 || durationMs < rec.BestTimeMs) {
		rec.BestTimeMs = durationMs
	}
	if err := r.db.Save(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *sqliteRepository) UpdateMilestone(record *game.MilestoneRecord) error {
	return r.db.Save(record).Error
}

// GetStatistics aggregates the user's milestone rows. Concurrent requests
// for the same user collapse into one query via singleflight.
func (r *sqliteRepository) GetStatistics(userID string) (*game.Statistics, error) {
	v, err, _ := dedupe.StatsGroup.Do(userID, func() (interface{}, error) {
		var recs []game.MilestoneRecord
		if err := r.db.Where("user_id = ?", userID).Find(&recs).Error; err != nil {
			return nil, err
		}
		stats := &game.Statistics{UserID: userID}
		for _, rec := range recs {
			stats.TotalClears += rec.TotalClears
			stats.TotalGoldEarned += rec.TotalGoldEarned
			if rec.TotalClears > 0 {
				stats.DungeonsCleared++
			}
			if rec.BestTimeMs > 0 && (stats.BestTimeMs == 0 || rec.BestTimeMs < stats.BestTimeMs) {
				stats.BestTimeMs = rec.BestTimeMs
			}
		}
		return stats, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*game.Statistics), nil
}
