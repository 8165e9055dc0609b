package storage

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ericogr/dungeon-depths/internal/game"
	"github.com/ericogr/dungeon-depths/internal/logging"
)

// OpenAndMigrate opens the sqlite database, keeps the schema current via
// AutoMigrate and seeds the starting character roster on first run.
func OpenAndMigrate(dataSourceName string, seedCharacters []game.CharacterRecord) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dataSourceName), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&game.CharacterRecord{},
		&game.DungeonProgressRecord{},
		&game.MilestoneRecord{},
	)
	if err != nil {
		return nil, err
	}

	seedDefaultCharacters(db, seedCharacters)
	return db, nil
}

// seedDefaultCharacters inserts the configured roster only when the table
// is empty; the config never overwrites live character state.
func seedDefaultCharacters(db *gorm.DB, chars []game.CharacterRecord) {
	if len(chars) == 0 {
		return
	}
	var count int64
	db.Model(&game.CharacterRecord{}).Count(&count)
	if count > 0 {
		return
	}
	if err := db.Create(&chars).Error; err != nil {
		logging.Error("failed to seed characters", err, nil)
		return
	}
	logging.Info("seeded character roster", logging.Fields{"count": len(chars)})
}
