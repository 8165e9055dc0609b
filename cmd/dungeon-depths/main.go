package main

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ericogr/dungeon-depths/internal/api"
	"github.com/ericogr/dungeon-depths/internal/catalog"
	"github.com/ericogr/dungeon-depths/internal/config"
	"github.com/ericogr/dungeon-depths/internal/constants"
	"github.com/ericogr/dungeon-depths/internal/dungeon"
	"github.com/ericogr/dungeon-depths/internal/engine"
	"github.com/ericogr/dungeon-depths/internal/game"
	"github.com/ericogr/dungeon-depths/internal/logging"
	"github.com/ericogr/dungeon-depths/internal/loot"
	"github.com/ericogr/dungeon-depths/internal/storage"
	"github.com/ericogr/dungeon-depths/internal/version"
)

func main() {
	configPath := os.Getenv(constants.EnvConfigPath)
	if configPath == "" {
		configPath = constants.DefaultConfigPath
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logging.Fatal("Missing or invalid dungeon configuration", err, logging.Fields{
			"config_path": configPath,
			"hint":        "create a dungeon_config.json with 'dungeons', 'skills' and 'base_items' arrays and optional 'characters' seed roster",
		})
	}

	dbPath := os.Getenv(constants.EnvDBPath)
	if dbPath == "" {
		dbPath = constants.DefaultDBPath
	}
	db, err := storage.OpenAndMigrate(dbPath, cfg.Characters)
	if err != nil {
		logging.Fatal("Failed to initialize database", err, nil)
	}

	// Explicit wiring: every collaborator is constructed once here and
	// passed by reference; nothing is reached through globals.
	repo := storage.NewSQLiteRepository(db)
	dungeons := catalog.NewDungeons(cfg.Dungeons)
	items := catalog.NewItems(cfg.BaseItems)
	registry := engine.NewRegistry(cfg.Skills)
	generator := loot.NewGenerator(items)
	manager := dungeon.NewManager(repo, dungeons, repo, registry, generator, cfg.MutexTimeout)

	manager.OnRewardGranted(func(userID string, bundle game.RewardBundle) {
		logging.Info("reward granted", logging.Fields{
			"user_id":     userID,
			"gold":        bundle.Gold,
			"exp":         bundle.Exp,
			"items":       len(bundle.Items),
			"first_clear": bundle.FirstClear,
		})
	})

	stop := make(chan struct{})
	defer close(stop)
	manager.StartSweeper(time.Minute, cfg.SessionTTL, stop)

	router := gin.New()
	router.Use(gin.Recovery())
	router.GET(constants.RouteHealthz, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			constants.JSONKeyStatus: "ok",
			"version":               version.Version,
		})
	})

	handler := api.NewDungeonHandler(manager, repo, dungeons)
	handler.RegisterRoutes(router)

	logging.Info("server starting", logging.Fields{
		"address": cfg.ServerAddress,
		"version": version.Version,
		"commit":  version.Commit,
	})
	if err := router.Run(cfg.ServerAddress); err != nil {
		logging.Fatal("server stopped", err, nil)
	}
}
