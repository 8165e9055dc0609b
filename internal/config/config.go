package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ericogr/dungeon-depths/internal/game"
)

type rawConfig struct {
	Server *struct {
		Address string `json:"address"`
	} `json:"server"`
	SessionTTLMinutes int                      `json:"session_ttl_minutes"`
	MutexTimeoutMs    int                      `json:"mutex_timeout_ms"`
	Skills            []game.Skill             `json:"skills"`
	BaseItems         []game.BaseItem          `json:"base_items"`
	Dungeons          []game.DungeonDefinition `json:"dungeons"`
	Characters        []game.CharacterRecord   `json:"characters"`
}

// LoadedConfig is the validated configuration bundle the entrypoint wires
// from.
type LoadedConfig struct {
	ServerAddress string
	SessionTTL    time.Duration
	MutexTimeout  time.Duration
	Skills        []game.Skill
	BaseItems     []game.BaseItem
	Dungeons      []game.DungeonDefinition
	// Characters seeds the database with a starting roster on first run.
	Characters []game.CharacterRecord
}

// LoadConfig reads and validates the configuration file at path. It
// requires non-empty `dungeons`, `skills` and `base_items` lists.
func LoadConfig(path string) (*LoadedConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var rc rawConfig
	if err := json.Unmarshal(b, &rc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if len(rc.Dungeons) == 0 {
		return nil, fmt.Errorf("config file %s: dungeons is empty", path)
	}
	if len(rc.Skills) == 0 {
		return nil, fmt.Errorf("config file %s: skills is empty", path)
	}
	if len(rc.BaseItems) == 0 {
		return nil, fmt.Errorf("config file %s: base_items is empty", path)
	}

	skillIDs := make(map[string]struct{}, len(rc.Skills))
	for _, s := range rc.Skills {
		id := strings.TrimSpace(s.ID)
		if id == "" {
			return nil, fmt.Errorf("config file %s: skill entry missing 'id'", path)
		}
		if _, exists := skillIDs[id]; exists {
			return nil, fmt.Errorf("config file %s: duplicate skill id '%s'", path, id)
		}
		skillIDs[id] = struct{}{}
		switch s.Target {
		case game.TargetSelf, game.TargetSingleEnemy, game.TargetAllEnemies:
		default:
			return nil, fmt.Errorf("config file %s: skill '%s' has unknown target '%s'", path, id, s.Target)
		}
	}

	itemIDs := make(map[string]struct{}, len(rc.BaseItems))
	for _, it := range rc.BaseItems {
		if strings.TrimSpace(it.ID) == "" {
			return nil, fmt.Errorf("config file %s: base item entry missing 'id'", path)
		}
		if _, exists := itemIDs[it.ID]; exists {
			return nil, fmt.Errorf("config file %s: duplicate base item id '%s'", path, it.ID)
		}
		itemIDs[it.ID] = struct{}{}
		if len(it.Stats) == 0 {
			return nil, fmt.Errorf("config file %s: base item '%s' has no stats", path, it.ID)
		}
	}

	dungeonIDs := make(map[string]struct{}, len(rc.Dungeons))
	for _, d := range rc.Dungeons {
		if strings.TrimSpace(d.ID) == "" {
			return nil, fmt.Errorf("config file %s: dungeon entry missing 'id'", path)
		}
		if _, exists := dungeonIDs[d.ID]; exists {
			return nil, fmt.Errorf("config file %s: duplicate dungeon id '%s'", path, d.ID)
		}
		dungeonIDs[d.ID] = struct{}{}
		if len(d.Stages) == 0 {
			return nil, fmt.Errorf("config file %s: dungeon '%s' has no stages", path, d.ID)
		}
		for _, st := range d.Stages {
			if len(st.Monsters) == 0 {
				return nil, fmt.Errorf("config file %s: dungeon '%s' stage %d has no monsters", path, d.ID, st.Index)
			}
			for _, m := range st.Monsters {
				for _, sid := range m.SkillIDs {
					if _, ok := skillIDs[sid]; !ok {
						return nil, fmt.Errorf("config file %s: monster '%s' references unknown skill '%s'", path, m.ID, sid)
					}
				}
			}
		}
	}

	for _, ch := range rc.Characters {
		if strings.TrimSpace(ch.UserID) == "" {
			return nil, fmt.Errorf("config file %s: character entry missing 'user_id'", path)
		}
		for _, sid := range strings.Split(ch.SkillIDs, ",") {
			sid = strings.TrimSpace(sid)
			if sid == "" {
				continue
			}
			if _, ok := skillIDs[sid]; !ok {
				return nil, fmt.Errorf("config file %s: character '%s' references unknown skill '%s'", path, ch.UserID, sid)
			}
		}
	}

	addr := ":8080"
	if rc.Server != nil && rc.Server.Address != "" {
		addr = rc.Server.Address
	}
	ttl := 30 * time.Minute
	if rc.SessionTTLMinutes > 0 {
		ttl = time.Duration(rc.SessionTTLMinutes) * time.Minute
	}
	mutexTimeout := 3 * time.Second
	if rc.MutexTimeoutMs > 0 {
		mutexTimeout = time.Duration(rc.MutexTimeoutMs) * time.Millisecond
	}

	return &LoadedConfig{
		ServerAddress: addr,
		SessionTTL:    ttl,
		MutexTimeout:  mutexTimeout,
		Skills:        rc.Skills,
		BaseItems:     rc.BaseItems,
		Dungeons:      rc.Dungeons,
		Characters:    rc.Characters,
	}, nil
}
