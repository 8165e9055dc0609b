// Package catalog exposes the static dungeon, skill and base-item data
// loaded from the configuration file as read-only lookup services.
package catalog

import (
	"github.com/ericogr/dungeon-depths/internal/game"
)

// Dungeons is the read-only dungeon catalog.
type Dungeons struct {
	byID  map[string]game.DungeonDefinition
	order []string
}

// NewDungeons indexes dungeon definitions by id.
func NewDungeons(defs []game.DungeonDefinition) *Dungeons {
	c := &Dungeons{byID: make(map[string]game.DungeonDefinition, len(defs))}
	for _, d := range defs {
		c.byID[d.ID] = d
		c.order = append(c.order, d.ID)
	}
	return c
}

// GetDungeon returns the dungeon definition, or nil when unknown.
func (c *Dungeons) GetDungeon(id string) *game.DungeonDefinition {
	d, ok := c.byID[id]
	if !ok {
		return nil
	}
	return &d
}

// StagesForDungeon returns the ordered stage list for a dungeon, or nil
// when the dungeon is unknown.
func (c *Dungeons) StagesForDungeon(id string) []game.Stage {
	d, ok := c.byID[id]
	if !ok {
		return nil
	}
	return d.Stages
}

// List returns every dungeon in configuration order.
func (c *Dungeons) List() []game.DungeonDefinition {
	out := make([]game.DungeonDefinition, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Items is the read-only base-item catalog backing the loot generator.
type Items struct {
	byID  map[string]game.BaseItem
	order []string
}

// NewItems indexes base items by id.
func NewItems(items []game.BaseItem) *Items {
	c := &Items{byID: make(map[string]game.BaseItem, len(items))}
	for _, it := range items {
		c.byID[it.ID] = it
		c.order = append(c.order, it.ID)
	}
	return c
}

// GetItemByID returns the base item, or nil when unknown.
func (c *Items) GetItemByID(id string) *game.BaseItem {
	it, ok := c.byID[id]
	if !ok {
		return nil
	}
	return &it
}

// ItemIDs returns every base-item id in configuration order.
func (c *Items) ItemIDs() []string { return c.order }
