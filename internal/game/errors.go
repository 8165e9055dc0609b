package game

import "errors"

// Error taxonomy for the dungeon core. All failures cross the public
// boundary as these sentinels (possibly wrapped); internal numeric edge
// cases (negative HP, oversized heals) are clamped, not raised.
var (
	ErrCharacterNotFound   = errors.New("character not found")
	ErrDungeonNotFound     = errors.New("dungeon not found")
	ErrSessionNotFound     = errors.New("session not found")
	ErrLevelTooLow         = errors.New("character level below dungeon requirement")
	ErrInsufficientEnergy  = errors.New("insufficient energy")
	ErrInsufficientMP      = errors.New("insufficient MP")
	ErrSkillOnCooldown     = errors.New("skill on cooldown")
	ErrSkillUnknown        = errors.New("skill not known by combatant")
	ErrActionAfterTerminal = errors.New("combat already resolved")
	ErrInvalidBaseItem     = errors.New("invalid base item")
	ErrInvalidRarity       = errors.New("invalid rarity")
	ErrMutexTimeout        = errors.New("session lock acquisition timed out")
	ErrDungeonComplete     = errors.New("dungeon already complete")
	ErrCombatantNotFound   = errors.New("combatant not found")
	ErrNotActorTurn        = errors.New("not this combatant's turn")
)
