package constants

// Centralized constants for env keys, routes and response fields.
const (
	// Environment variable keys
	EnvConfigPath = "DUNGEON_CONFIG"
	EnvDBPath     = "DUNGEON_DB"

	// Default file locations
	DefaultConfigPath = "./dungeon_config.json"
	DefaultDBPath     = "./data/dungeon.db"
)

// Routes used by the backend router
const (
	RouteAPIPrefix       = "/api"
	RouteHealthz         = "/healthz"
	RouteDungeons        = "/dungeons"
	RouteDungeonEnter    = "/dungeons/:dungeonID/enter"
	RouteSessionState    = "/sessions/:sessionID"
	RouteSessionAction   = "/sessions/:sessionID/actions"
	RouteSessionNext     = "/sessions/:sessionID/next-stage"
	RouteSessionAbandon  = "/sessions/:sessionID/abandon"
	RouteSessionAuto     = "/sessions/:sessionID/auto-battle"
	RouteSessionAutoAct  = "/sessions/:sessionID/auto-action"
	RoutePlayerStats     = "/players/:userID/statistics"
)

// Common JSON response keys
const (
	JSONKeyError   = "error"
	JSONKeyMessage = "message"
	JSONKeyStatus  = "status"
)

// Lock priorities for session mutations. User-facing actions outrank the
// background sweeper so a tick never starves an interactive request.
const (
	PriorityUserAction = 10
	PrioritySweeper    = 0
)
