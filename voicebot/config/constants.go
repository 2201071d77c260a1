package config

import "time"

// Colors
const (
	ErrorColor   = 0xFF0000
	SuccessColor = 0x00FF00
	InfoColor    = 0x0099FF
	WarningColor = 0xFFAA00

	BackgroundColor = 0x2B2D31
)

// Database and performance
const (
	DefaultQueryTimeout     = 30 * time.Second
	CommandExecutionTimeout = 10 * time.Second
	SlowCommandThreshold    = 2 * time.Second
	NetworkDialTimeout      = 5 * time.Second
	ShutdownTimeout         = 10 * time.Second
)

// Rooms
const (
	DefaultCooldownWindow   = 15 * time.Second
	DefaultEmptyGrace       = 30 * time.Second
	DefaultSweepInterval    = 15 * time.Second
	DefaultSweepWorkers     = 4
	DefaultSnapshotInterval = 10 * time.Minute
	SpawnerCacheSize        = 1024
)

// Pagination and autocomplete
const (
	RoomsPerPage          = 8
	MaxAutocompleteChoice = 25
	// MinFuzzyScore drops autocomplete matches that are mostly gaps.
	MinFuzzyScore = -20
)

// Storage drivers
const (
	StorageDriverPostgres = "postgres"
	StorageDriverBuntDB   = "buntdb"
)
