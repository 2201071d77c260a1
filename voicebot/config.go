package voicebot

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/ellavondegurechaff/gohye-voice/internal/domain/rooms"
	"github.com/ellavondegurechaff/gohye-voice/voicebot/config"
	"github.com/ellavondegurechaff/gohye-voice/voicebot/database"
	"github.com/pelletier/go-toml/v2"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err = cfg.Defaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log     LogConfig         `toml:"log"`
	Bot     BotConfig         `toml:"bot"`
	DB      database.DBConfig `toml:"db"`
	Storage StorageConfig     `toml:"storage"`
	Rooms   RoomsConfig       `toml:"rooms"`
	Spaces  SpacesConfig      `toml:"spaces"`
	Web     WebConfig         `toml:"web"`
}

// Defaults fills unset values and validates the rest.
func (c *Config) Defaults() error {
	if c.Bot.Token == "" {
		return fmt.Errorf("bot.token is required")
	}
	if c.Log.Prefix == "" {
		c.Log.Prefix = "VOICE"
	}
	switch c.Storage.Driver {
	case "":
		c.Storage.Driver = config.StorageDriverPostgres
	case config.StorageDriverPostgres:
	case config.StorageDriverBuntDB:
		if c.Storage.Path == "" {
			c.Storage.Path = "data/rooms.db"
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	if c.Spaces.Interval == 0 {
		c.Spaces.Interval = Duration(config.DefaultSnapshotInterval)
	}
	if c.Web.Addr == "" {
		c.Web.Addr = ":8080"
	}
	return c.Rooms.defaults()
}

type BotConfig struct {
	DevGuilds []snowflake.ID `toml:"dev_guilds"`
	Token     string         `toml:"token"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Prefix    string     `toml:"prefix"`
	AddSource bool       `toml:"add_source"`
}

type StorageConfig struct {
	// Driver is "postgres" or "buntdb".
	Driver string `toml:"driver"`
	Path   string `toml:"path"`
}

type RoomsConfig struct {
	// CooldownWindow of "0s" disables the creation cooldown.
	CooldownWindow *Duration `toml:"cooldown_window"`
	EmptyGrace     Duration  `toml:"empty_grace"`
	SweepInterval  Duration  `toml:"sweep_interval"`
	SweepWorkers   int       `toml:"sweep_workers"`
}

func (c *RoomsConfig) defaults() error {
	if c.CooldownWindow == nil {
		d := Duration(config.DefaultCooldownWindow)
		c.CooldownWindow = &d
	}
	if *c.CooldownWindow < 0 {
		return fmt.Errorf("rooms.cooldown_window must not be negative")
	}
	if c.EmptyGrace <= 0 {
		c.EmptyGrace = Duration(config.DefaultEmptyGrace)
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = Duration(config.DefaultSweepInterval)
	}
	if c.SweepWorkers <= 0 {
		c.SweepWorkers = config.DefaultSweepWorkers
	}
	return nil
}

// Engine converts the section into the room engine settings.
func (c RoomsConfig) Engine() rooms.Config {
	window := time.Duration(*c.CooldownWindow)
	if window == 0 {
		// rooms treats zero as "use the default" and negative as "off".
		window = -1
	}
	return rooms.Config{
		CooldownWindow:   window,
		EmptyGrace:       time.Duration(c.EmptyGrace),
		SweepWorkers:     c.SweepWorkers,
		SpawnerCacheSize: config.SpawnerCacheSize,
	}
}

type SpacesConfig struct {
	Enabled  bool     `toml:"enabled"`
	Key      string   `toml:"key"`
	Secret   string   `toml:"secret"`
	Region   string   `toml:"region"`
	Bucket   string   `toml:"bucket"`
	Root     string   `toml:"root"`
	Interval Duration `toml:"interval"`
}

// WebConfig is read by the backend API.
type WebConfig struct {
	Addr string `toml:"addr"`
	// Token is required as a bearer token on /api routes. The API refuses
	// to start without it.
	Token string `toml:"token"`
}

// Duration reads TOML strings like "15s" or "2m".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
