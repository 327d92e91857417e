package config

import (
	"fmt"
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL  string `env:"DATABASE_URL,required,notEmpty"`
	DiscordToken string `env:"DISCORD_BOT_TOKEN,required,notEmpty"`
	// opcional: si está, los slash commands se registran solo en ese guild
	DiscordGuild string `env:"DISCORD_GUILD_ID"`
	HTTPAddr     string `env:"HTTP_ADDR" envDefault:":8080"`

	AdminRoleIDs   []string `env:"ADMIN_ROLE_IDS" envSeparator:","`
	AlertSoundPath string   `env:"ALERT_SOUND_PATH"` // vacío = sin alerta de audio
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
}

// JanitorConfig: lambda que limpia guild_settings deshabilitados.
type JanitorConfig struct {
	DatabaseURL string        `env:"DATABASE_URL,required,notEmpty"`
	Retention   time.Duration `env:"JANITOR_RETENTION" envDefault:"4320h"`
}

// Cutoff: filas deshabilitadas sin cambios desde antes de esto se borran.
func (c JanitorConfig) Cutoff(now time.Time) time.Time {
	return now.Add(-c.Retention)
}

// ParseEnv carga la configuración desde variables de entorno.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load lee .env si existe y después el entorno. Cualquier faltante es fatal.
func Load() Config {
	_ = godotenv.Load()

	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		log.Fatalf("config: %v", err)
	}
	cfg.AdminRoleIDs = compact(cfg.AdminRoleIDs)
	return cfg
}

// SlogLevel traduce LOG_LEVEL; valores desconocidos quedan en info.
func (c Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func compact(ids []string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
