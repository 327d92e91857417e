package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jose-valero/voice-bouncer/internal/infra/config"
)

// Guilds que deshabilitaron el bouncer y no volvieron a tocar la config.
const purgeDisabledSQL = `
DELETE FROM guild_settings
 WHERE enabled = FALSE
   AND updated_at < $1`

func handler(ctx context.Context) (string, error) {
	var cfg config.JanitorConfig
	if err := config.ParseEnv(&cfg); err != nil {
		return err.Error(), nil
	}

	pcfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return fmt.Sprintf("parse: %v", err), nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return fmt.Sprintf("pool: %v", err), nil
	}
	defer pool.Close()

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := pool.Exec(cctx, purgeDisabledSQL, cfg.Cutoff(time.Now()))
	if err != nil {
		return fmt.Sprintf("purge: %v", err), nil
	}
	log.Printf("[janitor] purged %d disabled guild_settings rows (retention %s)", tag.RowsAffected(), cfg.Retention)
	return "ok", nil
}

func main() { lambda.Start(handler) }
