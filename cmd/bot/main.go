package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jose-valero/voice-bouncer/internal/infra/config"
	"github.com/jose-valero/voice-bouncer/internal/infra/storage"
)

var rootCmd = &cobra.Command{
	Use:   "bouncer",
	Short: "Discord voice bouncer: join requests for a private voice channel",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context(), config.Load())
	},
	SilenceUsage: true,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		var cfg struct {
			DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
		}
		if err := config.ParseEnv(&cfg); err != nil {
			return err
		}

		db, err := storage.Open(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		version, err := storage.Migrate(cmd.Context(), db)
		if err != nil {
			return err
		}
		fmt.Printf("migrations applied, version %d\n", version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
