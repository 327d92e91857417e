package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bwmarrin/discordgo"

	discordrouter "github.com/jose-valero/voice-bouncer/internal/adapters/discord"
	"github.com/jose-valero/voice-bouncer/internal/adapters/httpstatus"
	"github.com/jose-valero/voice-bouncer/internal/app/service"
	"github.com/jose-valero/voice-bouncer/internal/infra/config"
	"github.com/jose-valero/voice-bouncer/internal/infra/storage"
)

// serve: gateway de Discord + status HTTP hasta SIGINT/SIGTERM.
func serve(ctx context.Context, cfg config.Config) error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// DB
	db, err := storage.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	version, err := storage.Migrate(ctx, db)
	if err != nil {
		return err
	}
	log.Printf("✅ DB lista y migrada (version %d)", version)

	settingsRepo := storage.NewGuildSettingsRepo(db)
	settings := storage.NewSettingsStore(settingsRepo)

	// Discord session
	auth := strings.TrimSpace(cfg.DiscordToken)
	if !strings.HasPrefix(strings.ToLower(auth), "bot ") {
		auth = "Bot " + auth
	}
	s, err := discordgo.New(auth)
	if err != nil {
		return err
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates

	// Adapters
	gateway := discordrouter.NewGateway(s)
	notifier := discordrouter.NewNotifier(s)
	var alert service.AlertPlayer
	if cfg.AlertSoundPath != "" {
		p, err := discordrouter.LoadAlertPlayer(s, cfg.AlertSoundPath, logger)
		if err != nil {
			log.Printf("⚠️ alerta de audio deshabilitada: %v", err)
		} else {
			alert = p
		}
	}

	// Services
	registry := service.NewRegistry(nil)
	policy := service.NewPolicyStore(registry)
	workflow := service.NewJoinWorkflow(policy, gateway, notifier, alert, logger)
	bindings := service.NewBindings(settings, gateway, notifier, registry, workflow, logger)
	setup := service.NewSetupService(settings, gateway, bindings)

	// Router antes de Open: los GuildCreate del arranque reconcilian sesiones
	r := discordrouter.NewRouter(s, cfg.DiscordGuild, cfg.AdminRoleIDs, bindings, workflow, setup, logger)
	r.Handlers()

	if err := s.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}
	defer s.Close()
	log.Printf("✅ Conectado como %s (%s)", s.State.User.Username, s.State.User.ID)

	if err := r.Register(); err != nil {
		return fmt.Errorf("registrando comandos: %w", err)
	}
	if cfg.DiscordGuild != "" {
		log.Printf("✅ /bouncersetup registrado en guild %s", cfg.DiscordGuild)
	} else {
		log.Printf("✅ /bouncersetup registrado global")
	}

	// Status HTTP
	status := httpstatus.New(registry, workflow, settingsRepo)
	go func() {
		if err := status.Run(ctx, cfg.HTTPAddr); err != nil {
			log.Printf("http server: %v", err)
		}
	}()

	// Esperar señal
	<-ctx.Done()
	log.Printf("apagando (%d sesiones activas)", len(registry.Sessions()))
	return nil
}
