package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"

	"rollbook/internal/auth"
	"rollbook/internal/config"
	"rollbook/internal/store"
)

// Seed creates the well-known role groups and an admin platform user from
// ADMIN_USERNAME / ADMIN_PASSWORD.
func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	if cfg.AdminPassword == "" {
		log.Fatal().Msg("ADMIN_PASSWORD is required")
	}

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	defer db.Close()

	ctx := context.Background()
	users := auth.NewRepository(db.Client)

	for _, group := range []string{auth.GroupStudents, auth.GroupTutors} {
		if err := users.EnsureGroup(ctx, group); err != nil {
			log.Fatal().Err(err).Str("group", group).Msg("group create failed")
		}
		log.Info().Str("group", group).Msg("group ready")
	}

	admin, err := users.CreateNativeUser(ctx, cfg.AdminUsername, cfg.AdminPassword, true, true)
	if err != nil {
		log.Fatal().Err(err).Msg("admin create failed")
	}
	log.Info().Str("username", admin.Username).Msg("admin account ready")
}
