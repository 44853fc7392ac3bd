package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/panotify/exam-backend/internal/auth"
	"github.com/panotify/exam-backend/internal/clock"
	"github.com/panotify/exam-backend/internal/config"
	"github.com/panotify/exam-backend/internal/logger"
	"github.com/panotify/exam-backend/internal/model"
)

// issue-token mints an access token signed with the server's JWT secret.
// Identity is owned by the surrounding learning platform; this is for
// local development and smoke tests.
func main() {
	var (
		userID int
		role   string
	)
	flag.IntVar(&userID, "user", 0, "User ID to embed in the token")
	flag.StringVar(&role, "role", string(model.RoleStudent), "Role: student or instructor")
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	if userID <= 0 {
		fmt.Fprintln(os.Stderr, "Error: -user must be a positive ID")
		flag.PrintDefaults()
		os.Exit(2)
	}
	r := model.Role(role)
	if !r.Valid() {
		fmt.Fprintf(os.Stderr, "Error: unknown role %q\n", role)
		os.Exit(2)
	}

	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTExpiry, clock.Real{})
	token, err := tokens.Issue(userID, r)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to issue token")
	}

	log.Info().Int("user_id", userID).Str("role", role).Dur("expiry", cfg.JWTExpiry).Msg("Token issued")
	fmt.Println(token)
}
