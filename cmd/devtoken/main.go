// Command devtoken prints an identity token signed with JWT_SECRET, for calling
// a local server without the identity provider.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/mmynk/groupsplit/internal/auth"
	"github.com/mmynk/groupsplit/internal/config"
	"github.com/mmynk/groupsplit/internal/models"
)

func main() {
	userID := flag.String("user", "", "user ID (required)")
	email := flag.String("email", "", "email claim")
	firstName := flag.String("first-name", "", "first name claim")
	lastName := flag.String("last-name", "", "last name claim")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *userID == "" {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	token, err := auth.NewJWTManager(cfg.JWTSecret).Generate(&models.User{
		ID:        *userID,
		Email:     *email,
		FirstName: *firstName,
		LastName:  *lastName,
	}, *ttl)
	if err != nil {
		slog.Error("Failed to generate token", "error", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
