package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/noah-isme/deposit-api/internal/models"
	"github.com/noah-isme/deposit-api/internal/service"
	"github.com/noah-isme/deposit-api/pkg/config"
)

// devtoken prints a bearer token signed with the configured JWT secret so the
// API can be exercised locally without an identity provider.
func main() {
	var (
		userID string
		role   string
		email  string
	)
	flag.StringVar(&userID, "user", "dev-user", "Subject user id")
	flag.StringVar(&role, "role", string(models.RoleUser), "Role: USER or ADMIN")
	flag.StringVar(&email, "email", "", "Optional email claim")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	r := models.UserRole(strings.ToUpper(strings.TrimSpace(role)))
	if r != models.RoleUser && r != models.RoleAdmin {
		log.Fatalf("unknown role %q", role)
	}

	tokens := service.NewTokenService(service.TokenConfig{
		Secret:     cfg.JWT.Secret,
		Issuer:     cfg.JWT.Issuer,
		Expiration: cfg.JWT.Expiration,
	})
	token, exp, err := tokens.Issue(userID, r, email)
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}
	fmt.Fprintf(os.Stderr, "expires at %s\n", exp.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Println(token)
}
