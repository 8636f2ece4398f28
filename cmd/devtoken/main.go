// Command devtoken mints a bearer token for local testing. Production tokens
// come from the identity provider.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"gatherly/internal/config"
	"gatherly/internal/middleware"
)

func main() {
	subject := flag.String("subject", "", "Identity-provider subject to put in the token")
	ttl := flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	if *subject == "" {
		log.Fatal("usage: go run ./cmd/devtoken -subject <auth_subject> [-ttl 24h]")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("refusing to mint tokens in production")
	}

	token, err := middleware.NewTokenVerifier(cfg).Issue(*subject, *ttl)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Println(token)
}
