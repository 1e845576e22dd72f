package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"github.com/yt-automation/shorts-dashboard-go/internal/config"
	"github.com/yt-automation/shorts-dashboard-go/internal/middleware"
)

// signtoken prints a bearer token accepted by /api/inngest, signed with the
// configured orchestrator signing key.
func main() {
	var (
		subject string
		ttl     time.Duration
		key     string
	)

	flag.StringVar(&subject, "sub", "orchestrator", "Token subject")
	flag.DurationVar(&ttl, "ttl", time.Hour, "Token lifetime (0 means no expiry)")
	flag.StringVar(&key, "key", "", "Signing key (defaults to the configured orchestrator signing key)")
	flag.Parse()

	_ = godotenv.Load()

	if key == "" {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
			os.Exit(1)
		}
		key = cfg.Orchestrator.SigningKey
	}

	now := time.Now()
	claims := jwt.MapClaims{"sub": subject, "iat": now.Unix()}
	if ttl > 0 {
		claims["exp"] = now.Add(ttl).Unix()
	}

	token, err := middleware.SignToken(claims, []byte(key))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
