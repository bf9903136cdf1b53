// Command devtoken prints a bearer token for local testing of the /v1 API.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/SscSPs/credit_ledger/internal/platform/config"
	"github.com/SscSPs/credit_ledger/internal/utils"
	"github.com/google/uuid"
)

func main() {
	accountID := flag.String("account", "", "account ID to put in the token subject (random when empty)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	subject := *accountID
	if subject == "" {
		subject = uuid.NewString()
	}

	token, err := utils.GenerateJWT(subject, cfg.JWTSecret, cfg.JWTExpiryDuration, cfg.JWTIssuer)
	if err != nil {
		slog.Error("Failed to sign token", slog.String("error", err.Error()))
		os.Exit(1)
	}
	fmt.Println(token)
}
