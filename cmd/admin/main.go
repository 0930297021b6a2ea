// Command admin seeds recipients and issues credentials for an existing
// deployment. It reads the same configuration as the API server.
//
//	admin add-recipient -handle alice -name "Alice" -payout <base58 address>
//	admin token -recipient <uuid>
//	admin hash-secret -secret <feed secret>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"donation-gateway/config"
	pgStorage "donation-gateway/internal/adapter/storage/postgres"
	"donation-gateway/internal/core/domain"
	"donation-gateway/internal/service"
	"donation-gateway/pkg/logger"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load("")
	if err != nil {
		exitWithError(fmt.Errorf("load config: %w", err))
	}

	switch os.Args[1] {
	case "add-recipient":
		err = addRecipient(cfg, os.Args[2:])
	case "token":
		err = issueToken(cfg, os.Args[2:])
	case "hash-secret":
		err = hashSecret(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		exitWithError(err)
	}
}

func addRecipient(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("add-recipient", flag.ExitOnError)
	handle := fs.String("handle", "", "unique recipient handle")
	name := fs.String("name", "", "display name shown on the widget")
	payout := fs.String("payout", "", "base58 Solana address that receives donations")
	_ = fs.Parse(args)

	rc := &domain.Recipient{
		ID:            uuid.New(),
		Handle:        strings.TrimSpace(*handle),
		DisplayName:   strings.TrimSpace(*name),
		PayoutAddress: strings.TrimSpace(*payout),
		CreatedAt:     time.Now().UTC(),
	}
	if rc.Handle == "" || rc.PayoutAddress == "" {
		return errors.New("-handle and -payout are required")
	}
	if _, err := solanago.PublicKeyFromBase58(rc.PayoutAddress); err != nil {
		return fmt.Errorf("invalid payout address: %w", err)
	}
	if rc.DisplayName == "" {
		rc.DisplayName = rc.Handle
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log := logger.Component(logger.New(cfg.Log.Level, cfg.Log.Pretty), "admin")
	if cfg.Database.AutoMigrate {
		if err := pgStorage.Migrate(ctx, cfg.Database.DSN(), log); err != nil {
			return err
		}
	}

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := pgStorage.NewRecipientRepo(pool).Create(ctx, rc); err != nil {
		return err
	}

	fmt.Printf("recipient %s created (handle=%s payout=%s)\n", rc.ID, rc.Handle, rc.PayoutAddress)
	return nil
}

func issueToken(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	recipient := fs.String("recipient", "", "recipient ID (UUID)")
	_ = fs.Parse(args)

	id, err := uuid.Parse(strings.TrimSpace(*recipient))
	if err != nil {
		return fmt.Errorf("-recipient must be a UUID: %w", err)
	}

	tokens, err := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	if err != nil {
		return err
	}
	token, expiresAt, err := tokens.Generate(id)
	if err != nil {
		return err
	}

	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires %s\n", expiresAt.Format(time.RFC3339))
	return nil
}

func hashSecret(args []string) error {
	fs := flag.NewFlagSet("hash-secret", flag.ExitOnError)
	secret := fs.String("secret", "", "feed bearer secret to hash")
	_ = fs.Parse(args)

	if *secret == "" {
		return errors.New("-secret is required")
	}
	hash, err := service.NewArgon2HashService().Hash(*secret)
	if err != nil {
		return err
	}

	// Set as DGW_FEED_SECRET_HASH.
	fmt.Println(hash)
	return nil
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: admin <add-recipient|token|hash-secret> [flags]")
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
