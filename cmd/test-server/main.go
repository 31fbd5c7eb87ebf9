package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vdavid/mailview/internal/config"
	"github.com/vdavid/mailview/internal/crypto"
	"github.com/vdavid/mailview/internal/db"
	"github.com/vdavid/mailview/internal/models"
	"github.com/vdavid/mailview/internal/server"
	"github.com/vdavid/mailview/internal/testutil"
)

// testUserEmail is the account seeded with IMAP settings. In test mode the
// bearer token "email:test@example.com" authenticates as this user.
const testUserEmail = "test@example.com"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := setupTestEnvironment(); err != nil {
		log.Fatalf("Failed to setup test environment: %v", err)
	}

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.IMAPUseTLS = false

	encryptor, err := crypto.NewEncryptor(cfg.EncryptionKeyBase64)
	if err != nil {
		log.Fatalf("Failed to create encryptor: %v", err)
	}

	log.Println("Starting test Postgres database...")
	postgresContainer, err := testutil.StartPostgres(ctx)
	if err != nil {
		log.Fatalf("Failed to start Postgres: %v", err)
	}
	defer func() {
		if err := postgresContainer.Terminate(context.Background()); err != nil {
			log.Printf("Failed to terminate Postgres container: %v", err)
		}
	}()

	pool, err := testutil.OpenMigrated(ctx, postgresContainer)
	if err != nil {
		log.Fatalf("Failed to setup database: %v", err)
	}
	defer pool.Close()
	log.Println("Successfully connected to database and ran migrations")

	log.Println("Starting test IMAP server...")
	imapServer, err := testutil.StartIMAPServer()
	if err != nil {
		log.Fatalf("Failed to start test IMAP server: %v", err)
	}
	defer imapServer.Close()

	count, err := seedIMAP(imapServer, encryptor, time.Now())
	if err != nil {
		log.Fatalf("Failed to seed test data: %v", err)
	}
	log.Printf("Seeded %d messages", count)

	if err := seedUserSettings(ctx, pool, encryptor, imapServer); err != nil {
		log.Fatalf("Failed to seed user settings: %v", err)
	}

	srv, err := server.NewServer(cfg, pool)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}
	defer srv.Close()

	log.Printf("Test IMAP server: %s (username: %s, password: %s)", imapServer.Address, imapServer.Username(), imapServer.Password())
	log.Printf("Authenticate with \"Authorization: Bearer email:%s\". Press Ctrl+C to stop.", testUserEmail)

	if err := server.Serve(ctx, ":"+cfg.Port, srv); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// setupTestEnvironment sets the variables config.NewConfig needs, keeping any already set.
func setupTestEnvironment() error {
	defaults := map[string]string{
		"MAILVIEW_ENV":                   "test",
		"MAILVIEW_TEST_MODE":             "true",
		"MAILVIEW_ENCRYPTION_KEY_BASE64": testutil.TestEncryptionKey(),
		"MAILVIEW_JWT_SECRET":            "test-server-secret",
		"MAILVIEW_DB_PASSWORD":           "mailview",
	}
	for key, value := range defaults {
		if os.Getenv(key) != "" {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}
	return nil
}

// seedUserSettings points the test user at the in-memory IMAP server.
func seedUserSettings(ctx context.Context, pool *pgxpool.Pool, encryptor *crypto.Encryptor, imapServer *testutil.TestIMAPServer) error {
	userID, err := db.GetOrCreateUser(ctx, pool, testUserEmail)
	if err != nil {
		return fmt.Errorf("failed to get or create user: %w", err)
	}

	encryptedIMAPPassword, err := encryptor.Encrypt(imapServer.Password())
	if err != nil {
		return fmt.Errorf("failed to encrypt IMAP password: %w", err)
	}

	settings := &models.UserSettings{
		UserID:                userID,
		PageLimit:             models.DefaultPageLimit,
		ConversationViewMode:  true,
		IMAPServerHostname:    imapServer.Address,
		IMAPUsername:          imapServer.Username(),
		EncryptedIMAPPassword: encryptedIMAPPassword,
	}
	if err := db.SaveUserSettings(ctx, pool, settings); err != nil {
		return fmt.Errorf("failed to save user settings: %w", err)
	}
	return nil
}
