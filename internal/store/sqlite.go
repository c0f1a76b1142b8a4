// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides account/usage persistence with automatic schema creation

package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS accounts (
			id TEXT PRIMARY KEY,
			key TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			tier TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_key ON accounts(key);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_email ON accounts(email);

		CREATE TABLE IF NOT EXISTS monthly_usage (
			account_id TEXT NOT NULL,
			month TEXT NOT NULL,
			used INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (account_id, month),
			FOREIGN KEY (account_id) REFERENCES accounts(id)
		);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}

	return nil
}

// newAPIKey generates a fresh API key. Keys carry a stable prefix so
// they can be recognized in logs and support requests.
func newAPIKey() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating key material: %w", err)
	}
	return "bi_" + hex.EncodeToString(buf), nil
}

// CreateAccount provisions a new account with a freshly generated key.
// Returns ErrDuplicateEmail if the email already has an account.
func (s *SQLiteStore) CreateAccount(ctx context.Context, name string, tier Tier, email string) (*Account, error) {
	key, err := newAPIKey()
	if err != nil {
		return nil, err
	}

	account := &Account{
		ID:        uuid.New().String(),
		Key:       key,
		Name:      name,
		Email:     email,
		Tier:      tier,
		CreatedAt: time.Now().UTC(),
	}

	query := `
		INSERT INTO accounts (id, key, name, email, tier, created_at)
		SELECT ?, ?, ?, ?, ?, ?
		WHERE NOT EXISTS (SELECT 1 FROM accounts WHERE email = ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		account.ID,
		account.Key,
		account.Name,
		account.Email,
		string(account.Tier),
		account.CreatedAt.Format(time.RFC3339),
		account.Email,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting account: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("getting rows affected: %w", err)
	}
	if rows == 0 {
		return nil, ErrDuplicateEmail
	}

	s.logger.Info("account created",
		"account_id", account.ID,
		"email", account.Email,
		"tier", account.Tier,
	)
	return account, nil
}

// GetAccountByKey retrieves an account by its API key.
func (s *SQLiteStore) GetAccountByKey(ctx context.Context, key string) (*Account, error) {
	query := `
		SELECT id, key, name, email, tier, created_at
		FROM accounts
		WHERE key = ?
	`
	return s.scanAccount(s.db.QueryRowContext(ctx, query, key))
}

// GetAccountByEmail retrieves an account by its owner email.
func (s *SQLiteStore) GetAccountByEmail(ctx context.Context, email string) (*Account, error) {
	query := `
		SELECT id, key, name, email, tier, created_at
		FROM accounts
		WHERE email = ?
	`
	return s.scanAccount(s.db.QueryRowContext(ctx, query, email))
}

// scanAccount scans a single account row.
func (s *SQLiteStore) scanAccount(row *sql.Row) (*Account, error) {
	var account Account
	var tier, createdAt string

	err := row.Scan(&account.ID, &account.Key, &account.Name, &account.Email, &tier, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning account: %w", err)
	}

	account.Tier = Tier(tier)
	account.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &account, nil
}

// UpgradeTier changes the tier for the account with the given email.
func (s *SQLiteStore) UpgradeTier(ctx context.Context, email string, tier Tier) error {
	query := `UPDATE accounts SET tier = ? WHERE email = ?`

	result, err := s.db.ExecContext(ctx, query, string(tier), email)
	if err != nil {
		return fmt.Errorf("updating tier: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	s.logger.Info("tier upgraded", "email", email, "tier", tier)
	return nil
}

// RecordUsage increments the current month's usage counter for the
// account owning the given key, but only while the counter is under
// the tier's monthly limit. The increment and the limit check are a
// single UPSERT statement, so concurrent increments for the same key
// never lose updates and never push the counter past the cap. At the
// cap it returns ErrQuotaExhausted.
func (s *SQLiteStore) RecordUsage(ctx context.Context, key string) error {
	account, err := s.GetAccountByKey(ctx, key)
	if err != nil {
		return err
	}
	limit := account.Tier.MonthlyLimit()

	query := `
		INSERT INTO monthly_usage (account_id, month, used)
		SELECT id, ?, 1 FROM accounts WHERE key = ?
		ON CONFLICT(account_id, month) DO UPDATE SET used = used + 1
		WHERE monthly_usage.used < ?
	`

	result, err := s.db.ExecContext(ctx, query, MonthKey(time.Now()), key, limit)
	if err != nil {
		return fmt.Errorf("recording usage: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rows == 0 {
		// The account exists, so the conditional update was the part
		// that did not apply.
		return ErrQuotaExhausted
	}

	return nil
}

// UsageSnapshot reports the tier, monthly limit, and current-month
// usage for the account owning the given key.
func (s *SQLiteStore) UsageSnapshot(ctx context.Context, key string) (*UsageSnapshot, error) {
	query := `
		SELECT a.tier, COALESCE(u.used, 0)
		FROM accounts a
		LEFT JOIN monthly_usage u ON u.account_id = a.id AND u.month = ?
		WHERE a.key = ?
	`

	var tier string
	var used int
	err := s.db.QueryRowContext(ctx, query, MonthKey(time.Now()), key).Scan(&tier, &used)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying usage: %w", err)
	}

	t := Tier(tier)
	return &UsageSnapshot{
		Tier:  t,
		Limit: t.MonthlyLimit(),
		Used:  used,
	}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
