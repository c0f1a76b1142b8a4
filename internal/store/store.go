// ABOUTME: Store interface and account types for API key persistence
// ABOUTME: Defines Account, Tier, UsageSnapshot and the Store interface for database operations

package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when creating an account with an email that is already registered
var ErrDuplicateEmail = errors.New("email already registered")

// ErrQuotaExhausted is returned by RecordUsage when the account has
// already consumed its full monthly allowance
var ErrQuotaExhausted = errors.New("monthly quota exhausted")

// Tier is a subscription tier. Tiers form a fixed ordered set:
// free < starter < pro < business.
type Tier string

// Subscription tiers
const (
	TierFree     Tier = "free"
	TierStarter  Tier = "starter"
	TierPro      Tier = "pro"
	TierBusiness Tier = "business"
)

// tierLimits maps each tier to its monthly tool-invocation limit.
var tierLimits = map[Tier]int{
	TierFree:     10,
	TierStarter:  100,
	TierPro:      1000,
	TierBusiness: 10000,
}

// ParseTier validates a tier string and returns the corresponding Tier.
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if _, ok := tierLimits[t]; !ok {
		return "", fmt.Errorf("unknown tier %q", s)
	}
	return t, nil
}

// MonthlyLimit returns the monthly invocation limit for the tier.
// Unknown tiers get the free-tier limit.
func (t Tier) MonthlyLimit() int {
	if limit, ok := tierLimits[t]; ok {
		return limit
	}
	return tierLimits[TierFree]
}

// Account represents one customer identity. Keys are unique and never
// reused after issuance; emails are unique across all accounts.
type Account struct {
	ID        string
	Key       string
	Name      string
	Email     string
	Tier      Tier
	CreatedAt time.Time
}

// UsageSnapshot reports an account's quota position for the current month.
type UsageSnapshot struct {
	Tier  Tier
	Limit int
	Used  int
}

// Exhausted reports whether the account has used up its monthly quota.
func (u *UsageSnapshot) Exhausted() bool {
	return u.Used >= u.Limit
}

// MonthKey returns the calendar-month bucket for a point in time.
// Usage counters are keyed by this value, so a new month starts at
// zero without any explicit rollover.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// Store defines the interface for account and usage persistence
type Store interface {
	// Accounts
	CreateAccount(ctx context.Context, name string, tier Tier, email string) (*Account, error)
	GetAccountByKey(ctx context.Context, key string) (*Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)
	UpgradeTier(ctx context.Context, email string, tier Tier) error

	// Usage metering. RecordUsage only increments while the account is
	// under its monthly limit; at the limit it returns ErrQuotaExhausted,
	// so concurrent callers cannot race past the cap.
	RecordUsage(ctx context.Context, key string) error
	UsageSnapshot(ctx context.Context, key string) (*UsageSnapshot, error)

	// Close releases any resources held by the store
	Close() error
}
