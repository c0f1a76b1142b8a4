// Package store provides persistent storage for API key accounts using SQLite.
//
// # Data Models
//
//   - Account: One customer identity with a unique API key, unique owner
//     email, and a subscription tier.
//   - UsageSnapshot: The account's quota position (tier, monthly limit,
//     used-this-month) at the moment of the read.
//
// Usage counters are bucketed by calendar month (YYYY-MM, UTC). A new
// month implicitly starts at zero; there is no rollover job.
//
// # Tiers
//
// Subscription tiers form a fixed ordered set with monthly
// tool-invocation limits:
//
//	free (10) < starter (100) < pro (1000) < business (10000)
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// All mutating operations persist synchronously before returning, so a
// reader can never observe a stale pre-mutation value after the mutator
// has returned. Usage increments are single UPSERT statements and are
// therefore linearizable per key.
//
// # Error Handling
//
// Common errors:
//
//   - ErrNotFound: Requested entity does not exist
//   - ErrDuplicateEmail: Email already has an account
//
// All methods accept context.Context for cancellation support.
package store
