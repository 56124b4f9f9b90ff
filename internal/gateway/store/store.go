package store

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/tenantgate/internal/gateway/domain"
)

var (
	ErrNotFound       = errors.New("store: not found")
	ErrAlreadyExists  = errors.New("store: already exists")
	ErrStatusMismatch = errors.New("store: status mismatch")

	// ErrUnavailable wraps driver failures that indicate the database could
	// not be reached or was too busy to answer. Reads failing with it may be
	// retried.
	ErrUnavailable = errors.New("store: unavailable")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. Sub-repositories are reached through methods so a Tx can
// hand out the same repositories bound to the transaction and nested
// transactions are refused.
type Store interface {
	Accounts() Accounts
	Tenants() Tenants
	Memberships() Memberships
	SigningKeys() SigningKeys

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Accounts interface {
	// EnsureAccount inserts the account keyed on its subject, or returns the
	// existing one. Email and display name are refreshed from a. created is
	// true only when this call inserted the row.
	EnsureAccount(ctx context.Context, a domain.Account) (acct domain.Account, created bool, err error)

	GetAccountByID(ctx context.Context, id string) (domain.Account, error)

	// GetAccountBySubject looks up an account by its external subject.
	GetAccountBySubject(ctx context.Context, subject string) (domain.Account, error)

	// GetAccountByEmail returns the earliest account registered with email.
	GetAccountByEmail(ctx context.Context, email string) (domain.Account, error)

	// LockAccount takes a write lock on the account row for the rest of the
	// transaction. Concurrent resolutions of the same account serialise on it.
	LockAccount(ctx context.Context, id string) error
}

type Tenants interface {
	CreateTenant(ctx context.Context, t domain.Tenant) error
	GetTenant(ctx context.Context, id string) (domain.Tenant, error)
	CountTenants(ctx context.Context) (int, error)
}

type Memberships interface {
	// CreateMembership inserts a membership. Returns ErrAlreadyExists when
	// the account already has a membership in the tenant, whatever its status.
	CreateMembership(ctx context.Context, m domain.Membership) error

	GetMembership(ctx context.Context, id string) (domain.Membership, error)

	// GetMembershipForTenant returns the account's membership in tenantID.
	GetMembershipForTenant(ctx context.Context, accountID, tenantID string) (domain.TenantMembership, error)

	// ListMembershipsByAccount returns every membership of the account, oldest first.
	ListMembershipsByAccount(ctx context.Context, accountID string) ([]domain.TenantMembership, error)

	// UpdateMembershipStatus moves a membership from expected to next as a
	// single conditional write. ErrStatusMismatch means the row exists but
	// was not in expected; ErrNotFound means it does not exist.
	UpdateMembershipStatus(ctx context.Context, id string, expected, next domain.MembershipStatus) (domain.Membership, error)
}

type SigningKeys interface {
	// CreateSigningKey stores a new signing key with sealed private key material.
	CreateSigningKey(ctx context.Context, key domain.SigningKey) error

	// GetSigningKeyByKid fetches a signing key by its key identifier.
	GetSigningKeyByKid(ctx context.Context, kid string) (domain.SigningKey, error)

	// ListActiveSigningKeys returns all non-retired, non-expired signing keys
	// ordered by creation date (newest first).
	ListActiveSigningKeys(ctx context.Context) ([]domain.SigningKey, error)

	// ListAllSigningKeys returns all signing keys (including retired and expired)
	// ordered by creation date (newest first).
	ListAllSigningKeys(ctx context.Context) ([]domain.SigningKey, error)

	// RetireSigningKey marks a key as retired. Retired keys still verify.
	RetireSigningKey(ctx context.Context, kid string) error

	// DeleteExpiredSigningKeys removes all keys past their expires_at.
	DeleteExpiredSigningKeys(ctx context.Context) error
}
