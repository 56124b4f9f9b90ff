package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/tenantgate/internal/gateway/domain"
	"github.com/aussiebroadwan/tenantgate/internal/gateway/store"
)

type accountsRepo struct {
	db dbtx
}

const accountColumns = `id, subject, email, display_name, created_at`

func scanAccount(row interface{ Scan(...any) error }) (domain.Account, error) {
	var a domain.Account
	if err := row.Scan(&a.ID, &a.Subject, &a.Email, &a.DisplayName, &a.CreatedAt); err != nil {
		return domain.Account{}, mapErr(err)
	}
	return a, nil
}

func (r *accountsRepo) EnsureAccount(ctx context.Context, a domain.Account) (domain.Account, bool, error) {
	const q = `INSERT INTO accounts (id, subject, email, display_name, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (subject) DO UPDATE SET email = excluded.email, display_name = excluded.display_name`
	if _, err := r.db.ExecContext(ctx, q, a.ID, a.Subject, a.Email, a.DisplayName, a.CreatedAt.UTC()); err != nil {
		return domain.Account{}, false, mapErr(err)
	}

	got, err := r.GetAccountBySubject(ctx, a.Subject)
	if err != nil {
		return domain.Account{}, false, err
	}
	return got, got.ID == a.ID, nil
}

func (r *accountsRepo) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	return scanAccount(r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
}

func (r *accountsRepo) GetAccountBySubject(ctx context.Context, subject string) (domain.Account, error) {
	return scanAccount(r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE subject = ?`, subject))
}

func (r *accountsRepo) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM accounts WHERE email = ? COLLATE NOCASE ORDER BY created_at, id LIMIT 1`
	return scanAccount(r.db.QueryRowContext(ctx, q, email))
}

// LockAccount issues a no-op write so the transaction holds sqlite's write
// lock from this point on.
func (r *accountsRepo) LockAccount(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET id = id WHERE id = ?`, id)
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

type tenantsRepo struct {
	db dbtx
}

func (r *tenantsRepo) CreateTenant(ctx context.Context, t domain.Tenant) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO tenants (id, name, created_at) VALUES (?, ?, ?)`,
		t.ID, t.Name, t.CreatedAt.UTC())
	return mapErr(err)
}

func (r *tenantsRepo) GetTenant(ctx context.Context, id string) (domain.Tenant, error) {
	var t domain.Tenant
	err := r.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM tenants WHERE id = ?`, id).
		Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err != nil {
		return domain.Tenant{}, mapErr(err)
	}
	return t, nil
}

func (r *tenantsRepo) CountTenants(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tenants`).Scan(&n); err != nil {
		return 0, mapErr(err)
	}
	return n, nil
}

// now is the store's clock for updated_at columns.
var now = func() time.Time { return time.Now().UTC() }
