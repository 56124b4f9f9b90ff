package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/aussiebroadwan/tenantgate/internal/gateway/domain"
	"github.com/aussiebroadwan/tenantgate/internal/gateway/store"
)

type accountsRepo struct {
	db dbtx
}

const accountColumns = `id, subject, email, display_name, created_at`

func scanAccount(row pgx.Row) (domain.Account, error) {
	var a domain.Account
	if err := row.Scan(&a.ID, &a.Subject, &a.Email, &a.DisplayName, &a.CreatedAt); err != nil {
		return domain.Account{}, mapErr(err)
	}
	return a, nil
}

func (r *accountsRepo) EnsureAccount(ctx context.Context, a domain.Account) (domain.Account, bool, error) {
	const q = `INSERT INTO accounts (id, subject, email, display_name, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (subject) DO UPDATE SET email = EXCLUDED.email, display_name = EXCLUDED.display_name
		RETURNING ` + accountColumns
	got, err := scanAccount(r.db.QueryRow(ctx, q, a.ID, a.Subject, a.Email, a.DisplayName, a.CreatedAt.UTC()))
	if err != nil {
		return domain.Account{}, false, err
	}
	return got, got.ID == a.ID, nil
}

func (r *accountsRepo) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	return scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

func (r *accountsRepo) GetAccountBySubject(ctx context.Context, subject string) (domain.Account, error) {
	return scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE subject = $1`, subject))
}

func (r *accountsRepo) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM accounts WHERE lower(email) = lower($1) ORDER BY created_at, id LIMIT 1`
	return scanAccount(r.db.QueryRow(ctx, q, email))
}

func (r *accountsRepo) LockAccount(ctx context.Context, id string) error {
	var got string
	return mapErr(r.db.QueryRow(ctx, `SELECT id FROM accounts WHERE id = $1 FOR UPDATE`, id).Scan(&got))
}

type tenantsRepo struct {
	db dbtx
}

func (r *tenantsRepo) CreateTenant(ctx context.Context, t domain.Tenant) error {
	_, err := r.db.Exec(ctx, `INSERT INTO tenants (id, name, created_at) VALUES ($1, $2, $3)`, t.ID, t.Name, t.CreatedAt.UTC())
	return mapErr(err)
}

func (r *tenantsRepo) GetTenant(ctx context.Context, id string) (domain.Tenant, error) {
	var t domain.Tenant
	err := r.db.QueryRow(ctx, `SELECT id, name, created_at FROM tenants WHERE id = $1`, id).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err != nil {
		return domain.Tenant{}, mapErr(err)
	}
	return t, nil
}

func (r *tenantsRepo) CountTenants(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM tenants`).Scan(&n); err != nil {
		return 0, mapErr(err)
	}
	return n, nil
}

type membershipsRepo struct {
	db dbtx
}

const membershipColumns = `m.id, m.account_id, m.tenant_id, m.role, m.status, COALESCE(m.invited_by, ''), m.created_at, m.updated_at`

func scanMembership(row pgx.Row, extra ...any) (domain.Membership, error) {
	var m domain.Membership
	dest := append([]any{&m.ID, &m.AccountID, &m.TenantID, &m.Role, &m.Status, &m.InvitedBy, &m.CreatedAt, &m.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return domain.Membership{}, mapErr(err)
	}
	return m, nil
}

func scanTenantMembership(row pgx.Row) (domain.TenantMembership, error) {
	var name string
	m, err := scanMembership(row, &name)
	if err != nil {
		return domain.TenantMembership{}, err
	}
	return domain.TenantMembership{Membership: m, TenantName: name}, nil
}

func (r *membershipsRepo) CreateMembership(ctx context.Context, m domain.Membership) error {
	const q = `INSERT INTO memberships (id, account_id, tenant_id, role, status, invited_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)`
	_, err := r.db.Exec(ctx, q, m.ID, m.AccountID, m.TenantID, string(m.Role), string(m.Status),
		m.InvitedBy, m.CreatedAt.UTC(), m.UpdatedAt.UTC())
	return mapErr(err)
}

func (r *membershipsRepo) GetMembership(ctx context.Context, id string) (domain.Membership, error) {
	return scanMembership(r.db.QueryRow(ctx, `SELECT `+membershipColumns+` FROM memberships m WHERE m.id = $1`, id))
}

func (r *membershipsRepo) GetMembershipForTenant(ctx context.Context, accountID, tenantID string) (domain.TenantMembership, error) {
	const q = `SELECT ` + membershipColumns + `, t.name FROM memberships m
		JOIN tenants t ON t.id = m.tenant_id
		WHERE m.account_id = $1 AND m.tenant_id = $2`
	return scanTenantMembership(r.db.QueryRow(ctx, q, accountID, tenantID))
}

func (r *membershipsRepo) ListMembershipsByAccount(ctx context.Context, accountID string) ([]domain.TenantMembership, error) {
	const q = `SELECT ` + membershipColumns + `, t.name FROM memberships m
		JOIN tenants t ON t.id = m.tenant_id
		WHERE m.account_id = $1
		ORDER BY m.created_at, m.id`
	rows, err := r.db.Query(ctx, q, accountID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []domain.TenantMembership
	for rows.Next() {
		m, err := scanTenantMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, mapErr(rows.Err())
}

func (r *membershipsRepo) UpdateMembershipStatus(ctx context.Context, id string, expected, next domain.MembershipStatus) (domain.Membership, error) {
	const q = `UPDATE memberships m SET status = $1, updated_at = now()
		WHERE m.id = $2 AND m.status = $3
		RETURNING ` + membershipColumns
	m, err := scanMembership(r.db.QueryRow(ctx, q, string(next), id, string(expected)))
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.Membership{}, err
	}

	// Nothing updated: either the row is missing or its status moved on
	if _, err := r.GetMembership(ctx, id); err != nil {
		return domain.Membership{}, err
	}
	return domain.Membership{}, store.ErrStatusMismatch
}

type signingKeysRepo struct {
	db dbtx
}

const signingKeyColumns = `id, kid, algorithm, private_key_sealed, created_at, retired_at, expires_at`

func scanSigningKey(row pgx.Row) (domain.SigningKey, error) {
	var k domain.SigningKey
	if err := row.Scan(&k.ID, &k.Kid, &k.Algorithm, &k.PrivateKeySealed, &k.CreatedAt, &k.RetiredAt, &k.ExpiresAt); err != nil {
		return domain.SigningKey{}, mapErr(err)
	}
	return k, nil
}

func (r *signingKeysRepo) list(ctx context.Context, q string) ([]domain.SigningKey, error) {
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var keys []domain.SigningKey
	for rows.Next() {
		k, err := scanSigningKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, mapErr(rows.Err())
}

func (r *signingKeysRepo) CreateSigningKey(ctx context.Context, key domain.SigningKey) error {
	const q = `INSERT INTO signing_keys (id, kid, algorithm, private_key_sealed, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.Exec(ctx, q, key.ID, key.Kid, key.Algorithm, key.PrivateKeySealed, key.CreatedAt.UTC(), key.ExpiresAt.UTC())
	return mapErr(err)
}

func (r *signingKeysRepo) GetSigningKeyByKid(ctx context.Context, kid string) (domain.SigningKey, error) {
	return scanSigningKey(r.db.QueryRow(ctx, `SELECT `+signingKeyColumns+` FROM signing_keys WHERE kid = $1`, kid))
}

func (r *signingKeysRepo) ListActiveSigningKeys(ctx context.Context) ([]domain.SigningKey, error) {
	return r.list(ctx, `SELECT `+signingKeyColumns+` FROM signing_keys
		WHERE retired_at IS NULL AND expires_at > now()
		ORDER BY created_at DESC, id DESC`)
}

func (r *signingKeysRepo) ListAllSigningKeys(ctx context.Context) ([]domain.SigningKey, error) {
	return r.list(ctx, `SELECT `+signingKeyColumns+` FROM signing_keys ORDER BY created_at DESC, id DESC`)
}

func (r *signingKeysRepo) RetireSigningKey(ctx context.Context, kid string) error {
	_, err := r.db.Exec(ctx, `UPDATE signing_keys SET retired_at = now() WHERE kid = $1 AND retired_at IS NULL`, kid)
	return mapErr(err)
}

func (r *signingKeysRepo) DeleteExpiredSigningKeys(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `DELETE FROM signing_keys WHERE expires_at <= now()`)
	return mapErr(err)
}
