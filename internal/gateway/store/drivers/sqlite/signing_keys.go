package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/tenantgate/internal/gateway/domain"
)

type signingKeysRepo struct {
	db dbtx
}

const signingKeyColumns = `id, kid, algorithm, private_key_sealed, created_at, retired_at, expires_at`

func scanSigningKey(row interface{ Scan(...any) error }) (domain.SigningKey, error) {
	var (
		k       domain.SigningKey
		retired sql.NullTime
	)
	if err := row.Scan(&k.ID, &k.Kid, &k.Algorithm, &k.PrivateKeySealed, &k.CreatedAt, &retired, &k.ExpiresAt); err != nil {
		return domain.SigningKey{}, mapErr(err)
	}
	if retired.Valid {
		t := retired.Time
		k.RetiredAt = &t
	}
	return k, nil
}

func (r *signingKeysRepo) list(ctx context.Context, q string, args ...any) ([]domain.SigningKey, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
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
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, key.ID, key.Kid, key.Algorithm, key.PrivateKeySealed,
		key.CreatedAt.UTC(), key.ExpiresAt.UTC())
	return mapErr(err)
}

func (r *signingKeysRepo) GetSigningKeyByKid(ctx context.Context, kid string) (domain.SigningKey, error) {
	return scanSigningKey(r.db.QueryRowContext(ctx, `SELECT `+signingKeyColumns+` FROM signing_keys WHERE kid = ?`, kid))
}

func (r *signingKeysRepo) ListActiveSigningKeys(ctx context.Context) ([]domain.SigningKey, error) {
	return r.list(ctx, `SELECT `+signingKeyColumns+` FROM signing_keys
		WHERE retired_at IS NULL AND expires_at > ?
		ORDER BY created_at DESC, id DESC`, now())
}

func (r *signingKeysRepo) ListAllSigningKeys(ctx context.Context) ([]domain.SigningKey, error) {
	return r.list(ctx, `SELECT `+signingKeyColumns+` FROM signing_keys ORDER BY created_at DESC, id DESC`)
}

func (r *signingKeysRepo) RetireSigningKey(ctx context.Context, kid string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE signing_keys SET retired_at = ? WHERE kid = ? AND retired_at IS NULL`, now(), kid)
	return mapErr(err)
}

func (r *signingKeysRepo) DeleteExpiredSigningKeys(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM signing_keys WHERE expires_at <= ?`, now())
	return mapErr(err)
}
