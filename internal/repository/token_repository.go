package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/braincrm/api-gateway/internal/model"
	"github.com/braincrm/api-gateway/internal/utils"
)

// Fixed lifetime policy. These are constants rather than configuration:
// every issuance gets exactly 30 minutes of access and 7 days of refresh,
// and a refresh never moves the 7-day boundary.
const (
	AccessTokenTTL  = 30 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenRepo manages the full lifecycle of bearer token pairs in the
// `auth_tokens` table: issue on login, exact-match validation on every
// request, in-place refresh of the access half, and the expired-row
// sweep. Expiry is enforced at lookup time; the sweep only reclaims rows
// that can never validate again.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Issue creates a fresh token pair for the user and persists it as a new
// row. Existing sessions for the same user are left alone; concurrent
// sessions are allowed.
func (r *TokenRepo) Issue(ctx context.Context, userID uint64) (model.TokenPair, error) {
	access, err := utils.NewSecret(utils.SessionSecretBytes)
	if err != nil {
		return model.TokenPair{}, err
	}
	refresh, err := utils.NewSecret(utils.SessionSecretBytes)
	if err != nil {
		return model.TokenPair{}, err
	}
	now := time.Now().UTC()
	pair := model.TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  now.Add(AccessTokenTTL),
		RefreshToken:     refresh,
		RefreshExpiresAt: now.Add(RefreshTokenTTL),
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO auth_tokens (user_id, access_token, refresh_token, access_token_expiration, refresh_token_expiration) VALUES (?,?,?,?,?)",
		userID, pair.AccessToken, pair.RefreshToken, pair.AccessExpiresAt, pair.RefreshExpiresAt)
	if err != nil {
		return model.TokenPair{}, err
	}
	return pair, nil
}

// ValidateAccess resolves an access secret to its owning user ID. Unknown
// secrets and expired secrets both come back as ErrInvalidToken; any
// other error is a storage failure. The read has no side effects, so
// validation never slides the expiration.
func (r *TokenRepo) ValidateAccess(ctx context.Context, accessSecret string) (uint64, error) {
	var (
		userID    uint64
		expiresAt time.Time
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, access_token_expiration FROM auth_tokens WHERE access_token=? LIMIT 1",
		accessSecret).Scan(&userID, &expiresAt)
	if err == sql.ErrNoRows {
		return 0, ErrInvalidToken
	}
	if err != nil {
		return 0, err
	}
	if !time.Now().UTC().Before(expiresAt) {
		return 0, ErrInvalidToken
	}
	return userID, nil
}

// Refresh mints a new access secret for the row holding refreshSecret and
// writes it in place. The refresh secret and its expiration are left
// untouched, so total session lifetime stays bounded at 7 days regardless
// of activity. The UPDATE is a compare-and-swap on the previously read
// access secret: if another refresh won the race the write affects zero
// rows and ErrRefreshConflict is returned, keeping exactly one live
// access secret per row.
func (r *TokenRepo) Refresh(ctx context.Context, refreshSecret string) (model.TokenPair, error) {
	var (
		id         uint64
		oldAccess  string
		refreshExp time.Time
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, access_token, refresh_token_expiration FROM auth_tokens WHERE refresh_token=? LIMIT 1",
		refreshSecret).Scan(&id, &oldAccess, &refreshExp)
	if err == sql.ErrNoRows {
		return model.TokenPair{}, ErrRefreshNotFound
	}
	if err != nil {
		return model.TokenPair{}, err
	}
	now := time.Now().UTC()
	if !now.Before(refreshExp) {
		return model.TokenPair{}, ErrRefreshExpired
	}

	access, err := utils.NewSecret(utils.SessionSecretBytes)
	if err != nil {
		return model.TokenPair{}, err
	}
	accessExp := now.Add(AccessTokenTTL)
	res, err := r.DB.ExecContext(ctx,
		"UPDATE auth_tokens SET access_token=?, access_token_expiration=? WHERE id=? AND access_token=?",
		access, accessExp, id, oldAccess)
	if err != nil {
		return model.TokenPair{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.TokenPair{}, err
	}
	if n == 0 {
		return model.TokenPair{}, ErrRefreshConflict
	}
	return model.TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refreshSecret,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// DeleteByAccess removes the session row holding accessSecret (logout).
// Deleting an unknown secret is not an error.
func (r *TokenRepo) DeleteByAccess(ctx context.Context, accessSecret string) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM auth_tokens WHERE access_token=?", accessSecret)
	return err
}

// DeleteExpired removes rows whose refresh window has closed. Such rows
// can never validate or refresh again, so removing them changes no
// observable behavior.
func (r *TokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM auth_tokens WHERE refresh_token_expiration < ?", time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
