package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/braincrm/api-gateway/internal/model"
	"github.com/braincrm/api-gateway/internal/utils"
)

// ResetTokenTTL bounds how long a password reset link stays valid.
const ResetTokenTTL = time.Hour

// ResetRepo manages single-use password reset tokens in the
// `password_resets` table.
type ResetRepo struct{ DB *sql.DB }

func NewResetRepo(db *sql.DB) *ResetRepo { return &ResetRepo{DB: db} }

// Create issues a reset token for the user, valid for one hour.
func (r *ResetRepo) Create(ctx context.Context, userID uint64) (model.PasswordReset, error) {
	secret, err := utils.NewSecret(utils.ResetSecretBytes)
	if err != nil {
		return model.PasswordReset{}, err
	}
	reset := model.PasswordReset{
		UserID:    userID,
		Token:     secret,
		ExpiresAt: time.Now().UTC().Add(ResetTokenTTL),
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO password_resets (user_id, reset_token, expiration, used) VALUES (?,?,?,0)",
		reset.UserID, reset.Token, reset.ExpiresAt)
	if err != nil {
		return model.PasswordReset{}, err
	}
	if id, err := res.LastInsertId(); err == nil {
		reset.ID = uint64(id)
	}
	return reset, nil
}

// Consume atomically marks the reset token as used and returns its owner.
// Unknown, expired and already-used tokens all fail with ErrResetInvalid.
// The used flag is flipped in the same UPDATE that checks it, so two
// concurrent consumers cannot both succeed.
func (r *ResetRepo) Consume(ctx context.Context, token string) (uint64, error) {
	var (
		userID    uint64
		expiresAt time.Time
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, expiration FROM password_resets WHERE reset_token=? AND used=0 LIMIT 1",
		token).Scan(&userID, &expiresAt)
	if err == sql.ErrNoRows {
		return 0, ErrResetInvalid
	}
	if err != nil {
		return 0, err
	}
	if !time.Now().UTC().Before(expiresAt) {
		return 0, ErrResetInvalid
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE password_resets SET used=1 WHERE reset_token=? AND used=0", token)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrResetInvalid
	}
	return userID, nil
}

// DeleteStale removes reset rows that are used or past expiration.
func (r *ResetRepo) DeleteStale(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM password_resets WHERE used=1 OR expiration < ?", time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
