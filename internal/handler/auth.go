package handler

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/braincrm/api-gateway/internal/config"
	"github.com/braincrm/api-gateway/internal/middleware"
	"github.com/braincrm/api-gateway/internal/queue"
	"github.com/braincrm/api-gateway/internal/repository"
	"github.com/braincrm/api-gateway/internal/utils"
)

// Stable error and success messages for the auth endpoints. The strings
// themselves are the machine-readable codes: clients match on them and
// they never change.
const (
	msgBadBody         = "El cuerpo de la solicitud debe estar en formato JSON válido."
	msgMissingCreds    = "Debe proporcionar un usuario y contraseña."
	msgBadCreds        = "Credenciales inválidas."
	msgMissingRefresh  = "Debe proporcionar un refresh token."
	msgInvalidRefresh  = "Refresh token inválido."
	msgExpiredRefresh  = "Refresh token expirado."
	msgMissingEmail    = "Debe proporcionar un correo electrónico válido."
	msgUnknownEmail    = "El correo electrónico no está registrado."
	msgResetFailed     = "Error al generar el restablecimiento de contraseña."
	msgMissingReset    = "Debe proporcionar el token y la nueva contraseña."
	msgInvalidReset    = "Token de restablecimiento inválido o expirado."
	msgInternal        = "Error interno del servidor."
	msgResetMailSent   = "Correo de restablecimiento enviado con éxito."
	msgPasswordUpdated = "Contraseña actualizada con éxito."
)

// ResetMailer publishes a password-reset mail request for asynchronous
// delivery. Satisfied by queue_publisher.Publisher.
type ResetMailer interface {
	PublishPasswordReset(ctx context.Context, ev queue.PasswordResetEvent) error
}

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
	Resets *repository.ResetRepo
	Mailer ResetMailer
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo, r *repository.ResetRepo, m ResetMailer) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Resets: r, Mailer: m}
}

// ----- DTOs -----

type loginReq struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type forgotReq struct {
	Email string `json:"email"`
}
type resetReq struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type userData struct {
	Name  string  `json:"name"`
	Email *string `json:"email"`
}
type loginResp struct {
	UserID            uint64   `json:"user_id"`
	AccessToken       string   `json:"access_token"`
	AccessExpiration  int64    `json:"access_expiration"`
	RefreshToken      string   `json:"refresh_token"`
	RefreshExpiration int64    `json:"refresh_expiration"`
	Data              userData `json:"data"`
}
type refreshResp struct {
	AccessToken       string `json:"access_token"`
	AccessExpiration  int64  `json:"access_expiration"`
	RefreshToken      string `json:"refresh_token"`
	RefreshExpiration int64  `json:"refresh_expiration"`
}

// Login authenticates a (login, password) pair and issues a fresh token
// pair. Expirations are serialized as Unix epoch seconds.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msgBadBody})
	}
	req.Login = strings.ToLower(strings.TrimSpace(req.Login))
	if req.Login == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msgMissingCreds})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByLogin(ctx, req.Login)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": msgBadCreds})
		}
		log.Printf("auth: user lookup failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": msgInternal})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": msgBadCreds})
	}

	pair, err := h.Tokens.Issue(ctx, u.ID)
	if err != nil {
		log.Printf("auth: issue tokens for user %d failed: %v", u.ID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": msgInternal})
	}

	var email *string
	if u.Email != "" {
		email = &u.Email
	}
	return c.JSON(http.StatusOK, loginResp{
		UserID:            u.ID,
		AccessToken:       pair.AccessToken,
		AccessExpiration:  pair.AccessExpiresAt.Unix(),
		RefreshToken:      pair.RefreshToken,
		RefreshExpiration: pair.RefreshExpiresAt.Unix(),
		Data:              userData{Name: u.Name, Email: email},
	})
}

// RefreshToken exchanges a live refresh secret for a new access secret.
// The refresh secret and its expiration come back unchanged: refreshing
// never extends the session past its original 7-day window.
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msgBadBody})
	}
	raw := strings.TrimSpace(req.RefreshToken)
	if raw == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msgMissingRefresh})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	pair, err := h.Tokens.Refresh(ctx, raw)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRefreshExpired):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": msgExpiredRefresh})
		case errors.Is(err, repository.ErrRefreshNotFound), errors.Is(err, repository.ErrRefreshConflict):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": msgInvalidRefresh})
		}
		log.Printf("auth: refresh failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": msgInternal})
	}

	return c.JSON(http.StatusOK, refreshResp{
		AccessToken:       pair.AccessToken,
		AccessExpiration:  pair.AccessExpiresAt.Unix(),
		RefreshToken:      pair.RefreshToken,
		RefreshExpiration: pair.RefreshExpiresAt.Unix(),
	})
}

// ForgotPassword creates a single-use reset token for the account behind
// the given email and hands the mail off to the broker for delivery.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msgBadBody})
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msgMissingEmail})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByLogin(ctx, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": msgUnknownEmail})
		}
		log.Printf("auth: user lookup failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": msgInternal})
	}

	reset, err := h.Resets.Create(ctx, u.ID)
	if err != nil {
		log.Printf("auth: create reset token for user %d failed: %v", u.ID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": msgResetFailed})
	}

	ev := queue.PasswordResetEvent{
		UserID:      u.ID,
		Email:       u.Email,
		Name:        u.Name,
		ResetToken:  reset.Token,
		ExpiresAt:   reset.ExpiresAt.UTC().Format(time.RFC3339),
		RequestedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := h.Mailer.PublishPasswordReset(ctx, ev); err != nil {
		log.Printf("auth: publish reset mail for user %d failed: %v", u.ID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": msgResetFailed})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": msgResetMailSent})
}

// ResetPassword consumes a reset token and replaces the account password.
// A token is honored at most once; expired or already-used tokens fail
// with the same message as unknown ones.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msgBadBody})
	}
	if strings.TrimSpace(req.Token) == "" || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msgMissingReset})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Resets.Consume(ctx, strings.TrimSpace(req.Token))
	if err != nil {
		if errors.Is(err, repository.ErrResetInvalid) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": msgInvalidReset})
		}
		log.Printf("auth: consume reset token failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": msgInternal})
	}

	hash, err := utils.HashPassword(req.NewPassword, h.Cfg.BcryptCost)
	if err != nil {
		log.Printf("auth: hash password failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": msgInternal})
	}
	if err := h.Users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		log.Printf("auth: update password for user %d failed: %v", userID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": msgInternal})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": msgPasswordUpdated})
}

// Logout deletes the session row behind the request's bearer token.
// Must be registered behind BearerAuth.
func (h *AuthHandler) Logout(c echo.Context) error {
	secret, ok := middleware.AccessSecretFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": middleware.MsgMalformedToken})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tokens.DeleteByAccess(ctx, secret); err != nil {
		log.Printf("auth: logout failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": msgInternal})
	}
	return c.NoContent(http.StatusNoContent)
}
