// Package middleware implements the request gate: bearer token
// authentication, the policy authorization step, and rate limiting for
// the unauthenticated auth endpoints.
package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/braincrm/api-gateway/internal/model"
	"github.com/braincrm/api-gateway/internal/repository"
)

// Stable error messages for the authentication path. A missing or
// malformed header is distinguishable from a bad token, but unknown and
// expired tokens share one message so callers cannot probe which secrets
// once existed.
const (
	MsgMalformedToken = "Token de autenticación no proporcionado o mal formado."
	MsgInvalidToken   = "Token inválido o expirado."
	MsgInternal       = "Error interno del servidor."
)

// Context keys set by BearerAuth for downstream handlers.
const (
	ctxPrincipal    = "principal"
	ctxAccessSecret = "access_secret"
)

// AccessValidator resolves an access secret to the owning user id.
// Satisfied by repository.TokenRepo.
type AccessValidator interface {
	ValidateAccess(ctx context.Context, accessSecret string) (uint64, error)
}

// PrincipalLoader fetches the user record behind a validated token.
// Satisfied by repository.UserRepo.
type PrincipalLoader interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// BearerAuth returns the authentication half of the access gate. It
// requires an Authorization header with the literal prefix "Bearer "
// (case-sensitive, single space), validates the remainder against the
// token store, resolves the owning user, and stores the principal in the
// request context. Every request re-reads the store; there is no cached
// validity, so expiry is observed immediately.
func BearerAuth(tokens AccessValidator, users PrincipalLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": MsgMalformedToken})
			}
			secret := strings.TrimPrefix(auth, "Bearer ")
			if secret == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": MsgMalformedToken})
			}

			ctx := c.Request().Context()
			userID, err := tokens.ValidateAccess(ctx, secret)
			if err != nil {
				if errors.Is(err, repository.ErrInvalidToken) {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": MsgInvalidToken})
				}
				log.Printf("gate: token lookup failed: %v", err)
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": MsgInternal})
			}

			u, err := users.GetByID(ctx, userID)
			if err != nil {
				// The user behind a live token is gone or unreadable.
				// Treat as unauthenticated rather than leaking state.
				log.Printf("gate: principal %d load failed: %v", userID, err)
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": MsgInvalidToken})
			}

			c.Set(ctxPrincipal, model.Principal{
				UserID: u.ID,
				Login:  u.Login,
				Name:   u.Name,
				Email:  u.Email,
			})
			c.Set(ctxAccessSecret, secret)
			return next(c)
		}
	}
}

// PrincipalFrom returns the principal stored by BearerAuth.
func PrincipalFrom(c echo.Context) (model.Principal, bool) {
	p, ok := c.Get(ctxPrincipal).(model.Principal)
	return p, ok
}

// AccessSecretFrom returns the raw bearer secret of the current request.
// Logout uses it to delete the session row.
func AccessSecretFrom(c echo.Context) (string, bool) {
	s, ok := c.Get(ctxAccessSecret).(string)
	return s, ok
}
