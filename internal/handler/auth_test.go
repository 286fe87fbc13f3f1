package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/braincrm/api-gateway/internal/config"
	"github.com/braincrm/api-gateway/internal/middleware"
	"github.com/braincrm/api-gateway/internal/queue"
	"github.com/braincrm/api-gateway/internal/repository"
	"github.com/braincrm/api-gateway/internal/utils"
)

type mailerStub struct {
	events []queue.PasswordResetEvent
	err    error
}

func (m *mailerStub) PublishPasswordReset(_ context.Context, ev queue.PasswordResetEvent) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, ev)
	return nil
}

func newAuthHandler(t *testing.T) (*AuthHandler, sqlmock.Sqlmock, *mailerStub) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mailer := &mailerStub{}
	cfg := config.Config{BcryptCost: bcrypt.MinCost}
	h := NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db), repository.NewResetRepo(db), mailer)
	return h, mock, mailer
}

func doJSON(t *testing.T, h echo.HandlerFunc, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rr := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rr)))
	return rr
}

func userRow(t *testing.T, password string) *sqlmock.Rows {
	t.Helper()
	hash, err := utils.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"id", "login", "name", "email", "password_hash", "is_active", "created_at", "updated_at"}).
		AddRow(42, "a@x.com", "Ana", "a@x.com", hash, true, now, now)
}

func TestLoginSuccess(t *testing.T) {
	h, mock, _ := newAuthHandler(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE login").
		WithArgs("a@x.com").
		WillReturnRows(userRow(t, "correcta"))
	mock.ExpectExec("INSERT INTO auth_tokens").
		WithArgs(uint64(42), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rr := doJSON(t, h.Login, http.MethodPost, "/api/login", `{"login":"a@x.com","password":"correcta"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		UserID            uint64 `json:"user_id"`
		AccessToken       string `json:"access_token"`
		AccessExpiration  int64  `json:"access_expiration"`
		RefreshToken      string `json:"refresh_token"`
		RefreshExpiration int64  `json:"refresh_expiration"`
		Data              struct {
			Name  string  `json:"name"`
			Email *string `json:"email"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.EqualValues(t, 42, resp.UserID)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.NotEqual(t, resp.AccessToken, resp.RefreshToken)
	require.Equal(t, "Ana", resp.Data.Name)
	require.NotNil(t, resp.Data.Email)

	// Epoch-second expirations: 30 minutes and 7 days apart.
	require.Equal(t, int64((repository.RefreshTokenTTL - repository.AccessTokenTTL).Seconds()),
		resp.RefreshExpiration-resp.AccessExpiration)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginWrongPassword(t *testing.T) {
	h, mock, _ := newAuthHandler(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE login").
		WithArgs("a@x.com").
		WillReturnRows(userRow(t, "correcta"))

	rr := doJSON(t, h.Login, http.MethodPost, "/api/login", `{"login":"a@x.com","password":"wrong"}`)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.JSONEq(t, `{"error":"Credenciales inválidas."}`, rr.Body.String())
}

func TestLoginUnknownUser(t *testing.T) {
	h, mock, _ := newAuthHandler(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE login").
		WithArgs("nadie@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "login", "name", "email", "password_hash", "is_active", "created_at", "updated_at"}))

	rr := doJSON(t, h.Login, http.MethodPost, "/api/login", `{"login":"nadie@x.com","password":"x"}`)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.JSONEq(t, `{"error":"Credenciales inválidas."}`, rr.Body.String())
}

func TestLoginMissingFields(t *testing.T) {
	h, _, _ := newAuthHandler(t)

	rr := doJSON(t, h.Login, http.MethodPost, "/api/login", `{"login":"a@x.com"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.JSONEq(t, `{"error":"Debe proporcionar un usuario y contraseña."}`, rr.Body.String())
}

func TestLoginMalformedBody(t *testing.T) {
	h, _, _ := newAuthHandler(t)

	rr := doJSON(t, h.Login, http.MethodPost, "/api/login", `{not-json`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.JSONEq(t, `{"error":"El cuerpo de la solicitud debe estar en formato JSON válido."}`, rr.Body.String())
}

func TestRefreshTokenSuccess(t *testing.T) {
	h, mock, _ := newAuthHandler(t)

	refreshExp := time.Now().UTC().Add(5 * 24 * time.Hour)
	mock.ExpectQuery("SELECT id, access_token, refresh_token_expiration FROM auth_tokens").
		WithArgs("refresh-secret").
		WillReturnRows(sqlmock.NewRows([]string{"id", "access_token", "refresh_token_expiration"}).
			AddRow(5, "old-access", refreshExp))
	mock.ExpectExec("UPDATE auth_tokens SET access_token").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), uint64(5), "old-access").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rr := doJSON(t, h.RefreshToken, http.MethodPost, "/api/refresh_token", `{"refresh_token":"refresh-secret"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		AccessToken       string `json:"access_token"`
		AccessExpiration  int64  `json:"access_expiration"`
		RefreshToken      string `json:"refresh_token"`
		RefreshExpiration int64  `json:"refresh_expiration"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	require.NotEqual(t, "old-access", resp.AccessToken)
	require.Equal(t, "refresh-secret", resp.RefreshToken)
	require.Equal(t, refreshExp.Unix(), resp.RefreshExpiration)
}

func TestRefreshTokenInvalid(t *testing.T) {
	h, mock, _ := newAuthHandler(t)

	mock.ExpectQuery("SELECT id, access_token, refresh_token_expiration FROM auth_tokens").
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id", "access_token", "refresh_token_expiration"}))

	rr := doJSON(t, h.RefreshToken, http.MethodPost, "/api/refresh_token", `{"refresh_token":"nope"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.JSONEq(t, `{"error":"Refresh token inválido."}`, rr.Body.String())
}

func TestRefreshTokenExpired(t *testing.T) {
	h, mock, _ := newAuthHandler(t)

	mock.ExpectQuery("SELECT id, access_token, refresh_token_expiration FROM auth_tokens").
		WithArgs("tired").
		WillReturnRows(sqlmock.NewRows([]string{"id", "access_token", "refresh_token_expiration"}).
			AddRow(5, "old-access", time.Now().UTC().Add(-time.Hour)))

	rr := doJSON(t, h.RefreshToken, http.MethodPost, "/api/refresh_token", `{"refresh_token":"tired"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.JSONEq(t, `{"error":"Refresh token expirado."}`, rr.Body.String())
}

func TestRefreshTokenMissing(t *testing.T) {
	h, _, _ := newAuthHandler(t)

	rr := doJSON(t, h.RefreshToken, http.MethodPost, "/api/refresh_token", `{}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.JSONEq(t, `{"error":"Debe proporcionar un refresh token."}`, rr.Body.String())
}

func TestForgotPasswordPublishesMail(t *testing.T) {
	h, mock, mailer := newAuthHandler(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE login").
		WithArgs("a@x.com").
		WillReturnRows(userRow(t, "correcta"))
	mock.ExpectExec("INSERT INTO password_resets").
		WithArgs(uint64(42), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rr := doJSON(t, h.ForgotPassword, http.MethodPost, "/api/forgot_password", `{"email":"a@x.com"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"success":"Correo de restablecimiento enviado con éxito."}`, rr.Body.String())

	require.Len(t, mailer.events, 1)
	require.EqualValues(t, 42, mailer.events[0].UserID)
	require.Equal(t, "a@x.com", mailer.events[0].Email)
	require.NotEmpty(t, mailer.events[0].ResetToken)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	h, mock, mailer := newAuthHandler(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE login").
		WithArgs("nadie@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "login", "name", "email", "password_hash", "is_active", "created_at", "updated_at"}))

	rr := doJSON(t, h.ForgotPassword, http.MethodPost, "/api/forgot_password", `{"email":"nadie@x.com"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.JSONEq(t, `{"error":"El correo electrónico no está registrado."}`, rr.Body.String())
	require.Empty(t, mailer.events)
}

func TestForgotPasswordBrokerDown(t *testing.T) {
	h, mock, mailer := newAuthHandler(t)
	mailer.err = errors.New("broker unreachable")

	mock.ExpectQuery("SELECT (.+) FROM users WHERE login").
		WithArgs("a@x.com").
		WillReturnRows(userRow(t, "correcta"))
	mock.ExpectExec("INSERT INTO password_resets").
		WithArgs(uint64(42), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rr := doJSON(t, h.ForgotPassword, http.MethodPost, "/api/forgot_password", `{"email":"a@x.com"}`)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestResetPasswordSuccess(t *testing.T) {
	h, mock, _ := newAuthHandler(t)

	live := time.Now().UTC().Add(30 * time.Minute)
	mock.ExpectQuery("SELECT user_id, expiration FROM password_resets").
		WithArgs("reset-tok").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expiration"}).AddRow(42, live))
	mock.ExpectExec("UPDATE password_resets SET used=1").
		WithArgs("reset-tok").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users SET password_hash").
		WithArgs(sqlmock.AnyArg(), uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rr := doJSON(t, h.ResetPassword, http.MethodPost, "/api/reset_password", `{"token":"reset-tok","new_password":"nueva"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"success":"Contraseña actualizada con éxito."}`, rr.Body.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResetPasswordInvalidToken(t *testing.T) {
	h, mock, _ := newAuthHandler(t)

	mock.ExpectQuery("SELECT user_id, expiration FROM password_resets").
		WithArgs("bad").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expiration"}))

	rr := doJSON(t, h.ResetPassword, http.MethodPost, "/api/reset_password", `{"token":"bad","new_password":"nueva"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.JSONEq(t, `{"error":"Token de restablecimiento inválido o expirado."}`, rr.Body.String())
}

// Logout runs behind the gate, so the test goes through BearerAuth with
// the same repositories to prove the session row really disappears.
func TestLogoutDeletesSession(t *testing.T) {
	h, mock, _ := newAuthHandler(t)

	live := time.Now().UTC().Add(10 * time.Minute)
	mock.ExpectQuery("SELECT user_id, access_token_expiration FROM auth_tokens").
		WithArgs("access-secret").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "access_token_expiration"}).AddRow(42, live))
	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs(uint64(42)).
		WillReturnRows(userRow(t, "correcta"))
	mock.ExpectExec("DELETE FROM auth_tokens WHERE access_token").
		WithArgs("access-secret").
		WillReturnResult(sqlmock.NewResult(0, 1))

	e := echo.New()
	gated := middleware.BearerAuth(h.Tokens, h.Users)(h.Logout)
	req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
	req.Header.Set("Authorization", "Bearer access-secret")
	rr := httptest.NewRecorder()
	require.NoError(t, gated(e.NewContext(req, rr)))

	require.Equal(t, http.StatusNoContent, rr.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
