package middleware

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/braincrm/api-gateway/internal/model"
	"github.com/braincrm/api-gateway/internal/policy"
)

// MsgAccessDenied is the single message for every authorization failure.
const MsgAccessDenied = "Acceso denegado."

// Env is the execution context handed to a resource handler after the
// gate has let a request through. Handlers act as Env.Principal and must
// not trust identity fields from the request body.
type Env struct {
	Principal model.Principal
}

// Authorize is the authorization half of the access gate. It asks the
// policy checker whether the request's principal may perform op on the
// resource kind. Explicit denial and checker failure both produce a 403:
// an error while deciding is never allowed to widen access, and it must
// not surface as a 500 either, which would leak internal errors on the
// security path. On success it returns the environment handle; on
// failure it writes the response itself and the handler must return the
// error verbatim.
func Authorize(c echo.Context, checker policy.Checker, kind string, op policy.Operation) (*Env, error) {
	p, ok := PrincipalFrom(c)
	if !ok {
		// BearerAuth did not run; refuse rather than act as nobody.
		return nil, c.JSON(http.StatusUnauthorized, echo.Map{"error": MsgMalformedToken})
	}
	if !op.Valid() {
		return nil, c.JSON(http.StatusForbidden, echo.Map{"error": MsgAccessDenied})
	}
	if err := checker.CheckAccess(c.Request().Context(), p, kind, op); err != nil {
		log.Printf("gate: access check user=%d kind=%s op=%s: %v", p.UserID, kind, op, err)
		return nil, c.JSON(http.StatusForbidden, echo.Map{"error": MsgAccessDenied})
	}
	return &Env{Principal: p}, nil
}
