package handler

import (
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/braincrm/api-gateway/internal/middleware"
	"github.com/braincrm/api-gateway/internal/objectstore"
	"github.com/braincrm/api-gateway/internal/policy"
)

const (
	msgPageRange = "Página fuera de rango."
	msgBadID     = "Identificador inválido."
	msgNotFound  = "Registro no encontrado."
)

// ResourceHandler exposes the generic record passthrough: list, create,
// write and unlink on any record kind of the host platform. Every call
// runs the authorization half of the gate for its (kind, operation) pair
// before touching the store, and acts as the gate's resolved principal,
// never as an identity taken from the request body.
type ResourceHandler struct {
	Store  objectstore.Store
	Policy policy.Checker
}

func NewResourceHandler(s objectstore.Store, p policy.Checker) *ResourceHandler {
	return &ResourceHandler{Store: s, Policy: p}
}

type listResp struct {
	Status      string               `json:"status"`
	TotalItems  int                  `json:"total_items"`
	TotalPages  int                  `json:"total_pages"`
	CurrentPage int                  `json:"current_page"`
	Items       []objectstore.Record `json:"items"`
}

// List returns one page of records of the requested kind using the
// page/per_page envelope.
func (h *ResourceHandler) List(c echo.Context) error {
	kind := c.Param("kind")
	env, err := middleware.Authorize(c, h.Policy, kind, policy.OpRead)
	if env == nil {
		return err
	}

	page := queryInt(c, "page", 1)
	perPage := queryInt(c, "per_page", 10)
	if perPage < 1 {
		perPage = 10
	}
	if page < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msgPageRange})
	}

	ctx := c.Request().Context()
	items, total, err := h.Store.Search(ctx, kind, nil, (page-1)*perPage, perPage)
	if err != nil {
		log.Printf("records: search %s for user %d failed: %v", kind, env.Principal.UserID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": msgInternal})
	}

	totalPages := 1
	if total > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(perPage)))
	}
	if page > totalPages {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msgPageRange})
	}
	if items == nil {
		items = []objectstore.Record{}
	}

	return c.JSON(http.StatusOK, listResp{
		Status:      "success",
		TotalItems:  total,
		TotalPages:  totalPages,
		CurrentPage: page,
		Items:       items,
	})
}

// Create inserts a new record of the requested kind.
func (h *ResourceHandler) Create(c echo.Context) error {
	kind := c.Param("kind")
	env, err := middleware.Authorize(c, h.Policy, kind, policy.OpCreate)
	if env == nil {
		return err
	}

	var values objectstore.Record
	if err := c.Bind(&values); err != nil || len(values) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msgBadBody})
	}

	rec, err := h.Store.Create(c.Request().Context(), kind, values)
	if err != nil {
		log.Printf("records: create %s for user %d failed: %v", kind, env.Principal.UserID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": msgInternal})
	}
	return c.JSON(http.StatusCreated, echo.Map{"status": "success", "item": rec})
}

// Write updates fields of an existing record.
func (h *ResourceHandler) Write(c echo.Context) error {
	kind := c.Param("kind")
	env, err := middleware.Authorize(c, h.Policy, kind, policy.OpWrite)
	if env == nil {
		return err
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msgBadID})
	}
	var values objectstore.Record
	if err := c.Bind(&values); err != nil || len(values) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msgBadBody})
	}

	if err := h.Store.Write(c.Request().Context(), kind, id, values); err != nil {
		if errors.Is(err, objectstore.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": msgNotFound})
		}
		log.Printf("records: write %s/%d for user %d failed: %v", kind, id, env.Principal.UserID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": msgInternal})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "success"})
}

// Unlink deletes a record.
func (h *ResourceHandler) Unlink(c echo.Context) error {
	kind := c.Param("kind")
	env, err := middleware.Authorize(c, h.Policy, kind, policy.OpUnlink)
	if env == nil {
		return err
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msgBadID})
	}

	if err := h.Store.Unlink(c.Request().Context(), kind, id); err != nil {
		if errors.Is(err, objectstore.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": msgNotFound})
		}
		log.Printf("records: unlink %s/%d for user %d failed: %v", kind, id, env.Principal.UserID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": msgInternal})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "success"})
}

func queryInt(c echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
