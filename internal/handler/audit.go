package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/movie-billboard/internal/model"
)

// AuditReader lists recorded catalog events.
type AuditReader interface {
	Recent(ctx context.Context, limit int) ([]model.AuditRecord, error)
}

// AuditHandler exposes the audit log written by the audit consumer.
type AuditHandler struct {
	Repo AuditReader
	Log  *zap.Logger
}

// maxAuditLimit caps ?limit=.
const maxAuditLimit = 500

// ListAudit handles GET /v1/audit?limit=n.
func (h *AuditHandler) ListAudit(c echo.Context) error {
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
		limit = min(n, maxAuditLimit)
	}
	records, err := h.Repo.Recent(c.Request().Context(), limit)
	if err != nil {
		if h.Log != nil {
			h.Log.Error("read audit log", zap.Error(err))
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if records == nil {
		records = []model.AuditRecord{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": records})
}
