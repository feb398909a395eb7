package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"scrapdeal/internal/cache"
)

// HealthHandler reports dependency status.
type HealthHandler struct {
	db    *gorm.DB
	cache *cache.Client
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db *gorm.DB, cacheClient *cache.Client) *HealthHandler {
	return &HealthHandler{db: db, cache: cacheClient}
}

// HealthResponse is the health probe body. Redis being down only degrades the service.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

// Check godoc
// @Summary Liveness and dependency check
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /healthz [get]
func (h *HealthHandler) Check(c echo.Context) error {
	ctx := c.Request().Context()
	resp := HealthResponse{Status: "ok", Database: "up", Redis: "up"}
	status := http.StatusOK

	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		resp.Status, resp.Database = "unavailable", "down"
		status = http.StatusServiceUnavailable
	}
	if err := h.cache.Ping(ctx); err != nil {
		resp.Redis = "down"
		if status == http.StatusOK {
			resp.Status = "degraded"
		}
	}

	return c.JSON(status, resp)
}
