package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-users-api/internal/domain/repository"
	"github.com/oksasatya/go-users-api/pkg/response"
)

type HealthHandler struct {
	Store  repository.Store
	Logger *logrus.Logger
}

func NewHealthHandler(store repository.Store, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{Store: store, Logger: logger}
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		h.Logger.WithError(err).Warn("health check failed")
		response.Error(c, http.StatusServiceUnavailable, "database unavailable", nil)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "ok"})
}
