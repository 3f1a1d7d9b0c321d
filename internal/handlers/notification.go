package handlers

import (
	"net/http"

	"cinesocial/internal/middleware"
	"cinesocial/internal/services"
	"cinesocial/internal/utils"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func (h *NotificationHandler) List(c *gin.Context) {
	page := utils.StringToIntDefault(c.Query("page"), 1)
	pageSize := utils.StringToIntDefault(c.Query("pageSize"), 50)

	result, err := h.notifications.List(c.Request.Context(), middleware.CurrentIdentity(c), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "notifications retrieved", result)
}

func (h *NotificationHandler) Read(c *gin.Context) {
	id, ok := uuidParam(c, "id", services.ErrNotificationNotFound)
	if !ok {
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), middleware.CurrentIdentity(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "notification read", nil)
}

func (h *NotificationHandler) ReadAll(c *gin.Context) {
	if err := h.notifications.MarkAllRead(c.Request.Context(), middleware.CurrentIdentity(c)); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "all notifications read", nil)
}
