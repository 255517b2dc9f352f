package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/research-review/internal/interface/http/dto"
	"github.com/ignatzorin/research-review/internal/interface/http/response"
	"github.com/ignatzorin/research-review/internal/service"
)

type NotificationHandler struct {
	notifications *service.NotificationService
}

func NewNotificationHandler(notifications *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// ListNotifications обслуживает GET /api/notifications?unread=true.
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	items, err := h.notifications.ListNotifications(ctx, actor.ID, parseIntQuery(c, "limit", 20), parseIntQuery(c, "offset", 0), c.Query("unread") == "true")
	if err != nil {
		response.Error(c, err)
		return
	}
	unread, err := h.notifications.CountUnread(ctx, actor.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.NotificationListResponse{Items: dto.ToNotificationResponses(items), Unread: unread})
}

func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id", "некорректный ID уведомления")
	if !ok {
		return
	}

	if err := h.notifications.MarkAsRead(c.Request.Context(), id, actor.ID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"id": id, "is_read": true})
}
