package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"taskboard/internal/domain"
)

const defaultNotificationLimit = 20

type NotificationResponse struct {
	ID        int64                   `json:"id"`
	Type      domain.NotificationType `json:"type"`
	Message   string                  `json:"message"`
	Link      string                  `json:"link,omitempty"`
	Read      bool                    `json:"read"`
	CreatedAt string                  `json:"created_at"`
}

func notificationToResponse(n domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Message:   n.Message,
		Link:      n.Link,
		Read:      n.Read,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
	}
}

func (h *Handler) listNotifications(c *gin.Context) {
	limit := defaultNotificationLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	notifications, err := h.notifications.ListRecent(c.Request.Context(), currentUserID(c), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := make([]NotificationResponse, len(notifications))
	for i := range notifications {
		resp[i] = notificationToResponse(notifications[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) markNotificationRead(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	// Unknown ids are deliberately indistinguishable from already-read
	// ones; the client only needs the flag to end up set.
	if err := h.notifications.MarkRead(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"read": id})
}
