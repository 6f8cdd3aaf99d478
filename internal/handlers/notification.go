package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vendalab/impact-backend/internal/requestdata"
	"github.com/vendalab/impact-backend/internal/services"
)

type NotificationHandler struct {
	notificationService services.NotificationService
}

func NewNotificationHandler(notificationService services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

func (nh *NotificationHandler) Broadcast(c *gin.Context) {
	var req services.BroadcastInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	row, err := nh.notificationService.Broadcast(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrForbidden) {
			RespondError(c, http.StatusForbidden, "forbidden", err)
			return
		}
		RespondError(c, http.StatusBadRequest, "broadcast_failed", err)
		return
	}
	RespondOK(c, row)
}

func (nh *NotificationHandler) List(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	limit, _ := strconv.Atoi(c.Query("limit"))
	views, err := nh.notificationService.List(c.Request.Context(), rd.UserID, limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondOK(c, gin.H{"notifications": views})
}

func (nh *NotificationHandler) MarkRead(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	notificationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := nh.notificationService.MarkRead(c.Request.Context(), notificationID, rd.UserID); err != nil {
		RespondError(c, http.StatusBadRequest, "mark_read_failed", err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}

func (nh *NotificationHandler) MarkAllRead(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if err := nh.notificationService.MarkAllRead(c.Request.Context(), rd.UserID); err != nil {
		RespondError(c, http.StatusInternalServerError, "mark_all_read_failed", err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}

func (nh *NotificationHandler) UnreadCount(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	count, err := nh.notificationService.UnreadCount(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondOK(c, gin.H{"unread": count})
}
