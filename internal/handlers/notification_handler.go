package handlers

import (
	"fmt"
	"net/http"

	"github.com/blogsphere/backend/internal/models"
	"github.com/blogsphere/backend/internal/services"
	"github.com/blogsphere/backend/pkg/logger"
	"github.com/blogsphere/backend/pkg/middleware"
	"github.com/gorilla/mux"
)

type NotificationHandler struct {
	Service *services.NotificationService
}

func NewNotificationHandler(service *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{Service: service}
}

// GET /api/notifications
func (h *NotificationHandler) GetUserNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	notifications, unread, err := h.Service.ListUnread(r.Context(), user.ID)
	if err != nil {
		logger.Log.Errorf("Failed to fetch notifications: %v", err)
		middleware.WriteError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"notifications": notifications,
		"unreadCount":   unread,
	})
}

// GET /api/notifications/unread-count
func (h *NotificationHandler) UnreadCountHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	unread, err := h.Service.UnreadCount(r.Context(), user.ID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"unreadCount": unread,
	})
}

// POST /api/notifications
func (h *NotificationHandler) CreateNotificationHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.NotificationRequest
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	sent, err := h.Service.Broadcast(r.Context(), user.ID, req)
	if err != nil {
		logger.Log.Errorf("Failed to send notification: %v", err)
		middleware.WriteError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success":       true,
		"notifications": sent,
		"totalSent":     len(sent),
	})
}

// PATCH /api/notifications/{id}/read
func (h *NotificationHandler) MarkAsReadHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	notification, alreadyRead, err := h.Service.MarkRead(r.Context(), mux.Vars(r)["id"], user.ID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	message := "Marked as read"
	if alreadyRead {
		message = "Already read"
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"notification": notification,
		"message":      message,
	})
}

// PATCH /api/notifications/mark-all-read
func (h *NotificationHandler) MarkAllReadHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	modified, err := h.Service.MarkAllRead(r.Context(), user.ID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"message":       fmt.Sprintf("%d notifications marked as read", modified),
		"modifiedCount": modified,
	})
}
