package handlers

import (
	"net/http"
	"strconv"

	"timekeeper/middleware"
	"timekeeper/services"

	"github.com/go-chi/chi/v5"
)

type NotificationHandler struct {
	notifications *services.Notifications
}

func NewNotificationHandler(notifications *services.Notifications) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	list, err := h.notifications.List(r.Context(), user.ID, queryBool(r, "unread"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if err := h.notifications.MarkRead(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
