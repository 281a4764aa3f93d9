package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	store, err := s.storeForRequest(r)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	notifications, err := s.notificationSvc.List(r.Context(), store.ID)
	if err != nil {
		s.logger.Error("list notifications", "store_id", store.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": notifications})
}

func (s *Server) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	store, err := s.storeForRequest(r)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	if err := s.notificationSvc.MarkRead(r.Context(), store.ID, chi.URLParam(r, "notificationID")); err != nil {
		s.logger.Error("mark notification read", "store_id", store.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) markAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	store, err := s.storeForRequest(r)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	if err := s.notificationSvc.MarkAllRead(r.Context(), store.ID); err != nil {
		s.logger.Error("mark all notifications read", "store_id", store.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) dashboardMetrics(w http.ResponseWriter, r *http.Request) {
	store, err := s.storeForRequest(r)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	metrics, err := s.dashboardSvc.Metrics(r.Context(), store.ID)
	if err != nil {
		s.logger.Error("dashboard metrics", "store_id", store.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}
