package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Omaralyxt/Lumi-Seller/internal/order"
)

func (s *Server) checkout(w http.ResponseWriter, r *http.Request) {
	var in order.CheckoutInput
	if !decodeBody(w, r, &in) {
		return
	}

	o, err := s.orderSvc.Checkout(r.Context(), in)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	store, err := s.storeForRequest(r)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	orders, err := s.orderSvc.List(r.Context(), store.ID)
	if err != nil {
		s.logger.Error("list orders", "store_id", store.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	store, err := s.storeForRequest(r)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	o, err := s.orderSvc.Get(r.Context(), store.ID, chi.URLParam(r, "orderID"))
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		s.logger.Error("get order", "store_id", store.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	store, err := s.storeForRequest(r)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	var req struct {
		Status       order.Status `json:"status"`
		TrackingCode *string      `json:"tracking_code"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	o, err := s.orderSvc.UpdateStatus(r.Context(), store.ID, chi.URLParam(r, "orderID"), req.Status, req.TrackingCode)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, order.ErrInvalidTransition):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, order.ErrEmptyUpdate):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.logger.Error("update order status", "store_id", store.ID, "err", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, o)
}
