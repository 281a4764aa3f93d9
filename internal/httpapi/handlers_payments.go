package httpapi

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Omaralyxt/Lumi-Seller/internal/order"
	"github.com/Omaralyxt/Lumi-Seller/internal/payment"
)

func (s *Server) initiatePayment(w http.ResponseWriter, r *http.Request) {
	store, err := s.storeForRequest(r)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	var req struct {
		PhoneNumber string `json:"phone_number"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.paymentSvc.Initiate(r.Context(), store.ID, chi.URLParam(r, "orderID"), req.PhoneNumber)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, payment.ErrInvalidMSISDN), errors.Is(err, payment.ErrInvalidAmount):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.logger.Error("initiate payment", "store_id", store.ID, "err", err)
			writeError(w, http.StatusBadGateway, "payment gateway unavailable")
		}
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// mpesaWebhook receives the gateway's asynchronous payment result. The
// response is always the 200 acknowledgement envelope: delivery is
// at-least-once and a non-2xx only buys another identical retry.
func (s *Server) mpesaWebhook(w http.ResponseWriter, r *http.Request) {
	if s.webhookSecret != "" {
		got := r.Header.Get("X-Webhook-Secret")
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.webhookSecret)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid webhook secret")
			return
		}
	}

	var c payment.Confirmation
	if !decodeBody(w, r, &c) {
		return
	}

	ack := s.paymentSvc.HandleConfirmation(r.Context(), c)
	writeJSON(w, http.StatusOK, ack)
}
