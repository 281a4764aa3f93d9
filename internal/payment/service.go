package payment

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/Omaralyxt/Lumi-Seller/internal/order"
)

var (
	ErrInvalidMSISDN = errors.New("invalid M-Pesa phone number")
	ErrInvalidAmount = errors.New("payment amount must be positive")
)

const minMSISDNLen = 9

// OrderStore is the slice of the order repository the payment flow needs.
type OrderStore interface {
	GetByStore(ctx context.Context, storeID, orderID string) (*order.Order, error)
	ApplyPaymentResult(ctx context.Context, orderNumber string, res order.PaymentResult) (*order.Order, bool, error)
}

// Deduper short-circuits webhook redeliveries by transaction id. It is a
// best-effort first line; the guarded DB update stays authoritative. Unlock
// gives a claimed key back when the result could not be recorded, so a
// redelivery gets another chance instead of being dropped for the key's TTL.
type Deduper interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Unlock(ctx context.Context, scope, key string) error
}

type Service struct {
	orders  OrderStore
	gateway Gateway
	dedupe  Deduper
	spCode  string
	logger  *slog.Logger
}

func NewService(orders OrderStore, gateway Gateway, dedupe Deduper, serviceProviderCode string, logger *slog.Logger) *Service {
	return &Service{
		orders:  orders,
		gateway: gateway,
		dedupe:  dedupe,
		spCode:  serviceProviderCode,
		logger:  logger,
	}
}

// InitiationResult mirrors the contract of the checkout UI: a success flag
// plus either the accepted gateway payload or the gateway's error text.
type InitiationResult struct {
	Success  bool          `json:"success"`
	Response *PushResponse `json:"response,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// Initiate requests a payment push for an order. It never mutates order
// state: payment_status only moves when the gateway's webhook reports the
// outcome. The third-party reference is the order_number, the sole linkage
// the webhook has back to the order.
func (s *Service) Initiate(ctx context.Context, storeID, orderID, msisdn string) (*InitiationResult, error) {
	msisdn = strings.TrimSpace(msisdn)
	if len(msisdn) < minMSISDNLen {
		return nil, ErrInvalidMSISDN
	}

	o, err := s.orders.GetByStore(ctx, storeID, orderID)
	if err != nil {
		return nil, err
	}
	if !o.TotalAmount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	ref := o.ID
	if len(ref) > 8 {
		ref = ref[:8]
	}
	req := PushRequest{
		TransactionReference: "ORD-" + ref,
		CustomerMSISDN:       msisdn,
		Amount:               o.TotalAmount.StringFixed(2),
		ThirdPartyReference:  o.OrderNumber,
		ServiceProviderCode:  s.spCode,
	}

	resp, err := s.gateway.C2BPush(ctx, req)
	if err != nil {
		s.logger.Error("mpesa push failed", "order_id", o.ID, "err", err)
		return nil, err
	}

	if !resp.Accepted() {
		desc := resp.ResponseDesc
		if desc == "" {
			desc = "unknown M-Pesa gateway error"
		}
		s.logger.Warn("mpesa push rejected", "order_id", o.ID, "code", resp.ResponseCode, "desc", desc)
		return &InitiationResult{Success: false, Error: desc}, nil
	}

	s.logger.Info("mpesa push accepted", "order_id", o.ID, "conversation_id", resp.ConversationID)
	return &InitiationResult{Success: true, Response: resp}, nil
}

// Confirmation is the gateway's asynchronous result callback payload.
type Confirmation struct {
	ResultCode          string `json:"input_ResultCode"`
	ThirdPartyReference string `json:"input_ThirdPartyReference"`
	TransactionID       string `json:"input_TransactionID"`
	ConversationID      string `json:"input_OriginalConversationID"`
}

// Acknowledgement is always returned to the gateway with code "0": the
// contract is "result received", decoupled from whether we acted on it, so
// the gateway never retries a permanently unresolvable reference forever.
type Acknowledgement struct {
	OriginalConversationID   string `json:"output_OriginalConversationID"`
	ResponseDesc             string `json:"output_ResponseDesc"`
	ResponseCode             string `json:"output_ResponseCode"`
	ThirdPartyConversationID string `json:"output_ThirdPartyConversationID"`
}

// HandleConfirmation performs the authoritative payment transition. Delivery
// is at-least-once: duplicates are dropped by the transaction-id dedupe when
// available and by the payment_status guard in all cases, so a stale replay
// can never overwrite a status the seller has since advanced.
func (s *Service) HandleConfirmation(ctx context.Context, c Confirmation) Acknowledgement {
	ack := Acknowledgement{
		OriginalConversationID:   c.ConversationID,
		ResponseDesc:             "Successfully Accepted Result",
		ResponseCode:             "0",
		ThirdPartyConversationID: c.ThirdPartyReference,
	}

	var locked bool
	if s.dedupe != nil && c.TransactionID != "" {
		fresh, err := s.dedupe.TryLock(ctx, "mpesa-webhook", c.TransactionID)
		if err != nil {
			s.logger.Warn("webhook dedupe unavailable", "err", err)
		} else if !fresh {
			s.logger.Info("duplicate webhook dropped", "transaction_id", c.TransactionID)
			return ack
		} else {
			locked = true
		}
	}

	res := order.PaymentResult{
		Paid:          c.ResultCode == "0",
		TransactionID: c.TransactionID,
	}

	o, applied, err := s.orders.ApplyPaymentResult(ctx, c.ThirdPartyReference, res)
	if err != nil {
		// Nothing was recorded, so the dedupe key must not swallow the
		// gateway's next redelivery of this transaction.
		if locked {
			if unlockErr := s.dedupe.Unlock(ctx, "mpesa-webhook", c.TransactionID); unlockErr != nil {
				s.logger.Warn("webhook dedupe release failed", "transaction_id", c.TransactionID, "err", unlockErr)
			}
		}
		if errors.Is(err, order.ErrOrderNotFound) {
			s.logger.Error("webhook for unknown reference", "third_party_ref", c.ThirdPartyReference)
			ack.ResponseDesc = "Successfully Accepted Result, but Order not found"
			return ack
		}
		s.logger.Error("apply payment result failed", "third_party_ref", c.ThirdPartyReference, "err", err)
		return ack
	}

	if !applied {
		s.logger.Info("webhook ignored, order already settled",
			"order_id", o.ID, "status", o.Status, "payment_status", o.PaymentStatus)
		return ack
	}

	s.logger.Info("payment result applied",
		"order_id", o.ID, "status", o.Status, "transaction_id", c.TransactionID)
	return ack
}
