package payment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Omaralyxt/Lumi-Seller/internal/order"
)

type fakeOrderStore struct {
	order     *order.Order
	applied   []order.PaymentResult
	appliedOK bool
	failNext  error
}

func (f *fakeOrderStore) GetByStore(_ context.Context, storeID, orderID string) (*order.Order, error) {
	if f.order == nil || f.order.StoreID != storeID || f.order.ID != orderID {
		return nil, order.ErrOrderNotFound
	}
	return f.order, nil
}

func (f *fakeOrderStore) ApplyPaymentResult(_ context.Context, orderNumber string, res order.PaymentResult) (*order.Order, bool, error) {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return nil, false, err
	}
	if f.order == nil || f.order.OrderNumber != orderNumber {
		return nil, false, order.ErrOrderNotFound
	}
	f.applied = append(f.applied, res)
	if !f.appliedOK {
		return f.order, false, nil
	}
	if res.Paid {
		f.order.Status = order.StatusPaid
		f.order.PaymentStatus = order.PaymentPaid
		f.order.MpesaTransactionID = res.TransactionID
	} else {
		f.order.Status = order.StatusCanceled
		f.order.PaymentStatus = order.PaymentFailed
	}
	return f.order, true, nil
}

type fakeGateway struct {
	resp *PushResponse
	err  error
	got  *PushRequest
}

func (f *fakeGateway) C2BPush(_ context.Context, req PushRequest) (*PushResponse, error) {
	f.got = &req
	return f.resp, f.err
}

type fakeDeduper struct {
	seen map[string]bool
}

func (f *fakeDeduper) TryLock(_ context.Context, scope, key string) (bool, error) {
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	k := scope + ":" + key
	if f.seen[k] {
		return false, nil
	}
	f.seen[k] = true
	return true, nil
}

func (f *fakeDeduper) Unlock(_ context.Context, scope, key string) error {
	delete(f.seen, scope+":"+key)
	return nil
}

func testOrder() *order.Order {
	return &order.Order{
		ID:            "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee",
		StoreID:       "store-1",
		OrderNumber:   "ORD-1700000000000000000",
		TotalAmount:   decimal.RequireFromString("1500.00"),
		Status:        order.StatusPending,
		PaymentStatus: order.PaymentAwaiting,
	}
}

func newPaymentService(store OrderStore, gw Gateway, dedupe Deduper) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, gw, dedupe, "171717", logger)
}

func TestInitiateSuccess(t *testing.T) {
	store := &fakeOrderStore{order: testOrder()}
	gw := &fakeGateway{resp: &PushResponse{ResponseCode: "0", ConversationID: "conv-1"}}
	svc := newPaymentService(store, gw, nil)

	result, err := svc.Initiate(context.Background(), "store-1", store.order.ID, "258841234567")
	require.NoError(t, err)

	assert.True(t, result.Success)
	require.NotNil(t, gw.got)
	assert.Equal(t, "ORD-aaaaaaaa", gw.got.TransactionReference)
	assert.Equal(t, store.order.OrderNumber, gw.got.ThirdPartyReference,
		"the webhook resolves the order through this reference")
	assert.Equal(t, "1500.00", gw.got.Amount)
	assert.Equal(t, "171717", gw.got.ServiceProviderCode)

	assert.Empty(t, store.applied, "initiation must not touch payment state")
	assert.Equal(t, order.PaymentAwaiting, store.order.PaymentStatus)
}

func TestInitiateGatewayRejection(t *testing.T) {
	store := &fakeOrderStore{order: testOrder()}
	gw := &fakeGateway{resp: &PushResponse{ResponseCode: "INS-2006", ResponseDesc: "Insufficient balance"}}
	svc := newPaymentService(store, gw, nil)

	result, err := svc.Initiate(context.Background(), "store-1", store.order.ID, "258841234567")
	require.NoError(t, err, "a rejection is a result, not a call failure")

	assert.False(t, result.Success)
	assert.Equal(t, "Insufficient balance", result.Error)
}

func TestInitiateValidation(t *testing.T) {
	store := &fakeOrderStore{order: testOrder()}
	svc := newPaymentService(store, &fakeGateway{}, nil)

	_, err := svc.Initiate(context.Background(), "store-1", store.order.ID, "8412")
	assert.ErrorIs(t, err, ErrInvalidMSISDN)

	store.order.TotalAmount = decimal.Zero
	_, err = svc.Initiate(context.Background(), "store-1", store.order.ID, "258841234567")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.Initiate(context.Background(), "store-1", "unknown-order", "258841234567")
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestHandleConfirmationPaid(t *testing.T) {
	store := &fakeOrderStore{order: testOrder(), appliedOK: true}
	svc := newPaymentService(store, &fakeGateway{}, &fakeDeduper{})

	ack := svc.HandleConfirmation(context.Background(), Confirmation{
		ResultCode:          "0",
		ThirdPartyReference: store.order.OrderNumber,
		TransactionID:       "TX100",
		ConversationID:      "conv-1",
	})

	assert.Equal(t, "0", ack.ResponseCode)
	assert.Equal(t, "conv-1", ack.OriginalConversationID)
	assert.Equal(t, order.StatusPaid, store.order.Status)
	assert.Equal(t, order.PaymentPaid, store.order.PaymentStatus)
	assert.Equal(t, "TX100", store.order.MpesaTransactionID)
}

func TestHandleConfirmationFailure(t *testing.T) {
	store := &fakeOrderStore{order: testOrder(), appliedOK: true}
	svc := newPaymentService(store, &fakeGateway{}, &fakeDeduper{})

	ack := svc.HandleConfirmation(context.Background(), Confirmation{
		ResultCode:          "INS-6",
		ThirdPartyReference: store.order.OrderNumber,
		TransactionID:       "TX101",
	})

	assert.Equal(t, "0", ack.ResponseCode, "failed results are still acknowledged")
	assert.Equal(t, order.PaymentFailed, store.order.PaymentStatus)
	assert.Equal(t, order.StatusCanceled, store.order.Status)
}

func TestHandleConfirmationDuplicateDropped(t *testing.T) {
	store := &fakeOrderStore{order: testOrder(), appliedOK: true}
	svc := newPaymentService(store, &fakeGateway{}, &fakeDeduper{})

	c := Confirmation{
		ResultCode:          "0",
		ThirdPartyReference: store.order.OrderNumber,
		TransactionID:       "TX100",
	}

	first := svc.HandleConfirmation(context.Background(), c)
	second := svc.HandleConfirmation(context.Background(), c)

	assert.Equal(t, "0", first.ResponseCode)
	assert.Equal(t, "0", second.ResponseCode, "redelivery still gets the acceptance envelope")
	assert.Len(t, store.applied, 1, "the duplicate must not reach the order store")
}

func TestHandleConfirmationAlreadySettled(t *testing.T) {
	store := &fakeOrderStore{order: testOrder(), appliedOK: false}
	store.order.Status = order.StatusShipped
	store.order.PaymentStatus = order.PaymentPaid
	svc := newPaymentService(store, &fakeGateway{}, nil)

	ack := svc.HandleConfirmation(context.Background(), Confirmation{
		ResultCode:          "0",
		ThirdPartyReference: store.order.OrderNumber,
		TransactionID:       "TX200",
	})

	assert.Equal(t, "0", ack.ResponseCode)
	assert.Equal(t, order.StatusShipped, store.order.Status, "a stale replay never rewinds the lifecycle")
}

func TestHandleConfirmationUnknownReference(t *testing.T) {
	store := &fakeOrderStore{order: testOrder(), appliedOK: true}
	svc := newPaymentService(store, &fakeGateway{}, nil)

	ack := svc.HandleConfirmation(context.Background(), Confirmation{
		ResultCode:          "0",
		ThirdPartyReference: "ORD-does-not-exist",
		TransactionID:       "TX300",
	})

	assert.Equal(t, "0", ack.ResponseCode)
	assert.Contains(t, ack.ResponseDesc, "Order not found")
	assert.Equal(t, order.PaymentAwaiting, store.order.PaymentStatus, "no other order may be touched")
}

func TestHandleConfirmationRedeliveryAfterApplyFailure(t *testing.T) {
	store := &fakeOrderStore{order: testOrder(), appliedOK: true, failNext: errors.New("db connection lost")}
	dedupe := &fakeDeduper{}
	svc := newPaymentService(store, &fakeGateway{}, dedupe)

	c := Confirmation{
		ResultCode:          "0",
		ThirdPartyReference: store.order.OrderNumber,
		TransactionID:       "TX500",
	}

	first := svc.HandleConfirmation(context.Background(), c)
	assert.Equal(t, "0", first.ResponseCode)
	assert.Equal(t, order.PaymentAwaiting, store.order.PaymentStatus)
	assert.False(t, dedupe.seen["mpesa-webhook:TX500"],
		"a result that never landed must not keep its dedupe claim")

	second := svc.HandleConfirmation(context.Background(), c)
	assert.Equal(t, "0", second.ResponseCode)
	assert.Equal(t, order.PaymentPaid, store.order.PaymentStatus,
		"the redelivery settles the order once the store recovers")
}

func TestHandleConfirmationDedupeUnavailable(t *testing.T) {
	store := &fakeOrderStore{order: testOrder(), appliedOK: true}
	svc := newPaymentService(store, &fakeGateway{}, erroringDeduper{})

	ack := svc.HandleConfirmation(context.Background(), Confirmation{
		ResultCode:          "0",
		ThirdPartyReference: store.order.OrderNumber,
		TransactionID:       "TX400",
	})

	assert.Equal(t, "0", ack.ResponseCode)
	assert.Equal(t, order.PaymentPaid, store.order.PaymentStatus,
		"redis being down must not block settlement; the DB guard stays authoritative")
}

type erroringDeduper struct{}

func (erroringDeduper) TryLock(context.Context, string, string) (bool, error) {
	return false, errors.New("redis unavailable")
}

func (erroringDeduper) Unlock(context.Context, string, string) error {
	return errors.New("redis unavailable")
}
