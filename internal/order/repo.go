package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Omaralyxt/Lumi-Seller/internal/event"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("status transition not allowed from current state")
	ErrEmptyUpdate       = errors.New("status or tracking_code required")
)

type Repository interface {
	Create(ctx context.Context, o *Order) error
	ListByStore(ctx context.Context, storeID string) ([]Order, error)
	GetByStore(ctx context.Context, storeID, orderID string) (*Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (*Order, error)
	TransitionStatus(ctx context.Context, storeID, orderID string, to Status, sources []Status, trackingCode *string) (*Order, error)
	AttachTracking(ctx context.Context, storeID, orderID, trackingCode string) (*Order, error)
	ApplyPaymentResult(ctx context.Context, orderNumber string, res PaymentResult) (*Order, bool, error)
}

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const orderColumns = `id, store_id, COALESCE(customer_id::text, ''), order_number,
	buyer_name, buyer_email, buyer_phone, buyer_address, buyer_city, buyer_country,
	total_amount::text, shipping_cost::text, status, payment_method, payment_status,
	COALESCE(tracking_code, ''), COALESCE(mpesa_transaction_id, ''), created_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var total, shipping string
	err := row.Scan(&o.ID, &o.StoreID, &o.CustomerID, &o.OrderNumber,
		&o.BuyerName, &o.BuyerEmail, &o.BuyerPhone, &o.BuyerAddress, &o.BuyerCity, &o.BuyerCountry,
		&total, &shipping, &o.Status, &o.PaymentMethod, &o.PaymentStatus,
		&o.TrackingCode, &o.MpesaTransactionID, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	if o.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("parse total_amount: %w", err)
	}
	if o.ShippingCost, err = decimal.NewFromString(shipping); err != nil {
		return nil, fmt.Errorf("parse shipping_cost: %w", err)
	}
	return &o, nil
}

func (r *PgRepository) Create(ctx context.Context, o *Order) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	o.ID = uuid.New().String()
	o.CreatedAt = now

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, store_id, customer_id, order_number,
			buyer_name, buyer_email, buyer_phone, buyer_address, buyer_city, buyer_country,
			total_amount, shipping_cost, status, payment_method, payment_status, created_at)
		VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, $6, $7, $8, $9, $10,
			$11::numeric, $12::numeric, $13, $14, $15, $16)`,
		o.ID, o.StoreID, o.CustomerID, o.OrderNumber,
		o.BuyerName, o.BuyerEmail, o.BuyerPhone, o.BuyerAddress, o.BuyerCity, o.BuyerCountry,
		o.TotalAmount.String(), o.ShippingCost.String(), o.Status, o.PaymentMethod, o.PaymentStatus, now,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range o.Items {
		it := &o.Items[i]
		it.ID = uuid.New().String()
		it.OrderID = o.ID
		it.StoreID = o.StoreID
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, store_id, product_id, product_name, variant, quantity, price, subtotal)
			VALUES ($1, $2, $3, NULLIF($4, '')::uuid, $5, $6, $7, $8::numeric, $9::numeric)`,
			it.ID, it.OrderID, it.StoreID, it.ProductID, it.ProductName, it.Variant,
			it.Quantity, it.Price.String(), it.Subtotal.String(),
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	evt := event.OrderCreated{
		EventID:     uuid.New().String(),
		StoreID:     o.StoreID,
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		BuyerName:   o.BuyerName,
		TotalAmount: o.TotalAmount.StringFixed(2),
		CreatedAt:   now,
	}
	if err := insertOutbox(ctx, tx, evt.EventID, event.TypeOrderCreated, evt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *PgRepository) ListByStore(ctx context.Context, storeID string) ([]Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE store_id = $1
		ORDER BY created_at DESC`, storeID)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var result []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *o)
	}
	return result, rows.Err()
}

func (r *PgRepository) GetByStore(ctx context.Context, storeID, orderID string) (*Order, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1 AND store_id = $2`, orderID, storeID)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	if o.Items, err = r.itemsFor(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *PgRepository) GetByNumber(ctx context.Context, orderNumber string) (*Order, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE order_number = $1`, orderNumber)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order by number: %w", err)
	}
	return o, nil
}

func (r *PgRepository) itemsFor(ctx context.Context, orderID string) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, store_id, COALESCE(product_id::text, ''), product_name, variant,
			quantity, price::text, subtotal::text
		FROM order_items
		WHERE order_id = $1
		ORDER BY product_name`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		var price, subtotal string
		if err := rows.Scan(&it.ID, &it.OrderID, &it.StoreID, &it.ProductID, &it.ProductName,
			&it.Variant, &it.Quantity, &price, &subtotal); err != nil {
			return nil, err
		}
		if it.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse item price: %w", err)
		}
		if it.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
			return nil, fmt.Errorf("parse item subtotal: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// TransitionStatus applies a seller-driven transition as a single guarded
// update: the row changes only if its current status is one of the allowed
// sources. Zero rows affected with an existing order means the transition is
// out of order and is rejected, never silently overwritten.
func (r *PgRepository) TransitionStatus(ctx context.Context, storeID, orderID string, to Status, sources []Status, trackingCode *string) (*Order, error) {
	if len(sources) == 0 {
		return nil, ErrInvalidTransition
	}
	src := make([]string, len(sources))
	for i, s := range sources {
		src[i] = string(s)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE orders
		SET status = $3,
		    tracking_code = COALESCE($4, tracking_code)
		WHERE id = $1 AND store_id = $2 AND status = ANY($5)
		RETURNING `+orderColumns,
		orderID, storeID, to, trackingCode, src)

	o, err := scanOrder(row)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("transition status: %w", err)
		}
		// Distinguish "no such order" from "guard rejected".
		var exists bool
		if err := r.pool.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1 AND store_id = $2)`,
			orderID, storeID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check order: %w", err)
		}
		if !exists {
			return nil, ErrOrderNotFound
		}
		return nil, ErrInvalidTransition
	}

	if err := insertStatusChanged(ctx, tx, o); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

// AttachTracking sets the tracking code without touching the status. The
// guard refuses terminal orders; no outbox event is written because nothing
// a buyer is notified about has changed.
func (r *PgRepository) AttachTracking(ctx context.Context, storeID, orderID, trackingCode string) (*Order, error) {
	terminal := make([]string, len(terminalStatuses))
	for i, s := range terminalStatuses {
		terminal[i] = string(s)
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE orders
		SET tracking_code = $3
		WHERE id = $1 AND store_id = $2 AND status <> ALL($4)
		RETURNING `+orderColumns,
		orderID, storeID, trackingCode, terminal)

	o, err := scanOrder(row)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("attach tracking: %w", err)
		}
		existing, lookupErr := r.GetByStore(ctx, storeID, orderID)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if IsTerminal(existing.Status) {
			return nil, ErrInvalidTransition
		}
		return nil, ErrOrderNotFound
	}
	return o, nil
}

// ApplyPaymentResult performs the webhook transition. The guard on
// payment_status makes redelivery a no-op: once the first result lands (or a
// seller has advanced the order), replays change nothing. The returned bool
// reports whether this call actually applied the result.
func (r *PgRepository) ApplyPaymentResult(ctx context.Context, orderNumber string, res PaymentResult) (*Order, bool, error) {
	newStatus := StatusPaid
	newPayment := PaymentPaid
	if !res.Paid {
		newStatus = StatusCanceled
		newPayment = PaymentFailed
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE orders
		SET status = $2,
		    payment_status = $3,
		    mpesa_transaction_id = $4
		WHERE order_number = $1 AND payment_status = 'awaiting_payment'
		RETURNING `+orderColumns,
		orderNumber, newStatus, newPayment, res.TransactionID)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Unknown reference or already-settled order: caller acknowledges
			// the gateway either way, nothing is mutated here.
			existing, lookupErr := r.GetByNumber(ctx, orderNumber)
			if lookupErr != nil {
				return nil, false, lookupErr
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("apply payment result: %w", err)
	}

	if err := insertStatusChanged(ctx, tx, o); err != nil {
		return nil, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return o, true, nil
}

func insertStatusChanged(ctx context.Context, tx pgx.Tx, o *Order) error {
	evt := event.OrderStatusChanged{
		EventID:       uuid.New().String(),
		StoreID:       o.StoreID,
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		NewStatus:     string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		ChangedAt:     time.Now().UTC(),
	}
	return insertOutbox(ctx, tx, evt.EventID, event.TypeOrderStatusChanged, evt)
}

func insertOutbox(ctx context.Context, tx pgx.Tx, eventID, eventType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO order_outbox (event_id, event_type, payload)
		VALUES ($1, $2, $3)`,
		eventID, eventType, raw)
	if err != nil {
		return fmt.Errorf("insert outbox: %w", err)
	}
	return nil
}
