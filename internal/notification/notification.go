package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Type string

const (
	TypeNewOrder     Type = "new_order"
	TypeStatusUpdate Type = "status_update"
	TypeSystem       Type = "system"
)

type Notification struct {
	ID        string    `json:"id"`
	StoreID   string    `json:"store_id"`
	Type      Type      `json:"type"`
	OrderID   string    `json:"order_id,omitempty"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type Repository interface {
	Insert(ctx context.Context, n *Notification) error
	ListByStore(ctx context.Context, storeID string) ([]Notification, error)
	MarkRead(ctx context.Context, storeID, id string) error
	MarkAllRead(ctx context.Context, storeID string) error
}

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Insert(ctx context.Context, n *Notification) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO notifications (store_id, type, order_id, title, body)
		VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5)
		RETURNING id, created_at`,
		n.StoreID, n.Type, n.OrderID, n.Title, n.Body)
	if err := row.Scan(&n.ID, &n.CreatedAt); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *PgRepository) ListByStore(ctx context.Context, storeID string) ([]Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, store_id, type, COALESCE(order_id::text, ''), title, body, is_read, created_at
		FROM notifications
		WHERE store_id = $1
		ORDER BY created_at DESC`, storeID)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var result []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.StoreID, &n.Type, &n.OrderID, &n.Title, &n.Body, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (r *PgRepository) MarkRead(ctx context.Context, storeID, id string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE
		WHERE id = $1 AND store_id = $2`, id, storeID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

func (r *PgRepository) MarkAllRead(ctx context.Context, storeID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE
		WHERE store_id = $1 AND is_read = FALSE`, storeID)
	if err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, storeID string) ([]Notification, error) {
	return s.repo.ListByStore(ctx, storeID)
}

func (s *Service) MarkRead(ctx context.Context, storeID, id string) error {
	return s.repo.MarkRead(ctx, storeID, id)
}

func (s *Service) MarkAllRead(ctx context.Context, storeID string) error {
	return s.repo.MarkAllRead(ctx, storeID)
}

func (s *Service) Create(ctx context.Context, n *Notification) error {
	return s.repo.Insert(ctx, n)
}
