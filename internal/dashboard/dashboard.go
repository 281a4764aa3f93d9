package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Omaralyxt/Lumi-Seller/internal/cache"
)

type Metrics struct {
	TotalOrders   int             `json:"total_orders"`
	PendingOrders int             `json:"pending_orders"`
	Revenue       decimal.Decimal `json:"revenue"`
	ProductCount  int             `json:"product_count"`
}

type Repository interface {
	Collect(ctx context.Context, storeID string) (*Metrics, error)
}

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Collect(ctx context.Context, storeID string) (*Metrics, error) {
	var m Metrics
	var revenue string
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM orders WHERE store_id = $1),
			(SELECT COUNT(*) FROM orders WHERE store_id = $1 AND status = 'pending'),
			(SELECT COALESCE(SUM(total_amount), 0)::text FROM orders
				WHERE store_id = $1 AND payment_status = 'paid'),
			(SELECT COUNT(*) FROM products WHERE store_id = $1)`,
		storeID,
	).Scan(&m.TotalOrders, &m.PendingOrders, &revenue, &m.ProductCount)
	if err != nil {
		return nil, fmt.Errorf("collect metrics: %w", err)
	}
	if m.Revenue, err = decimal.NewFromString(revenue); err != nil {
		return nil, fmt.Errorf("parse revenue: %w", err)
	}
	return &m, nil
}

// Service serves metrics through the redis cache; the realtime relay
// invalidates the entry whenever an order event lands, so the next read
// reflects the new order.
type Service struct {
	repo   Repository
	cache  *cache.MetricsCache
	logger *slog.Logger
}

func NewService(repo Repository, metricsCache *cache.MetricsCache, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: metricsCache, logger: logger}
}

func (s *Service) Metrics(ctx context.Context, storeID string) (*Metrics, error) {
	if s.cache != nil {
		var m Metrics
		err := s.cache.Get(ctx, storeID, &m)
		if err == nil {
			return &m, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("metrics cache read failed", "store_id", storeID, "err", err)
		}
	}

	m, err := s.repo.Collect(ctx, storeID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, storeID, m); err != nil {
			s.logger.Warn("metrics cache write failed", "store_id", storeID, "err", err)
		}
	}
	return m, nil
}
