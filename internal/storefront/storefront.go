package storefront

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrStoreNotFound = errors.New("store not found")

type Store struct {
	ID          string    `json:"id"`
	SellerID    string    `json:"seller_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	LogoURL     string    `json:"logo_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type StoreUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	LogoURL     *string `json:"logo_url"`
}

type Repository interface {
	GetBySeller(ctx context.Context, sellerID string) (*Store, error)
	GetByID(ctx context.Context, storeID string) (*Store, error)
	Insert(ctx context.Context, sellerID, name, description string) (*Store, error)
	Update(ctx context.Context, storeID string, upd StoreUpdate) (*Store, error)
}

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const storeColumns = `id, seller_id, name, COALESCE(description, ''), COALESCE(logo_url, ''), created_at`

func scanStore(row pgx.Row) (*Store, error) {
	var s Store
	if err := row.Scan(&s.ID, &s.SellerID, &s.Name, &s.Description, &s.LogoURL, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PgRepository) GetBySeller(ctx context.Context, sellerID string) (*Store, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+storeColumns+` FROM stores WHERE seller_id = $1`, sellerID)
	s, err := scanStore(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStoreNotFound
		}
		return nil, fmt.Errorf("get store by seller: %w", err)
	}
	return s, nil
}

func (r *PgRepository) GetByID(ctx context.Context, storeID string) (*Store, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+storeColumns+` FROM stores WHERE id = $1`, storeID)
	s, err := scanStore(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStoreNotFound
		}
		return nil, fmt.Errorf("get store: %w", err)
	}
	return s, nil
}

func (r *PgRepository) Insert(ctx context.Context, sellerID, name, description string) (*Store, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO stores (seller_id, name, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (seller_id) DO UPDATE SET seller_id = EXCLUDED.seller_id
		RETURNING `+storeColumns,
		sellerID, name, description,
	)
	s, err := scanStore(row)
	if err != nil {
		return nil, fmt.Errorf("insert store: %w", err)
	}
	return s, nil
}

func (r *PgRepository) Update(ctx context.Context, storeID string, upd StoreUpdate) (*Store, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE stores
		SET name        = COALESCE($2, name),
		    description = COALESCE($3, description),
		    logo_url    = COALESCE($4, logo_url)
		WHERE id = $1
		RETURNING `+storeColumns,
		storeID, upd.Name, upd.Description, upd.LogoURL,
	)
	s, err := scanStore(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStoreNotFound
		}
		return nil, fmt.Errorf("update store: %w", err)
	}
	return s, nil
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Resolve returns the seller's store, creating the default one on first
// access. A brand-new seller therefore always lands on a working storefront.
func (s *Service) Resolve(ctx context.Context, sellerID, firstName string) (*Store, error) {
	store, err := s.repo.GetBySeller(ctx, sellerID)
	if err == nil {
		return store, nil
	}
	if !errors.Is(err, ErrStoreNotFound) {
		return nil, err
	}

	if firstName == "" {
		firstName = "Novo"
	}
	name := fmt.Sprintf("%s Vendedor Store", firstName)
	return s.repo.Insert(ctx, sellerID, name, "Minha loja oficial no Lumi Market.")
}

func (s *Service) Get(ctx context.Context, storeID string) (*Store, error) {
	return s.repo.GetByID(ctx, storeID)
}

func (s *Service) Update(ctx context.Context, storeID string, upd StoreUpdate) (*Store, error) {
	return s.repo.Update(ctx, storeID, upd)
}
