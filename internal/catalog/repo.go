package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var ErrProductNotFound = errors.New("product not found")

type Orphan struct {
	ID  int64
	URL string
}

type Repository interface {
	InsertProduct(ctx context.Context, storeID string, in ProductInput) (*Product, error)
	UpdateProduct(ctx context.Context, storeID, productID string, in ProductInput) (*Product, error)
	DeleteProduct(ctx context.Context, storeID, productID string) (imageURLs []string, err error)
	GetProduct(ctx context.Context, storeID, productID string) (*Product, error)
	ListProducts(ctx context.Context, storeID string) ([]Product, error)

	ReplaceVariants(ctx context.Context, storeID, productID string, inputs []VariantInput) ([]Variant, error)

	InsertImage(ctx context.Context, storeID, productID, url string, position int) (*Image, error)
	DeleteImage(ctx context.Context, storeID, productID, imageID string) (url string, err error)

	RecordOrphan(ctx context.Context, url string) error
	ListOrphans(ctx context.Context, limit int) ([]Orphan, error)
	DeleteOrphan(ctx context.Context, id int64) error
}

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const productColumns = `id, store_id, name, COALESCE(description, ''), COALESCE(category, ''),
	COALESCE(shipping_cost, 0)::text, detailed_description, specifications, created_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	var shipping string
	var detailed, specs []byte
	err := row.Scan(&p.ID, &p.StoreID, &p.Name, &p.Description, &p.Category,
		&shipping, &detailed, &specs, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if p.ShippingCost, err = decimal.NewFromString(shipping); err != nil {
		return nil, fmt.Errorf("parse shipping_cost: %w", err)
	}
	if err := json.Unmarshal(detailed, &p.DetailedDescription); err != nil {
		return nil, fmt.Errorf("parse detailed_description: %w", err)
	}
	if err := json.Unmarshal(specs, &p.Specifications); err != nil {
		return nil, fmt.Errorf("parse specifications: %w", err)
	}
	return &p, nil
}

func marshalBlocks(in ProductInput) (detailed, specs []byte, err error) {
	if in.DetailedDescription == nil {
		in.DetailedDescription = []DescriptionBlock{}
	}
	if in.Specifications == nil {
		in.Specifications = []Specification{}
	}
	if detailed, err = json.Marshal(in.DetailedDescription); err != nil {
		return nil, nil, fmt.Errorf("marshal detailed_description: %w", err)
	}
	if specs, err = json.Marshal(in.Specifications); err != nil {
		return nil, nil, fmt.Errorf("marshal specifications: %w", err)
	}
	return detailed, specs, nil
}

func (r *PgRepository) InsertProduct(ctx context.Context, storeID string, in ProductInput) (*Product, error) {
	detailed, specs, err := marshalBlocks(in)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO products (store_id, name, description, category, shipping_cost, detailed_description, specifications)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7)
		RETURNING `+productColumns,
		storeID, in.Name, in.Description, in.Category, in.ShippingCost.String(), detailed, specs)

	p, err := scanProduct(row)
	if err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}
	return p, nil
}

func (r *PgRepository) UpdateProduct(ctx context.Context, storeID, productID string, in ProductInput) (*Product, error) {
	detailed, specs, err := marshalBlocks(in)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE products
		SET name = $3, description = $4, category = $5,
		    shipping_cost = $6::numeric, detailed_description = $7, specifications = $8
		WHERE id = $1 AND store_id = $2
		RETURNING `+productColumns,
		productID, storeID, in.Name, in.Description, in.Category, in.ShippingCost.String(), detailed, specs)

	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("update product: %w", err)
	}
	return p, nil
}

// DeleteProduct removes the product and its dependents in one transaction and
// returns the image URLs whose objects still need best-effort cleanup.
func (r *PgRepository) DeleteProduct(ctx context.Context, storeID, productID string) ([]string, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `SELECT url FROM product_images WHERE product_id = $1`, productID)
	if err != nil {
		return nil, fmt.Errorf("query product images: %w", err)
	}
	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			rows.Close()
			return nil, err
		}
		urls = append(urls, u)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx, `DELETE FROM products WHERE id = $1 AND store_id = $2`, productID, storeID)
	if err != nil {
		return nil, fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrProductNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return urls, nil
}

func (r *PgRepository) GetProduct(ctx context.Context, storeID, productID string) (*Product, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+productColumns+` FROM products WHERE id = $1 AND store_id = $2`,
		productID, storeID)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	if p.Variants, err = r.variantsFor(ctx, p.ID); err != nil {
		return nil, err
	}
	if p.Images, err = r.imagesFor(ctx, p.ID); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PgRepository) ListProducts(ctx context.Context, storeID string) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+productColumns+` FROM products WHERE store_id = $1 ORDER BY created_at DESC`,
		storeID)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var result []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func (r *PgRepository) variantsFor(ctx context.Context, productID string) ([]Variant, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, product_id, store_id, name, price::text, stock, created_at
		FROM product_variants
		WHERE product_id = $1
		ORDER BY created_at`, productID)
	if err != nil {
		return nil, fmt.Errorf("query variants: %w", err)
	}
	defer rows.Close()

	var variants []Variant
	for rows.Next() {
		var v Variant
		var price string
		if err := rows.Scan(&v.ID, &v.ProductID, &v.StoreID, &v.Name, &price, &v.Stock, &v.CreatedAt); err != nil {
			return nil, err
		}
		if v.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse variant price: %w", err)
		}
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

func (r *PgRepository) imagesFor(ctx context.Context, productID string) ([]Image, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, product_id, url, position, created_at
		FROM product_images
		WHERE product_id = $1
		ORDER BY position, created_at`, productID)
	if err != nil {
		return nil, fmt.Errorf("query images: %w", err)
	}
	defer rows.Close()

	var images []Image
	for rows.Next() {
		var img Image
		if err := rows.Scan(&img.ID, &img.ProductID, &img.URL, &img.Position, &img.CreatedAt); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// ReplaceVariants swaps the product's variant set in a single transaction:
// variants absent from the submitted set are deleted, submitted ones are
// updated or inserted. The browser-side delete-then-upsert choreography this
// replaces could strand half the writes; here it cannot.
func (r *PgRepository) ReplaceVariants(ctx context.Context, storeID, productID string, inputs []VariantInput) ([]Variant, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM products WHERE id = $1 AND store_id = $2)`,
		productID, storeID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check product: %w", err)
	}
	if !exists {
		return nil, ErrProductNotFound
	}

	keep := make([]string, 0, len(inputs))
	for _, in := range inputs {
		if in.ID != "" {
			keep = append(keep, in.ID)
		}
	}
	_, err = tx.Exec(ctx, `
		DELETE FROM product_variants
		WHERE product_id = $1 AND NOT (id = ANY($2::uuid[]))`,
		productID, keep)
	if err != nil {
		return nil, fmt.Errorf("delete removed variants: %w", err)
	}

	for _, in := range inputs {
		id := in.ID
		if id == "" {
			id = uuid.New().String()
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO product_variants (id, product_id, store_id, name, price, stock)
			VALUES ($1, $2, $3, $4, $5::numeric, $6)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, price = EXCLUDED.price, stock = EXCLUDED.stock`,
			id, productID, storeID, in.Name, in.Price.String(), in.Stock)
		if err != nil {
			return nil, fmt.Errorf("upsert variant: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.variantsFor(ctx, productID)
}

func (r *PgRepository) InsertImage(ctx context.Context, storeID, productID, url string, position int) (*Image, error) {
	var img Image
	err := r.pool.QueryRow(ctx, `
		INSERT INTO product_images (product_id, url, position)
		SELECT id, $3, $4 FROM products WHERE id = $1 AND store_id = $2
		RETURNING id, product_id, url, position, created_at`,
		productID, storeID, url, position,
	).Scan(&img.ID, &img.ProductID, &img.URL, &img.Position, &img.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("insert image: %w", err)
	}
	return &img, nil
}

func (r *PgRepository) DeleteImage(ctx context.Context, storeID, productID, imageID string) (string, error) {
	var url string
	err := r.pool.QueryRow(ctx, `
		DELETE FROM product_images
		WHERE id = $1 AND product_id = $2
		  AND EXISTS (SELECT 1 FROM products WHERE id = $2 AND store_id = $3)
		RETURNING url`,
		imageID, productID, storeID).Scan(&url)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrProductNotFound
		}
		return "", fmt.Errorf("delete image: %w", err)
	}
	return url, nil
}

func (r *PgRepository) RecordOrphan(ctx context.Context, url string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO storage_orphans (url) VALUES ($1)`, url)
	if err != nil {
		return fmt.Errorf("record orphan: %w", err)
	}
	return nil
}

func (r *PgRepository) ListOrphans(ctx context.Context, limit int) ([]Orphan, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, url FROM storage_orphans ORDER BY id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query orphans: %w", err)
	}
	defer rows.Close()

	var orphans []Orphan
	for rows.Next() {
		var o Orphan
		if err := rows.Scan(&o.ID, &o.URL); err != nil {
			return nil, err
		}
		orphans = append(orphans, o)
	}
	return orphans, rows.Err()
}

func (r *PgRepository) DeleteOrphan(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM storage_orphans WHERE id = $1`, id)
	return err
}
