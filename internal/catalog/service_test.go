package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	products    map[string]*Product
	insertImage func() (*Image, error)
	deletedURLs []string
	orphans     []string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{products: make(map[string]*Product)}
}

func (f *fakeRepo) InsertProduct(_ context.Context, storeID string, in ProductInput) (*Product, error) {
	p := &Product{ID: "p1", StoreID: storeID, Name: in.Name, ShippingCost: in.ShippingCost}
	f.products[p.ID] = p
	return p, nil
}

func (f *fakeRepo) UpdateProduct(_ context.Context, _, productID string, in ProductInput) (*Product, error) {
	p, ok := f.products[productID]
	if !ok {
		return nil, ErrProductNotFound
	}
	p.Name = in.Name
	return p, nil
}

func (f *fakeRepo) DeleteProduct(_ context.Context, _, productID string) ([]string, error) {
	if _, ok := f.products[productID]; !ok {
		return nil, ErrProductNotFound
	}
	delete(f.products, productID)
	return f.deletedURLs, nil
}

func (f *fakeRepo) GetProduct(_ context.Context, _, productID string) (*Product, error) {
	if p, ok := f.products[productID]; ok {
		return p, nil
	}
	return nil, ErrProductNotFound
}

func (f *fakeRepo) ListProducts(context.Context, string) ([]Product, error) { return nil, nil }

func (f *fakeRepo) ReplaceVariants(_ context.Context, _, productID string, inputs []VariantInput) ([]Variant, error) {
	if _, ok := f.products[productID]; !ok {
		return nil, ErrProductNotFound
	}
	out := make([]Variant, len(inputs))
	for i, in := range inputs {
		out[i] = Variant{ID: in.ID, ProductID: productID, Name: in.Name, Price: in.Price, Stock: in.Stock}
	}
	return out, nil
}

func (f *fakeRepo) InsertImage(_ context.Context, _, productID, url string, position int) (*Image, error) {
	if f.insertImage != nil {
		return f.insertImage()
	}
	return &Image{ID: "img1", ProductID: productID, URL: url, Position: position}, nil
}

func (f *fakeRepo) DeleteImage(_ context.Context, _, _, imageID string) (string, error) {
	if imageID == "missing" {
		return "", ErrProductNotFound
	}
	return "http://objects/public/products/store-1/img.jpg", nil
}

func (f *fakeRepo) RecordOrphan(_ context.Context, url string) error {
	f.orphans = append(f.orphans, url)
	return nil
}

func (f *fakeRepo) ListOrphans(context.Context, int) ([]Orphan, error) {
	out := make([]Orphan, len(f.orphans))
	for i, url := range f.orphans {
		out[i] = Orphan{ID: int64(i + 1), URL: url}
	}
	return out, nil
}

func (f *fakeRepo) DeleteOrphan(_ context.Context, id int64) error {
	idx := int(id - 1)
	if idx >= 0 && idx < len(f.orphans) {
		f.orphans[idx] = ""
	}
	return nil
}

type fakeObjects struct {
	uploadErr error
	deleteErr error
	uploaded  []string
	deleted   []string
}

func (f *fakeObjects) Upload(_ context.Context, path, _ string, _ io.Reader) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	url := "http://objects/public/products/" + path
	f.uploaded = append(f.uploaded, url)
	return url, nil
}

func (f *fakeObjects) Delete(_ context.Context, publicURL string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, publicURL)
	return nil
}

func newCatalogService(repo Repository, objects *fakeObjects) *Service {
	return NewService(repo, objects, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCreateValidation(t *testing.T) {
	svc := newCatalogService(newFakeRepo(), &fakeObjects{})

	_, err := svc.Create(context.Background(), "store-1", ProductInput{Name: "  "})
	assert.Error(t, err, "blank name")

	_, err = svc.Create(context.Background(), "store-1", ProductInput{
		Name:         "Fones",
		ShippingCost: decimal.RequireFromString("-1"),
	})
	assert.Error(t, err, "negative shipping")

	p, err := svc.Create(context.Background(), "store-1", ProductInput{Name: "Fones"})
	require.NoError(t, err)
	assert.Equal(t, "store-1", p.StoreID)
}

func TestReplaceVariantsValidation(t *testing.T) {
	repo := newFakeRepo()
	svc := newCatalogService(repo, &fakeObjects{})
	_, err := svc.Create(context.Background(), "store-1", ProductInput{Name: "Fones"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		inputs []VariantInput
	}{
		{"empty set", nil},
		{"blank variant name", []VariantInput{{Name: " ", Price: decimal.RequireFromString("10"), Stock: 1}}},
		{"zero price", []VariantInput{{Name: "Preto", Price: decimal.Zero, Stock: 1}}},
		{"negative stock", []VariantInput{{Name: "Preto", Price: decimal.RequireFromString("10"), Stock: -1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ReplaceVariants(context.Background(), "store-1", "p1", tt.inputs)
			assert.Error(t, err)
		})
	}

	variants, err := svc.ReplaceVariants(context.Background(), "store-1", "p1", []VariantInput{
		{Name: "Preto", Price: decimal.RequireFromString("600.00"), Stock: 5},
		{ID: "v-old", Name: "Branco", Price: decimal.RequireFromString("650.00"), Stock: 2},
	})
	require.NoError(t, err)
	assert.Len(t, variants, 2)
}

func TestAddImageRecordsOrphanWhenRowInsertFails(t *testing.T) {
	repo := newFakeRepo()
	repo.insertImage = func() (*Image, error) { return nil, ErrProductNotFound }
	objects := &fakeObjects{}
	svc := newCatalogService(repo, objects)

	_, err := svc.AddImage(context.Background(), "store-1", "p-gone", "fones.jpg", "image/jpeg",
		strings.NewReader("bytes"), 0)
	assert.ErrorIs(t, err, ErrProductNotFound)

	require.Len(t, objects.uploaded, 1, "the object was uploaded before the row failed")
	require.Len(t, repo.orphans, 1, "the dangling object must be queued for the sweeper")
	assert.Equal(t, objects.uploaded[0], repo.orphans[0])
}

func TestAddImageUploadFailureDoesNotTouchRows(t *testing.T) {
	repo := newFakeRepo()
	objects := &fakeObjects{uploadErr: errors.New("storage down")}
	svc := newCatalogService(repo, objects)

	_, err := svc.AddImage(context.Background(), "store-1", "p1", "fones.jpg", "image/jpeg",
		strings.NewReader("bytes"), 0)
	assert.Error(t, err)
	assert.Empty(t, repo.orphans)
}

func TestRemoveImageBestEffortObjectDelete(t *testing.T) {
	repo := newFakeRepo()
	objects := &fakeObjects{deleteErr: errors.New("storage down")}
	svc := newCatalogService(repo, objects)

	err := svc.RemoveImage(context.Background(), "store-1", "p1", "img1")
	require.NoError(t, err, "the row delete is authoritative; the object can lag")
	require.Len(t, repo.orphans, 1)
}

func TestDeleteProductCleansUpImages(t *testing.T) {
	repo := newFakeRepo()
	repo.deletedURLs = []string{
		"http://objects/public/products/store-1/a.jpg",
		"http://objects/public/products/store-1/b.jpg",
	}
	objects := &fakeObjects{}
	svc := newCatalogService(repo, objects)
	_, err := svc.Create(context.Background(), "store-1", ProductInput{Name: "Fones"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "store-1", "p1"))
	assert.Equal(t, repo.deletedURLs, objects.deleted)
	assert.Empty(t, repo.orphans)
}
