package storefront

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	bySeller map[string]*Store
	inserts  int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{bySeller: make(map[string]*Store)}
}

func (f *fakeRepo) GetBySeller(_ context.Context, sellerID string) (*Store, error) {
	if s, ok := f.bySeller[sellerID]; ok {
		return s, nil
	}
	return nil, ErrStoreNotFound
}

func (f *fakeRepo) GetByID(_ context.Context, storeID string) (*Store, error) {
	for _, s := range f.bySeller {
		if s.ID == storeID {
			return s, nil
		}
	}
	return nil, ErrStoreNotFound
}

func (f *fakeRepo) Insert(_ context.Context, sellerID, name, description string) (*Store, error) {
	f.inserts++
	s := &Store{ID: "store-" + sellerID, SellerID: sellerID, Name: name, Description: description}
	f.bySeller[sellerID] = s
	return s, nil
}

func (f *fakeRepo) Update(_ context.Context, storeID string, upd StoreUpdate) (*Store, error) {
	s, err := f.GetByID(context.Background(), storeID)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		s.Name = *upd.Name
	}
	if upd.Description != nil {
		s.Description = *upd.Description
	}
	if upd.LogoURL != nil {
		s.LogoURL = *upd.LogoURL
	}
	return s, nil
}

func TestResolveCreatesDefaultStore(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	store, err := svc.Resolve(context.Background(), "seller-1", "Carlos")
	require.NoError(t, err)
	assert.Equal(t, "Carlos Vendedor Store", store.Name)
	assert.Equal(t, "Minha loja oficial no Lumi Market.", store.Description)
	assert.Equal(t, 1, repo.inserts)
}

func TestResolveIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	first, err := svc.Resolve(context.Background(), "seller-1", "Carlos")
	require.NoError(t, err)

	second, err := svc.Resolve(context.Background(), "seller-1", "Carlos")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, repo.inserts, "an existing store is never recreated")
}

func TestResolveFallbackName(t *testing.T) {
	svc := NewService(newFakeRepo())

	store, err := svc.Resolve(context.Background(), "seller-2", "")
	require.NoError(t, err)
	assert.Equal(t, "Novo Vendedor Store", store.Name)
}

func TestUpdateStore(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	store, err := svc.Resolve(context.Background(), "seller-1", "Carlos")
	require.NoError(t, err)

	name := "Loja do Carlos"
	updated, err := svc.Update(context.Background(), store.ID, StoreUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Loja do Carlos", updated.Name)
	assert.Equal(t, store.Description, updated.Description, "untouched fields survive a partial update")
}
