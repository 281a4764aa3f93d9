package dashboard

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	metrics  *Metrics
	collects int
}

func (f *fakeRepo) Collect(context.Context, string) (*Metrics, error) {
	f.collects++
	return f.metrics, nil
}

func TestMetricsWithoutCache(t *testing.T) {
	repo := &fakeRepo{metrics: &Metrics{
		TotalOrders:   12,
		PendingOrders: 3,
		Revenue:       decimal.RequireFromString("45250.00"),
		ProductCount:  7,
	}}
	svc := NewService(repo, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	m, err := svc.Metrics(context.Background(), "store-1")
	require.NoError(t, err)

	assert.Equal(t, 12, m.TotalOrders)
	assert.Equal(t, 3, m.PendingOrders)
	assert.True(t, m.Revenue.Equal(decimal.RequireFromString("45250.00")))
	assert.Equal(t, 7, m.ProductCount)

	_, err = svc.Metrics(context.Background(), "store-1")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.collects, "without a cache every read hits the database")
}
