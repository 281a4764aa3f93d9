package objstore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadReturnsPublicURL(t *testing.T) {
	var gotPath, gotContentType, gotBody string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "products")
	url, err := c.Upload(context.Background(), "store-1/fones.jpg", "image/jpeg", strings.NewReader("jpegbytes"))
	require.NoError(t, err)

	assert.Equal(t, "/object/products/store-1/fones.jpg", gotPath)
	assert.Equal(t, "image/jpeg", gotContentType)
	assert.Equal(t, "jpegbytes", gotBody)
	assert.Equal(t, srv.URL+"/object/public/products/store-1/fones.jpg", url)
}

func TestUploadErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bucket full", http.StatusInsufficientStorage)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "products")
	_, err := c.Upload(context.Background(), "store-1/fones.jpg", "image/jpeg", strings.NewReader("x"))
	assert.ErrorContains(t, err, "507")
}

func TestDeleteByPublicURL(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "products")
	err := c.Delete(context.Background(), srv.URL+"/object/public/products/store-1/fones.jpg")
	require.NoError(t, err)
	assert.Equal(t, "/object/products/store-1/fones.jpg", gotPath)
}

func TestDeleteMissingObjectConverges(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "products")
	err := c.Delete(context.Background(), srv.URL+"/object/public/products/store-1/gone.jpg")
	assert.NoError(t, err, "an already-gone object counts as deleted")
}

func TestDeleteForeignURL(t *testing.T) {
	c := NewClient("http://objects", "products")
	err := c.Delete(context.Background(), "http://elsewhere/object/public/other-bucket/x.jpg")
	assert.ErrorIs(t, err, ErrNotManaged)
}
