package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrNotManaged = errors.New("url does not belong to the managed bucket")

// Storage is the minimal contract the catalog and storefront need: put a file,
// get back a public URL, and later delete by that URL.
type Storage interface {
	Upload(ctx context.Context, path, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, publicURL string) error
}

// Client talks to an S3-compatible object gateway over its REST surface.
type Client struct {
	baseURL string
	bucket  string
	client  *http.Client
}

func NewClient(baseURL, bucket string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		bucket:  bucket,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Upload(ctx context.Context, path, contentType string, body io.Reader) (string, error) {
	url := fmt.Sprintf("%s/object/%s/%s", c.baseURL, c.bucket, strings.TrimLeft(path, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Cache-Control", "max-age=3600")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload object: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload object: unexpected status %d: %s", resp.StatusCode, string(raw))
	}

	return c.PublicURL(path), nil
}

func (c *Client) Delete(ctx context.Context, publicURL string) error {
	path, err := c.objectPath(publicURL)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/object/%s/%s", c.baseURL, c.bucket, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	defer resp.Body.Close()

	// Deleting an already-gone object is treated as success so sweeps converge.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete object: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) PublicURL(path string) string {
	return fmt.Sprintf("%s/object/public/%s/%s", c.baseURL, c.bucket, strings.TrimLeft(path, "/"))
}

// objectPath recovers the bucket-relative path from a public URL, mirroring
// how the URL was built in PublicURL.
func (c *Client) objectPath(publicURL string) (string, error) {
	marker := "/" + c.bucket + "/"
	idx := strings.Index(publicURL, marker)
	if idx < 0 {
		return "", ErrNotManaged
	}
	path := publicURL[idx+len(marker):]
	if path == "" {
		return "", ErrNotManaged
	}
	return path, nil
}
