package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"path"
	"strings"
	"time"

	"github.com/Omaralyxt/Lumi-Seller/internal/objstore"
)

type Service struct {
	repo    Repository
	objects objstore.Storage
	logger  *slog.Logger
}

func NewService(repo Repository, objects objstore.Storage, logger *slog.Logger) *Service {
	return &Service{repo: repo, objects: objects, logger: logger}
}

func validateInput(in ProductInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return errors.New("product name required")
	}
	if in.ShippingCost.IsNegative() {
		return errors.New("shipping cost cannot be negative")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, storeID string, in ProductInput) (*Product, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	return s.repo.InsertProduct(ctx, storeID, in)
}

func (s *Service) Update(ctx context.Context, storeID, productID string, in ProductInput) (*Product, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	return s.repo.UpdateProduct(ctx, storeID, productID, in)
}

func (s *Service) Get(ctx context.Context, storeID, productID string) (*Product, error) {
	return s.repo.GetProduct(ctx, storeID, productID)
}

func (s *Service) List(ctx context.Context, storeID string) ([]Product, error) {
	return s.repo.ListProducts(ctx, storeID)
}

// Delete removes the relational state first — that is the authoritative part.
// Object deletion afterwards is best-effort; anything that fails is recorded
// as an orphan for the sweeper.
func (s *Service) Delete(ctx context.Context, storeID, productID string) error {
	urls, err := s.repo.DeleteProduct(ctx, storeID, productID)
	if err != nil {
		return err
	}

	for _, url := range urls {
		if err := s.objects.Delete(ctx, url); err != nil {
			s.logger.Warn("image object delete failed, queued for sweep", "url", url, "err", err)
			if recErr := s.repo.RecordOrphan(ctx, url); recErr != nil {
				s.logger.Error("record orphan failed", "url", url, "err", recErr)
			}
		}
	}
	return nil
}

func (s *Service) ReplaceVariants(ctx context.Context, storeID, productID string, inputs []VariantInput) ([]Variant, error) {
	if len(inputs) == 0 {
		return nil, errors.New("product needs at least one variant")
	}
	for _, in := range inputs {
		if strings.TrimSpace(in.Name) == "" {
			return nil, errors.New("variant name required")
		}
		if !in.Price.IsPositive() {
			return nil, fmt.Errorf("variant %q needs a positive price", in.Name)
		}
		if in.Stock < 0 {
			return nil, fmt.Errorf("variant %q cannot have negative stock", in.Name)
		}
	}
	return s.repo.ReplaceVariants(ctx, storeID, productID, inputs)
}

// AddImage uploads the object and then writes the image row. A row failure
// leaves the already-uploaded object dangling, so the URL is parked in
// storage_orphans and the sweeper reclaims it.
func (s *Service) AddImage(ctx context.Context, storeID, productID, filename, contentType string, body io.Reader, position int) (*Image, error) {
	objectPath := imagePath(storeID, filename)

	url, err := s.objects.Upload(ctx, objectPath, contentType, body)
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}

	img, err := s.repo.InsertImage(ctx, storeID, productID, url, position)
	if err != nil {
		if recErr := s.repo.RecordOrphan(ctx, url); recErr != nil {
			s.logger.Error("record orphan failed", "url", url, "err", recErr)
		}
		return nil, err
	}
	return img, nil
}

func (s *Service) RemoveImage(ctx context.Context, storeID, productID, imageID string) error {
	url, err := s.repo.DeleteImage(ctx, storeID, productID, imageID)
	if err != nil {
		return err
	}

	if err := s.objects.Delete(ctx, url); err != nil {
		s.logger.Warn("image object delete failed, queued for sweep", "url", url, "err", err)
		if recErr := s.repo.RecordOrphan(ctx, url); recErr != nil {
			s.logger.Error("record orphan failed", "url", url, "err", recErr)
		}
	}
	return nil
}

func imagePath(storeID, filename string) string {
	ext := path.Ext(filename)
	return fmt.Sprintf("%s/%d-%06d%s", storeID, time.Now().UnixMilli(), rand.Intn(1_000_000), ext)
}
