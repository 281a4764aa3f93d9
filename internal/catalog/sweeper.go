package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/Omaralyxt/Lumi-Seller/internal/objstore"
)

const sweepBatchSize = 50

// OrphanSweeper periodically deletes storage objects whose relational rows
// are already gone. Objects land in storage_orphans when a best-effort
// delete fails or an upload outlives its row insert.
type OrphanSweeper struct {
	repo     Repository
	objects  objstore.Storage
	interval time.Duration
	logger   *slog.Logger
}

func NewOrphanSweeper(repo Repository, objects objstore.Storage, interval time.Duration, logger *slog.Logger) *OrphanSweeper {
	return &OrphanSweeper{repo: repo, objects: objects, interval: interval, logger: logger}
}

func (s *OrphanSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *OrphanSweeper) sweep(ctx context.Context) {
	orphans, err := s.repo.ListOrphans(ctx, sweepBatchSize)
	if err != nil {
		s.logger.Error("list orphans failed", "err", err)
		return
	}

	for _, orphan := range orphans {
		if err := s.objects.Delete(ctx, orphan.URL); err != nil {
			s.logger.Warn("orphan delete failed, will retry", "url", orphan.URL, "err", err)
			continue
		}
		if err := s.repo.DeleteOrphan(ctx, orphan.ID); err != nil {
			s.logger.Error("clear orphan row failed", "id", orphan.ID, "err", err)
		}
	}
}
