package listener

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"s2j/internal/config"
	"s2j/internal/ingest"
	"s2j/internal/pipeline"
	"s2j/internal/pricing"
	"s2j/internal/saberis"
	"s2j/internal/storage"
)

type Service struct {
	db    *storage.DB
	cfg   config.Config
	cache *pricing.Cache
}

func NewService(db *storage.DB, cfg config.Config, cache *pricing.Cache) *Service {
	return &Service{db: db, cfg: cfg, cache: cache}
}

func (s *Service) Run(ctx context.Context) error {
	for {
		if err := s.runCycle(ctx); err != nil {
			fmt.Printf("listener cycle error: %v\n", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(s.cfg.ListenerIntervalSec) * time.Second):
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	source := saberis.NewClient(s.cfg)
	svc := ingest.NewService(s.db, source, s.cache, s.cfg.ListenerIngestBatch)
	res, err := svc.Run(ctx)
	if err != nil {
		return err
	}

	if s.cfg.ListenerAutoPreview {
		if err := s.previewUnsent(); err != nil {
			return err
		}
	}

	fmt.Printf("listener cycle done fetched=%d stored=%d skipped=%d\n", res.Fetched, res.Stored, res.Skipped)
	return nil
}

// previewUnsent writes a preview workbook for every stored export that
// has not been sent yet. Workbooks already on disk are left alone.
func (s *Service) previewUnsent() error {
	records, err := s.db.ListExports()
	if err != nil {
		return err
	}

	for _, rec := range records {
		if rec.SentToJobber {
			continue
		}
		outputPath := filepath.Join(s.cfg.OutputDir, "previews", rec.SaberisID+".xlsx")
		if _, err := os.Stat(outputPath); err == nil {
			continue
		}

		full, err := s.db.GetExport(rec.SaberisID)
		if err != nil {
			return err
		}
		if full == nil {
			continue
		}
		order, err := ingest.DecodeOrder(*full, s.cache)
		if err != nil {
			fmt.Printf("WARN: skipping preview for %s: %v\n", rec.SaberisID, err)
			continue
		}

		desired := pipeline.SynthesizeOrder(order, 1)
		rows := pipeline.BuildPreviewRows(desired, nil, nil)
		if err := pipeline.ExportPreviewXLSX(rows, outputPath); err != nil {
			return err
		}
		fmt.Printf("INFO: wrote preview %s\n", outputPath)
	}
	return nil
}
