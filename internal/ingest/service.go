package ingest

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"s2j/internal"
	"s2j/internal/pipeline"
	"s2j/internal/saberis"
	"s2j/internal/storage"
)

// lastRunKey is the metadata key holding when the last ingestion pass ran.
const lastRunKey = "ingest.last_run"

// Source delivers pending export documents from Saberis.
type Source interface {
	GetUnexportedDocuments(ctx context.Context) ([]saberis.ExportHeader, error)
	GetExportDocument(ctx context.Context, guid string) (saberis.Document, []byte, error)
}

// Service pulls unexported documents, parses them and stores deduplicated
// records in the local manifest.
type Service struct {
	db     *storage.DB
	source Source
	brands pipeline.BrandLookup
	batch  int
}

func NewService(db *storage.DB, source Source, brands pipeline.BrandLookup, batch int) *Service {
	return &Service{db: db, source: source, brands: brands, batch: batch}
}

// Result counts what one ingestion pass did.
type Result struct {
	Fetched int
	Stored  int
	Skipped int
}

// Run performs one ingestion pass. A document that fails to fetch or
// decode is logged and skipped; the pass keeps going.
func (s *Service) Run(ctx context.Context) (Result, error) {
	var res Result

	headers, err := s.source.GetUnexportedDocuments(ctx)
	if err != nil {
		return res, fmt.Errorf("listing unexported documents: %w", err)
	}
	if s.batch > 0 && len(headers) > s.batch {
		headers = headers[:s.batch]
	}

	for _, header := range headers {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}

		seen, err := s.db.HasGUID(header.GUID)
		if err != nil {
			return res, err
		}
		if seen {
			res.Skipped++
			continue
		}

		doc, raw, err := s.source.GetExportDocument(ctx, header.GUID)
		if err != nil {
			fmt.Printf("WARN: skipping export %s: %v\n", header.GUID, err)
			res.Skipped++
			continue
		}
		res.Fetched++

		order := pipeline.ParseOrder(doc, s.brands)
		rec, err := buildRecord(order, header.GUID, raw)
		if err != nil {
			fmt.Printf("WARN: skipping export %s: %v\n", header.GUID, err)
			res.Skipped++
			continue
		}

		stored, err := s.db.InsertExport(rec)
		if err != nil {
			return res, fmt.Errorf("storing export %s: %w", header.GUID, err)
		}
		if stored {
			fmt.Printf("INFO: stored export %s for %q\n", rec.SaberisID, rec.CustomerName)
			res.Stored++
		} else {
			res.Skipped++
		}
	}

	counts := map[string]int{"fetched": res.Fetched, "stored": res.Stored, "skipped": res.Skipped}
	if err := s.db.InsertRun(newTraceID(), counts); err != nil {
		fmt.Printf("WARN: could not record ingestion run: %v\n", err)
	}
	if err := s.db.SetMetadata(lastRunKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
		fmt.Printf("WARN: could not record last run time: %v\n", err)
	}

	fmt.Printf("INFO: ingestion pass done, fetched %d, stored %d, skipped %d\n", res.Fetched, res.Stored, res.Skipped)
	return res, nil
}

func buildRecord(order internal.Order, guid string, raw []byte) (internal.ExportRecord, error) {
	payload, err := compress(raw)
	if err != nil {
		return internal.ExportRecord{}, fmt.Errorf("compressing payload: %w", err)
	}
	return internal.ExportRecord{
		SaberisID:       order.UniqueKey(),
		GUID:            guid,
		IngestedAt:      time.Now().UTC().Format(time.RFC3339),
		CustomerName:    order.CustomerName,
		Username:        order.Username,
		ExportDate:      order.CreatedAt.Format("2006-01-02"),
		ShippingSummary: shippingSummary(order.Shipping),
		Payload:         payload,
	}, nil
}

// DecodeOrder rebuilds the parsed order from a stored manifest record.
func DecodeOrder(rec internal.ExportRecord, brands pipeline.BrandLookup) (internal.Order, error) {
	raw, err := decompress(rec.Payload)
	if err != nil {
		return internal.Order{}, fmt.Errorf("decompressing export %s: %w", rec.SaberisID, err)
	}
	doc, err := saberis.DecodeDocument(raw)
	if err != nil {
		return internal.Order{}, fmt.Errorf("decoding export %s: %w", rec.SaberisID, err)
	}
	return pipeline.ParseOrder(doc, brands), nil
}

func shippingSummary(addr internal.ShippingAddress) string {
	parts := []string{addr.Street1, addr.City, addr.Province, addr.PostalCode}
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}

func compress(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(payload []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

func newTraceID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
