// Package handlers provides the Lambda handlers of the credit line service.
package handlers

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"credit-line-service/internal/models"
	"credit-line-service/internal/services/ingest"
	"credit-line-service/internal/utils"
)

// ObjectStore is the part of the S3 service the ingest handler uses.
type ObjectStore interface {
	DownloadFile(ctx context.Context, key string) ([]byte, error)
	FileExists(ctx context.Context, key string) (bool, error)
	MoveFile(ctx context.Context, sourceKey, destKey string) error
}

// Ingester runs one import batch.
type Ingester interface {
	Ingest(ctx context.Context, customers, loans ingest.Sheet) (*models.ImportResult, error)
}

// SheetIngestHandler handles S3 events for uploaded customer and loan sheets.
// The batch runs once both configured sheets are present in the bucket.
type SheetIngestHandler struct {
	objects     ObjectStore
	ingester    Ingester
	customerKey string
	loanKey     string
	now         func() time.Time
}

// NewSheetIngestHandler creates a new sheet ingest handler.
func NewSheetIngestHandler(objects ObjectStore, ingester Ingester, customerKey, loanKey string) *SheetIngestHandler {
	return &SheetIngestHandler{
		objects:     objects,
		ingester:    ingester,
		customerKey: customerKey,
		loanKey:     loanKey,
		now:         time.Now,
	}
}

// SheetIngestResult is the result of handling an S3 event.
type SheetIngestResult struct {
	Message           string   `json:"message"`
	BatchID           string   `json:"batch_id,omitempty"`
	CustomersUpserted int      `json:"customers_upserted"`
	LoansUpserted     int      `json:"loans_upserted"`
	RowsSkipped       int      `json:"rows_skipped"`
	Errors            []string `json:"errors,omitempty"`
}

// Handle processes S3 events for uploaded sheets.
func (h *SheetIngestHandler) Handle(ctx context.Context, s3Event events.S3Event) (SheetIngestResult, error) {
	logger := utils.GetLogger()

	relevant := false
	for _, record := range s3Event.Records {
		key, err := url.QueryUnescape(record.S3.Object.Key)
		if err != nil {
			return SheetIngestResult{}, fmt.Errorf("failed to decode S3 key: %w", err)
		}
		if key == h.customerKey || key == h.loanKey {
			relevant = true
		}
		logger.Info("Received S3 event",
			utils.String("bucket", record.S3.Bucket.Name),
			utils.String("key", key))
	}
	if !relevant {
		return SheetIngestResult{Message: "No ingest sheets in event"}, nil
	}

	for _, key := range []string{h.customerKey, h.loanKey} {
		exists, err := h.objects.FileExists(ctx, key)
		if err != nil {
			return SheetIngestResult{}, err
		}
		if !exists {
			logger.Info("Waiting for the other sheet", utils.String("missing", key))
			return SheetIngestResult{Message: "Waiting for " + key}, nil
		}
	}

	customers, err := h.download(ctx, h.customerKey)
	if err != nil {
		return SheetIngestResult{}, err
	}
	loans, err := h.download(ctx, h.loanKey)
	if err != nil {
		return SheetIngestResult{}, err
	}

	result, err := h.ingester.Ingest(ctx, customers, loans)
	if err != nil {
		logger.Error("Ingest failed", utils.Error(err))
		return SheetIngestResult{}, fmt.Errorf("failed to ingest sheets: %w", err)
	}

	for _, key := range []string{h.customerKey, h.loanKey} {
		if err := h.objects.MoveFile(ctx, key, archiveKey(h.now(), result.BatchID, key)); err != nil {
			logger.Warn("Failed to archive sheet", utils.String("key", key), utils.Error(err))
		}
	}

	return SheetIngestResult{
		Message:           "Sheets ingested successfully",
		BatchID:           result.BatchID,
		CustomersUpserted: result.CustomersUpserted,
		LoansUpserted:     result.LoansUpserted,
		RowsSkipped:       result.RowsSkipped,
		Errors:            result.Errors,
	}, nil
}

func (h *SheetIngestHandler) download(ctx context.Context, key string) (ingest.Sheet, error) {
	content, err := h.objects.DownloadFile(ctx, key)
	if err != nil {
		return ingest.Sheet{}, fmt.Errorf("failed to download %s: %w", key, err)
	}
	return ingest.Sheet{Name: path.Base(key), Content: content}, nil
}

// archiveKey places a processed sheet under processed/<date>/<batch>/.
func archiveKey(now time.Time, batchID, key string) string {
	return path.Join("processed", now.UTC().Format("2006/01/02"), batchID, path.Base(key))
}
