package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credit-line-service/internal/handlers"
	"credit-line-service/internal/models"
	"credit-line-service/internal/services/ingest"
	s3service "credit-line-service/internal/services/s3"
)

const (
	customerKey = "incoming/customer_data.xlsx"
	loanKey     = "incoming/loan_data.xlsx"
)

type fakeObjects struct {
	files map[string][]byte
	moved map[string]string
}

func newFakeObjects(keys ...string) *fakeObjects {
	f := &fakeObjects{files: map[string][]byte{}, moved: map[string]string{}}
	for _, k := range keys {
		f.files[k] = []byte("content of " + k)
	}
	return f
}

func (f *fakeObjects) DownloadFile(_ context.Context, key string) ([]byte, error) {
	data, ok := f.files[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return data, nil
}

func (f *fakeObjects) FileExists(_ context.Context, key string) (bool, error) {
	_, ok := f.files[key]
	return ok, nil
}

func (f *fakeObjects) MoveFile(_ context.Context, src, dst string) error {
	f.moved[src] = dst
	delete(f.files, src)
	return nil
}

type fakeIngester struct {
	calls     int
	customers ingest.Sheet
	loans     ingest.Sheet
	err       error
}

func (f *fakeIngester) Ingest(_ context.Context, customers, loans ingest.Sheet) (*models.ImportResult, error) {
	f.calls++
	f.customers, f.loans = customers, loans
	if f.err != nil {
		return nil, f.err
	}
	return &models.ImportResult{BatchID: "batch-1", CustomersUpserted: 3, LoansUpserted: 5}, nil
}

func s3Event(keys ...string) events.S3Event {
	var ev events.S3Event
	for _, k := range keys {
		ev.Records = append(ev.Records, events.S3EventRecord{
			S3: events.S3Entity{
				Bucket: events.S3Bucket{Name: "credit-line-ingest"},
				Object: events.S3Object{Key: k},
			},
		})
	}
	return ev
}

func TestSheetIngestHandler_RunsWhenBothSheetsPresent(t *testing.T) {
	objects := newFakeObjects(customerKey, loanKey)
	ingester := &fakeIngester{}
	h := handlers.NewSheetIngestHandler(objects, ingester, customerKey, loanKey)

	result, err := h.Handle(context.Background(), s3Event("incoming/loan_data.xlsx"))
	require.NoError(t, err)

	assert.Equal(t, 1, ingester.calls)
	assert.Equal(t, "customer_data.xlsx", ingester.customers.Name)
	assert.Equal(t, "loan_data.xlsx", ingester.loans.Name)
	assert.Equal(t, "batch-1", result.BatchID)
	assert.Equal(t, 5, result.LoansUpserted)

	require.Len(t, objects.moved, 2)
	assert.Contains(t, objects.moved[customerKey], "/batch-1/customer_data.xlsx")
	assert.Regexp(t, `^processed/\d{4}/\d{2}/\d{2}/`, objects.moved[loanKey])
}

func TestSheetIngestHandler_WaitsForOtherSheet(t *testing.T) {
	objects := newFakeObjects(customerKey)
	ingester := &fakeIngester{}
	h := handlers.NewSheetIngestHandler(objects, ingester, customerKey, loanKey)

	result, err := h.Handle(context.Background(), s3Event("incoming%2Fcustomer_data.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, "Waiting for "+loanKey, result.Message)
	assert.Zero(t, ingester.calls)
}

func TestSheetIngestHandler_IgnoresOtherKeys(t *testing.T) {
	ingester := &fakeIngester{}
	h := handlers.NewSheetIngestHandler(newFakeObjects(customerKey, loanKey), ingester, customerKey, loanKey)

	result, err := h.Handle(context.Background(), s3Event("processed/old.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, "No ingest sheets in event", result.Message)
	assert.Zero(t, ingester.calls)
}

func TestSheetIngestHandler_IngestFailureKeepsSheets(t *testing.T) {
	objects := newFakeObjects(customerKey, loanKey)
	h := handlers.NewSheetIngestHandler(objects, &fakeIngester{err: ingest.ErrNoCustomers}, customerKey, loanKey)

	_, err := h.Handle(context.Background(), s3Event(customerKey))
	assert.ErrorIs(t, err, ingest.ErrNoCustomers)
	assert.Empty(t, objects.moved)
}

type fakeSigner struct {
	key         string
	contentType string
}

func (f *fakeSigner) GeneratePresignedUploadURL(_ context.Context, key, contentType string, expiryMinutes int) (*s3service.PresignedURLResult, error) {
	f.key, f.contentType = key, contentType
	return &s3service.PresignedURLResult{
		URL:       "https://example.com/" + key,
		Key:       key,
		ExpiresAt: time.Now().Add(time.Duration(expiryMinutes) * time.Minute),
	}, nil
}

func TestPresignedURLHandler(t *testing.T) {
	signer := &fakeSigner{}
	h := handlers.NewPresignedURLHandler(signer, customerKey, "incoming/loan_data.csv")

	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodGet,
		QueryStringParameters: map[string]string{"sheet": "loans"},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body handlers.PresignedURLResponse
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))
	assert.Equal(t, "incoming/loan_data.csv", body.S3Key)
	assert.Equal(t, 3600, body.ExpiresIn)
	assert.Equal(t, "text/csv", signer.contentType)

	resp, err = h.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodGet,
		QueryStringParameters: map[string]string{"sheet": "payments"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = h.Handle(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodOptions})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

type fakePinger struct{ err error }

func (f fakePinger) HealthCheck(context.Context) error { return f.err }

func TestHealthHandler(t *testing.T) {
	resp, err := handlers.NewHealthHandler(fakePinger{}, "dev", "1.0.0").Handle(context.Background(), events.APIGatewayProxyRequest{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Body, `"database":"connected"`)

	resp, err = handlers.NewHealthHandler(fakePinger{err: errors.New("down")}, "dev", "1.0.0").Handle(context.Background(), events.APIGatewayProxyRequest{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	report, status := handlers.NewHealthHandler(nil, "prod", "1.0.0").Check(context.Background())
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "not configured", report.Database)
}
