package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"path"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	s3service "credit-line-service/internal/services/s3"
	"credit-line-service/internal/utils"
)

const uploadExpiryMinutes = 60

// URLSigner issues presigned upload URLs.
type URLSigner interface {
	GeneratePresignedUploadURL(ctx context.Context, key string, contentType string, expiryMinutes int) (*s3service.PresignedURLResult, error)
}

// PresignedURLHandler hands out upload URLs for the two ingest sheets.
type PresignedURLHandler struct {
	signer URLSigner
	keys   map[string]string
}

// NewPresignedURLHandler creates a new presigned URL handler.
func NewPresignedURLHandler(signer URLSigner, customerKey, loanKey string) *PresignedURLHandler {
	return &PresignedURLHandler{
		signer: signer,
		keys: map[string]string{
			"customers": customerKey,
			"loans":     loanKey,
		},
	}
}

// PresignedURLResponse is the response structure for presigned URL requests.
type PresignedURLResponse struct {
	UploadURL string `json:"uploadUrl"`
	S3Key     string `json:"s3Key"`
	ExpiresIn int    `json:"expiresIn"`
}

// Handle processes the API Gateway request for generating presigned URLs.
// The sheet query parameter selects "customers" or "loans".
func (h *PresignedURLHandler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	logger := utils.GetLogger()

	headers := map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Headers": "Content-Type,Authorization",
		"Access-Control-Allow-Methods": "GET,OPTIONS",
		"Content-Type":                 "application/json",
	}

	if request.HTTPMethod == http.MethodOptions {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusOK,
			Headers:    headers,
		}, nil
	}

	sheet := strings.ToLower(request.QueryStringParameters["sheet"])
	key, ok := h.keys[sheet]
	if !ok {
		return errorResponse(headers, http.StatusBadRequest, `sheet must be "customers" or "loans"`)
	}

	presigned, err := h.signer.GeneratePresignedUploadURL(ctx, key, contentTypeFor(key), uploadExpiryMinutes)
	if err != nil {
		logger.Error("Failed to generate presigned URL", utils.Error(err))
		return errorResponse(headers, http.StatusInternalServerError, "Failed to generate upload URL")
	}

	body, _ := json.Marshal(PresignedURLResponse{
		UploadURL: presigned.URL,
		S3Key:     key,
		ExpiresIn: uploadExpiryMinutes * 60,
	})

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    headers,
		Body:       string(body),
	}, nil
}

func contentTypeFor(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".xlsx", ".xlsm":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv"
	}
}

// errorResponse creates an error response.
func errorResponse(headers map[string]string, statusCode int, message string) (events.APIGatewayProxyResponse, error) {
	body, _ := json.Marshal(map[string]string{
		"error":   http.StatusText(statusCode),
		"message": message,
	})

	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers:    headers,
		Body:       string(body),
	}, nil
}
