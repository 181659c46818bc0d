package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fajarsembar01/home/internal/fetcher"
	"github.com/fajarsembar01/home/internal/model"
	"github.com/fajarsembar01/home/internal/repository"
	"github.com/fajarsembar01/home/internal/service"
)

// Error codes returned in ErrorResponse.Code
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeUnauthenticated  = "UNAUTHENTICATED"
	CodeNotFound         = "NOT_FOUND"
	CodeNothingExtracted = "NOTHING_EXTRACTED"
	CodeQuotaExceeded    = "AI_QUOTA_EXCEEDED"
	CodeRateLimited      = "RATE_LIMIT_EXCEEDED"
	CodeFetchDisallowed  = "FETCH_DISALLOWED"
	CodeFetchFailed      = "FETCH_FAILED"
	CodeUnavailable      = "UNAVAILABLE"
	CodeInternal         = "INTERNAL_ERROR"
)

// User-facing messages. Quota exhaustion must read as "try again later",
// distinct from an input that held no listing.
const (
	msgQuotaExceeded    = "Maaf, kuota AI sementara habis. Silakan coba lagi nanti."
	msgNothingExtracted = "Tidak ada informasi properti yang bisa diambil dari teks ini."
	msgNotFound         = "Properti tidak ditemukan."
	msgRateLimited      = "Terlalu banyak permintaan, coba lagi sebentar lagi."
	msgInternal         = "Terjadi kesalahan pada server."
)

func abortWithError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, model.ErrorResponse{Error: msg, Code: code})
}

func badRequest(c *gin.Context, msg string) {
	abortWithError(c, http.StatusBadRequest, CodeInvalidRequest, msg)
}

// writeError maps service and storage errors onto HTTP responses.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	switch {
	case isQuotaError(err):
		abortWithError(c, http.StatusTooManyRequests, CodeQuotaExceeded, msgQuotaExceeded)
	case errors.Is(err, service.ErrNothingExtracted):
		abortWithError(c, http.StatusUnprocessableEntity, CodeNothingExtracted, msgNothingExtracted)
	case errors.Is(err, repository.ErrNotFound):
		abortWithError(c, http.StatusNotFound, CodeNotFound, msgNotFound)
	case errors.Is(err, service.ErrInvalidField), errors.Is(err, fetcher.ErrInvalidURL):
		badRequest(c, err.Error())
	case errors.Is(err, fetcher.ErrDisallowed):
		abortWithError(c, http.StatusForbidden, CodeFetchDisallowed, err.Error())
	case errors.Is(err, fetcher.ErrBadStatus):
		abortWithError(c, http.StatusBadGateway, CodeFetchFailed, err.Error())
	case errors.Is(err, service.ErrImportDisabled), errors.Is(err, service.ErrAssistantDisabled):
		abortWithError(c, http.StatusServiceUnavailable, CodeUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		abortWithError(c, http.StatusGatewayTimeout, CodeUnavailable, "request timed out")
	default:
		logger.Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"request_id", c.GetString(requestIDKey),
			"error", err)
		abortWithError(c, http.StatusInternalServerError, CodeInternal, msgInternal)
	}
}

func isQuotaError(err error) bool {
	var quotaErr *service.QuotaExceededError
	return errors.As(err, &quotaErr)
}
