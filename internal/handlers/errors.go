package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/SscSPs/fiscal_ledger/internal/apperrors"
	"github.com/SscSPs/fiscal_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable,omitempty"`
}

type errorMapping struct {
	target error
	status int
	code   string
}

// Checked in order; the specific domain errors come before the generic ones they may wrap.
var errorMappings = []errorMapping{
	{apperrors.ErrTransactionConflict, http.StatusConflict, "TRANSACTION_CONFLICT"},
	{apperrors.ErrNoActiveSeries, http.StatusConflict, "NO_ACTIVE_SERIES"},
	{apperrors.ErrRangeExhausted, http.StatusConflict, "RANGE_EXHAUSTED"},
	{apperrors.ErrSeriesExpired, http.StatusConflict, "SERIES_EXPIRED"},
	{apperrors.ErrAlreadyReversed, http.StatusConflict, "ALREADY_REVERSED"},
	{apperrors.ErrEntryNotFound, http.StatusNotFound, "ENTRY_NOT_FOUND"},
	{apperrors.ErrUnbalancedEntry, http.StatusBadRequest, "UNBALANCED_ENTRY"},
	{apperrors.ErrInvalidAccount, http.StatusBadRequest, "INVALID_ACCOUNT"},
	{apperrors.ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR"},
	{apperrors.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{apperrors.ErrDuplicate, http.StatusConflict, "DUPLICATE"},
	{apperrors.ErrConflict, http.StatusConflict, "CONFLICT"},
}

// respondWithError maps a service error to its HTTP status and error code. Unknown
// errors are logged and reported as 500 with fallbackMsg so internals do not leak.
func respondWithError(c *gin.Context, logger *slog.Logger, err error, fallbackMsg string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			logger.Warn(fallbackMsg, slog.String("error", err.Error()), slog.String("code", m.code))
			c.JSON(m.status, ErrorResponse{
				Error:     err.Error(),
				Code:      m.code,
				Retryable: apperrors.IsRetryable(err),
			})
			return
		}
	}

	logger.Error(fallbackMsg, slog.String("error", err.Error()))
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: fallbackMsg, Code: "INTERNAL_ERROR"})
}

// respondBindError reports a request that failed binding or tag validation.
func respondBindError(c *gin.Context, logger *slog.Logger, err error, what string) {
	logger.Warn("Failed to bind "+what, slog.String("error", err.Error()))
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid " + what + ": " + err.Error(), Code: "VALIDATION_ERROR"})
}

// requireUserID reads the authenticated user set by the auth middleware.
func requireUserID(c *gin.Context, logger *slog.Logger) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized", Code: "UNAUTHORIZED"})
		return "", false
	}
	return userID, true
}
