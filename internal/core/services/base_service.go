package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/fiscal_ledger/internal/apperrors"
	"github.com/SscSPs/fiscal_ledger/internal/middleware"
	"github.com/cenkalti/backoff/v4"
)

// BaseService provides common functionality for all services
type BaseService struct {
	now func() time.Time
}

func newBaseService(o serviceOptions) BaseService {
	return BaseService{now: o.now}
}

// Now returns the service clock's current time.
func (s *BaseService) Now() time.Time {
	return s.now()
}

// GetLogger gets the logger from context or returns a default one
func (s *BaseService) GetLogger(ctx context.Context) *slog.Logger {
	return middleware.GetLoggerFromCtx(ctx)
}

// LogError logs an error with consistent formatting
func (s *BaseService) LogError(ctx context.Context, err error, msg string, keyvals ...any) {
	args := make([]any, 0, len(keyvals)+1)
	args = append(args, slog.String("error", err.Error()))
	args = append(args, keyvals...)
	s.GetLogger(ctx).Error(msg, args...)
}

// LogWarn logs a warning with consistent formatting
func (s *BaseService) LogWarn(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Warn(msg, keyvals...)
}

// LogInfo logs an info message with consistent formatting
func (s *BaseService) LogInfo(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Info(msg, keyvals...)
}

// LogDebug logs a debug message with consistent formatting
func (s *BaseService) LogDebug(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Debug(msg, keyvals...)
}

// retryPolicy builds the backoff used for operations that lose an optimistic race.
// maxRetries counts retries, so an operation runs at most maxRetries+1 times.
func retryPolicy(ctx context.Context, maxRetries int) backoff.BackOff {
	if maxRetries < 0 {
		maxRetries = 0
	}
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 2 * time.Millisecond
	exp.MaxInterval = 50 * time.Millisecond
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(maxRetries)), ctx)
}

// retryOnConflict runs op until it succeeds, fails with an error other than
// apperrors.ErrTransactionConflict, or the retry budget is spent.
func retryOnConflict(ctx context.Context, maxRetries int, op func() error) error {
	return backoff.Retry(func() error {
		err := op()
		if err != nil && !apperrors.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, retryPolicy(ctx, maxRetries))
}

// checkIdempotencyKey validates the length of an optional idempotency key.
func checkIdempotencyKey(key string, maxLen int) error {
	if len(key) > maxLen {
		return fmt.Errorf("%w: idempotency key longer than %d characters", apperrors.ErrValidation, maxLen)
	}
	return nil
}
