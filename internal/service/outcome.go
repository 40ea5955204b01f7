package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/internal/models"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
)

// statsCachePattern matches every cached stats read model.
const statsCachePattern = "stats:*"

// cacheInvalidator drops cached read models after writes.
type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

// settle turns a store write result into an Outcome. A storage failure yields a
// non-durable success; any other error is returned.
func settle(message string, err error) (models.Outcome, error) {
	if err == nil {
		return models.Outcome{Success: true, Message: message, Durable: true}, nil
	}
	if appErrors.HasCode(err, appErrors.ErrStorageUnavailable) {
		return models.Outcome{
			Success: true,
			Message: message,
			Durable: false,
			Warning: appErrors.FromError(err).Message,
		}, nil
	}
	return models.Outcome{}, err
}

func invalidateStats(ctx context.Context, cache cacheInvalidator, logger *zap.Logger) {
	if cache == nil {
		return
	}
	if err := cache.Invalidate(ctx, statsCachePattern); err != nil {
		logger.Debug("stats cache invalidation skipped", zap.Error(err))
	}
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

func defaultValidator(v *validator.Validate) *validator.Validate {
	if v == nil {
		return validator.New()
	}
	return v
}

func defaultLogger(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
