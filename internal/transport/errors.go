package transport

import (
	"context"
	"errors"
	"net/http"

	"storefront/internal/catalog"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"

	"go.uber.org/zap"
)

// statusClientClosedRequest is the de facto status for a request whose client
// went away before the response was written.
const statusClientClosedRequest = 499

// respondWithServiceError maps service and repository errors onto HTTP
// statuses. Anything unrecognised is logged and reported as a 500.
func respondWithServiceError(w http.ResponseWriter, logger *zap.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrCategoryNotFound),
		errors.Is(err, repository.ErrCartNotFound),
		errors.Is(err, repository.ErrCartItemNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, rootMessage(err))
	case errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidPriceRange):
		middleware.RespondWithError(w, http.StatusBadRequest, rootMessage(err))
	case errors.Is(err, catalog.ErrUpstream):
		logger.Warn("External catalog request failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadGateway, "external catalog unavailable")
	case errors.Is(err, context.Canceled):
		logger.Debug("Request cancelled by client", zap.Error(err))
		middleware.RespondWithError(w, statusClientClosedRequest, "request cancelled")
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("Request timed out", zap.Error(err))
		middleware.RespondWithError(w, http.StatusGatewayTimeout, "request timed out")
	default:
		logger.Error(fallback, zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, fallback)
	}
}

// rootMessage returns the message of the innermost wrapped error.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

// respondWithDecodeError answers a request whose body or parameters failed
// to decode or validate.
func respondWithDecodeError(w http.ResponseWriter, err error, fallback string) {
	if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
		middleware.RespondWithValidationErrors(w, validationErrors)
		return
	}
	middleware.RespondWithError(w, http.StatusBadRequest, fallback)
}
