package api

import (
	"errors"
	"net/http"

	"vanrent/internal/database"
	"vanrent/internal/pricing"
	"vanrent/internal/service"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	errMissingAPIKey     = errors.New("missing api key headers")
	errInvalidAPIKey     = errors.New("invalid api key")
	errInvalidExtra      = errors.New("invalid extra header")
	errPermissionDenied  = errors.New("permission denied")
	errRateLimitExceeded = errors.New("rate limit exceeded")
)

// httpStatus maps domain errors to response codes. Unknown errors are 500.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrUnknownOffice),
		errors.Is(err, service.ErrUnknownCategory),
		errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, pricing.ErrInvalidDate),
		errors.Is(err, pricing.ErrInvalidTime):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrSlotUnavailable),
		errors.Is(err, database.ErrOverlap),
		errors.Is(err, database.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, service.ErrDiscountRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrRateLimited), errors.Is(err, errRateLimitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, errMissingAPIKey), errors.Is(err, errInvalidAPIKey), errors.Is(err, errInvalidExtra):
		return http.StatusUnauthorized
	case errors.Is(err, errPermissionDenied):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// grpcError converts a domain error into a status error.
func grpcError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	code := codes.Internal
	switch httpStatus(err) {
	case http.StatusNotFound:
		code = codes.NotFound
	case http.StatusBadRequest:
		code = codes.InvalidArgument
	case http.StatusConflict:
		code = codes.FailedPrecondition
	case http.StatusUnprocessableEntity:
		code = codes.FailedPrecondition
	case http.StatusTooManyRequests:
		code = codes.ResourceExhausted
	case http.StatusUnauthorized:
		code = codes.Unauthenticated
	case http.StatusForbidden:
		code = codes.PermissionDenied
	}
	if code == codes.Internal {
		return status.Error(code, "internal error")
	}
	return status.Error(code, err.Error())
}
