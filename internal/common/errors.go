package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound       = errors.New("requested resource not found")
	ErrUnauthorized   = errors.New("unauthorized access")
	ErrForbidden      = errors.New("forbidden access")
	ErrBadRequest     = errors.New("bad request")
	ErrConflict       = errors.New("resource conflict")
	ErrInternalServer = errors.New("internal server error")
	ErrValidation     = errors.New("validation failed")

	// Entitlement errors. Detected synchronously, never retried: a
	// duplicate-key conflict is terminal and user-correctable.
	ErrIncorrectFlag      = errors.New("submitted flag is incorrect")
	ErrAlreadySolved      = errors.New("flag already solved")
	ErrAlreadyPurchased   = errors.New("hint already purchased")
	ErrSelfPurchase       = errors.New("cannot purchase a hint on your own challenge")
	ErrInsufficientPoints = errors.New("not enough points to purchase this hint")
	ErrInvalidDate        = errors.New("date must be RFC 3339 or YYYY-MM-DD")
)

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrForbidden) || errors.Is(err, ErrSelfPurchase) || errors.Is(err, ErrInsufficientPoints) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrBadRequest) || errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrIncorrectFlag) || errors.Is(err, ErrInvalidDate) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrConflict) || errors.Is(err, ErrAlreadySolved) || errors.Is(err, ErrAlreadyPurchased) {
		return http.StatusConflict
	}

	// Check for pgx specific errors (example for unique constraint)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" { // Unique violation
			return http.StatusConflict
		}
	}

	return http.StatusInternalServerError
}

// Errorf creates a new error with formatting, useful for wrapping.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
