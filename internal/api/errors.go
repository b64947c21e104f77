package api

import (
	"errors"
	"net/http"

	"duck-rollup/internal/domain"
)

// httpStatusFromDomainError maps domain errors to HTTP status codes.
// Malformed queries and unsupported predicates are client errors: the
// workload decoded fine, the query itself is wrong.
func httpStatusFromDomainError(err error) int {
	var notFound *domain.NotFoundError
	var validation *domain.ValidationError
	var malformed *domain.MalformedQueryError
	var unsupported *domain.UnsupportedPredicateError
	var conflict *domain.ConflictError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &malformed):
		return http.StatusBadRequest
	case errors.As(err, &unsupported):
		return http.StatusBadRequest
	case errors.As(err, &conflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
