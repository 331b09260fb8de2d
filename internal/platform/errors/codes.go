// Package errors provides structured error handling for flairhub services.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Token errors
	CodeTokenMalformed        Code = "TOKEN_MALFORMED"
	CodeTokenInvalidSignature Code = "TOKEN_INVALID_SIGNATURE"
	CodeTokenWrongKind        Code = "TOKEN_WRONG_KIND"

	// Provider linkage errors
	CodeStateMismatch       Code = "STATE_MISMATCH"
	CodeProviderUnavailable Code = "PROVIDER_UNAVAILABLE"
	CodeProviderRejected    Code = "PROVIDER_REJECTED"
	CodeConflictingAccount  Code = "CONFLICTING_ACCOUNT"

	// Sync errors
	CodeSyncFetchFailed     Code = "SYNC_FETCH_FAILED"
	CodeSyncAggregateFailed Code = "SYNC_AGGREGATE_FAILED"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeTokenMalformed,
		CodeTokenInvalidSignature,
		CodeTokenWrongKind:
		return http.StatusUnauthorized
	case CodeStateMismatch:
		return http.StatusBadRequest
	case CodeProviderUnavailable,
		CodeProviderRejected:
		return http.StatusBadGateway
	case CodeConflictingAccount:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
