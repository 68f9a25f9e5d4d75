package dto

import "net/http"

// General error codes
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeBadRequest is used for malformed requests, e.g. an order id that is not a UUID
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeNotFound is used for unknown routes and resources
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeUnavailable is used when a dependency is down
	ErrCodeUnavailable = "ERR_UNAVAILABLE"
)

// Invoice error codes. They are returned unchanged from the domain and renderer.
const (
	ErrCodeOrderNotFound  = "ORDER_NOT_FOUND"
	ErrCodeInvalidOrder   = "INVALID_ORDER"
	ErrCodeEncodingFailed = "ENCODING_FAILED"
	ErrCodeRenderTimeout  = "RENDER_TIMEOUT"
	ErrCodeStorageFailed  = "STORAGE_FAILED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:    http.StatusInternalServerError,
	ErrCodeBadRequest:  http.StatusBadRequest,
	ErrCodeNotFound:    http.StatusNotFound,
	ErrCodeUnavailable: http.StatusServiceUnavailable,

	ErrCodeOrderNotFound:  http.StatusNotFound,
	ErrCodeInvalidOrder:   http.StatusBadRequest,
	ErrCodeEncodingFailed: http.StatusInternalServerError,
	ErrCodeRenderTimeout:  http.StatusGatewayTimeout,
	ErrCodeStorageFailed:  http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// LegacyErrorCodeMapping maps the shared domain codes to API codes
var LegacyErrorCodeMapping = map[string]string{
	"NOT_FOUND":      ErrCodeNotFound,
	"INVALID_INPUT":  ErrCodeBadRequest,
	"INVALID_STATE":  ErrCodeInvalidOrder,
	"INTERNAL_ERROR": ErrCodeInternal,
}

// NormalizeErrorCode converts a shared domain code to its API code.
// Other codes are returned as-is.
func NormalizeErrorCode(code string) string {
	if newCode, ok := LegacyErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
