package dto

import "net/http"

// statusClientClosedRequest is the nginx convention for a request abandoned by the client
const statusClientClosedRequest = 499

// Error codes returned in ErrorInfo.Code. Clients switch on these, so values
// never change once published.
const (
	ErrCodeUnknown         = "ERR_UNKNOWN"
	ErrCodeInternal        = "ERR_INTERNAL"
	ErrCodeRequestCanceled = "ERR_REQUEST_CANCELED"
	ErrCodeWarmerDisabled  = "ERR_WARMER_DISABLED"
	ErrCodeRateLimited     = "ERR_RATE_LIMITED"

	ErrCodeBadRequest    = "ERR_BAD_REQUEST"
	ErrCodeInvalidPeriod = "ERR_INVALID_PERIOD"
	ErrCodeNotFound      = "ERR_NOT_FOUND"

	// ERP table kind without a column rule table
	ErrCodeUnknownKind = "ERR_ERP_UNKNOWN_KIND"
	// no export of the kind has been dropped into the export directory yet
	ErrCodeFileNotFound      = "ERR_ERP_FILE_NOT_FOUND"
	ErrCodeMissingColumns    = "ERR_ERP_MISSING_COLUMNS"
	ErrCodeInvalidFile       = "ERR_ERP_INVALID_FILE"
	ErrCodeUnsupportedFormat = "ERR_ERP_UNSUPPORTED_FORMAT"
	ErrCodeFileTooLarge      = "ERR_ERP_FILE_TOO_LARGE"

	ErrCodeUpstreamUnavailable = "ERR_UPSTREAM_UNAVAILABLE"
	ErrCodeTokenUnavailable    = "ERR_TOKEN_UNAVAILABLE"
	// source has no credentials or export path in the configuration
	ErrCodeSourceNotConfigured = "ERR_SOURCE_NOT_CONFIGURED"
)

var statusByCode = map[string]int{
	ErrCodeUnknown:         http.StatusInternalServerError,
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeRequestCanceled: statusClientClosedRequest,
	ErrCodeWarmerDisabled:  http.StatusConflict,
	ErrCodeRateLimited:     http.StatusTooManyRequests,

	ErrCodeBadRequest:    http.StatusBadRequest,
	ErrCodeInvalidPeriod: http.StatusBadRequest,

	ErrCodeNotFound:     http.StatusNotFound,
	ErrCodeUnknownKind:  http.StatusNotFound,
	ErrCodeFileNotFound: http.StatusNotFound,

	// the file exists but cannot be turned into facts
	ErrCodeMissingColumns:    http.StatusUnprocessableEntity,
	ErrCodeInvalidFile:       http.StatusUnprocessableEntity,
	ErrCodeUnsupportedFormat: http.StatusUnprocessableEntity,
	ErrCodeFileTooLarge:      http.StatusUnprocessableEntity,

	ErrCodeUpstreamUnavailable: http.StatusBadGateway,
	ErrCodeTokenUnavailable:    http.StatusServiceUnavailable,
	ErrCodeSourceNotConfigured: http.StatusServiceUnavailable,
}

// StatusOf maps an error code to its HTTP status. Unregistered codes are 500.
func StatusOf(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Codes lists every registered error code
func Codes() []string {
	codes := make([]string, 0, len(statusByCode))
	for code := range statusByCode {
		codes = append(codes, code)
	}
	return codes
}
