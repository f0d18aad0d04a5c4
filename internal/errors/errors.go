package errors

import (
	"net/http"
	"time"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Request errors (400xx)
	ErrInvalidRequest ErrorCode = "40001"
	ErrInvalidBase64  ErrorCode = "40002"
	ErrUnknownTool    ErrorCode = "40003"

	// Rate limit errors (429xx)
	ErrRateLimited ErrorCode = "42901"

	// Server errors (500xx)
	ErrInternalServer      ErrorCode = "50001"
	ErrKnowledgeStore      ErrorCode = "50002"
	ErrUpstreamUnavailable ErrorCode = "50301"
)

// APIError represents a standardized API error
type APIError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Details    any       `json:"details,omitempty"`
	HTTPStatus int       `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// ErrorResponse represents the error response format
type ErrorResponse struct {
	Error     APIError `json:"error"`
	RequestID string   `json:"request_id"`
	Path      string   `json:"path"`
	Method    string   `json:"method"`
	Timestamp string   `json:"timestamp"`
}

// NewErrorResponse builds the standard error envelope
func NewErrorResponse(err *APIError, requestID, path, method string) *ErrorResponse {
	return &ErrorResponse{
		Error:     *err,
		RequestID: requestID,
		Path:      path,
		Method:    method,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// GetHTTPStatusFromCode maps an error code to its HTTP status
func GetHTTPStatusFromCode(code ErrorCode) int {
	switch code {
	case ErrInvalidRequest, ErrInvalidBase64, ErrUnknownTool:
		return http.StatusBadRequest
	case ErrRateLimited:
		return http.StatusTooManyRequests
	case ErrUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Common errors
var (
	ErrInvalidRequestError = &APIError{
		Code:       ErrInvalidRequest,
		Message:    "Invalid request body",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidBase64Error = &APIError{
		Code:       ErrInvalidBase64,
		Message:    "Attachment is not valid base64",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrUnknownToolError = &APIError{
		Code:       ErrUnknownTool,
		Message:    "Unknown tool name",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrRateLimitedError = &APIError{
		Code:       ErrRateLimited,
		Message:    "Rate limit exceeded",
		HTTPStatus: http.StatusTooManyRequests,
	}

	ErrInternalServerError = &APIError{
		Code:       ErrInternalServer,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrKnowledgeStoreError = &APIError{
		Code:       ErrKnowledgeStore,
		Message:    "Knowledge store operation failed",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrUpstreamUnavailableError = &APIError{
		Code:       ErrUpstreamUnavailable,
		Message:    "Upstream service unavailable",
		HTTPStatus: http.StatusBadGateway,
	}
)

// WithDetails returns a copy of the error carrying extra detail for the client
func (e *APIError) WithDetails(details any) *APIError {
	clone := *e
	clone.Details = details
	return &clone
}
