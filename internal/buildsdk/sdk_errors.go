package buildsdk

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/imroc/req/v3"
)

var (
	// sdk common
	ErrNoServerURL     = errors.New("sdk: server url missing")
	ErrInvalidURL      = errors.New("sdk: invalid server url")
	ErrInvalidProject  = errors.New("sdk: invalid project id")
	ErrInvalidEnv      = errors.New("sdk: invalid environment id")
	ErrNoAccessToken   = errors.New("sdk: access token missing")
	ErrTokenExpired    = errors.New("sdk: access token expired")
	ErrFileNotFound    = errors.New("sdk: file not found")
	ErrInvalidResponse = errors.New("sdk: invalid response")
)

const (
	// Generic request/server errors
	CodeInvalidRequest = "E_INVALID_REQUEST" // bad or invalid request
	CodeRateLimited    = "E_RATE_LIMITED"    // rate limit exceeded
	CodeInternalError  = "E_INTERNAL_ERROR"  // internal server error
	CodeAccessDenied   = "E_ACCESS_DENIED"   // access denied
	CodeUnknownError   = "E_UNKNOWN_ERR"     // unknown error

	// Build errors
	CodeBuildNotFound      = "E_BUILD_NOT_FOUND"      // the build id does not exist in this environment
	CodeBuildNotListable   = "E_BUILD_NOT_LISTABLE"   // files cannot be listed until the build is materialized
	CodeBuildValidation    = "E_BUILD_VALIDATION"     // request failed validation
	CodeBuildNotConsistent = "E_BUILD_NOT_CONSISTENT" // uploaded files are not yet visible to the version service

	// Presigned url errors
	CodePresignedURLExpired   = "E_PRESIGNED_URL_EXPIRED"
	CodePresignedURLInvalid   = "E_PRESIGNED_URL_INVALID"
	CodePresignedURLForbidden = "E_PRESIGNED_URL_FORBIDDEN"
	CodePresignedURLNotFound  = "E_PRESIGNED_URL_NOT_FOUND"
	CodePresignedURLRateLimit = "E_PRESIGNED_URL_RATE_LIMIT"
)

type SDKError interface {
	error
	ErrorCode() string
	ErrorMessage() string
}

// ValidationDetail lists the problems found with one request field
type ValidationDetail struct {
	Field    string   `json:"field"`
	Messages []string `json:"messages"`
}

// APIError is the problem document returned by the build API
type APIError struct {
	StatusCode int                `json:"status"`
	Code       string             `json:"code"`
	Title      string             `json:"title"`
	Detail     string             `json:"detail"`
	Details    []ValidationDetail `json:"details,omitempty"`
}

func NewAPIError(status int, code, detail string) *APIError {
	return &APIError{
		StatusCode: status,
		Code:       code,
		Title:      http.StatusText(status),
		Detail:     detail,
	}
}

func (e *APIError) ErrorCode() string { return e.Code }

func (e *APIError) ErrorMessage() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Title
}

func (e *APIError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "api error: %d", e.StatusCode)
	if e.Code != "" {
		fmt.Fprintf(&sb, " %s", e.Code)
	}
	if msg := e.ErrorMessage(); msg != "" {
		fmt.Fprintf(&sb, " - %s", msg)
	}
	for _, d := range e.Details {
		fmt.Fprintf(&sb, "; %s: %s", d.Field, strings.Join(d.Messages, ", "))
	}
	return sb.String()
}

var _ SDKError = (*APIError)(nil)

// PresignedURLError is returned when the PUT to a signed url fails
type PresignedURLError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *PresignedURLError) ErrorCode() string    { return e.Code }
func (e *PresignedURLError) ErrorMessage() string { return e.Message }

func (e *PresignedURLError) Error() string {
	return fmt.Sprintf("presigned url error: %d %s - %s", e.StatusCode, e.Code, e.Message)
}

var _ SDKError = (*PresignedURLError)(nil)

// StatusCode returns the HTTP status carried by err, or 0 when err is not an API error.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsStatus reports whether err is an API error with the given HTTP status.
func IsStatus(err error, status int) bool {
	return StatusCode(err) == status
}

// handleAPIError is a helper function that handles the common error pattern.
// An error status always yields an *APIError carrying that status, even when
// req failed to decode the body into one.
func handleAPIError(resp *req.Response, requestErr error, operation string) error {
	// got a response, but api returned an error
	if resp != nil && resp.Response != nil && resp.IsErrorState() {
		apiErr, ok := resp.ErrorResult().(*APIError)
		if requestErr != nil || !ok || apiErr == nil || (apiErr.Code == "" && apiErr.Detail == "" && apiErr.Title == "") {
			apiErr = NewAPIError(resp.GetStatusCode(), CodeUnknownError, strings.TrimSpace(resp.String()))
		}
		apiErr.StatusCode = resp.GetStatusCode()
		return fmt.Errorf("%s: %w", operation, apiErr)
	}

	if requestErr != nil {
		return fmt.Errorf("http request error: %s: %w", operation, requestErr)
	}

	return nil
}
