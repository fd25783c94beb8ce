package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrNotAuthenticated is returned when no session token accompanies a request.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrInvalidSession is returned when a session token is unknown.
	ErrInvalidSession = errors.New("invalid session")
	// ErrSessionExpired is returned when a session token is past its expiry.
	ErrSessionExpired = errors.New("session expired")
	// ErrUserNotFound is returned when a session points at a missing user.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailAlreadyRegistered is returned when registering an existing email.
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	// ErrSessionIDRequired is returned when the SSO exchange has no session id.
	ErrSessionIDRequired = errors.New("session ID required")
	// ErrIdentityExchange is returned when the identity provider rejects a session id.
	ErrIdentityExchange = errors.New("identity provider rejected session")

	// ErrAdNotFound is returned when an ad is not found.
	ErrAdNotFound = errors.New("ad not found")
	// ErrForbidden is returned when a non-owner tries to mutate an ad.
	ErrForbidden = errors.New("not authorized")
	// ErrInvalidCategory is returned when a category is not in the taxonomy.
	ErrInvalidCategory = errors.New("invalid category")
	// ErrInvalidSubcategory is returned when a subcategory is not in its category.
	ErrInvalidSubcategory = errors.New("invalid subcategory for selected category")
	// ErrFreeAdImageLimit is returned when a free ad carries too many images.
	ErrFreeAdImageLimit = errors.New("free ads are limited to 5 images")
	// ErrEmptyField is returned when an update blanks a required text field.
	ErrEmptyField = errors.New("title and description must not be empty")

	// ErrTransactionNotFound is returned when no transaction matches a session.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrOriginURLRequired is returned when checkout is requested without an origin.
	ErrOriginURLRequired = errors.New("origin URL required")
)

// UpstreamError wraps a failure reported by an external provider. Its message
// is passed through to the caller.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	return e.Err.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NewUpstreamError wraps err as a provider failure.
func NewUpstreamError(provider string, err error) *UpstreamError {
	return &UpstreamError{Provider: provider, Err: err}
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Detail: e.Message,
		Code:   e.Code,
	}
}

var domainErrors = []struct {
	err    error
	status int
	detail string
	code   string
}{
	{ErrNotAuthenticated, http.StatusUnauthorized, "Not authenticated", "NOT_AUTHENTICATED"},
	{ErrInvalidSession, http.StatusUnauthorized, "Invalid session", "INVALID_SESSION"},
	{ErrSessionExpired, http.StatusUnauthorized, "Session expired", "SESSION_EXPIRED"},
	{ErrUserNotFound, http.StatusUnauthorized, "User not found", "USER_NOT_FOUND"},
	{ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials", "INVALID_CREDENTIALS"},
	{ErrEmailAlreadyRegistered, http.StatusBadRequest, "Email already registered", "EMAIL_ALREADY_REGISTERED"},
	{ErrSessionIDRequired, http.StatusBadRequest, "Session ID required", "SESSION_ID_REQUIRED"},
	{ErrIdentityExchange, http.StatusBadRequest, "Invalid session", "SSO_EXCHANGE_FAILED"},
	{ErrAdNotFound, http.StatusNotFound, "Ad not found", "AD_NOT_FOUND"},
	{ErrForbidden, http.StatusForbidden, "Not authorized", "FORBIDDEN"},
	{ErrInvalidCategory, http.StatusBadRequest, "Invalid category", "INVALID_CATEGORY"},
	{ErrInvalidSubcategory, http.StatusBadRequest, "Invalid subcategory for selected category", "INVALID_SUBCATEGORY"},
	{ErrFreeAdImageLimit, http.StatusBadRequest, "Free ads are limited to 5 images", "FREE_AD_IMAGE_LIMIT"},
	{ErrEmptyField, http.StatusBadRequest, "Title and description must not be empty", "VALIDATION_ERROR"},
	{ErrTransactionNotFound, http.StatusNotFound, "Transaction not found", "TRANSACTION_NOT_FOUND"},
	{ErrOriginURLRequired, http.StatusBadRequest, "Origin URL required", "ORIGIN_URL_REQUIRED"},
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	for _, d := range domainErrors {
		if errors.Is(err, d.err) {
			return NewHTTPError(d.status, d.detail, d.code)
		}
	}

	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return NewHTTPError(http.StatusBadRequest, upstream.Error(), "UPSTREAM_ERROR")
	}

	return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
}
