package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig   = fmt.Errorf("configuration not found")
	ErrInvalidConfig   = fmt.Errorf("invalid configuration")
	ErrMissingClientID = fmt.Errorf("missing client identifier")

	// Authorization flow errors
	ErrRandomUnavailable      = fmt.Errorf("secure random source unavailable")
	ErrInvalidTransition      = fmt.Errorf("invalid session transition")
	ErrNoPendingAuthorization = fmt.Errorf("no pending authorization")
	ErrCsrfMismatch           = fmt.Errorf("state parameter mismatch")
	ErrAuthorizationDenied    = fmt.Errorf("authorization denied")
	ErrTokenExchangeFailed    = fmt.Errorf("token exchange failed")

	// Session errors
	ErrNotAuthenticated       = fmt.Errorf("not authenticated")
	ErrAuthenticationRequired = fmt.Errorf("authentication required")
	ErrTokenRefreshFailed     = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken         = fmt.Errorf("no refresh token available")
	ErrProfileFetchFailed     = fmt.Errorf("profile fetch failed")
	ErrTokenRejected          = fmt.Errorf("access token rejected")
	ErrTimeout                = fmt.Errorf("operation timed out")

	// API and service errors
	ErrNetworkUnavailable = fmt.Errorf("network unavailable")
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Storage errors
	ErrCredentialNotFound = fmt.Errorf("credential not found")
	ErrCredentialNotSaved = fmt.Errorf("credential not persisted")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrUnknownMood     = fmt.Errorf("unknown mood")
)
