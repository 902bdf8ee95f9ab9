package session

import (
	"context"
	"errors"
	"net"
	"net/url"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
)

// Status is the externally visible session state.
type Status int

const (
	StatusUnauthenticated Status = iota
	StatusAuthenticating
	StatusAuthenticated
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusAuthenticating:
		return "authenticating"
	case StatusAuthenticated:
		return "authenticated"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText implements [encoding.TextMarshaler] so snapshots encode as readable JSON.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Reason names the failure behind an Error status, or the reason a session fell back to Unauthenticated.
type Reason string

const (
	ReasonNone                   Reason = ""
	ReasonConfiguration          Reason = "configuration"
	ReasonRandomUnavailable      Reason = "random_unavailable"
	ReasonCsrfMismatch           Reason = "csrf_mismatch"
	ReasonAuthorizationDenied    Reason = "authorization_denied"
	ReasonNoPendingAuthorization Reason = "no_pending_authorization"
	ReasonTokenExchangeFailed    Reason = "token_exchange_failed"
	ReasonTokenRefreshFailed     Reason = "token_refresh_failed"
	ReasonProfileFetchFailed     Reason = "profile_fetch_failed"
	ReasonNetworkUnavailable     Reason = "network_unavailable"
	ReasonStorage                Reason = "storage"
	ReasonCanceled               Reason = "canceled"
)

// Snapshot is the derived, read-only view of a session.
//
// User is set only when Status is [StatusAuthenticated]. Reason and Detail are empty when Status is
// [StatusAuthenticated] or [StatusAuthenticating].
type Snapshot struct {
	Status Status          `json:"status"`
	Reason Reason          `json:"reason,omitempty"`
	Detail string          `json:"detail,omitempty"`
	User   *models.Profile `json:"user,omitempty"`
}

// Authenticated reports whether protected content may be shown.
func (s Snapshot) Authenticated() bool {
	return s.Status == StatusAuthenticated
}

// reasonFor maps an error chain onto a [Reason]. Order matters: network problems are checked before the
// operation-level sentinel that wraps them.
func reasonFor(err error) Reason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, shared.ErrMissingClientID), errors.Is(err, shared.ErrInvalidConfig):
		return ReasonConfiguration
	case errors.Is(err, shared.ErrRandomUnavailable):
		return ReasonRandomUnavailable
	case errors.Is(err, shared.ErrCsrfMismatch):
		return ReasonCsrfMismatch
	case errors.Is(err, shared.ErrAuthorizationDenied):
		return ReasonAuthorizationDenied
	case errors.Is(err, shared.ErrNoPendingAuthorization):
		return ReasonNoPendingAuthorization
	case errors.Is(err, context.Canceled):
		return ReasonCanceled
	case errors.Is(err, shared.ErrNetworkUnavailable), errors.Is(err, context.DeadlineExceeded):
		return ReasonNetworkUnavailable
	case errors.Is(err, shared.ErrTokenExchangeFailed):
		return ReasonTokenExchangeFailed
	case errors.Is(err, shared.ErrTokenRefreshFailed), errors.Is(err, shared.ErrNoRefreshToken):
		return ReasonTokenRefreshFailed
	case errors.Is(err, shared.ErrProfileFetchFailed), errors.Is(err, shared.ErrTokenRejected):
		return ReasonProfileFetchFailed
	default:
		return ReasonStorage
	}
}

// isTransport reports whether err came from the network rather than from a server answer.
func isTransport(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
