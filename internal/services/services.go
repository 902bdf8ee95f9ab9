// package services talks to the catalog service over HTTP
package services

import (
	"context"
	"net/http"
	"net/url"

	"github.com/desertthunder/moodmix/internal/models"
)

// CredentialSource supplies the live credential and the shared refresh.
//
// [session.Manager] implements it.
type CredentialSource interface {
	Credential() (models.Credential, bool)
	// RefreshStale replaces stale unless a newer credential is already live.
	RefreshStale(ctx context.Context, stale string) (models.Credential, error)
}

// Caller dispatches authenticated catalog requests. [Gateway] implements it.
type Caller interface {
	Call(ctx context.Context, req Request) (*APIResponse, error)
}

// Request is one catalog API call relative to the gateway base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
}

// Get builds a GET [Request].
func Get(path string, query url.Values) Request {
	return Request{Method: http.MethodGet, Path: path, Query: query}
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// OK reports a 2xx status.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
