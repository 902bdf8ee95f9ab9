package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/moodmix/internal/shared"
)

// maxDispatches bounds one [Gateway.Call]: the original request plus one retry after a refresh.
const maxDispatches = 2

// GatewayOption configures a [Gateway].
type GatewayOption func(*Gateway)

// WithBaseURL sets the catalog API base URL.
func WithBaseURL(u string) GatewayOption {
	return func(g *Gateway) { g.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets the client used for API calls.
func WithHTTPClient(c *http.Client) GatewayOption {
	return func(g *Gateway) { g.httpClient = c }
}

// WithRateLimit paces outbound calls. A non-positive rps disables pacing.
func WithRateLimit(rps float64, burst int) GatewayOption {
	return func(g *Gateway) {
		if rps <= 0 {
			g.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) GatewayOption {
	return func(g *Gateway) { g.logger = l }
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) GatewayOption {
	return func(g *Gateway) { g.now = now }
}

// Gateway attaches the live credential to catalog calls and recovers from expired tokens.
//
// An expired credential is refreshed before dispatch. A 401 answer triggers one shared refresh and one
// retry; a second 401 is reported as [shared.ErrAuthenticationRequired].
type Gateway struct {
	source     CredentialSource
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
	now        func() time.Time
}

// NewGateway creates a [Gateway] for source.
func NewGateway(source CredentialSource, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		source:     source,
		baseURL:    "https://api.spotify.com/v1",
		httpClient: &http.Client{Timeout: 15 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = shared.NewLogger(nil)
	}
	g.logger = shared.WithLogger(g.logger, "component", "gateway")
	return g
}

// Call performs req with the current access token.
//
// Without a credential it fails with [shared.ErrNotAuthenticated] and makes no network request.
// Non-401 answers are returned as-is; callers check [APIResponse.OK].
func (g *Gateway) Call(ctx context.Context, req Request) (*APIResponse, error) {
	cred, ok := g.source.Credential()
	if !ok {
		return nil, shared.ErrNotAuthenticated
	}

	requestID := shared.GenerateID()
	logger := g.logger.With("request_id", requestID, "path", req.Path)

	if cred.Expired(g.now()) {
		logger.Debug("credential expired before dispatch, refreshing")
		next, err := g.source.RefreshStale(ctx, cred.AccessToken)
		if err != nil {
			return nil, authRequired(err)
		}
		cred = next
	}

	for attempt := 1; ; attempt++ {
		resp, err := g.dispatch(ctx, req, cred.AccessToken, requestID)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusUnauthorized {
			logger.Debug("catalog call complete", "status", resp.StatusCode, "attempt", attempt)
			return resp, nil
		}
		if attempt == maxDispatches {
			logger.Warn("catalog rejected refreshed token")
			return nil, fmt.Errorf("%w: catalog rejected the refreshed token", shared.ErrAuthenticationRequired)
		}

		logger.Info("catalog rejected token, refreshing once")
		next, err := g.source.RefreshStale(ctx, cred.AccessToken)
		if err != nil {
			return nil, authRequired(err)
		}
		cred = next
	}
}

// dispatch sends a single request and reads the whole body.
func (g *Gateway) dispatch(ctx context.Context, req Request, accessToken, requestID string) (*APIResponse, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	fullURL := g.baseURL + req.Path
	if len(req.Query) > 0 {
		fullURL += "?" + req.Query.Encode()
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       data,
	}

	var jsonData any
	if err := json.Unmarshal(data, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// authRequired wraps a failed refresh. Network failures pass through so callers can tell them apart.
func authRequired(err error) error {
	if errors.Is(err, shared.ErrNetworkUnavailable) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, shared.ErrNotAuthenticated) || errors.Is(err, shared.ErrCredentialNotSaved) {
		return err
	}
	return fmt.Errorf("%w: %w", shared.ErrAuthenticationRequired, err)
}
