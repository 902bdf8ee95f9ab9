package session

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/repositories"
	"github.com/desertthunder/moodmix/internal/shared"
)

const (
	defaultRefreshFraction = 5.0 / 6.0
	defaultRequestTimeout  = 15 * time.Second
	defaultPendingTTL      = 10 * time.Minute
	// defaultLifetime applies when a token response omits expires_in.
	defaultLifetime = time.Hour
)

// ProfileFetcher loads the catalog profile that belongs to an access token.
//
// A token the catalog refuses must produce an error wrapping [shared.ErrTokenRejected].
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, accessToken string) (models.Profile, error)
}

// Config is the public client registration plus lifecycle tuning.
type Config struct {
	ClientID    string
	RedirectURL string
	Scopes      []string
	AuthURL     string
	TokenURL    string

	// RefreshFraction is the share of remaining lifetime after which the proactive refresh fires.
	RefreshFraction float64
	RequestTimeout  time.Duration
	PendingTTL      time.Duration
}

// ConfigFrom builds a [Config] from the application configuration.
func ConfigFrom(c *shared.Config) Config {
	return Config{
		ClientID:        c.Credentials.Spotify.ClientID,
		RedirectURL:     c.Credentials.Spotify.RedirectURI,
		Scopes:          c.Credentials.Spotify.Scopes,
		AuthURL:         c.Catalog.AuthURL,
		TokenURL:        c.Catalog.TokenURL,
		RefreshFraction: c.Auth.RefreshFraction,
		RequestTimeout:  c.Auth.RequestTimeout.Duration,
		PendingTTL:      c.Auth.PendingTTL.Duration,
	}
}

// Option configures a [Manager].
type Option func(*Manager)

// WithCredentialStore sets the durable credential store. Defaults to an in-memory store.
func WithCredentialStore(s models.CredentialStore) Option {
	return func(m *Manager) { m.credentials = s }
}

// WithPendingStore sets the single-use pending authorization store. Defaults to an in-memory store.
func WithPendingStore(s models.PendingStore) Option {
	return func(m *Manager) { m.pending = s }
}

// WithProfileFetcher sets the profile source. Required.
func WithProfileFetcher(p ProfileFetcher) Option {
	return func(m *Manager) { m.profiles = p }
}

// WithHTTPClient sets the client used for token endpoint calls.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.httpClient = c }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithNavigator sets how [Manager.Login] hands the authorization URL to the user.
func WithNavigator(n shared.Navigator) Option {
	return func(m *Manager) { m.navigate = n }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager owns one authentication session: login, callback handling, refresh, logout and the derived [Snapshot].
//
// All fields below mu are guarded by it. Every transition commits credential, profile and failure together so
// observers never see a mix of old and new state.
type Manager struct {
	oauth       *oauth2.Config
	credentials models.CredentialStore
	pending     models.PendingStore
	profiles    ProfileFetcher
	httpClient  *http.Client
	logger      *log.Logger
	navigate    shared.Navigator
	now         func() time.Time

	refreshFraction float64
	requestTimeout  time.Duration
	pendingTTL      time.Duration

	flight singleflight.Group

	mu      sync.Mutex
	cred    *models.Credential
	profile *models.Profile
	busy    int
	failure *failure
	// epoch increments on logout; work started under an older epoch must not commit.
	epoch   uint64
	timer   *time.Timer
	started bool
	closed  bool
	subs    map[chan Snapshot]struct{}
}

// failure is the last unresolved problem. status is [StatusError] or [StatusUnauthenticated].
type failure struct {
	status Status
	reason Reason
	err    error
}

// New creates a [Manager] in the Authenticating state. Call [Manager.Start] to hydrate from the credential store.
func New(cfg Config, opts ...Option) (*Manager, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: client id is empty", shared.ErrMissingClientID)
	}
	if cfg.AuthURL == "" || cfg.TokenURL == "" {
		return nil, fmt.Errorf("%w: authorization and token endpoints are required", shared.ErrInvalidConfig)
	}

	m := &Manager{
		oauth: &oauth2.Config{
			ClientID:    cfg.ClientID,
			RedirectURL: cfg.RedirectURL,
			Scopes:      cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		refreshFraction: cfg.RefreshFraction,
		requestTimeout:  cfg.RequestTimeout,
		pendingTTL:      cfg.PendingTTL,
		now:             time.Now,
		busy:            1,
		subs:            make(map[chan Snapshot]struct{}),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.profiles == nil {
		return nil, fmt.Errorf("%w: profile fetcher is required", shared.ErrInvalidConfig)
	}
	if m.refreshFraction <= 0 || m.refreshFraction >= 1 {
		m.refreshFraction = defaultRefreshFraction
	}
	if m.requestTimeout <= 0 {
		m.requestTimeout = defaultRequestTimeout
	}
	if m.pendingTTL <= 0 {
		m.pendingTTL = defaultPendingTTL
	}
	if m.credentials == nil {
		m.credentials = repositories.NewMemoryCredentialStore()
	}
	if m.pending == nil {
		m.pending = repositories.NewMemoryPendingStore()
	}
	if m.httpClient == nil {
		m.httpClient = &http.Client{Timeout: m.requestTimeout}
	}
	if m.logger == nil {
		m.logger = shared.NewLogger(nil)
	}
	m.logger = shared.WithLogger(m.logger, "component", "session")

	return m, nil
}

// Snapshot returns the current derived state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	if m.busy > 0 {
		return Snapshot{Status: StatusAuthenticating}
	}
	if m.failure != nil {
		return Snapshot{Status: m.failure.status, Reason: m.failure.reason, Detail: m.failure.err.Error()}
	}
	if m.cred != nil && m.profile != nil {
		user := *m.profile
		return Snapshot{Status: StatusAuthenticated, User: &user}
	}
	return Snapshot{Status: StatusUnauthenticated}
}

// Subscribe returns a channel that receives the latest snapshot after every transition, starting with the
// current one. Slow readers only ever see the newest value. Call the returned func to unsubscribe.
func (m *Manager) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	m.mu.Lock()
	m.subs[ch] = struct{}{}
	ch <- m.snapshotLocked()
	m.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, ch)
			m.mu.Unlock()
		})
	}
}

// publishLocked pushes the current snapshot to every subscriber, replacing any unread value.
func (m *Manager) publishLocked() {
	snap := m.snapshotLocked()
	for ch := range m.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

// Credential returns a copy of the live credential.
func (m *Manager) Credential() (models.Credential, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cred == nil {
		return models.Credential{}, false
	}
	return *m.cred, true
}

// Close cancels the proactive refresh and detaches subscribers. A refresh already in flight still persists its
// result so a rotated refresh token is not lost.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	m.stopTimerLocked()
	for ch := range m.subs {
		delete(m.subs, ch)
	}
	return nil
}

// begin marks a user-visible operation as in progress and returns the epoch it runs under.
func (m *Manager) begin() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.busy++
	m.publishLocked()
	return m.epoch
}

// end releases a busy mark taken by [Manager.begin] and publishes the resulting state.
func (m *Manager) end() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy > 0 {
		m.busy--
	}
	m.publishLocked()
}

// failLocked records err as the session outcome. Unauthenticated failures also drop the credential and profile.
func (m *Manager) failLocked(status Status, err error) {
	if status == StatusUnauthenticated {
		m.cred = nil
		m.profile = nil
		m.stopTimerLocked()
	}
	m.failure = &failure{status: status, reason: reasonFor(err), err: err}
}

// tokenContext carries the configured HTTP client into oauth2 calls and bounds them with the request timeout.
func (m *Manager) tokenContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	return context.WithTimeout(ctx, m.requestTimeout)
}

// credentialFrom converts a token response. A zero expiry means the response omitted expires_in.
func (m *Manager) credentialFrom(tok *oauth2.Token, previousRefresh string) models.Credential {
	expiry := tok.Expiry
	if expiry.IsZero() {
		expiry = m.now().Add(defaultLifetime)
	}
	refresh := tok.RefreshToken
	if refresh == "" {
		refresh = previousRefresh
	}
	return models.Credential{AccessToken: tok.AccessToken, RefreshToken: refresh, ExpiresAt: expiry}
}
