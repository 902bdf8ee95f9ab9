package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/moodmix/internal/repositories"
	"github.com/desertthunder/moodmix/internal/services"
	"github.com/desertthunder/moodmix/internal/session"
	"github.com/desertthunder/moodmix/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The session stack is built on first use so that commands like setup never open the database.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	navigate   shared.Navigator
	stores     *repositories.Stores
	manager    *session.Manager
	catalog    *services.Catalog
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Navigator  shared.Navigator
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Config.Auth.RequestTimeout.Duration}
	}
	if opts.Navigator == nil {
		opts.Navigator = shared.BrowserNavigator(opts.Output)
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		navigate:   opts.Navigator,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, moodsCommand, recommendCommand, searchCommand, exportCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Load reads the config file named by --config. A missing file keeps the defaults.
func (r *Runner) Load(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	r.configPath = cmd.String("config")
	if _, err := os.Stat(r.configPath); err != nil {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		return ctx, nil
	}

	config, err := shared.LoadConfig(r.configPath)
	if err != nil {
		return ctx, err
	}
	r.config = config
	r.httpClient.Timeout = config.Auth.RequestTimeout.Duration
	return ctx, nil
}

// SetLogger replaces the logger used by the runner and everything it builds afterwards.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// Session opens the stores, builds the session manager and catalog client, and hydrates the session from the
// stored credential. It is safe to call more than once.
func (r *Runner) Session(ctx context.Context) (*session.Manager, error) {
	if r.manager != nil {
		return r.manager, nil
	}

	if err := r.config.Validate(); err != nil {
		return nil, err
	}

	stores, err := repositories.Open(ctx, r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	manager, err := session.New(session.ConfigFrom(r.config),
		session.WithCredentialStore(stores.Credentials),
		session.WithPendingStore(stores.Pending),
		session.WithProfileFetcher(services.NewProfileClient(r.config.Catalog.BaseURL, r.httpClient)),
		session.WithHTTPClient(r.httpClient),
		session.WithNavigator(r.navigate),
		session.WithLogger(r.logger),
	)
	if err != nil {
		stores.Close()
		return nil, err
	}

	gateway := services.NewGateway(manager,
		services.WithBaseURL(r.config.Catalog.BaseURL),
		services.WithHTTPClient(r.httpClient),
		services.WithRateLimit(r.config.Catalog.RateLimit, r.config.Catalog.Burst),
		services.WithLogger(r.logger),
	)

	r.stores = stores
	r.manager = manager
	r.catalog = services.NewCatalog(gateway)

	// Hydration failures are recorded on the snapshot; commands decide what to do with them.
	if err := manager.Start(ctx); err != nil {
		r.logger.Debug("session hydration failed", "error", err)
	}
	return manager, nil
}

// requireSession returns an authenticated manager or an error that explains how to log in.
func (r *Runner) requireSession(ctx context.Context) (*session.Manager, error) {
	m, err := r.Session(ctx)
	if err != nil {
		return nil, err
	}

	snap := m.Snapshot()
	if snap.Authenticated() {
		return m, nil
	}
	if snap.Status == session.StatusError {
		return nil, fmt.Errorf("%w: session %s (%s), run 'moodmix auth login'", shared.ErrNotAuthenticated, snap.Reason, snap.Detail)
	}
	return nil, fmt.Errorf("%w: run 'moodmix auth login'", shared.ErrNotAuthenticated)
}

// Close releases the session manager and database.
func (r *Runner) Close(ctx context.Context, cmd *cli.Command) error {
	var errs []error
	if r.manager != nil {
		errs = append(errs, r.manager.Close())
		r.manager = nil
	}
	if r.stores != nil {
		errs = append(errs, r.stores.Close())
		r.stores = nil
	}
	return errors.Join(errs...)
}

// callbackAddr is the loopback host:port the redirect URI points at.
func (r *Runner) callbackAddr() (string, error) {
	u, err := url.Parse(r.config.Credentials.Spotify.RedirectURI)
	if err != nil {
		return "", fmt.Errorf("%w: redirect_uri: %v", shared.ErrInvalidConfig, err)
	}
	if u.Path != "/callback" || u.Port() == "" {
		return "", fmt.Errorf("%w: redirect_uri must look like http://127.0.0.1:<port>/callback", shared.ErrInvalidConfig)
	}
	return u.Host, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
