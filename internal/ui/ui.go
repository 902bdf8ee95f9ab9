package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/mood"
	"github.com/desertthunder/moodmix/internal/session"
	"github.com/desertthunder/moodmix/internal/shared"
)

// Session is the part of [session.Manager] the TUI drives.
type Session interface {
	Snapshot() session.Snapshot
	Subscribe() (<-chan session.Snapshot, func())
	BeginLogin(ctx context.Context) (string, error)
	Logout(ctx context.Context) error
}

// Recommender fetches tracks for a mood.
type Recommender interface {
	Recommendations(ctx context.Context, mood models.MoodProfile, limit int) ([]models.Track, error)
}

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LoginView ViewState = iota
	BusyView
	MoodView
	LoadingView
	ResultView
)

// Model represents the TUI application state.
//
// The session snapshot decides between [LoginView], [BusyView] and the protected views on every render, so
// a logout or a rejected refresh drops back to the login screen without any view-level bookkeeping.
type Model struct {
	ctx         context.Context
	session     Session
	catalog     Recommender
	navigate    shared.Navigator
	limit       int
	snap        session.Snapshot
	updates     <-chan session.Snapshot
	unsubscribe func()
	view        ViewState // protected view, used only while authenticated
	authURL     string
	input       textinput.Model
	spinner     spinner.Model
	results     list.Model
	recs        *models.Recommendations
	err         error
	width       int
	height      int
	help        help.Model
	keys        keyMap
}

// NewModel creates a new TUI model. navigate opens authorization URLs; the URL is also shown on screen.
func NewModel(ctx context.Context, s Session, catalog Recommender, navigate shared.Navigator, limit int) *Model {
	input := textinput.New()
	input.Placeholder = "How are you feeling?"
	input.CharLimit = 120
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.ok

	updates, unsubscribe := s.Subscribe()

	return &Model{
		ctx:         ctx,
		session:     s,
		catalog:     catalog,
		navigate:    navigate,
		limit:       limit,
		snap:        s.Snapshot(),
		updates:     updates,
		unsubscribe: unsubscribe,
		view:        MoodView,
		input:       input,
		spinner:     sp,
		help:        help.New(),
		keys:        newKeyMap(),
	}
}

// Init starts listening for session changes.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForSnapshot(), m.spinner.Tick, textinput.Blink)
}

// Close detaches the model from the session.
func (m *Model) Close() {
	m.unsubscribe()
}

// Current returns the view that is rendered for the latest snapshot.
func (m *Model) Current() ViewState {
	switch m.snap.Status {
	case session.StatusAuthenticated:
		return m.view
	case session.StatusAuthenticating:
		return BusyView
	default:
		return LoginView
	}
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.recs != nil {
			m.results.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}
		switch m.Current() {
		case LoginView:
			return m.handleLoginKeys(msg)
		case MoodView:
			return m.handleMoodKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateFocused(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgSnapshot:
		snap := msg.data.(session.Snapshot)
		if snap.Authenticated() && !m.snap.Authenticated() {
			m.authURL = ""
			m.err = nil
			m.view = MoodView
		}
		m.snap = snap
		return m, m.waitForSnapshot()

	case MsgSubscriptionClosed:
		return m, nil

	case MsgLoginStarted:
		m.err = asError(msg.data)
		return m, nil

	case MsgRecommendations:
		res := msg.data.(recommendationsResult)
		if m.view != LoadingView {
			return m, nil
		}
		if res.err != nil {
			m.err = res.err
			m.view = MoodView
			return m, nil
		}
		m.recs = &res.recs
		m.results = list.New(trackItems(res.recs.Tracks), list.NewDefaultDelegate(), m.width-4, m.height-8)
		m.results.Title = fmt.Sprintf("%s mix", res.recs.Mood)
		m.view = ResultView
		return m, nil

	case MsgLoggedOut:
		m.err = asError(msg.data)
		m.recs = nil
		m.view = MoodView
		m.input.Reset()
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.Current() {
	case LoginView:
		body = m.renderLogin()
	case BusyView:
		body = fmt.Sprintf("%s\n\n%s Signing in...", styles.title.Render("moodmix"), m.spinner.View())
	case MoodView:
		body = m.renderMood()
	case LoadingView:
		body = fmt.Sprintf("%s\n\n%s Mixing %q...", styles.title.Render("moodmix"), m.spinner.View(), m.input.Value())
	case ResultView:
		body = m.renderResults()
	}
	return styles.frame.Render(body)
}

func (m *Model) handleLoginKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.login, m.keys.enter) {
		return m, m.login()
	}
	return m, nil
}

func (m *Model) handleMoodKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.logout):
		return m, m.logout()
	case key.Matches(msg, m.keys.enter):
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		profile, err := mood.Match(text)
		if err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.view = LoadingView
		return m, m.fetchRecommendations(profile)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.logout):
		return m, m.logout()
	case key.Matches(msg, m.keys.back) && m.results.FilterState() == list.Unfiltered:
		m.view = MoodView
		m.input.SetValue("")
		return m, nil
	}

	var cmd tea.Cmd
	m.results, cmd = m.results.Update(msg)
	return m, cmd
}

func (m *Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.Current() {
	case MoodView:
		m.input, cmd = m.input.Update(msg)
	case ResultView:
		m.results, cmd = m.results.Update(msg)
	}
	return m, cmd
}

func (m *Model) waitForSnapshot() tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-m.updates
		if !ok {
			return subscriptionClosedMsg()
		}
		return snapshotMsg(snap)
	}
}

func (m *Model) login() tea.Cmd {
	authURL, err := m.session.BeginLogin(m.ctx)
	if err != nil {
		m.err = err
		return nil
	}
	m.authURL = authURL
	m.err = nil

	return func() tea.Msg {
		if m.navigate == nil {
			return loginStartedMsg(nil)
		}
		return loginStartedMsg(m.navigate(authURL))
	}
}

func (m *Model) logout() tea.Cmd {
	return func() tea.Msg {
		return loggedOutMsg(m.session.Logout(m.ctx))
	}
}

func (m *Model) fetchRecommendations(profile models.MoodProfile) tea.Cmd {
	return func() tea.Msg {
		tracks, err := m.catalog.Recommendations(m.ctx, profile, m.limit)
		return recommendationsMsg(mood.Recommendations(profile, tracks), err)
	}
}

func (m *Model) renderLogin() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("moodmix"))
	b.WriteString("\n\n")

	if m.snap.Status == session.StatusError {
		b.WriteString(styles.err.Render(fmt.Sprintf("Sign-in failed (%s)", m.snap.Reason)))
		if m.snap.Detail != "" {
			b.WriteString("\n" + styles.warn.Render(m.snap.Detail))
		}
		b.WriteString("\n\n")
	}
	if m.err != nil {
		b.WriteString(styles.err.Render(m.err.Error()) + "\n\n")
	}

	if m.authURL != "" {
		b.WriteString("Waiting for the browser. If it did not open, visit:\n")
		b.WriteString(styles.help.Render(m.authURL))
		b.WriteString("\n\n")
	} else {
		b.WriteString("Log in with Spotify to get mood mixes.\n\n")
	}

	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.login, m.keys.quit}))
	return b.String()
}

func (m *Model) renderMood() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("moodmix"))
	if user := m.snap.User; user != nil {
		name := user.DisplayName
		if name == "" {
			name = user.ID
		}
		b.WriteString(styles.ok.Render("Signed in as "+name) + "\n\n")
	}

	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(styles.help.Render(strings.Join(mood.Names(), " · ")))
	b.WriteString("\n\n")

	if m.err != nil {
		msg := m.err.Error()
		if errors.Is(m.err, shared.ErrUnknownMood) {
			msg = fmt.Sprintf("No mood matches %q", m.input.Value())
		}
		b.WriteString(styles.err.Render(msg) + "\n\n")
	}

	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.logout, m.keys.quit}))
	return b.String()
}

func (m *Model) renderResults() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.logout, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s", m.results.View(), helpView)
}
