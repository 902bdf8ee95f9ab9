package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/session"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgSnapshot MsgKind = iota
	MsgSubscriptionClosed
	MsgLoginStarted
	MsgRecommendations
	MsgLoggedOut
)

type recommendationsResult struct {
	recs models.Recommendations
	err  error
}

// snapshotMsg is the constructor for [MsgSnapshot]
func snapshotMsg(s session.Snapshot) Msg {
	return Msg{kind: MsgSnapshot, data: s}
}

// subscriptionClosedMsg is the constructor for [MsgSubscriptionClosed]
func subscriptionClosedMsg() Msg {
	return Msg{kind: MsgSubscriptionClosed}
}

// loginStartedMsg is the constructor for [MsgLoginStarted]
func loginStartedMsg(err error) Msg {
	return Msg{kind: MsgLoginStarted, data: err}
}

// recommendationsMsg is the constructor for [MsgRecommendations]
func recommendationsMsg(recs models.Recommendations, err error) Msg {
	return Msg{kind: MsgRecommendations, data: recommendationsResult{recs, err}}
}

// loggedOutMsg is the constructor for [MsgLoggedOut]
func loggedOutMsg(err error) Msg {
	return Msg{kind: MsgLoggedOut, data: err}
}

func asError(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return nil
}
