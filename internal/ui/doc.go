// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI is a guarded view switch over a session:
//  1. [LoginView] : shown while unauthenticated or after a failed sign-in, with the failure reason
//  2. [BusyView] : spinner while the session is hydrating or exchanging a code
//  3. [MoodView] : free-text mood input, matched against the known moods
//  4. [LoadingView] : spinner while recommendations are fetched
//  5. [ResultView] : the returned tracks in a filterable list
//
// Session changes arrive through [session.Manager.Subscribe], so a logout or a rejected refresh returns the
// user to [LoginView] without polling.
package ui
