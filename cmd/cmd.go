// submodule cmd contains command definitions
package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/moodmix/internal/formatter"
)

func formatFlags() []cli.Flag {
	names := make([]string, len(formatter.Formats))
	for i, f := range formatter.Formats {
		names[i] = string(f)
	}

	return []cli.Flag{
		&cli.IntFlag{
			Name:    "limit",
			Aliases: []string{"n"},
			Usage:   "Maximum number of tracks to return",
			Value:   20,
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   fmt.Sprintf("Output format (%s)", strings.Join(names, ", ")),
			Value:   string(formatter.FormatText),
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write to a file instead of stdout",
		},
	}
}

// setupCommand writes a config file and prepares the database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file, initialize the database and run migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "client-id",
				Usage: "Spotify client ID to store in the config file",
			},
			&cli.StringFlag{
				Name:  "redirect-uri",
				Usage: "Loopback redirect URI registered for the client",
			},
			&cli.BoolFlag{
				Name:  "reset",
				Usage: "Drop and recreate the session tables, forgetting any stored login",
			},
		},
		Action: r.SetupDatabase,
	}
}

// authCommand handles the session lifecycle
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the Spotify session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Log in with the authorization code flow and a loopback callback",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the browser to return",
						Value: defaultLoginTimeout,
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "status",
				Usage: "Show the current session",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output the session snapshot as JSON",
					},
				},
				Action: r.AuthStatus,
			},
			{
				Name:   "refresh",
				Usage:  "Refresh the access token now",
				Action: r.AuthRefresh,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored credential",
				Action: r.AuthLogout,
			},
		},
	}
}

// moodsCommand lists the known moods
func moodsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "moods",
		Usage: "List the moods that can be requested",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Moods,
	}
}

// recommendCommand fetches tracks for a mood
func recommendCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "recommend",
		Aliases:   []string{"mix"},
		Usage:     "Recommend tracks for a mood, e.g. 'moodmix recommend feeling pretty chill'",
		ArgsUsage: "<mood...>",
		Flags:     formatFlags(),
		Action:    r.Recommend,
	}
}

// searchCommand searches the catalog
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search the catalog for tracks",
		ArgsUsage: "<query...>",
		Flags:     formatFlags(),
		Action:    r.Search,
	}
}

// exportCommand writes a file per mood
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export recommendations for several moods into a directory",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "moods",
				Aliases: []string{"m"},
				Usage:   "Moods to export, defaults to every known mood",
			},
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "Output directory (default: moodmix_export_{epoch})",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format for each mood",
				Value:   string(formatter.FormatJSON),
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Tracks per mood",
				Value:   20,
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent requests",
				Value: 3,
			},
		},
		Action: r.Export,
	}
}

// serveCommand runs the local web surface
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the browser interface on the configured host and port",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address, defaults to the redirect URI's host",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand launches the terminal interface
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Launch the interactive terminal interface",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of tracks per mix",
				Value:   20,
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the interface is running",
				Value: "./tmp/moodmix-tui.log",
			},
		},
		Action: r.TUI,
	}
}
