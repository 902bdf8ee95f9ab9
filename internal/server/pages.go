package server

import (
	"html/template"
	"net/http"

	"github.com/desertthunder/moodmix/internal/formatter"
	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/session"
)

type pageData struct {
	Session session.Snapshot
	Moods   []string
	Query   string
	Message string
	Results *models.Recommendations
}

var funcs = template.FuncMap{"duration": formatter.FormatDuration}

const layout = `<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>moodmix</title>{{block "head" .}}{{end}}</head>
<body>
<h1>moodmix</h1>
{{template "body" .}}
</body>
</html>`

var (
	loginTmpl = page(`{{define "body"}}
{{if eq .Session.Status.String "error"}}<p class="error">Sign-in failed ({{.Session.Reason}}){{with .Session.Detail}}: {{.}}{{end}}</p>{{end}}
{{with .Message}}<p class="error">{{.}}</p>{{end}}
<p><a href="/login">Log in with Spotify</a></p>
{{end}}`)

	busyTmpl = page(`{{define "head"}}<meta http-equiv="refresh" content="1">{{end}}
{{define "body"}}<p>Signing in&hellip;</p>{{end}}`)

	homeTmpl = page(`{{define "body"}}
<p>Signed in as {{with .Session.User}}{{if .DisplayName}}{{.DisplayName}}{{else}}{{.ID}}{{end}}{{end}}</p>
<form method="post" action="/logout"><button type="submit">Log out</button></form>
<form method="get" action="/">
<input name="mood" value="{{.Query}}" placeholder="How are you feeling?" list="moods">
<datalist id="moods">{{range .Moods}}<option value="{{.}}">{{end}}</datalist>
<button type="submit">Mix</button>
</form>
{{with .Message}}<p class="error">{{.}}</p>{{end}}
{{with .Results}}
<h2>{{.Mood}}</h2>
<ol>{{range .Tracks}}<li>{{if .URL}}<a href="{{.URL}}">{{.Title}}</a>{{else}}{{.Title}}{{end}} - {{.Artist}} [{{duration .Duration}}]</li>{{end}}</ol>
{{end}}
{{end}}`)
)

func page(body string) *template.Template {
	return template.Must(template.Must(template.New("layout").Funcs(funcs).Parse(layout)).Parse(body))
}

func (a *App) render(w http.ResponseWriter, t *template.Template, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := t.Execute(w, data); err != nil {
		a.logger.Error("render failed", "error", err)
	}
}
