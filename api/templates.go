package main

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"events-calendar/data/models"

	"github.com/gorilla/csrf"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = []string{
	"index.html",
	"event_detail.html",
	"event_create.html",
	"profile.html",
	"registration.html",
	"login.html",
}

var templateFuncs = template.FuncMap{
	"richText": richText,
	"date": func(t time.Time) string {
		return t.Format("2 Jan 2006 15:04")
	},
	"day": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format("2 Jan 2006")
	},
}

// templateData is the single value handed to every page template.
type templateData struct {
	CurrentUser *models.User
	CSRFField   template.HTML

	Events  []models.Event
	Event   models.Event
	Creator models.User
	Members []models.User

	Profile models.User
	Created []models.Event
	Joined  []models.Event

	CanJoin   bool
	CanLeave  bool
	CanDelete bool

	Form   map[string]string
	Errors []string
}

func parseTemplates() (map[string]*template.Template, error) {
	cache := make(map[string]*template.Template, len(pageTemplates))
	for _, page := range pageTemplates {
		ts, err := template.New(page).Funcs(templateFuncs).
			ParseFS(templateFS, "templates/base.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		cache[page] = ts
	}
	return cache, nil
}

// render executes page into a buffer first so a template error never leaves
// a half written response.
func (app *application) render(w http.ResponseWriter, r *http.Request, status int, page string, data templateData) {
	ts, ok := app.templates[page]
	if !ok {
		app.pageServerError(w, r, fmt.Errorf("template %s does not exist", page))
		return
	}

	data.CurrentUser = contextGetUser(r)
	data.CSRFField = csrf.TemplateField(r)

	buf := new(bytes.Buffer)
	if err := ts.ExecuteTemplate(buf, "base", data); err != nil {
		app.pageServerError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
