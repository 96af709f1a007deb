package main

import (
	"errors"
	"html/template"
	"net/http"

	"events-calendar/data/repository"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"
)

type application struct {
	Config   config
	Repo     repository.Store
	Logger   zerolog.Logger
	Sessions *sessions.CookieStore

	templates map[string]*template.Template
	// csrf wraps the page routes.
	csrf func(http.Handler) http.Handler
}

func newApplication(cfg config, repo repository.Store, logger zerolog.Logger) (*application, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	app := &application{
		Config:    cfg,
		Repo:      repo,
		Logger:    logger,
		Sessions:  newSessionStore(cfg.SessionKey, cfg.CookieSecure),
		templates: tmpl,
	}

	csrfKey := []byte(cfg.CSRFKey)
	if len(csrfKey) == 0 {
		// Forms rendered before a restart stop validating; set CSRF_KEY to keep them.
		csrfKey = securecookie.GenerateRandomKey(32)
		if csrfKey == nil {
			return nil, errors.New("could not generate a CSRF key")
		}
		logger.Warn().Msg("CSRF_KEY not set, using a random key for this process")
	}
	app.csrf = csrfProtection(csrfKey, cfg.CookieSecure)
	return app, nil
}

func main() {
	execute()
}
