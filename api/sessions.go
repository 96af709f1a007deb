package main

import (
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
)

const (
	sessionName    = "events-session"
	sessionUserKey = "user_id"
	sessionMaxAge  = 14 * 24 * 60 * 60
)

func newSessionStore(key string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(key))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// logIn binds the browser session to userID.
func (app *application) logIn(w http.ResponseWriter, r *http.Request, userID int64) error {
	sess, _ := app.Sessions.Get(r, sessionName)
	sess.Values[sessionUserKey] = userID
	return sess.Save(r, w)
}

func (app *application) logOut(w http.ResponseWriter, r *http.Request) error {
	sess, _ := app.Sessions.Get(r, sessionName)
	delete(sess.Values, sessionUserKey)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// sessionUserID returns the user id stored in the session, if any.
func (app *application) sessionUserID(r *http.Request) (int64, bool) {
	sess, err := app.Sessions.Get(r, sessionName)
	if err != nil {
		return 0, false
	}
	id, ok := sess.Values[sessionUserKey].(int64)
	return id, ok
}

// csrfProtection guards the cookie authenticated page routes. Bearer token API
// routes are not wrapped.
func csrfProtection(authKey []byte, secure bool) func(http.Handler) http.Handler {
	protect := csrf.Protect(authKey,
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(csrfFailure)),
	)

	return func(next http.Handler) http.Handler {
		protected := protect(next)
		if secure {
			return protected
		}
		// Without TLS the origin check must not demand an https referer.
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			protected.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
}

func csrfFailure(w http.ResponseWriter, r *http.Request) {
	reason := "token missing or invalid"
	if err := csrf.FailureReason(r); err != nil {
		reason = err.Error()
	}
	http.Error(w, "Forbidden - CSRF check failed: "+reason, http.StatusForbidden)
}
