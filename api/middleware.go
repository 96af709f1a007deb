package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"events-calendar/data/repository"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

var errMalformedAuthorization = errors.New("malformed authorization header")

// logRequests records method, route, status, bytes and duration of every
// request. Credentials are never part of the entry.
func (app *application) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		app.Logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", statusOf(ww)).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// recordMetrics observes request counts and latency labelled by the matched
// route pattern rather than the raw path.
func (app *application) recordMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(statusOf(ww))).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func statusOf(ww middleware.WrapResponseWriter) int {
	if ww.Status() == 0 {
		return http.StatusOK
	}
	return ww.Status()
}

// tokenFromHeader extracts the key from "Authorization: Token <key>" or
// "Authorization: Bearer <key>". An absent header yields an empty key.
func tokenFromHeader(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", nil
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return "", errMalformedAuthorization
	}
	if !strings.EqualFold(parts[0], "token") && !strings.EqualFold(parts[0], "bearer") {
		return "", errMalformedAuthorization
	}
	return parts[1], nil
}

// authenticateToken resolves the request's bearer token to a user. Requests
// without a token continue anonymously; a bad token is rejected outright.
func (app *application) authenticateToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Authorization")

		key, err := tokenFromHeader(r.Header.Get("Authorization"))
		if err != nil {
			app.unauthorized(w, r)
			return
		}
		if key == "" {
			next.ServeHTTP(w, contextSetUser(r, nil))
			return
		}

		u, err := app.Repo.UserByToken(r.Context(), key)
		if err != nil {
			if errors.Is(err, repository.ErrUnauthenticated) {
				app.unauthorized(w, r)
				return
			}
			app.serverError(w, r, err)
			return
		}
		next.ServeHTTP(w, contextSetUser(r, &u))
	})
}

// requireToken rejects anonymous API requests with 401.
func (app *application) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if contextGetUser(r) == nil {
			app.unauthorized(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// loadSessionUser puts the signed-in user, if any, into the request context.
// A session pointing at a missing or deactivated account is treated as
// anonymous.
func (app *application) loadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := app.sessionUserID(r)
		if !ok {
			next.ServeHTTP(w, contextSetUser(r, nil))
			return
		}

		u, err := app.Repo.GetUserByID(r.Context(), id)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				app.pageServerError(w, r, err)
				return
			}
			next.ServeHTTP(w, contextSetUser(r, nil))
			return
		}
		if !u.IsActive {
			next.ServeHTTP(w, contextSetUser(r, nil))
			return
		}
		next.ServeHTTP(w, contextSetUser(r, &u))
	})
}

// requireSignedIn sends anonymous visitors to the login page.
func (app *application) requireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if contextGetUser(r) == nil {
			http.Redirect(w, r, "/login/", http.StatusSeeOther)
			return
		}
		w.Header().Add("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
