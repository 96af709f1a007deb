package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (app *application) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(app.recordMetrics)
	r.Use(app.logRequests)

	r.Method(http.MethodGet, "/metrics", metricsHandler())
	r.Method(http.MethodGet, "/static/*", staticHandler())

	r.Route("/api", func(r chi.Router) {
		r.Use(app.authenticateToken)
		r.NotFound(app.apiNotFound)
		r.MethodNotAllowed(app.apiMethodNotAllowed)

		r.Get("/events/list", app.listEvents)
		r.Get("/events/{eventID}", app.getEvent)
		r.Get("/events/{eventID}/members", app.listMembers)
		r.Post("/users/register", app.registerUser)
		r.Post("/users/login", app.loginUser)

		r.Group(func(r chi.Router) {
			r.Use(app.requireToken)
			r.Post("/events/create", app.createEvent)
			r.Put("/events/join/{eventID}", app.joinEvent)
			r.Put("/events/leave/{eventID}", app.leaveEvent)
			r.Delete("/events/delete/{eventID}", app.deleteEvent)
			r.Get("/users/profile", app.userProfile)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(app.csrf)
		r.Use(app.loadSessionUser)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/index", http.StatusFound)
		})
		r.Get("/index", app.indexPage)
		r.Get("/profile/{userID}", app.profilePage)
		r.Get("/event/{eventID}", app.eventPage)
		r.Get("/registration", app.registrationPage)
		r.Post("/registration", app.registrationSubmit)
		r.Get("/login", app.loginPage)
		r.Post("/login", app.loginSubmit)
		r.Get("/logout", app.logoutPage)

		r.Group(func(r chi.Router) {
			r.Use(app.requireSignedIn)
			r.Get("/event/create", app.createEventPage)
			r.Post("/event/create", app.createEventSubmit)
			r.Post("/event/{eventID}/join", app.joinEventPage)
			r.Post("/event/{eventID}/leave", app.leaveEventPage)
			r.Post("/event/{eventID}/delete", app.deleteEventPage)
		})
	})

	return r
}
