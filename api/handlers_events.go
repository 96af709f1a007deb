package main

import (
	"fmt"
	"net/http"
	"strconv"

	"events-calendar/data/models"
	"events-calendar/data/repository"
	"events-calendar/policy"

	"github.com/go-chi/chi/v5"
)

// idParam reads a positive integer URL parameter. Anything else cannot name
// a stored row and is reported as not found.
func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%s %q: %w", name, chi.URLParam(r, name), repository.ErrNotFound)
	}
	return id, nil
}

// listEvents returns every event. Any query parameters switch to the filtered
// listing, e.g. ?title_contains=run&sortBy=-dateCreation&limit=20.
func (app *application) listEvents(w http.ResponseWriter, r *http.Request) {
	var (
		events []models.Event
		err    error
	)

	query := r.URL.Query()
	if len(query) == 0 {
		events, err = app.Repo.ListEvents(r.Context())
	} else {
		params := make(map[string]string, len(query))
		for k := range query {
			params[k] = query.Get(k)
		}
		events, err = app.Repo.QueryEvents(r.Context(), params)
	}
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	app.sendSuccess(w, r, http.StatusOK, newEventResponses(events))
}

func (app *application) getEvent(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "eventID")
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	e, err := app.Repo.GetEventByID(r.Context(), id)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	app.sendSuccess(w, r, http.StatusOK, newEventResponse(e))
}

func (app *application) listMembers(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "eventID")
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	members, err := app.Repo.ListMembers(r.Context(), id)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	app.sendSuccess(w, r, http.StatusOK, newUserResponses(members))
}

// createEvent stores a new event owned by the caller. The creator is never
// taken from the body.
func (app *application) createEvent(w http.ResponseWriter, r *http.Request) {
	requester := contextGetUser(r)
	if !policy.CanCreate(requester) {
		app.unauthorized(w, r)
		return
	}

	var req createEventRequest
	if err := app.ReadJSON(w, r, &req, true); err != nil {
		app.badRequest(w, r, err)
		return
	}

	e, err := models.NewEvent(req.Title, req.Text, requester.ID)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	e, err = app.Repo.CreateEvent(r.Context(), e)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	app.Logger.Info().Int64("event_id", e.ID).Int64("creator_id", e.CreatorID).Msg("event created")
	app.sendSuccess(w, r, http.StatusCreated, newEventResponse(e))
}

func (app *application) joinEvent(w http.ResponseWriter, r *http.Request) {
	app.changeMembership(w, r, "join")
}

func (app *application) leaveEvent(w http.ResponseWriter, r *http.Request) {
	app.changeMembership(w, r, "leave")
}

func (app *application) changeMembership(w http.ResponseWriter, r *http.Request, action string) {
	requester := contextGetUser(r)
	id, err := idParam(r, "eventID")
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	e, err := app.Repo.GetEventByID(r.Context(), id)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	var message string
	switch action {
	case "join":
		if !policy.CanJoin(e, requester) {
			app.errorResponse(w, r, repository.ErrAlreadyMember)
			return
		}
		_, err = app.Repo.AddMember(r.Context(), e.ID, requester.ID)
		message = "You have joined the event"
	default:
		if !policy.CanLeave(e, requester) {
			app.errorResponse(w, r, repository.ErrNotAMember)
			return
		}
		_, err = app.Repo.RemoveMember(r.Context(), e.ID, requester.ID)
		message = "You have left the event"
	}
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	membershipChanges.WithLabelValues(action, "api").Inc()
	app.sendSuccess(w, r, http.StatusOK, messageResponse{Message: message})
}

func (app *application) deleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "eventID")
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.Repo.DeleteEvent(r.Context(), id, contextGetUser(r)); err != nil {
		app.errorResponse(w, r, err)
		return
	}

	app.Logger.Info().Int64("event_id", id).Msg("event deleted")
	app.sendSuccess(w, r, http.StatusOK, messageResponse{Message: "Event deleted successfully"})
}

func (app *application) apiNotFound(w http.ResponseWriter, r *http.Request) {
	app.sendError(w, r, http.StatusNotFound, repository.ErrNotFound)
}

func (app *application) apiMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	app.sendError(w, r, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
}
