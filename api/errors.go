package main

import (
	"errors"
	"net/http"

	"events-calendar/data/repository"
)

var errInternal = errors.New("the server encountered a problem and could not process your request")

// clientErrors are reported to API callers by their own message.
var clientErrors = []error{
	repository.ErrUsernameTaken,
	repository.ErrInvalidCredentials,
	repository.ErrAlreadyMember,
	repository.ErrNotAMember,
	repository.ErrNotFound,
	repository.ErrForbidden,
	repository.ErrUnauthenticated,
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, repository.ErrValidation),
		errors.Is(err, repository.ErrUsernameTaken),
		errors.Is(err, repository.ErrInvalidCredentials),
		errors.Is(err, repository.ErrAlreadyMember),
		errors.Is(err, repository.ErrNotAMember):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrUnauthenticated):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// publicError strips the wrapping context (ids, statements) from a store error
// so only the kind reaches the client. Validation errors keep their detail.
func publicError(err error) error {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return target
		}
	}
	return err
}

// errorResponse maps err onto its status and writes the error envelope.
// Unexpected errors are logged and replaced with a generic message.
func (app *application) errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		app.serverError(w, r, err)
		return
	}
	app.sendError(w, r, status, publicError(err))
}

func (app *application) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	app.sendError(w, r, http.StatusBadRequest, err)
}

func (app *application) unauthorized(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", "Token")
	app.sendError(w, r, http.StatusUnauthorized, repository.ErrUnauthenticated)
}

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	app.Logger.Error().Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("request failed")
	app.sendError(w, r, http.StatusInternalServerError, errInternal)
}

func (app *application) sendError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if werr := app.SendErrorJSON(w, status, err); werr != nil {
		app.Logger.Error().Err(werr).Str("path", r.URL.Path).Msg("failed to write error response")
	}
}

func (app *application) sendSuccess(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if err := app.SendSuccessJSON(w, status, data); err != nil {
		app.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write response")
	}
}
