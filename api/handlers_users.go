package main

import (
	"net/http"
)

// registerUser creates an account and answers with its API token.
func (app *application) registerUser(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := app.ReadJSON(w, r, &req, true); err != nil {
		app.badRequest(w, r, err)
		return
	}

	params, err := req.params()
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	u, err := app.Repo.Register(r.Context(), params)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	token, err := app.Repo.IssueOrReuseToken(r.Context(), u.ID)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	app.Logger.Info().Int64("user_id", u.ID).Msg("user registered")
	app.sendSuccess(w, r, http.StatusOK, tokenResponse{Token: token.Key})
}

// loginUser exchanges credentials for the caller's API token.
func (app *application) loginUser(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := app.ReadJSON(w, r, &req, true); err != nil {
		app.badRequest(w, r, err)
		return
	}

	u, err := app.Repo.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	token, err := app.Repo.IssueOrReuseToken(r.Context(), u.ID)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	app.sendSuccess(w, r, http.StatusOK, tokenResponse{Token: token.Key})
}

func (app *application) userProfile(w http.ResponseWriter, r *http.Request) {
	app.sendSuccess(w, r, http.StatusOK, newUserResponse(*contextGetUser(r)))
}
