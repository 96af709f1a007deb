package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"events-calendar/data/models"
	"events-calendar/data/repository"
	"events-calendar/policy"
)

// pageError renders not-found for unknown ids and a generic failure otherwise.
func (app *application) pageError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	app.pageServerError(w, r, err)
}

func (app *application) pageServerError(w http.ResponseWriter, r *http.Request, err error) {
	app.Logger.Error().Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("page failed")
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func eventURL(id int64) string {
	return fmt.Sprintf("/event/%d", id)
}

func (app *application) indexPage(w http.ResponseWriter, r *http.Request) {
	events, err := app.Repo.ListEvents(r.Context())
	if err != nil {
		app.pageServerError(w, r, err)
		return
	}
	app.render(w, r, http.StatusOK, "index.html", templateData{Events: events})
}

func (app *application) eventPage(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "eventID")
	if err != nil {
		app.pageError(w, r, err)
		return
	}

	e, err := app.Repo.GetEventByID(r.Context(), id)
	if err != nil {
		app.pageError(w, r, err)
		return
	}
	creator, err := app.Repo.GetUserByID(r.Context(), e.CreatorID)
	if err != nil {
		app.pageServerError(w, r, err)
		return
	}
	members, err := app.Repo.ListMembers(r.Context(), e.ID)
	if err != nil {
		app.pageError(w, r, err)
		return
	}

	u := contextGetUser(r)
	app.render(w, r, http.StatusOK, "event_detail.html", templateData{
		Event:     e,
		Creator:   creator,
		Members:   members,
		CanJoin:   policy.CanJoin(e, u),
		CanLeave:  policy.CanLeave(e, u),
		CanDelete: policy.CanDelete(e, u),
	})
}

func (app *application) profilePage(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "userID")
	if err != nil {
		app.pageError(w, r, err)
		return
	}

	profile, err := app.Repo.GetUserByID(r.Context(), id)
	if err != nil {
		app.pageError(w, r, err)
		return
	}
	created, err := app.Repo.EventsCreatedBy(r.Context(), id)
	if err != nil {
		app.pageServerError(w, r, err)
		return
	}
	joined, err := app.Repo.EventsJoinedBy(r.Context(), id)
	if err != nil {
		app.pageServerError(w, r, err)
		return
	}

	app.render(w, r, http.StatusOK, "profile.html", templateData{
		Profile: profile,
		Created: created,
		Joined:  joined,
	})
}

func (app *application) createEventPage(w http.ResponseWriter, r *http.Request) {
	app.render(w, r, http.StatusOK, "event_create.html", templateData{Form: map[string]string{}})
}

func (app *application) createEventSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := map[string]string{
		"title": strings.TrimSpace(r.PostForm.Get("title")),
		"text":  r.PostForm.Get("text"),
	}

	requester := contextGetUser(r)
	e, err := models.NewEvent(form["title"], form["text"], requester.ID)
	if err == nil {
		e, err = app.Repo.CreateEvent(r.Context(), e)
	}
	if err != nil {
		if !errors.Is(err, repository.ErrValidation) {
			app.pageServerError(w, r, err)
			return
		}
		app.render(w, r, http.StatusUnprocessableEntity, "event_create.html", templateData{
			Form:   form,
			Errors: []string{"Both a title (up to 255 characters) and a description are required."},
		})
		return
	}

	app.Logger.Info().Int64("event_id", e.ID).Int64("creator_id", e.CreatorID).Msg("event created")
	http.Redirect(w, r, eventURL(e.ID), http.StatusSeeOther)
}

// joinEventPage adds the visitor to the event. Already being a member is not
// an error on this surface; the visitor simply lands back on the event.
func (app *application) joinEventPage(w http.ResponseWriter, r *http.Request) {
	app.changeMembershipPage(w, r, "join")
}

func (app *application) leaveEventPage(w http.ResponseWriter, r *http.Request) {
	app.changeMembershipPage(w, r, "leave")
}

func (app *application) changeMembershipPage(w http.ResponseWriter, r *http.Request, action string) {
	id, err := idParam(r, "eventID")
	if err != nil {
		app.pageError(w, r, err)
		return
	}
	e, err := app.Repo.GetEventByID(r.Context(), id)
	if err != nil {
		app.pageError(w, r, err)
		return
	}

	u := contextGetUser(r)
	switch {
	case action == "join" && policy.CanJoin(e, u):
		_, err = app.Repo.AddMember(r.Context(), e.ID, u.ID)
	case action == "leave" && policy.CanLeave(e, u):
		_, err = app.Repo.RemoveMember(r.Context(), e.ID, u.ID)
	default:
		http.Redirect(w, r, eventURL(e.ID), http.StatusSeeOther)
		return
	}

	switch {
	case err == nil:
		membershipChanges.WithLabelValues(action, "page").Inc()
	case errors.Is(err, repository.ErrAlreadyMember), errors.Is(err, repository.ErrNotAMember):
		// a concurrent request got there first
	default:
		app.pageError(w, r, err)
		return
	}
	http.Redirect(w, r, eventURL(e.ID), http.StatusSeeOther)
}

// deleteEventPage removes the event when the visitor created it and otherwise
// returns them to the event unchanged.
func (app *application) deleteEventPage(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "eventID")
	if err != nil {
		app.pageError(w, r, err)
		return
	}

	err = app.Repo.DeleteEvent(r.Context(), id, contextGetUser(r))
	switch {
	case err == nil:
		app.Logger.Info().Int64("event_id", id).Msg("event deleted")
		http.Redirect(w, r, "/index", http.StatusSeeOther)
	case errors.Is(err, repository.ErrForbidden):
		http.Redirect(w, r, eventURL(id), http.StatusSeeOther)
	default:
		app.pageError(w, r, err)
	}
}

func (app *application) registrationPage(w http.ResponseWriter, r *http.Request) {
	app.render(w, r, http.StatusOK, "registration.html", templateData{Form: map[string]string{}})
}

func (app *application) registrationSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := map[string]string{
		"username":   strings.TrimSpace(r.PostForm.Get("username")),
		"first_name": strings.TrimSpace(r.PostForm.Get("first_name")),
		"last_name":  strings.TrimSpace(r.PostForm.Get("last_name")),
		"birth_date": strings.TrimSpace(r.PostForm.Get("birth_date")),
	}
	password1 := r.PostForm.Get("password1")
	password2 := r.PostForm.Get("password2")

	fail := func(msg string) {
		app.render(w, r, http.StatusUnprocessableEntity, "registration.html", templateData{
			Form:   form,
			Errors: []string{msg},
		})
	}

	if password1 != password2 {
		fail("The two password fields didn't match.")
		return
	}
	birth := form["birth_date"]
	birthDate, err := parseBirthDate(&birth)
	if err != nil {
		fail("Enter a valid birth date.")
		return
	}

	_, err = app.Repo.Register(r.Context(), models.UserParams{
		Username:  form["username"],
		Password:  password1,
		FirstName: form["first_name"],
		LastName:  form["last_name"],
		BirthDate: birthDate,
	})
	switch {
	case err == nil:
		http.Redirect(w, r, "/login/", http.StatusSeeOther)
	case errors.Is(err, repository.ErrUsernameTaken):
		fail("A user with that username already exists.")
	case errors.Is(err, repository.ErrValidation):
		fail("Please fill in every field. Usernames may contain letters, digits and @/./+/-/_ only.")
	default:
		app.pageServerError(w, r, err)
	}
}

func (app *application) loginPage(w http.ResponseWriter, r *http.Request) {
	app.render(w, r, http.StatusOK, "login.html", templateData{Form: map[string]string{}})
}

func (app *application) loginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	username := r.PostForm.Get("username")

	u, err := app.Repo.Authenticate(r.Context(), username, r.PostForm.Get("password"))
	if err != nil {
		if !errors.Is(err, repository.ErrInvalidCredentials) {
			app.pageServerError(w, r, err)
			return
		}
		app.render(w, r, http.StatusUnprocessableEntity, "login.html", templateData{
			Form:   map[string]string{"username": username},
			Errors: []string{"Please enter a correct username and password."},
		})
		return
	}

	if err := app.logIn(w, r, u.ID); err != nil {
		app.pageServerError(w, r, err)
		return
	}
	http.Redirect(w, r, "/index", http.StatusSeeOther)
}

func (app *application) logoutPage(w http.ResponseWriter, r *http.Request) {
	if err := app.logOut(w, r); err != nil {
		app.pageServerError(w, r, err)
		return
	}
	http.Redirect(w, r, "/index", http.StatusSeeOther)
}
