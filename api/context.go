package main

import (
	"context"
	"net/http"

	"events-calendar/data/models"
)

type contextKey string

const userContextKey = contextKey("user")

// contextSetUser stores the authenticated user on the request. A nil user
// means the request is anonymous.
func contextSetUser(r *http.Request, u *models.User) *http.Request {
	ctx := context.WithValue(r.Context(), userContextKey, u)
	return r.WithContext(ctx)
}

func contextGetUser(r *http.Request) *models.User {
	u, _ := r.Context().Value(userContextKey).(*models.User)
	return u
}
