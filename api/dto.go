package main

import (
	"fmt"
	"strings"
	"time"

	"events-calendar/data/models"
	"events-calendar/data/repository"
)

const dateLayout = "2006-01-02"

type eventResponse struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Text         string    `json:"text"`
	DateCreation time.Time `json:"dateCreation"`
	Creator      int64     `json:"creator"`
	Members      []int64   `json:"members"`
}

func newEventResponse(e models.Event) eventResponse {
	members := e.Members
	if members == nil {
		members = []int64{}
	}
	return eventResponse{
		ID:           e.ID,
		Title:        e.Title,
		Text:         e.Text,
		DateCreation: e.DateCreation,
		Creator:      e.CreatorID,
		Members:      members,
	}
}

func newEventResponses(events []models.Event) []eventResponse {
	out := make([]eventResponse, len(events))
	for i, e := range events {
		out[i] = newEventResponse(e)
	}
	return out
}

type userResponse struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	DateJoined time.Time `json:"dateJoined"`
	BirthDate  *string   `json:"birthDate"`
	IsActive   bool      `json:"isActive"`
	IsStaff    bool      `json:"isStaff"`
}

func newUserResponse(u models.User) userResponse {
	res := userResponse{
		ID:         u.ID,
		Username:   u.Username,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		DateJoined: u.DateJoined,
		IsActive:   u.IsActive,
		IsStaff:    u.IsStaff,
	}
	if u.BirthDate != nil {
		d := u.BirthDate.Format(dateLayout)
		res.BirthDate = &d
	}
	return res
}

func newUserResponses(users []models.User) []userResponse {
	out := make([]userResponse, len(users))
	for i, u := range users {
		out[i] = newUserResponse(u)
	}
	return out
}

type createEventRequest struct {
	Title string `json:"title" validate:"required,max=255"`
	Text  string `json:"text" validate:"required"`
}

type registerRequest struct {
	Username  string  `json:"username" validate:"required,max=30,username"`
	Password  string  `json:"password" validate:"required,max=72"`
	FirstName string  `json:"firstName" validate:"required,max=30"`
	LastName  string  `json:"lastName" validate:"required,max=30"`
	BirthDate *string `json:"birthDate"`
}

func (req registerRequest) params() (models.UserParams, error) {
	birth, err := parseBirthDate(req.BirthDate)
	if err != nil {
		return models.UserParams{}, err
	}
	return models.UserParams{
		Username:  req.Username,
		Password:  req.Password,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		BirthDate: birth,
	}, nil
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// parseBirthDate accepts a missing or blank date as unset.
func parseBirthDate(s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	d, err := time.Parse(dateLayout, strings.TrimSpace(*s))
	if err != nil {
		return nil, fmt.Errorf("%w: birth date must be formatted as YYYY-MM-DD", repository.ErrValidation)
	}
	return &d, nil
}
