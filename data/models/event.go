package models

import (
	"fmt"
	"strings"
	"time"
)

// Event is a calendar entry. Members is populated from the event_members
// join table and is never written through the generic model helpers.
type Event struct {
	ID           int64     `json:"id" db:"id" readOnly:"true"`
	Title        string    `json:"title" db:"title" validate:"required,max=255"`
	Text         string    `json:"text" db:"text" validate:"required"`
	CreatorID    int64     `json:"creator" db:"creator_id" validate:"required,gt=0"`
	DateCreation time.Time `json:"dateCreation" db:"date_creation" readOnly:"true"`
	Members      []int64   `json:"members" db:"-"`
}

// NewEvent builds a validated event owned by creatorID. There is no implicit
// creator: a zero id is rejected.
func NewEvent(title, text string, creatorID int64) (Event, error) {
	if creatorID <= 0 {
		return Event{}, fmt.Errorf("%w: event requires a creator", ErrValidation)
	}

	e := Event{
		Title:     strings.TrimSpace(title),
		Text:      strings.TrimSpace(text),
		CreatorID: creatorID,
	}
	if err := ValidateModel(e); err != nil {
		return Event{}, err
	}
	return e, nil
}

func (Event) TableName() string {
	return "events"
}

func (e Event) ColumnNames() []string {
	return GetColumnNames(e, true)
}

func (e Event) GetID() int64 {
	return e.ID
}

func (e Event) EmptySlice() interface{} {
	return &[]Event{}
}

// HasMember reports whether userID is in the loaded member set.
func (e Event) HasMember(userID int64) bool {
	for _, id := range e.Members {
		if id == userID {
			return true
		}
	}
	return false
}

func (e Event) String() string {
	return e.Title
}
