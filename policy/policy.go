// Package policy decides who may do what to an event.
//
// Rules:
//   - Any signed-in user may create an event
//   - Only the creator may delete an event
//   - A signed-in user may join an event they are not a member of
//   - A signed-in user may leave an event they are a member of
//
// A nil requester is an anonymous visitor and is denied everything. The
// functions only look at already-loaded values and never touch storage.
package policy

import "events-calendar/data/models"

// CanCreate reports whether requester may create events.
func CanCreate(requester *models.User) bool {
	return requester != nil
}

// CanDelete reports whether requester created e.
func CanDelete(e models.Event, requester *models.User) bool {
	if requester == nil {
		return false
	}
	return requester.ID == e.CreatorID
}

// CanJoin reports whether requester is outside e's member set.
func CanJoin(e models.Event, requester *models.User) bool {
	if requester == nil {
		return false
	}
	return !e.HasMember(requester.ID)
}

// CanLeave reports whether requester is inside e's member set.
func CanLeave(e models.Event, requester *models.User) bool {
	if requester == nil {
		return false
	}
	return e.HasMember(requester.ID)
}
