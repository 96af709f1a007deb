package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"events-calendar/data/models"
	"events-calendar/policy"
)

// EventStore persists events and their member sets.
type EventStore interface {
	CreateEvent(ctx context.Context, e models.Event) (models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	QueryEvents(ctx context.Context, queryParams map[string]string) ([]models.Event, error)
	GetEventByID(ctx context.Context, id int64) (models.Event, error)
	ListMembers(ctx context.Context, eventID int64) ([]models.User, error)
	AddMember(ctx context.Context, eventID, userID int64) (models.Event, error)
	RemoveMember(ctx context.Context, eventID, userID int64) (models.Event, error)
	DeleteEvent(ctx context.Context, eventID int64, requester *models.User) error
	EventsCreatedBy(ctx context.Context, userID int64) ([]models.Event, error)
	EventsJoinedBy(ctx context.Context, userID int64) ([]models.Event, error)
}

// CreateEvent validates and stores e. The creator must already be resolved
// by the caller.
func (sr *SqlRepo) CreateEvent(ctx context.Context, e models.Event) (models.Event, error) {
	if err := models.ValidateModel(e); err != nil {
		return models.Event{}, err
	}

	id, err := sr.Create(ctx, e)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.Event{}, fmt.Errorf("creator %d: %w", e.CreatorID, ErrNotFound)
		}
		return models.Event{}, err
	}
	return sr.GetEventByID(ctx, id)
}

// ListEvents returns every event, oldest first.
func (sr *SqlRepo) ListEvents(ctx context.Context) ([]models.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM events ORDER BY id", models.SelectColumns(models.Event{}, ""))
	return sr.queryEvents(ctx, query, 0)
}

// QueryEvents filters, sorts and paginates events using URL query parameters
// keyed by the event's JSON field names.
func (sr *SqlRepo) QueryEvents(ctx context.Context, queryParams map[string]string) ([]models.Event, error) {
	clauses, values, err := buildQueryClauses(queryParams, models.Event{})
	if err != nil {
		return nil, fmt.Errorf("%w: invalid query: %v", ErrValidation, err)
	}

	query := fmt.Sprintf("SELECT %s FROM events %s", models.SelectColumns(models.Event{}, ""), clauses)
	events, err := sr.queryEvents(ctx, query, expectedRows(queryParams), values...)
	if isInvalidInput(err) {
		return nil, fmt.Errorf("%w: invalid query: %v", ErrValidation, err)
	}
	return events, err
}

func (sr *SqlRepo) GetEventByID(ctx context.Context, id int64) (models.Event, error) {
	model, err := sr.GetModelByID(ctx, &models.Event{}, id)
	if err != nil {
		return models.Event{}, err
	}

	event, ok := model.(*models.Event)
	if !ok {
		return models.Event{}, fmt.Errorf("type assertion to Event failed")
	}

	events := []models.Event{*event}
	if err := sr.attachMembers(ctx, events); err != nil {
		return models.Event{}, err
	}
	return events[0], nil
}

// ListMembers returns the users participating in eventID.
func (sr *SqlRepo) ListMembers(ctx context.Context, eventID int64) ([]models.User, error) {
	if err := sr.eventExists(ctx, eventID); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM users u
		JOIN event_members m ON m.user_id = u.id
		WHERE m.event_id = $1
		ORDER BY u.id`, models.SelectColumns(models.User{}, "u"))
	return sr.queryUsers(ctx, query, eventID)
}

// AddMember puts userID into eventID's member set. Adding an existing member
// is reported as ErrAlreadyMember; the membership primary key settles races
// between concurrent joins.
func (sr *SqlRepo) AddMember(ctx context.Context, eventID, userID int64) (models.Event, error) {
	_, err := sr.DB.ExecContext(ctx,
		"INSERT INTO event_members (event_id, user_id) VALUES ($1, $2)", eventID, userID)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return models.Event{}, fmt.Errorf("event %d, user %d: %w", eventID, userID, ErrAlreadyMember)
		case isForeignKeyViolation(err):
			return models.Event{}, fmt.Errorf("event %d, user %d: %w", eventID, userID, ErrNotFound)
		}
		return models.Event{}, fmt.Errorf("error adding member: %w", err)
	}
	return sr.GetEventByID(ctx, eventID)
}

// RemoveMember takes userID out of eventID's member set. Removing a user who
// is not a member is reported as ErrNotAMember.
func (sr *SqlRepo) RemoveMember(ctx context.Context, eventID, userID int64) (models.Event, error) {
	res, err := sr.DB.ExecContext(ctx,
		"DELETE FROM event_members WHERE event_id = $1 AND user_id = $2", eventID, userID)
	if err != nil {
		return models.Event{}, fmt.Errorf("error removing member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.Event{}, fmt.Errorf("error reading affected rows: %w", err)
	}

	if n == 0 {
		if err := sr.eventExists(ctx, eventID); err != nil {
			return models.Event{}, err
		}
		return models.Event{}, fmt.Errorf("event %d, user %d: %w", eventID, userID, ErrNotAMember)
	}
	return sr.GetEventByID(ctx, eventID)
}

// DeleteEvent removes eventID if requester may delete it. Member rows go with
// it through the foreign key cascade.
func (sr *SqlRepo) DeleteEvent(ctx context.Context, eventID int64, requester *models.User) error {
	e, err := sr.GetEventByID(ctx, eventID)
	if err != nil {
		return err
	}
	if !policy.CanDelete(e, requester) {
		return fmt.Errorf("event %d: %w", eventID, ErrForbidden)
	}
	return sr.Delete(ctx, e)
}

// EventsCreatedBy returns the events userID owns.
func (sr *SqlRepo) EventsCreatedBy(ctx context.Context, userID int64) ([]models.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM events WHERE creator_id = $1 ORDER BY id", models.SelectColumns(models.Event{}, ""))
	return sr.queryEvents(ctx, query, 0, userID)
}

// EventsJoinedBy returns the events userID is a member of.
func (sr *SqlRepo) EventsJoinedBy(ctx context.Context, userID int64) ([]models.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM events e
		JOIN event_members m ON m.event_id = e.id
		WHERE m.user_id = $1
		ORDER BY e.id`, models.SelectColumns(models.Event{}, "e"))
	return sr.queryEvents(ctx, query, 0, userID)
}

func (sr *SqlRepo) eventExists(ctx context.Context, eventID int64) error {
	var one int
	err := sr.DB.QueryRowContext(ctx, "SELECT 1 FROM events WHERE id = $1", eventID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("events %d: %w", eventID, ErrNotFound)
	}
	return err
}

func (sr *SqlRepo) queryEvents(ctx context.Context, query string, expected int, args ...interface{}) ([]models.Event, error) {
	rows, err := sr.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	out, err := models.ScanRowsToSliceOfModels(models.Event{}, rows, expected)
	if err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	events := *out.(*[]models.Event)
	if err := sr.attachMembers(ctx, events); err != nil {
		return nil, err
	}
	return events, nil
}

// attachMembers loads the member ids of every event in one query.
func (sr *SqlRepo) attachMembers(ctx context.Context, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}

	ids := make([]interface{}, len(events))
	index := make(map[int64]int, len(events))
	for i, e := range events {
		ids[i] = e.ID
		index[e.ID] = i
		events[i].Members = []int64{}
	}

	query := fmt.Sprintf("SELECT event_id, user_id FROM event_members WHERE event_id IN (%s) ORDER BY event_id, user_id",
		placeholders(len(ids)))
	rows, err := sr.DB.QueryContext(ctx, query, ids...)
	if err != nil {
		return fmt.Errorf("error loading members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var eventID, userID int64
		if err := rows.Scan(&eventID, &userID); err != nil {
			return err
		}
		if i, ok := index[eventID]; ok {
			events[i].Members = append(events[i].Members, userID)
		}
	}
	return rows.Err()
}
