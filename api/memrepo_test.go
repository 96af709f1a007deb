package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"events-calendar/data/models"
	"events-calendar/data/repository"
	"events-calendar/policy"
)

// memStore is an in-memory repository.Store with the same error semantics as
// the SQL store, for exercising handlers without a database.
type memStore struct {
	mu        sync.Mutex
	users     map[int64]models.User
	events    map[int64]models.Event
	tokens    map[string]int64
	nextUser  int64
	nextEvent int64

	// failWith, when set, is returned by every event read.
	failWith error
}

var _ repository.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		users:  make(map[int64]models.User),
		events: make(map[int64]models.Event),
		tokens: make(map[string]int64),
	}
}

func (s *memStore) Register(_ context.Context, p models.UserParams) (models.User, error) {
	u, err := models.NewUser(p)
	if err != nil {
		return models.User{}, err
	}
	return s.insertUser(u)
}

func (s *memStore) CreateSuperuser(_ context.Context, p models.UserParams, staff, superuser *bool) (models.User, error) {
	if (staff != nil && !*staff) || (superuser != nil && !*superuser) {
		return models.User{}, fmt.Errorf("%w: superuser flags must be true", repository.ErrValidation)
	}
	u, err := models.NewUser(p)
	if err != nil {
		return models.User{}, err
	}
	u.IsStaff, u.IsSuperuser = true, true
	return s.insertUser(u)
}

func (s *memStore) insertUser(u models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return models.User{}, repository.ErrUsernameTaken
		}
	}
	s.nextUser++
	u.ID = s.nextUser
	u.DateJoined = time.Now().UTC()
	s.users[u.ID] = u
	return u, nil
}

func (s *memStore) Authenticate(_ context.Context, username, password string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username && u.IsActive && u.CheckPassword(password) {
			return u, nil
		}
	}
	return models.User{}, repository.ErrInvalidCredentials
}

func (s *memStore) GetUserByID(_ context.Context, id int64) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("users %d: %w", id, repository.ErrNotFound)
	}
	return u, nil
}

func (s *memStore) SetPassword(_ context.Context, userID int64, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	if err := u.SetPassword(password); err != nil {
		return err
	}
	s.users[userID] = u
	return nil
}

func (s *memStore) IssueOrReuseToken(_ context.Context, userID int64) (models.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return models.Token{}, repository.ErrNotFound
	}
	for key, id := range s.tokens {
		if id == userID {
			return models.Token{Key: key, UserID: id}, nil
		}
	}
	key := "tok" + strconv.FormatInt(userID, 10) + "x" + strconv.FormatInt(time.Now().UnixNano(), 36)
	s.tokens[key] = userID
	return models.Token{Key: key, UserID: userID, Created: time.Now()}, nil
}

func (s *memStore) UserByToken(_ context.Context, key string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.tokens[key]
	if !ok {
		return models.User{}, repository.ErrUnauthenticated
	}
	u, ok := s.users[id]
	if !ok || !u.IsActive {
		return models.User{}, repository.ErrUnauthenticated
	}
	return u, nil
}

func (s *memStore) CreateEvent(_ context.Context, e models.Event) (models.Event, error) {
	if err := models.ValidateModel(e); err != nil {
		return models.Event{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[e.CreatorID]; !ok {
		return models.Event{}, repository.ErrNotFound
	}
	s.nextEvent++
	e.ID = s.nextEvent
	e.DateCreation = time.Now().UTC()
	e.Members = []int64{}
	s.events[e.ID] = e
	return cloneEvent(e), nil
}

func (s *memStore) ListEvents(_ context.Context) ([]models.Event, error) {
	return s.filterEvents(func(models.Event) bool { return true })
}

// QueryEvents understands title, creator, limit and offset; any other key is
// rejected the way the SQL builder rejects unknown fields. Without a limit
// every match is returned.
func (s *memStore) QueryEvents(_ context.Context, params map[string]string) ([]models.Event, error) {
	limit, offset := -1, 0
	for k, v := range params {
		switch k {
		case "title":
		case "creator":
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				return nil, fmt.Errorf("%w: invalid query: invalid value for creator: %q is not a number", repository.ErrValidation, v)
			}
		case "limit":
			limit, _ = strconv.Atoi(v)
		case "offset":
			offset, _ = strconv.Atoi(v)
		default:
			return nil, fmt.Errorf("%w: invalid query: invalid query parameter: %s", repository.ErrValidation, k)
		}
	}

	events, err := s.filterEvents(func(e models.Event) bool {
		if t, ok := params["title"]; ok && e.Title != t {
			return false
		}
		if c, ok := params["creator"]; ok && strconv.FormatInt(e.CreatorID, 10) != c {
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if offset > len(events) {
		return []models.Event{}, nil
	}
	events = events[offset:]
	if limit >= 0 && limit < len(events) {
		events = events[:limit]
	}
	return events, nil
}

func (s *memStore) GetEventByID(_ context.Context, id int64) (models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return models.Event{}, s.failWith
	}
	e, ok := s.events[id]
	if !ok {
		return models.Event{}, fmt.Errorf("events %d: %w", id, repository.ErrNotFound)
	}
	return cloneEvent(e), nil
}

func (s *memStore) ListMembers(_ context.Context, eventID int64) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[eventID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	members := make([]models.User, 0, len(e.Members))
	for _, id := range e.Members {
		members = append(members, s.users[id])
	}
	return members, nil
}

func (s *memStore) AddMember(_ context.Context, eventID, userID int64) (models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[eventID]
	if _, userOK := s.users[userID]; !ok || !userOK {
		return models.Event{}, repository.ErrNotFound
	}
	if e.HasMember(userID) {
		return models.Event{}, repository.ErrAlreadyMember
	}
	e.Members = append(e.Members, userID)
	sort.Slice(e.Members, func(i, j int) bool { return e.Members[i] < e.Members[j] })
	s.events[eventID] = e
	return cloneEvent(e), nil
}

func (s *memStore) RemoveMember(_ context.Context, eventID, userID int64) (models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[eventID]
	if !ok {
		return models.Event{}, repository.ErrNotFound
	}
	if !e.HasMember(userID) {
		return models.Event{}, repository.ErrNotAMember
	}
	kept := make([]int64, 0, len(e.Members))
	for _, id := range e.Members {
		if id != userID {
			kept = append(kept, id)
		}
	}
	e.Members = kept
	s.events[eventID] = e
	return cloneEvent(e), nil
}

func (s *memStore) DeleteEvent(_ context.Context, eventID int64, requester *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[eventID]
	if !ok {
		return repository.ErrNotFound
	}
	if !policy.CanDelete(e, requester) {
		return repository.ErrForbidden
	}
	delete(s.events, eventID)
	return nil
}

func (s *memStore) EventsCreatedBy(_ context.Context, userID int64) ([]models.Event, error) {
	return s.filterEvents(func(e models.Event) bool { return e.CreatorID == userID })
}

func (s *memStore) EventsJoinedBy(_ context.Context, userID int64) ([]models.Event, error) {
	return s.filterEvents(func(e models.Event) bool { return e.HasMember(userID) })
}

func (s *memStore) filterEvents(keep func(models.Event) bool) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	out := []models.Event{}
	for _, e := range s.events {
		if keep(e) {
			out = append(out, cloneEvent(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// event returns the stored event for assertions.
func (s *memStore) event(id int64) (models.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	return cloneEvent(e), ok
}

func cloneEvent(e models.Event) models.Event {
	e.Members = append([]int64{}, e.Members...)
	return e
}
