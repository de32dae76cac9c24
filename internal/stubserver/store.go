package stubserver

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Togather-Foundation/campus/internal/domain/events"
	"github.com/Togather-Foundation/campus/internal/domain/ids"
	"github.com/Togather-Foundation/campus/internal/domain/users"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrUserExists        = errors.New("user already exists")
	ErrAlreadyRegistered = errors.New("already registered for this event")
	ErrNotRegistered     = errors.New("not registered for this event")
	ErrEventFull         = errors.New("event is full")
)

type account struct {
	ID           string
	Name         string
	Email        string
	Role         users.Role
	PasswordHash []byte
	Preferences  events.Types
}

type attendance struct {
	UserID       string
	RegisteredAt time.Time
}

type eventRecord struct {
	ID            string
	Input         events.EventInput
	CreatorID     string
	Registrations []attendance
	CreatedAt     time.Time
}

func (e *eventRecord) attending(userID string) int {
	for i, a := range e.Registrations {
		if a.UserID == userID {
			return i
		}
	}
	return -1
}

// memStore is the stub server's database. Every method is safe for
// concurrent use; returned records are copies.
type memStore struct {
	mu       sync.RWMutex
	accounts map[string]*account
	byEmail  map[string]string
	events   map[string]*eventRecord
}

func newMemStore() *memStore {
	return &memStore{
		accounts: make(map[string]*account),
		byEmail:  make(map[string]string),
		events:   make(map[string]*eventRecord),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *memStore) createAccount(a account) (account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.Email = normalizeEmail(a.Email)
	if _, exists := s.byEmail[a.Email]; exists {
		return account{}, ErrUserExists
	}
	if a.ID == "" {
		id, err := ids.NewULID()
		if err != nil {
			return account{}, err
		}
		a.ID = id
	}
	a.Preferences = events.NewTypes(a.Preferences...)
	stored := a
	s.accounts[a.ID] = &stored
	s.byEmail[a.Email] = a.ID
	return a, nil
}

func (s *memStore) accountByEmail(email string) (account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return account{}, ErrNotFound
	}
	return *s.accounts[id], nil
}

func (s *memStore) account(id string) (account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return account{}, ErrNotFound
	}
	return *a, nil
}

func (s *memStore) updateAccount(id string, update func(*account) error) (account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return account{}, ErrNotFound
	}
	next := *a
	if err := update(&next); err != nil {
		return account{}, err
	}
	next.Email = normalizeEmail(next.Email)
	if next.Email != a.Email {
		if _, taken := s.byEmail[next.Email]; taken {
			return account{}, ErrUserExists
		}
		delete(s.byEmail, a.Email)
		s.byEmail[next.Email] = id
	}
	next.Preferences = events.NewTypes(next.Preferences...)
	*a = next
	return next, nil
}

func (s *memStore) countAccounts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

func (s *memStore) createEvent(input events.EventInput, creatorID string, now time.Time) (eventRecord, error) {
	id, err := ids.NewULID()
	if err != nil {
		return eventRecord{}, err
	}
	rec := &eventRecord{ID: id, Input: input, CreatorID: creatorID, CreatedAt: now}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[id] = rec
	return copyEvent(rec), nil
}

func (s *memStore) updateEvent(id string, input events.EventInput) (eventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.events[id]
	if !ok {
		return eventRecord{}, ErrNotFound
	}
	rec.Input = input
	// Shrinking capacity below current attendance keeps existing attendees.
	return copyEvent(rec), nil
}

func (s *memStore) deleteEvent(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return ErrNotFound
	}
	delete(s.events, id)
	return nil
}

func (s *memStore) event(id string) (eventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.events[id]
	if !ok {
		return eventRecord{}, ErrNotFound
	}
	return copyEvent(rec), nil
}

// listEvents returns the events matching keep, ordered by date and time.
func (s *memStore) listEvents(keep func(*eventRecord) bool) []eventRecord {
	s.mu.RLock()
	out := make([]eventRecord, 0, len(s.events))
	for _, rec := range s.events {
		if keep == nil || keep(rec) {
			out = append(out, copyEvent(rec))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Input, out[j].Input
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *memStore) register(eventID, userID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.events[eventID]
	if !ok {
		return ErrNotFound
	}
	if rec.attending(userID) >= 0 {
		return ErrAlreadyRegistered
	}
	if len(rec.Registrations) >= rec.Input.Capacity {
		return ErrEventFull
	}
	rec.Registrations = append(rec.Registrations, attendance{UserID: userID, RegisteredAt: now})
	return nil
}

func (s *memStore) unregister(eventID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.events[eventID]
	if !ok {
		return ErrNotFound
	}
	i := rec.attending(userID)
	if i < 0 {
		return ErrNotRegistered
	}
	rec.Registrations = append(rec.Registrations[:i], rec.Registrations[i+1:]...)
	return nil
}

func copyEvent(rec *eventRecord) eventRecord {
	out := *rec
	out.Registrations = append([]attendance(nil), rec.Registrations...)
	return out
}
