package stubserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Togather-Foundation/campus/internal/domain/events"
	"github.com/Togather-Foundation/campus/internal/validation"
)

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	types, err := events.ParseTypes(r.URL.Query().Get("types"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	list := s.store.listEvents(func(rec *eventRecord) bool {
		return types.Match(rec.Input.Type)
	})
	writeJSON(w, http.StatusOK, s.toEventDocs(list))
}

func (s *Server) handleSearchEvents(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	if q == "" {
		writeError(w, http.StatusBadRequest, "Search query is required")
		return
	}
	list := s.store.listEvents(func(rec *eventRecord) bool {
		for _, field := range []string{rec.Input.Title, rec.Input.Description, rec.Input.Location} {
			if strings.Contains(strings.ToLower(field), q) {
				return true
			}
		}
		return false
	})
	writeJSON(w, http.StatusOK, map[string]any{"events": s.toEventDocs(list)})
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.event(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Event not found")
		return
	}
	writeJSON(w, http.StatusOK, s.toEventDoc(rec))
}

func (s *Server) handleRegisteredEvents(w http.ResponseWriter, r *http.Request) {
	userID := currentAccount(r).ID
	list := s.store.listEvents(func(rec *eventRecord) bool {
		return rec.attending(userID) >= 0
	})
	writeJSON(w, http.StatusOK, s.toEventDocs(list))
}

func (s *Server) handleRegisterForEvent(w http.ResponseWriter, r *http.Request) {
	err := s.store.register(r.PathValue("id"), currentAccount(r).ID, s.cfg.Now())
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "Event not found")
	case errors.Is(err, ErrAlreadyRegistered):
		writeError(w, http.StatusConflict, "Already registered for this event")
	case errors.Is(err, ErrEventFull):
		writeError(w, http.StatusConflict, "Event is full")
	case err != nil:
		s.internalError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully registered for event"})
	}
}

// handleEventsDelete serves both DELETE /events/admin/{id} and
// DELETE /events/{id}/register.
func (s *Server) handleEventsDelete(w http.ResponseWriter, r *http.Request) {
	first, second := r.PathValue("first"), r.PathValue("second")
	switch {
	case first == "admin":
		s.adminOnly(func(w http.ResponseWriter, r *http.Request) {
			s.deleteEvent(w, r, second)
		})(w, r)
	case second == "register":
		s.authenticated(func(w http.ResponseWriter, r *http.Request) {
			_ = s.cancelRegistration(w, r, first, currentAccount(r).ID)
		})(w, r)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// cancelRegistration answers the request itself and returns the store error
// so admin callers can audit the outcome.
func (s *Server) cancelRegistration(w http.ResponseWriter, r *http.Request, eventID, userID string) error {
	err := s.store.unregister(eventID, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "Event not found")
	case errors.Is(err, ErrNotRegistered):
		writeError(w, http.StatusNotFound, "Not registered for this event")
	case err != nil:
		s.internalError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, map[string]string{"message": "Registration cancelled"})
	}
	return err
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	input, ok := readEventInput(w, r)
	if !ok {
		return
	}
	rec, err := s.store.createEvent(input, currentAccount(r).ID, s.cfg.Now())
	s.auditAdmin(r, "admin.event.create", rec.ID, err, map[string]string{"title": input.Title})
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Event created",
		"event":   s.toEventDoc(rec),
	})
}

func (s *Server) deleteEvent(w http.ResponseWriter, r *http.Request, id string) {
	err := s.store.deleteEvent(id)
	s.auditAdmin(r, "admin.event.delete", id, err, nil)
	if err != nil {
		writeError(w, http.StatusNotFound, "Event not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Event deleted"})
}

// readEventInput decodes, cleans and validates an event payload, answering
// 400 itself on failure.
func readEventInput(w http.ResponseWriter, r *http.Request) (events.EventInput, bool) {
	var input events.EventInput
	if err := decodeBody(w, r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return events.EventInput{}, false
	}
	input = cleanInput(input)
	if err := validation.Struct(input); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return events.EventInput{}, false
	}
	return input, true
}
