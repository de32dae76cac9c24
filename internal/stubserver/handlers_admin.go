package stubserver

import (
	"errors"
	"net/http"

	"github.com/Togather-Foundation/campus/internal/domain/events"
)

func (s *Server) handleAdminEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"events": s.toEventDocs(s.store.listEvents(nil))})
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	input, ok := readEventInput(w, r)
	if !ok {
		return
	}
	rec, err := s.store.updateEvent(r.PathValue("id"), input)
	s.auditAdmin(r, "admin.event.update", r.PathValue("id"), err, map[string]string{"title": input.Title})
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "Event not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Event updated",
		"event":   s.toEventDoc(rec),
	})
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	s.deleteEvent(w, r, r.PathValue("id"))
}

func (s *Server) handleEventRegistrations(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.event(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Event not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"registrations": s.registrationDocs(rec, false)})
}

func (s *Server) handleAdminCancelRegistration(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	err := s.cancelRegistration(w, r, r.PathValue("id"), userID)
	s.auditAdmin(r, "admin.registration.cancel", r.PathValue("id"), err, map[string]string{"user_id": userID})
}

func (s *Server) handleAllRegistrations(w http.ResponseWriter, r *http.Request) {
	out := []registrationDoc{}
	for _, rec := range s.store.listEvents(nil) {
		out = append(out, s.registrationDocs(rec, true)...)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) registrationDocs(rec eventRecord, withEvent bool) []registrationDoc {
	out := make([]registrationDoc, 0, len(rec.Registrations))
	var event *eventDoc
	if withEvent {
		doc := s.toEventDoc(rec)
		event = &doc
	}
	for _, a := range rec.Registrations {
		p, ok := s.person(a.UserID)
		if !ok {
			continue
		}
		out = append(out, registrationDoc{User: p, Event: event, RegisteredAt: a.RegisteredAt})
	}
	return out
}

type dashboardDoc struct {
	TotalEvents        int `json:"totalEvents"`
	TotalUsers         int `json:"totalUsers"`
	TotalRegistrations int `json:"totalRegistrations"`
	UpcomingEvents     int `json:"upcomingEvents"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	all := s.store.listEvents(nil)
	stats := dashboardDoc{
		TotalEvents: len(all),
		TotalUsers:  s.store.countAccounts(),
	}
	list := make([]events.Event, 0, len(all))
	for _, rec := range all {
		stats.TotalRegistrations += len(rec.Registrations)
		list = append(list, toDomainEvent(rec))
	}
	upcoming, _ := events.Partition(list, s.cfg.Now())
	stats.UpcomingEvents = len(upcoming)
	writeJSON(w, http.StatusOK, stats)
}
