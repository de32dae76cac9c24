package stubserver

import (
	"strings"
	"time"

	"github.com/Togather-Foundation/campus/internal/domain/events"
	"github.com/Togather-Foundation/campus/internal/domain/users"
	"github.com/Togather-Foundation/campus/internal/sanitize"
)

// Response documents mirror the document-store shape of the production API,
// which keys records by "_id".

type userDoc struct {
	ID          string       `json:"_id"`
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	Role        users.Role   `json:"role"`
	Preferences events.Types `json:"preferences"`
}

type personDoc struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type eventDoc struct {
	ID            string           `json:"_id"`
	Title         string           `json:"title"`
	Description   string           `json:"description"`
	Date          string           `json:"date"`
	Time          string           `json:"time"`
	Location      string           `json:"location"`
	Capacity      int              `json:"capacity"`
	Type          events.EventType `json:"type"`
	Registrations []personDoc      `json:"registrations"`
	Creator       *personDoc       `json:"creator,omitempty"`
}

type registrationDoc struct {
	User         personDoc `json:"user"`
	Event        *eventDoc `json:"event,omitempty"`
	RegisteredAt time.Time `json:"registeredAt"`
}

func toUserDoc(a account) userDoc {
	return userDoc{
		ID:          a.ID,
		Name:        a.Name,
		Email:       a.Email,
		Role:        a.Role,
		Preferences: events.NewTypes(a.Preferences...),
	}
}

func (s *Server) person(userID string) (personDoc, bool) {
	a, err := s.store.account(userID)
	if err != nil {
		return personDoc{}, false
	}
	return personDoc{ID: a.ID, Name: a.Name, Email: a.Email}, true
}

func (s *Server) toEventDoc(rec eventRecord) eventDoc {
	doc := eventDoc{
		ID:            rec.ID,
		Title:         rec.Input.Title,
		Description:   rec.Input.Description,
		Date:          rec.Input.Date,
		Time:          rec.Input.Time,
		Location:      rec.Input.Location,
		Capacity:      rec.Input.Capacity,
		Type:          rec.Input.Type,
		Registrations: make([]personDoc, 0, len(rec.Registrations)),
	}
	for _, a := range rec.Registrations {
		if p, ok := s.person(a.UserID); ok {
			doc.Registrations = append(doc.Registrations, p)
		}
	}
	if p, ok := s.person(rec.CreatorID); ok {
		doc.Creator = &personDoc{ID: p.ID, Name: p.Name}
	}
	return doc
}

func (s *Server) toEventDocs(recs []eventRecord) []eventDoc {
	out := make([]eventDoc, 0, len(recs))
	for _, rec := range recs {
		out = append(out, s.toEventDoc(rec))
	}
	return out
}

// toDomainEvent lets the stub reuse the client's date helpers.
func toDomainEvent(rec eventRecord) events.Event {
	return events.Event{
		Title:    rec.Input.Title,
		Date:     rec.Input.Date,
		Time:     rec.Input.Time,
		Capacity: rec.Input.Capacity,
		Type:     rec.Input.Type,
	}
}

// cleanInput strips markup before an event is stored.
func cleanInput(in events.EventInput) events.EventInput {
	in.Title = strings.TrimSpace(sanitize.Text(in.Title))
	in.Location = strings.TrimSpace(sanitize.Text(in.Location))
	in.Description = strings.TrimSpace(sanitize.HTML(in.Description))
	in.Date = strings.TrimSpace(in.Date)
	in.Time = strings.TrimSpace(in.Time)
	return in
}
