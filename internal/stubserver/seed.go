package stubserver

import (
	"time"

	"github.com/Togather-Foundation/campus/internal/domain/events"
)

type seedEvent struct {
	offset time.Duration
	input  events.EventInput
}

var sampleEvents = []seedEvent{
	{-48 * time.Hour, events.EventInput{Title: "Intramural Soccer Final", Description: "Cheer on the finalists at the north field.", Time: "16:00", Location: "North Field", Capacity: 200, Type: events.TypeSports}},
	{72 * time.Hour, events.EventInput{Title: "Welcome Week Mixer", Description: "Meet new students over snacks and music.", Time: "18:30", Location: "Student Union Hall", Capacity: 150, Type: events.TypeSocial}},
	{7 * 24 * time.Hour, events.EventInput{Title: "Intro to Go Workshop", Description: "Hands-on session for beginners. Bring a laptop.", Time: "14:00", Location: "Engineering 204", Capacity: 30, Type: events.TypeWorkshop}},
	{14 * 24 * time.Hour, events.EventInput{Title: "Undergraduate Research Symposium", Description: "Poster session and talks from this year's cohort.", Time: "09:00", Location: "Library Auditorium", Capacity: 120, Type: events.TypeAcademic}},
	{21 * 24 * time.Hour, events.EventInput{Title: "Lantern Festival", Description: "An evening of food, music and lanterns.", Time: "19:00", Location: "Central Quad", Capacity: 400, Type: events.TypeCultural}},
}

func (s *Server) seed() error {
	now := s.cfg.Now()
	for _, ev := range sampleEvents {
		input := ev.input
		input.Date = now.Add(ev.offset).Format(events.DateLayout)
		if _, err := s.store.createEvent(input, "", now); err != nil {
			return err
		}
	}
	return nil
}
