package gateway

import (
	"context"
	"net/http"

	"github.com/Togather-Foundation/campus/internal/domain/events"
	"github.com/Togather-Foundation/campus/internal/domain/ids"
	"github.com/Togather-Foundation/campus/internal/validation"
)

// Admin operations. Non-admin callers receive KindForbidden.

func (c *Client) AdminEvents(ctx context.Context) ([]events.Event, error) {
	return c.eventList(ctx, call{
		op:       "admin events",
		method:   http.MethodGet,
		path:     "/admin/events",
		fallback: "failed to fetch events",
	})
}

// EventRegistrations lists who is registered for one event.
func (c *Client) EventRegistrations(ctx context.Context, eventID ids.ID) ([]events.Registration, error) {
	const op = "event registrations"
	if err := eventID.Validate(); err != nil {
		return nil, validationError(op, err)
	}
	return c.registrations(ctx, call{
		op:       op,
		method:   http.MethodGet,
		path:     "/admin/events/" + escape(eventID.String()) + "/registrations",
		fallback: "failed to fetch registrations",
	})
}

// AllRegistrations lists every registration across events, each carrying
// its event.
func (c *Client) AllRegistrations(ctx context.Context) ([]events.Registration, error) {
	return c.registrations(ctx, call{
		op:       "all registrations",
		method:   http.MethodGet,
		path:     "/admin/registrations",
		fallback: "failed to fetch registrations",
	})
}

// AdminCancelRegistration removes userID from eventID.
func (c *Client) AdminCancelRegistration(ctx context.Context, eventID, userID ids.ID) error {
	const op = "admin cancel registration"
	if err := eventID.Validate(); err != nil {
		return validationError(op, err)
	}
	if err := userID.Validate(); err != nil {
		return validationError(op, err)
	}
	_, err := c.do(ctx, call{
		op:       op,
		method:   http.MethodDelete,
		path:     "/admin/events/" + escape(eventID.String()) + "/registrations/" + escape(userID.String()),
		fallback: "failed to cancel registration",
	})
	return err
}

func (c *Client) AdminCreateEvent(ctx context.Context, input events.EventInput) (events.Event, error) {
	const op = "admin create event"
	if err := validation.Struct(input); err != nil {
		return events.Event{}, validationError(op, err)
	}
	return c.event(ctx, call{
		op:       op,
		method:   http.MethodPost,
		path:     "/admin/events",
		body:     input,
		fallback: "failed to create event",
	})
}

func (c *Client) AdminUpdateEvent(ctx context.Context, id ids.ID, input events.EventInput) (events.Event, error) {
	const op = "admin update event"
	if err := id.Validate(); err != nil {
		return events.Event{}, validationError(op, err)
	}
	if err := validation.Struct(input); err != nil {
		return events.Event{}, validationError(op, err)
	}
	return c.event(ctx, call{
		op:       op,
		method:   http.MethodPut,
		path:     "/admin/events/" + escape(id.String()),
		body:     input,
		fallback: "failed to update event",
	})
}

func (c *Client) AdminDeleteEvent(ctx context.Context, id ids.ID) error {
	const op = "admin delete event"
	if err := id.Validate(); err != nil {
		return validationError(op, err)
	}
	_, err := c.do(ctx, call{
		op:       op,
		method:   http.MethodDelete,
		path:     "/admin/events/" + escape(id.String()),
		fallback: "failed to delete event",
	})
	return err
}

// DashboardStats returns the aggregate counters for the admin dashboard.
func (c *Client) DashboardStats(ctx context.Context) (events.DashboardStats, error) {
	const op = "dashboard stats"
	body, err := c.do(ctx, call{
		op:       op,
		method:   http.MethodGet,
		path:     "/admin/dashboard",
		fallback: "failed to fetch dashboard",
	})
	if err != nil {
		return events.DashboardStats{}, err
	}
	var stats events.DashboardStats
	if err := decode(op, body, "stats", &stats); err != nil {
		return events.DashboardStats{}, err
	}
	return stats, nil
}

func (c *Client) registrations(ctx context.Context, cl call) ([]events.Registration, error) {
	body, err := c.do(ctx, cl)
	if err != nil {
		return nil, err
	}
	var list []events.Registration
	if err := decode(cl.op, body, "registrations", &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []events.Registration{}
	}
	return list, nil
}
