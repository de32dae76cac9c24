package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/Togather-Foundation/campus/internal/domain/events"
	"github.com/Togather-Foundation/campus/internal/domain/ids"
	"github.com/Togather-Foundation/campus/internal/validation"
)

// ListEvents returns events whose type is in types. An empty set lists every
// event and sends no types parameter at all.
func (c *Client) ListEvents(ctx context.Context, types events.Types) ([]events.Event, error) {
	var query url.Values
	if set := events.NewTypes(types...); !set.IsEmpty() {
		query = url.Values{"types": {set.Join()}}
	}
	return c.eventList(ctx, call{
		op:       "list events",
		method:   http.MethodGet,
		path:     "/events",
		query:    query,
		fallback: "failed to fetch events",
	})
}

// SearchEvents performs a free-text search over titles, descriptions and
// locations.
func (c *Client) SearchEvents(ctx context.Context, q string) ([]events.Event, error) {
	const op = "search events"
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, validationError(op, errors.New("search query is required"))
	}
	return c.eventList(ctx, call{
		op:       op,
		method:   http.MethodGet,
		path:     "/events/search",
		query:    url.Values{"q": {q}},
		fallback: "failed to search events",
	})
}

// GetEvent fetches a single event.
func (c *Client) GetEvent(ctx context.Context, id ids.ID) (events.Event, error) {
	const op = "get event"
	if err := id.Validate(); err != nil {
		return events.Event{}, validationError(op, err)
	}
	return c.event(ctx, call{
		op:       op,
		method:   http.MethodGet,
		path:     "/events/" + escape(id.String()),
		fallback: "event not found",
	})
}

// RegisteredEvents lists the events the caller is registered for.
func (c *Client) RegisteredEvents(ctx context.Context) ([]events.Event, error) {
	return c.eventList(ctx, call{
		op:       "registered events",
		method:   http.MethodGet,
		path:     "/events/registered",
		fallback: "failed to fetch registered events",
	})
}

// RegisterForEvent registers the caller for an event. Registering twice is a
// KindConflict error.
func (c *Client) RegisterForEvent(ctx context.Context, id ids.ID) error {
	const op = "register for event"
	if err := id.Validate(); err != nil {
		return validationError(op, err)
	}
	_, err := c.do(ctx, call{
		op:       op,
		method:   http.MethodPost,
		path:     "/events/" + escape(id.String()) + "/register",
		fallback: "failed to register for event",
	})
	return err
}

// CancelRegistration cancels the caller's registration. Cancelling a
// registration that was never held is a KindNotFound error.
func (c *Client) CancelRegistration(ctx context.Context, id ids.ID) error {
	const op = "cancel registration"
	if err := id.Validate(); err != nil {
		return validationError(op, err)
	}
	_, err := c.do(ctx, call{
		op:       op,
		method:   http.MethodDelete,
		path:     "/events/" + escape(id.String()) + "/register",
		fallback: "failed to cancel registration",
	})
	return err
}

// CreateEvent creates an event through the privileged events route.
func (c *Client) CreateEvent(ctx context.Context, input events.EventInput) (events.Event, error) {
	const op = "create event"
	if err := validation.Struct(input); err != nil {
		return events.Event{}, validationError(op, err)
	}
	return c.event(ctx, call{
		op:       op,
		method:   http.MethodPost,
		path:     "/events/admin",
		body:     input,
		fallback: "failed to create event",
	})
}

// DeleteEvent deletes an event through the privileged events route.
func (c *Client) DeleteEvent(ctx context.Context, id ids.ID) error {
	const op = "delete event"
	if err := id.Validate(); err != nil {
		return validationError(op, err)
	}
	_, err := c.do(ctx, call{
		op:       op,
		method:   http.MethodDelete,
		path:     "/events/admin/" + escape(id.String()),
		fallback: "failed to delete event",
	})
	return err
}

func (c *Client) eventList(ctx context.Context, cl call) ([]events.Event, error) {
	body, err := c.do(ctx, cl)
	if err != nil {
		return nil, err
	}
	list := []events.Event{}
	if err := decode(cl.op, body, "events", &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []events.Event{}
	}
	return list, nil
}

func (c *Client) event(ctx context.Context, cl call) (events.Event, error) {
	body, err := c.do(ctx, cl)
	if err != nil {
		return events.Event{}, err
	}
	var event events.Event
	if err := decode(cl.op, body, "event", &event); err != nil {
		return events.Event{}, err
	}
	return event, nil
}
