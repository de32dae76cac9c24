package session

import (
	"sync"

	"github.com/Togather-Foundation/campus/internal/domain/users"
)

// Route names a destination the presentation layer should move to after a
// session change.
type Route string

const (
	RouteLogin          Route = "/login"
	RouteEvents         Route = "/events"
	RouteProfile        Route = "/profile"
	RouteAdminDashboard Route = "/admin/dashboard"
)

// Navigator is told where to go after login, registration, logout and
// credential invalidation. Initialize never navigates.
type Navigator interface {
	Navigate(to Route)
}

// NavigatorFunc adapts a function to a Navigator.
type NavigatorFunc func(to Route)

func (f NavigatorFunc) Navigate(to Route) { f(to) }

type nopNavigator struct{}

func (nopNavigator) Navigate(Route) {}

// AfterLogin is the landing route for a freshly signed-in user.
func AfterLogin(role users.Role) Route {
	if role.IsAdmin() {
		return RouteAdminDashboard
	}
	return RouteEvents
}

// AfterRegister is the landing route for a newly created account. Regular
// users go to their profile to review preferences.
func AfterRegister(role users.Role) Route {
	if role.IsAdmin() {
		return RouteAdminDashboard
	}
	return RouteProfile
}

// RecordingNavigator remembers every route it was sent to.
type RecordingNavigator struct {
	mu     sync.Mutex
	routes []Route
}

func (r *RecordingNavigator) Navigate(to Route) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, to)
}

// Routes returns a copy of the routes navigated to, oldest first.
func (r *RecordingNavigator) Routes() []Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Route(nil), r.routes...)
}
