// Package navigation owns the view routes the client may move between and
// decides, on the server, which of them a role may reach.
package navigation

import (
	"fmt"

	"anoa.com/labeebacademy/internal/entity"
	"anoa.com/labeebacademy/pkg/apperror"
)

type Route string

const (
	Home             Route = "/"
	Login            Route = "/login"
	Signup           Route = "/signup"
	AdminDashboard   Route = "/admin-dashboard"
	StudentDashboard Route = "/student-dashboard"
	ManageUsers      Route = "/manage-users"
	ManageVideos     Route = "/manage-videos"
)

// Destination tells the client where to go next. Replace drops the current
// history entry so back-navigation cannot return to it.
type Destination struct {
	Route   Route `json:"route"`
	Replace bool  `json:"replace"`
}

type access int

const (
	public access = iota
	signedIn
	adminOnly
)

var routes = map[Route]access{
	Home:             public,
	Login:            public,
	Signup:           public,
	StudentDashboard: signedIn,
	AdminDashboard:   adminOnly,
	ManageUsers:      adminOnly,
	ManageVideos:     adminOnly,
}

// Parse rejects anything outside the known route set.
func Parse(s string) (Route, error) {
	r := Route(s)
	if _, ok := routes[r]; !ok {
		return "", fmt.Errorf("%w: unknown route %q", apperror.ErrNotFound, s)
	}
	return r, nil
}

// IsPublic reports whether route can be shown without a session.
func IsPublic(route Route) bool {
	a, ok := routes[route]
	return ok && a == public
}

// DashboardFor dispatches a resolved role to its dashboard.
func DashboardFor(role entity.Role) (Destination, error) {
	switch role {
	case entity.RoleAdmin:
		return Destination{Route: AdminDashboard, Replace: true}, nil
	case entity.RoleStudent:
		return Destination{Route: StudentDashboard, Replace: true}, nil
	default:
		return Destination{}, apperror.ErrInvalidRole
	}
}

// Authorize checks whether a signed-in profile with role may open route.
func Authorize(route Route, role entity.Role) error {
	a, ok := routes[route]
	if !ok {
		return fmt.Errorf("%w: unknown route %q", apperror.ErrNotFound, route)
	}

	switch a {
	case public:
		return nil
	case signedIn:
		if !role.Valid() {
			return apperror.ErrInvalidRole
		}
		return nil
	default:
		if role != entity.RoleAdmin {
			return fmt.Errorf("%w: %s requires admin role", apperror.ErrForbidden, route)
		}
		return nil
	}
}

func AfterSignUp() Destination {
	return Destination{Route: Login}
}

func AfterSignOut() Destination {
	return Destination{Route: Home}
}
