package server

import (
	"context"
	"strings"

	"secdir/internal/constants"
	"secdir/internal/httpx"
	"secdir/internal/session"
)

// access is the minimum identity a route demands.
type access int

const (
	accessAnyone access = iota
	accessUser
	accessAdmin
)

type handlerFunc func(ctx context.Context, req httpx.Request, id session.Identity) *httpx.Response

// route is one entry in the ordered dispatch table. Matching is first-wins;
// a matching route whose access requirement the caller does not meet is
// skipped, so protected operations are invisible rather than forbidden.
type route struct {
	method string
	path   string
	access access
	handle handlerFunc
}

func (s *Server) routes() []route {
	return []route{
		{"POST", constants.RouteLogin, accessAnyone, s.handleLogin},
		{"POST", constants.RouteLogout, accessAnyone, s.handleLogout},
		{"POST", constants.RouteRegister, accessAnyone, s.handleRegister},
		{"GET", constants.RouteRegister, accessAnyone, s.handleRegisterPage},
		{"POST", constants.RouteAdd, accessAdmin, s.handleAdd},
		{"POST", constants.RouteUpdate, accessAdmin, s.handleUpdate},
		{"POST", constants.RouteDelete, accessAdmin, s.handleDelete},
		{"POST", constants.RouteRate, accessUser, s.handleRate},
		{"GET", constants.RouteLoginRequired, accessAnyone, s.handleLoginRequired},
		{"GET", constants.RouteIndex, accessAnyone, s.handleIndex},
	}
}

// matches reports whether a request line selects this route. The root route
// requires an exact path; every other route matches on prefix, mirroring how
// the request line was historically matched as a raw string prefix.
func (rt route) matches(method, path string) bool {
	if method != rt.method {
		return false
	}
	if rt.path == constants.RouteIndex {
		return path == constants.RouteIndex
	}
	return strings.HasPrefix(path, rt.path)
}

func (rt route) permits(id session.Identity) bool {
	switch rt.access {
	case accessUser:
		return id.LoggedIn
	case accessAdmin:
		return id.LoggedIn && id.IsAdmin
	default:
		return true
	}
}

// dispatch walks the route table in order. Anything unmatched, including
// protected routes hit without the required identity, lands on the login
// page; there are no 403 or 404 responses.
func (s *Server) dispatch(ctx context.Context, req httpx.Request, id session.Identity) *httpx.Response {
	for _, rt := range s.table {
		if !rt.matches(req.Method, req.Path) {
			continue
		}
		if !rt.permits(id) {
			continue
		}
		return rt.handle(ctx, req, id)
	}
	return s.loginPage(ctx, "")
}
