package constants

import "time"

// Network defaults
const (
	DefaultPort    = "8080"
	ReadBufferSize = 8192 // one request must fit in a single read
	MaxConnections = 64
	ReadTimeout    = 10 * time.Second
	WriteTimeout   = 10 * time.Second
)

// Session settings
const (
	SessionDuration   = 24 * time.Hour
	SessionCookieName = "session_id"
	TabTokenCookie    = "tab_token"
	TokenHexLength    = 32
	RedisKeyPrefix    = "session:"
)

// Listing defaults
const (
	PageSize      = 10
	MinRating     = 1
	MaxRating     = 5
	AdminUsername = "admin"
)

// Routes
const (
	RouteIndex         = "/"
	RouteLogin         = "/login"
	RouteLogout        = "/logout"
	RouteRegister      = "/register"
	RouteAdd           = "/add"
	RouteUpdate        = "/update"
	RouteDelete        = "/delete"
	RouteRate          = "/rate"
	RouteLoginRequired = "/login_required"
)

// Messages
const (
	MsgEmptyUsername  = "Enter a username"
	MsgBadCredentials = "Invalid username or password"
	MsgUserExists     = "That username is already taken"
	MsgAuthRequired   = "Authorization required"
	MsgRegisterFailed = "Registration failed, try again"
	MsgSessionFailed  = "Could not start a session, try again"
)
