package session

// Identity is the caller identity derived from the session cookie. The zero
// value is anonymous; an identity is non-anonymous only when a valid,
// unexpired session token was presented.
type Identity struct {
	LoggedIn bool
	UserID   int
	Username string
	IsAdmin  bool
	Token    string
}

// Anonymous is the identity of a request without a valid session.
var Anonymous = Identity{}

// FromSession derives the identity carried by a resolved session.
func FromSession(s Session) Identity {
	return Identity{
		LoggedIn: true,
		UserID:   s.UserID,
		Username: s.Username,
		IsAdmin:  s.IsAdmin,
		Token:    s.Token,
	}
}
