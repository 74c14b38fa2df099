package domain

// ============================================================
// Auth: request and response types of POST /auth/login
// ============================================================

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the body the backend returns on success. Both fields
// must be present for the login to count.
type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Session is the per-request view of who, if anyone, is signed in.
// The zero value is the pending session: Loading until Initialize runs.
type Session struct {
	User    *User
	Token   string
	Loading bool
}

// PendingSession is the state before the cookie pair was read.
func PendingSession() Session {
	return Session{Loading: true}
}

// IsAuthenticated reports whether a user is present.
func (s Session) IsAuthenticated() bool {
	return s.User != nil
}

// Role returns the user's role, or "" when nobody is signed in.
func (s Session) Role() Role {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}
