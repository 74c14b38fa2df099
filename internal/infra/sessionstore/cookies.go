// Package sessionstore holds the session pair backends: signed cookies,
// Redis, and an in-process cache.
package sessionstore

import (
	"net/http"
	"time"
)

// Cookie names.
const (
	TokenCookie = "token"
	UserCookie  = "user"
	SIDCookie   = "sid"
)

// CookieOptions are the attributes shared by every session cookie.
type CookieOptions struct {
	Secure bool
	Path   string
}

func (o CookieOptions) set(w http.ResponseWriter, name, value string, ttl time.Duration) {
	path := o.Path
	if path == "" {
		path = "/"
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  time.Now().Add(ttl),
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (o CookieOptions) expire(w http.ResponseWriter, name string) {
	path := o.Path
	if path == "" {
		path = "/"
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
