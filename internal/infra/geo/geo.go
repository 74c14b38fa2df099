// Package geo resolves the technician's position for check-in and
// check-out. The browser runs the Geolocation API and posts the outcome;
// this package turns that outcome into coordinates or a typed error.
package geo

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/skynet/fieldvisit-bfa/internal/domain"
	"github.com/skynet/fieldvisit-bfa/internal/port"
)

// Form field names the page script fills.
const (
	FieldLat   = "lat"
	FieldLng   = "lng"
	FieldError = "geo_error"
)

// ErrorUnsupported is the geo_error value posted when the browser has no
// Geolocation API.
const ErrorUnsupported = "unsupported"

// FormLocator is the position a browser posted with a lifecycle action.
type FormLocator struct {
	Lat, Lng string
	Error    string
}

// FromRequest reads the geolocation fields of a parsed form.
func FromRequest(r *http.Request) FormLocator {
	return FormLocator{
		Lat:   strings.TrimSpace(r.PostFormValue(FieldLat)),
		Lng:   strings.TrimSpace(r.PostFormValue(FieldLng)),
		Error: strings.TrimSpace(r.PostFormValue(FieldError)),
	}
}

// Locate returns the posted coordinates.
func (f FormLocator) Locate(ctx context.Context) (domain.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return domain.Coordinates{}, err
	}
	if f.Error == ErrorUnsupported {
		return domain.Coordinates{}, &domain.ErrLocationUnavailable{Unsupported: true}
	}
	if f.Error != "" {
		return domain.Coordinates{}, &domain.ErrLocationUnavailable{Reason: f.Error}
	}
	if f.Lat == "" || f.Lng == "" {
		return domain.Coordinates{}, &domain.ErrLocationUnavailable{Reason: "missing coordinates"}
	}

	lat, err := strconv.ParseFloat(f.Lat, 64)
	if err != nil {
		return domain.Coordinates{}, &domain.ErrLocationUnavailable{Reason: "bad latitude"}
	}
	lng, err := strconv.ParseFloat(f.Lng, 64)
	if err != nil {
		return domain.Coordinates{}, &domain.ErrLocationUnavailable{Reason: "bad longitude"}
	}
	c := domain.Coordinates{Lat: lat, Lng: lng}
	if !Valid(c) {
		return domain.Coordinates{}, &domain.ErrLocationUnavailable{Reason: "coordinates out of range"}
	}
	return c, nil
}

// Valid reports whether c is a finite point on the globe.
func Valid(c domain.Coordinates) bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lng, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

type timeoutLocator struct {
	next    port.Locator
	timeout time.Duration
}

// WithTimeout bounds next.Locate by d. Running out of time is reported as
// an unavailable location, never as a hang.
func WithTimeout(next port.Locator, d time.Duration) port.Locator {
	if d <= 0 {
		return next
	}
	return timeoutLocator{next: next, timeout: d}
}

func (t timeoutLocator) Locate(ctx context.Context) (domain.Coordinates, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	type result struct {
		c   domain.Coordinates
		err error
	}
	done := make(chan result, 1)
	go func() {
		c, err := t.next.Locate(ctx)
		done <- result{c, err}
	}()

	select {
	case res := <-done:
		if res.err != nil && errors.Is(res.err, context.DeadlineExceeded) {
			return domain.Coordinates{}, &domain.ErrLocationUnavailable{Reason: "timeout"}
		}
		return res.c, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.Coordinates{}, &domain.ErrLocationUnavailable{Reason: "timeout"}
		}
		return domain.Coordinates{}, ctx.Err()
	}
}
