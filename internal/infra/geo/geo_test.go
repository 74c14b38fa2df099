package geo_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/skynet/fieldvisit-bfa/internal/domain"
	"github.com/skynet/fieldvisit-bfa/internal/infra/geo"
)

func TestFormLocator_Coordinates(t *testing.T) {
	form := url.Values{"lat": {"14.6349"}, "lng": {"-90.5069"}}
	req := httptest.NewRequest(http.MethodPost, "/visits/1/checkin", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c, err := geo.FromRequest(req).Locate(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Lat != 14.6349 || c.Lng != -90.5069 {
		t.Errorf("unexpected coordinates %+v", c)
	}
}

func TestFormLocator_Errors(t *testing.T) {
	tests := []struct {
		name        string
		loc         geo.FormLocator
		unsupported bool
	}{
		{"unsupported", geo.FormLocator{Error: geo.ErrorUnsupported}, true},
		{"denied", geo.FormLocator{Error: "permission denied"}, false},
		{"missing", geo.FormLocator{Lat: "14.6"}, false},
		{"garbage", geo.FormLocator{Lat: "abc", Lng: "1"}, false},
		{"out of range", geo.FormLocator{Lat: "91", Lng: "0"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.loc.Locate(context.Background())
			var locErr *domain.ErrLocationUnavailable
			if !errors.As(err, &locErr) {
				t.Fatalf("expected ErrLocationUnavailable, got %v", err)
			}
			if locErr.Unsupported != tt.unsupported {
				t.Errorf("expected unsupported=%v, got %v", tt.unsupported, locErr.Unsupported)
			}
		})
	}
}

type slowLocator struct{ delay time.Duration }

func (s slowLocator) Locate(ctx context.Context) (domain.Coordinates, error) {
	select {
	case <-time.After(s.delay):
		return domain.Coordinates{Lat: 1, Lng: 1}, nil
	case <-ctx.Done():
		return domain.Coordinates{}, ctx.Err()
	}
}

func TestWithTimeout_ExpiresAsUnavailable(t *testing.T) {
	loc := geo.WithTimeout(slowLocator{delay: time.Second}, 20*time.Millisecond)

	start := time.Now()
	_, err := loc.Locate(context.Background())
	if time.Since(start) > 500*time.Millisecond {
		t.Fatal("expected locate to give up at the timeout")
	}
	var locErr *domain.ErrLocationUnavailable
	if !errors.As(err, &locErr) {
		t.Fatalf("expected ErrLocationUnavailable, got %v", err)
	}
}

func TestWithTimeout_FastLocatorPasses(t *testing.T) {
	loc := geo.WithTimeout(slowLocator{delay: 0}, time.Second)

	c, err := loc.Locate(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Lat != 1 {
		t.Errorf("unexpected coordinates %+v", c)
	}
}
