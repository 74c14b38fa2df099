package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/skynet/fieldvisit-bfa/internal/domain"
	"github.com/skynet/fieldvisit-bfa/internal/session"
	"github.com/skynet/fieldvisit-bfa/internal/view"

	"go.uber.org/zap"
)

//go:embed templates/*.html
var templatesFS embed.FS

// pageNames are the page templates; layout.html and partials.html are
// parsed into each of them.
var pageNames = []string{
	"login", "loading", "dashboard", "users", "clients",
	"visits_list", "visit_new", "tech_today", "reports",
}

var funcs = template.FuncMap{
	"badge":      view.StatusBadge,
	"actions":    view.VisitActions,
	"directions": view.DirectionsURL,
	"roleLabel":  func(r domain.Role) string { return r.Label() },
	"date": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Local().Format("02/01/2006 15:04")
	},
	"coord": func(f *float64) string {
		if f == nil {
			return ""
		}
		return fmt.Sprintf("%g", *f)
	},
	"card":  func(v domain.Visit, ret string) visitCard { return visitCard{Visit: v, Return: ret} },
	"chart": func(title string, data any) chartBox { return chartBox{Title: title, Data: data} },
}

// chartBox is the argument of the dashboard chart partials.
type chartBox struct {
	Title string
	Data  any
}

// visitCard is the argument of the shared visit card partial.
type visitCard struct {
	Visit  domain.Visit
	Return string
}

// renderer holds one parsed template set per page, each joined with the
// shared layout.
type renderer struct {
	pages      map[string]*template.Template
	mapsAPIKey string
	geoTimeout time.Duration
	logger     *zap.Logger
}

func newRenderer(mapsAPIKey string, geoTimeout time.Duration, logger *zap.Logger) *renderer {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		pages[name] = template.Must(template.New("layout.html").Funcs(funcs).
			ParseFS(templatesFS, "templates/layout.html", "templates/partials.html", "templates/"+name+".html"))
	}
	return &renderer{pages: pages, mapsAPIKey: mapsAPIKey, geoTimeout: geoTimeout, logger: logger}
}

// flash is the alert carried across a redirect in the query string.
type flash struct {
	Error   string
	Message string
}

// pageData is what the layout reads. Content is the page's own view model.
type pageData struct {
	Title        string
	User         *domain.User
	Nav          []view.NavItem
	Flash        flash
	MapsAPIKey   string
	GeoTimeoutMs int64
	Content      any
}

// render writes page into a buffer first so a template error never leaves
// a half-written page behind.
func (rd *renderer) render(w http.ResponseWriter, r *http.Request, status int, page, title string, content any, f flash) {
	tmpl, ok := rd.pages[page]
	if !ok {
		rd.logger.Error("render: unknown page", zap.String("page", page))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	s := session.FromContext(r.Context())
	data := pageData{
		Title:        title,
		User:         s.User,
		Nav:          view.Nav(s.Role()),
		Flash:        f,
		MapsAPIKey:   rd.mapsAPIKey,
		GeoTimeoutMs: rd.geoTimeout.Milliseconds(),
		Content:      content,
	}
	if s.User == nil {
		data.Nav = nil
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		rd.logger.Error("render: template failed", zap.String("page", page), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// flashFrom reads the alert left by the previous redirect.
func flashFrom(r *http.Request) flash {
	q := r.URL.Query()
	return flash{Error: q.Get("err"), Message: q.Get("msg")}
}

// waiting is the neutral page the gate shows while the session settles.
func (rd *renderer) waiting() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rd.render(w, r, http.StatusOK, "loading", "Cargando", nil, flash{})
	})
}
