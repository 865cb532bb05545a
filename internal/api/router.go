package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/fiftytwo/internal/moments"
	"github.com/starford/fiftytwo/internal/photo"
	"github.com/starford/fiftytwo/internal/settings"
)

// Deps are the collaborators the API is built from.
type Deps struct {
	Moments  *moments.Store
	Settings *settings.Service
	Events   Publisher
	// SSE, if non-nil, is mounted at GET /events.
	SSE   http.Handler
	Now   func() time.Time
	Photo photo.Options
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(d Deps) chi.Router {
	h := NewHandler(d)

	r := chi.NewRouter()
	r.Use(JSONOnly)

	// Moments.
	r.Get("/moments", h.ListMoments)
	r.Post("/moments", h.CreateMoment)
	r.Get("/moments/{id}", h.GetMoment)
	r.Put("/moments/{id}", h.UpdateMoment)
	r.Delete("/moments/{id}", h.DeleteMoment)

	// Year review.
	r.Get("/review/{year}", h.YearReview)

	// Week arithmetic.
	r.Get("/weeks/current", h.CurrentWeek)
	r.Get("/weeks/options", h.WeekOptions)
	r.Get("/weeks/{year}/{week}", h.WeekRange)

	// Photo attachment flow.
	r.Post("/photos", h.UploadPhoto)

	// Appearance settings.
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.UpdateSettings)
	r.Get("/settings/theme.css", h.ThemeCSS)

	if d.SSE != nil {
		r.Get("/events", d.SSE.ServeHTTP)
	}

	return r
}
