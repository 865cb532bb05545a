package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/fiftytwo/internal/models"
	"github.com/starford/fiftytwo/internal/moments"
	"github.com/starford/fiftytwo/internal/photo"
	"github.com/starford/fiftytwo/internal/review"
	"github.com/starford/fiftytwo/internal/settings"
	"github.com/starford/fiftytwo/internal/sse"
	"github.com/starford/fiftytwo/internal/weeks"
)

// Publisher receives change notifications; *sse.Broker satisfies it.
type Publisher interface {
	PublishMomentEvent(kind, id string)
	PublishSettings(prefs any)
}

type nopPublisher struct{}

func (nopPublisher) PublishMomentEvent(string, string) {}
func (nopPublisher) PublishSettings(any)               {}

// Publishers fans each notification out to every publisher in order.
type Publishers []Publisher

func (ps Publishers) PublishMomentEvent(kind, id string) {
	for _, p := range ps {
		p.PublishMomentEvent(kind, id)
	}
}

func (ps Publishers) PublishSettings(prefs any) {
	for _, p := range ps {
		p.PublishSettings(prefs)
	}
}

// Handler holds API route handlers.
type Handler struct {
	moments  *moments.Store
	settings *settings.Service
	events   Publisher
	now      func() time.Time
	photo    photo.Options
}

// NewHandler creates a new Handler.
func NewHandler(d Deps) *Handler {
	h := &Handler{
		moments:  d.Moments,
		settings: d.Settings,
		events:   d.Events,
		now:      d.Now,
		photo:    d.Photo,
	}
	if h.events == nil {
		h.events = nopPublisher{}
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

func pathInt(r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	return v, err == nil
}

// toInput fills omitted week/year with the current ones.
func (h *Handler) toInput(req MomentRequest) models.MomentInput {
	now := h.now()
	in := models.MomentInput{
		Text:       req.Text,
		Title:      req.Title,
		WeekNumber: weeks.CurrentWeekNumber(now),
		Year:       now.Year(),
		Photo:      req.Photo,
	}
	if req.WeekNumber != nil {
		in.WeekNumber = *req.WeekNumber
	}
	if req.Year != nil {
		in.Year = *req.Year
	}
	if in.Photo != nil && *in.Photo == "" {
		in.Photo = nil
	}
	return in
}

// ListMoments handles GET /api/moments.
//
//	@Summary		Timeline of all moments, or one year in week order
//	@Tags			moments
//	@Produce		json
//	@Param			year	query		int	false	"Restrict to a year (ascending by week)"
//	@Success		200		{object}	MomentListResponse
//	@Router			/moments [get]
func (h *Handler) ListMoments(w http.ResponseWriter, r *http.Request) {
	var items []models.Moment
	if raw := r.URL.Query().Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("year must be an integer"))
			return
		}
		items = h.moments.ListForYear(r.Context(), year)
	} else {
		items = h.moments.ListAll(r.Context())
	}
	writeJSON(w, http.StatusOK, MomentListResponse{
		Moments: review.Decorate(items),
		Total:   len(items),
	})
}

// GetMoment handles GET /api/moments/{id}.
//
//	@Summary		Get a single moment
//	@Tags			moments
//	@Produce		json
//	@Param			id	path		string	true	"Moment id"
//	@Success		200	{object}	Moment
//	@Failure		404	{object}	errResponse
//	@Router			/moments/{id} [get]
func (h *Handler) GetMoment(w http.ResponseWriter, r *http.Request) {
	m, err := h.moments.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get moment", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// CreateMoment handles POST /api/moments.
//
//	@Summary		Save a new moment
//	@Tags			moments
//	@Accept			json
//	@Produce		json
//	@Param			body	body		MomentRequest	true	"Moment to save"
//	@Success		201		{object}	Moment
//	@Failure		400		{object}	errResponse
//	@Router			/moments [post]
func (h *Handler) CreateMoment(w http.ResponseWriter, r *http.Request) {
	var req MomentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := photo.Validate(req.Photo); err != nil {
		writeError(w, "create moment", err)
		return
	}
	m, err := h.moments.Create(r.Context(), h.toInput(req))
	if err != nil {
		writeError(w, "create moment", err)
		return
	}
	h.events.PublishMomentEvent(sse.KindCreated, m.ID)
	writeJSON(w, http.StatusCreated, m)
}

// UpdateMoment handles PUT /api/moments/{id}.
//
//	@Summary		Edit a moment; id and createdAt never change
//	@Tags			moments
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Moment id"
//	@Param			body	body		MomentRequest	true	"Replacement fields"
//	@Success		200		{object}	Moment
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Router			/moments/{id} [put]
func (h *Handler) UpdateMoment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req MomentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := photo.Validate(req.Photo); err != nil {
		writeError(w, "update moment", err)
		return
	}
	m, err := h.moments.Update(r.Context(), id, h.toInput(req))
	if err != nil {
		writeError(w, "update moment", err)
		return
	}
	h.events.PublishMomentEvent(sse.KindUpdated, m.ID)
	writeJSON(w, http.StatusOK, m)
}

// DeleteMoment handles DELETE /api/moments/{id}. Deleting an unknown id
// succeeds.
//
//	@Summary		Delete a moment
//	@Tags			moments
//	@Param			id	path	string	true	"Moment id"
//	@Success		204	"Moment deleted"
//	@Router			/moments/{id} [delete]
func (h *Handler) DeleteMoment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	removed, err := h.moments.Delete(r.Context(), id)
	if err != nil {
		writeError(w, "delete moment", err)
		return
	}
	if removed {
		h.events.PublishMomentEvent(sse.KindDeleted, id)
	}
	w.WriteHeader(http.StatusNoContent)
}

// YearReview handles GET /api/review/{year}.
//
//	@Summary		Year review, ascending by week
//	@Tags			review
//	@Produce		json,text/markdown
//	@Param			year	path		int		true	"Year"
//	@Param			format	query		string	false	"Output format"	Enums(json, markdown)
//	@Success		200		{object}	YearReviewResponse
//	@Router			/review/{year} [get]
func (h *Handler) YearReview(w http.ResponseWriter, r *http.Request) {
	year, ok := pathInt(r, "year")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("year must be an integer"))
		return
	}
	y := review.BuildYear(year, h.moments.ListForYear(r.Context(), year))

	if r.URL.Query().Get("format") == "markdown" {
		md, err := review.Markdown(y, h.now())
		if err != nil {
			writeError(w, "year review", err)
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(md))
		return
	}
	writeJSON(w, http.StatusOK, y)
}

// CurrentWeek handles GET /api/weeks/current.
//
//	@Summary		The week and year new moments default to
//	@Tags			weeks
//	@Produce		json
//	@Success		200	{object}	WeekResponse
//	@Router			/weeks/current [get]
func (h *Handler) CurrentWeek(w http.ResponseWriter, _ *http.Request) {
	now := h.now()
	writeJSON(w, http.StatusOK, weekResponse(weeks.CurrentWeekNumber(now), now.Year()))
}

// WeekRange handles GET /api/weeks/{year}/{week}.
//
//	@Summary		Date range of a week
//	@Tags			weeks
//	@Produce		json
//	@Param			year	path		int	true	"Year"
//	@Param			week	path		int	true	"Week number"
//	@Success		200		{object}	WeekResponse
//	@Failure		400		{object}	errResponse
//	@Router			/weeks/{year}/{week} [get]
func (h *Handler) WeekRange(w http.ResponseWriter, r *http.Request) {
	year, okY := pathInt(r, "year")
	week, okW := pathInt(r, "week")
	if !okY || !okW {
		writeJSON(w, http.StatusBadRequest, errorBody("year and week must be integers"))
		return
	}
	writeJSON(w, http.StatusOK, weekResponse(week, year))
}

// WeekOptions handles GET /api/weeks/options.
//
//	@Summary		Week and year picker choices
//	@Tags			weeks
//	@Produce		json
//	@Success		200	{object}	WeekOptionsResponse
//	@Router			/weeks/options [get]
func (h *Handler) WeekOptions(w http.ResponseWriter, _ *http.Request) {
	now := h.now()
	writeJSON(w, http.StatusOK, WeekOptionsResponse{
		Weeks:       weeks.Options(),
		Years:       weeks.YearOptions(now),
		CurrentWeek: weeks.CurrentWeekNumber(now),
		CurrentYear: now.Year(),
	})
}

func weekResponse(week, year int) WeekResponse {
	start, end := weeks.WeekDateRange(week, year)
	return WeekResponse{
		Week:      week,
		Year:      year,
		Label:     weeks.Label(week),
		DateRange: weeks.FormatRange(week, year),
		Start:     start,
		End:       end,
	}
}

// UploadPhoto handles POST /api/photos (multipart/form-data, field "file").
//
//	@Summary		Read an image into an inline data URL
//	@Tags			photos
//	@Accept			mpfd
//	@Produce		json
//	@Param			file	formData	file	true	"Image file"
//	@Success		200		{object}	PhotoUploadResponse
//	@Failure		400		{object}	errResponse
//	@Router			/photos [post]
func (h *Handler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	limit := h.photo.MaxBytes
	if limit <= 0 {
		limit = photo.DefaultMaxBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+(1<<20))

	if err := r.ParseMultipartForm(limit); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	url, err := photo.Encode(file, h.photo)
	if err != nil {
		writeError(w, "upload photo", err)
		return
	}
	writeJSON(w, http.StatusOK, PhotoUploadResponse{Photo: url, Size: len(url)})
}

// GetSettings handles GET /api/settings.
//
//	@Summary		Appearance preferences
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	Preferences
//	@Router			/settings [get]
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.settings.Get(r.Context()))
}

// UpdateSettings handles PUT /api/settings. Only the fields present are changed.
//
//	@Summary		Change appearance preferences
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		Preferences	true	"Fields to change"
//	@Success		200		{object}	Preferences
//	@Failure		400		{object}	errResponse
//	@Router			/settings [put]
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch models.Preferences
	if !decodeJSON(w, r, &patch) {
		return
	}
	prefs, err := h.settings.Apply(r.Context(), patch)
	if err != nil {
		writeError(w, "update settings", err)
		return
	}
	h.events.PublishSettings(prefs)
	writeJSON(w, http.StatusOK, prefs)
}

// ThemeCSS handles GET /api/settings/theme.css.
func (h *Handler) ThemeCSS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(settings.CSS(h.settings.Get(r.Context()))))
}
