package api

import (
	"time"

	"github.com/starford/fiftytwo/internal/models"
	"github.com/starford/fiftytwo/internal/review"
)

// MomentRequest is the request body for creating or editing a moment.
// Omitted week and year default to the current week and year.
type MomentRequest struct {
	Text       string  `json:"text" example:"Hiked a mountain" validate:"required"`
	Title      *string `json:"title,omitempty" example:"Alps"`
	WeekNumber *int    `json:"weekNumber,omitempty" example:"10"`
	Year       *int    `json:"year,omitempty" example:"2024"`
	Photo      *string `json:"photo,omitempty" example:"data:image/jpeg;base64,/9j/..."`
}

// Moment is the moment response type (aliased from the domain layer).
type Moment = models.Moment

// MomentListResponse wraps a timeline or a year listing.
type MomentListResponse struct {
	Moments []review.Entry `json:"moments" validate:"required"`
	Total   int            `json:"total" example:"42" validate:"required"`
}

// YearReviewResponse is the year-review view (aliased from the review package).
type YearReviewResponse = review.Year

// WeekResponse describes one week of a year.
type WeekResponse struct {
	Week      int       `json:"week" example:"10" validate:"required"`
	Year      int       `json:"year" example:"2024" validate:"required"`
	Label     string    `json:"label" example:"Неделя 10"`
	DateRange string    `json:"dateRange" example:"4 мар. — 10 мар."`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
}

// WeekOptionsResponse lists the picker choices.
type WeekOptionsResponse struct {
	Weeks       []int `json:"weeks"`
	Years       []int `json:"years"`
	CurrentWeek int   `json:"currentWeek"`
	CurrentYear int   `json:"currentYear"`
}

// PhotoUploadResponse is returned after a photo has been read and encoded.
type PhotoUploadResponse struct {
	Photo string `json:"photo" example:"data:image/jpeg;base64,/9j/..." validate:"required"`
	Size  int    `json:"size" example:"12345"`
}

// Preferences is the settings response type (aliased from the domain layer).
type Preferences = models.Preferences
