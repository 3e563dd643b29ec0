package domain

import (
	"time"

	"github.com/google/uuid"
)

// Category classifies an event. Closed set.
type Category string

const (
	CategoryConcert    Category = "concert"
	CategoryTheatre    Category = "theatre"
	CategorySports     Category = "sports"
	CategoryDining     Category = "dining"
	CategoryNightlife  Category = "nightlife"
	CategoryOutdoor    Category = "outdoor"
	CategoryCultural   Category = "cultural"
	CategoryWorkshop   Category = "workshop"
	CategoryExhibition Category = "exhibition"
	CategoryFestival   Category = "festival"
	CategoryOther      Category = "other"
)

// Availability is the ticket/seat availability state of an event.
type Availability string

const (
	AvailabilityAvailable Availability = "available"
	AvailabilityLimited   Availability = "limited"
	AvailabilitySoldOut   Availability = "sold_out"
	AvailabilityUnknown   Availability = "unknown"
)

// Location is the venue of an event.
type Location struct {
	Name    string
	Address string
	Lat     float64
	Lng     float64
}

// TimeSlot is a timezone-aware event window.
type TimeSlot struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports half-open interval overlap: aStart < bEnd && bStart < aEnd.
func (t TimeSlot) Overlaps(other TimeSlot) bool {
	return t.Start.Before(other.End) && other.Start.Before(t.End)
}

// PriceRange is the known price span of an event. A nil *PriceRange means
// the price is unknown.
type PriceRange struct {
	Min      float64
	Max      float64
	Currency string
}

// IsFree reports whether the price is known and zero.
func (p *PriceRange) IsFree() bool {
	return p != nil && p.Max == 0
}

// Event is a discoverable activity. Created by a discovery channel, possibly
// merged away during deduplication, read-only downstream of discovery.
type Event struct {
	ID              string
	Name            string
	Description     string
	Category        Category
	Location        Location
	TimeSlot        TimeSlot
	Price           *PriceRange
	Rating          float64 // 0–5, valid only when RatingKnown
	RatingKnown     bool
	ReviewCount     int
	ImageURL        string
	Source          string
	Availability    Availability
	BookingRequired bool
	SourceURL       string
}

// RankedEvent is an Event plus a score in [0,1] and a human-readable
// reasoning string. Created once during ranking, immutable.
type RankedEvent struct {
	Event     Event
	Score     float64
	Reasoning string
}

// UserConstraints are derived from one user submission and owned by the
// orchestrator for the duration of one run.
type UserConstraints struct {
	BudgetMin           float64
	BudgetMax           float64
	HasBudget           bool
	Date                time.Time
	DurationHours       float64
	PartySize           int
	PreferredCategories []Category
	ExcludedCategories  []Category
	AreaHints           []string
	PreferFreeEvents    bool
	GoodWeather         *bool // nil means no weather signal
}

// ItemStatus is the status of one itinerary stop.
type ItemStatus string

const (
	ItemStatusPlanned   ItemStatus = "planned"
	ItemStatusCorrected ItemStatus = "corrected"
	ItemStatusGenerated ItemStatus = "generated"
)

// ItineraryItem is one scheduled stop. Items inside an Itinerary are kept in
// non-decreasing Scheduled.Start order.
type ItineraryItem struct {
	Event           Event
	Scheduled       TimeSlot
	IsMainEvent     bool
	TravelMinutes   int
	TravelMode      string
	CostPerPerson   float64
	PriceTier       string
	BookingRequired bool
	Status          ItemStatus
	Notes           string
}

// ItineraryStatus is the itinerary lifecycle: draft → approved|rejected.
type ItineraryStatus string

const (
	ItineraryStatusDraft    ItineraryStatus = "draft"
	ItineraryStatusApproved ItineraryStatus = "approved"
	ItineraryStatusRejected ItineraryStatus = "rejected"
)

// Itinerary is an ordered list of stops plus aggregates. Mutated only by the
// reconciler before approval; immutable after approval.
type Itinerary struct {
	ID            uuid.UUID
	Name          string
	Vibe          string
	Tips          []string
	Items         []ItineraryItem
	TotalCost     float64
	TotalDuration time.Duration
	Status        ItineraryStatus
	Warnings      []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// BookingStatus is one of the fixed terminal outcomes of a booking attempt.
type BookingStatus string

const (
	BookingStatusSuccess        BookingStatus = "success"
	BookingStatusFailed         BookingStatus = "failed"
	BookingStatusSoldOut        BookingStatus = "sold_out"
	BookingStatusWaitlist       BookingStatus = "waitlist"
	BookingStatusCaptchaBlocked BookingStatus = "captcha_blocked"
	BookingStatusLoginRequired  BookingStatus = "login_required"
	BookingStatusNoSourceURL    BookingStatus = "no_source_url"
	BookingStatusSkipped        BookingStatus = "skipped"
)

// BookingResult is the outcome of one booking attempt. Never mutated after
// creation.
type BookingResult struct {
	ItemName         string
	Action           string
	Status           BookingStatus
	ConfirmationCode string
	ScreenshotPath   string
	Error            string
	Timestamp        time.Time
}

// TraceStatus is the lifecycle status carried by a trace event.
type TraceStatus string

const (
	TraceStatusStarted   TraceStatus = "started"
	TraceStatusCompleted TraceStatus = "completed"
	TraceStatusError     TraceStatus = "error"
)

// TraceEvent is an append-only observability record. Immutable once emitted;
// ordering within a run equals emission order.
type TraceEvent struct {
	ID        uuid.UUID      `json:"id"`
	RunID     string         `json:"run_id"`
	Type      string         `json:"type"`
	Name      string         `json:"name"`
	Status    TraceStatus    `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Duration  time.Duration  `json:"duration_ns,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// RunStatus is the externally visible state of one pipeline run.
type RunStatus string

const (
	RunStatusRunning          RunStatus = "running"
	RunStatusAwaitingApproval RunStatus = "awaiting_approval"
	RunStatusCompleted        RunStatus = "completed"
	RunStatusRejected         RunStatus = "rejected"
	RunStatusFailed           RunStatus = "failed"
)
