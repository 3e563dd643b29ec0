package dto

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexibleStringSlice accepts either a single string or an array of strings.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*f = arr
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "" {
			*f = []string{s}
		} else {
			*f = nil
		}
		return nil
	}

	return fmt.Errorf("expected string or []string, got %s", string(data))
}

// FlexibleFloat accepts a JSON number or a numeric string, with or without a
// currency symbol. Models are inconsistent about this.
type FlexibleFloat float64

func (f *FlexibleFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexibleFloat(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.TrimSpace(strings.TrimLeft(s, "$€£"))
		if s == "" || strings.EqualFold(s, "free") {
			*f = 0
			return nil
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			*f = FlexibleFloat(n)
			return nil
		}
	}

	return fmt.Errorf("expected number or numeric string, got %s", string(data))
}

// TravelBlock describes travel from the previous itinerary stop.
type TravelBlock struct {
	Minutes FlexibleFloat `json:"minutes"`
	Mode    string        `json:"mode"`
}

// GeneratedItem is one stop of the model's draft plan. Untrusted input: any
// field may be missing or hallucinated; the reconciler corrects against
// discovered ground truth.
type GeneratedItem struct {
	Name            string         `json:"name"`
	Category        string         `json:"category"`
	MainEvent       bool           `json:"main_event"`
	StartTime       string         `json:"start_time"` // HH:MM local venue time
	EndTime         string         `json:"end_time"`   // HH:MM local venue time
	DurationMinutes FlexibleFloat  `json:"duration_minutes"`
	Location        string         `json:"location"`
	CostEstimate    FlexibleFloat  `json:"cost_estimate"`
	PriceTier       string         `json:"price_tier"`
	Travel          *TravelBlock   `json:"travel_from_previous"`
	BookingRequired bool           `json:"booking_required"`
	SourceURL       string         `json:"source_url"`
}

// GeneratedPlan is the documented completion shape.
type GeneratedPlan struct {
	Name  string              `json:"name"`
	Vibe  string              `json:"vibe"`
	Tips  FlexibleStringSlice `json:"tips"`
	Items []GeneratedItem     `json:"items"`
}

// Validate checks the fixed item shape. It reports the first structural
// problem found; an empty plan is a problem too.
func (p *GeneratedPlan) Validate() error {
	if len(p.Items) == 0 {
		return fmt.Errorf("plan has no items")
	}
	for i, item := range p.Items {
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Errorf("item %d: empty name", i)
		}
		if _, err := ParseClock(item.StartTime); err != nil {
			return fmt.Errorf("item %d (%s): bad start_time %q", i, item.Name, item.StartTime)
		}
		if _, err := ParseClock(item.EndTime); err != nil {
			return fmt.Errorf("item %d (%s): bad end_time %q", i, item.Name, item.EndTime)
		}
	}
	return nil
}

// Clock is a local-venue wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM".
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return Clock{}, fmt.Errorf("expected HH:MM, got %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return Clock{}, fmt.Errorf("bad hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return Clock{}, fmt.Errorf("bad minute in %q", s)
	}
	return Clock{Hour: hour, Minute: minute}, nil
}
