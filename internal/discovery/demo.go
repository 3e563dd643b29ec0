package discovery

import (
	"fmt"
	"time"

	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/models/domain"
)

type demoSeed struct {
	name         string
	description  string
	category     domain.Category
	venue        string
	address      string
	startHour    int
	durationHrs  int
	priceMin     float64
	priceMax     float64
	rating       float64
	reviews      int
	availability domain.Availability
	bookingReq   bool
}

var demoSeeds = []demoSeed{
	{"Indie Night at The Velvet Room", "Three local bands, intimate stage, craft beer on tap.", domain.CategoryConcert, "The Velvet Room", "12 Canal St", 20, 3, 15, 25, 4.4, 212, domain.AvailabilityAvailable, true},
	{"Riverside Food Market", "Street food stalls from thirty vendors along the promenade.", domain.CategoryDining, "Riverside Promenade", "Quay 3", 12, 6, 0, 0, 4.6, 887, domain.AvailabilityAvailable, false},
	{"Modern Art After Dark", "Late opening of the contemporary wing with a guided tour.", domain.CategoryExhibition, "City Gallery", "5 Museum Sq", 18, 3, 8, 12, 4.2, 145, domain.AvailabilityLimited, true},
	{"Sunset Kayak Tour", "Two-hour guided paddle with all equipment included.", domain.CategoryOutdoor, "Harbour Boathouse", "Pier 9", 17, 2, 30, 45, 4.8, 66, domain.AvailabilityLimited, true},
	{"Stand-up Showcase", "Five comedians, one headliner, two-drink minimum.", domain.CategoryNightlife, "Basement Comedy Club", "44 King St", 21, 2, 18, 18, 4.1, 301, domain.AvailabilityAvailable, true},
	{"Hands-on Pasta Workshop", "Make three pasta shapes from scratch, then eat them.", domain.CategoryWorkshop, "Cucina Studio", "8 Market Lane", 16, 2, 55, 55, 4.9, 58, domain.AvailabilityAvailable, true},
	{"Symphony Under the Stars", "Open-air orchestral program in the botanic gardens.", domain.CategoryConcert, "Botanic Gardens", "Garden Gate 1", 19, 3, 20, 60, 4.7, 430, domain.AvailabilityAvailable, true},
	{"Old Town Walking Tour", "Ninety minutes through the medieval quarter with a historian.", domain.CategoryCultural, "Old Town Square", "Clock Tower", 14, 2, 0, 0, 4.5, 520, domain.AvailabilityAvailable, false},
}

// demoEvents builds the deterministic placeholder set a channel serves when
// its live source is unconfigured or unreachable. Times are anchored to the
// query date so downstream scheduling still works.
func demoEvents(channelName string, q Query) []domain.Event {
	day := q.Date
	if day.IsZero() {
		day = time.Now()
	}

	events := make([]domain.Event, 0, len(demoSeeds))
	for i, seed := range demoSeeds {
		if q.MaxResults > 0 && len(events) >= q.MaxResults {
			break
		}
		start := time.Date(day.Year(), day.Month(), day.Day(), seed.startHour, 0, 0, 0, day.Location())
		e := domain.Event{
			ID:              fmt.Sprintf("%s-demo-%d", channelName, i+1),
			Name:            seed.name,
			Description:     seed.description,
			Category:        seed.category,
			Location:        domain.Location{Name: seed.venue, Address: seed.address},
			TimeSlot:        domain.TimeSlot{Start: start, End: start.Add(time.Duration(seed.durationHrs) * time.Hour)},
			Price:           &domain.PriceRange{Min: seed.priceMin, Max: seed.priceMax, Currency: "USD"},
			Rating:          seed.rating,
			RatingKnown:     true,
			ReviewCount:     seed.reviews,
			Source:          channelName,
			Availability:    seed.availability,
			BookingRequired: seed.bookingReq,
			SourceURL:       fmt.Sprintf("https://demo.local/%s/events/%d", channelName, i+1),
		}
		events = append(events, e)
	}
	return events
}
