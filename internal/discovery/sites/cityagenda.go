package sites

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/models/domain"

	"github.com/PuerkitoBio/goquery"
	"github.com/geziyor/geziyor"
	"github.com/geziyor/geziyor/client"
)

var priceRe = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// ScrapeCityAgenda scrapes a city agenda listing page: one pass to collect
// event detail links, then one request per detail page.
func ScrapeCityAgenda(ctx context.Context, baseURL string) ([]domain.Event, error) {
	var events []domain.Event
	var eventLinks []string
	var mu sync.Mutex

	collectLinksGez := geziyor.NewGeziyor(&geziyor.Options{
		StartURLs: []string{baseURL},
		ParseFunc: func(g *geziyor.Geziyor, r *client.Response) {
			r.HTMLDoc.Find("article.agenda-item a.agenda-item-link").Each(func(i int, sel *goquery.Selection) {
				if href, ok := sel.Attr("href"); ok {
					absoluteURL, err := r.Request.URL.Parse(href)
					if err == nil {
						mu.Lock()
						eventLinks = append(eventLinks, absoluteURL.String())
						mu.Unlock()
					}
				}
			})
		},
	})
	collectLinksGez.Start()
	eventLinks = uniqueStrings(eventLinks)

	for _, link := range eventLinks {
		select {
		case <-ctx.Done():
			return events, ctx.Err()
		default:
			event, err := scrapeAgendaEventDetails(link)
			if err != nil {
				continue
			}
			events = append(events, event)
		}
	}

	return events, nil
}

func scrapeAgendaEventDetails(url string) (domain.Event, error) {
	var event domain.Event
	event.SourceURL = url
	event.Source = "cityagenda"
	event.Availability = domain.AvailabilityUnknown
	event.Category = domain.CategoryOther

	gez := geziyor.NewGeziyor(&geziyor.Options{
		StartURLs: []string{url},
		ParseFunc: func(g *geziyor.Geziyor, r *client.Response) {
			name := r.HTMLDoc.Find("h1.event-title").Text()
			event.Name = strings.TrimSpace(strings.ReplaceAll(name, "\n", " "))

			descSelection := r.HTMLDoc.Find(".event-description").Clone()
			descSelection.Find("script").Remove()
			event.Description = strings.Join(strings.Fields(descSelection.Text()), " ")

			if src, ok := r.HTMLDoc.Find(".event-image img").Attr("src"); ok {
				event.ImageURL = src
			}

			event.Location.Name = strings.TrimSpace(r.HTMLDoc.Find(".event-venue-name").Text())
			event.Location.Address = strings.TrimSpace(r.HTMLDoc.Find(".event-venue-address").Text())

			dateStr := strings.TrimSpace(r.HTMLDoc.Find(".event-date").Text())
			timeStr := strings.TrimSpace(r.HTMLDoc.Find(".event-time").First().Text())

			if dateStr != "" {
				if t, err := time.Parse("02 Jan 2006", dateStr); err == nil {
					start := t
					if parts := strings.Split(timeStr, ":"); len(parts) == 2 {
						hour, _ := strconv.Atoi(parts[0])
						min, _ := strconv.Atoi(parts[1])
						start = time.Date(t.Year(), t.Month(), t.Day(), hour, min, 0, 0, t.Location())
					}
					event.TimeSlot = domain.TimeSlot{Start: start, End: start.Add(2 * time.Hour)}
				}
			}

			if cat := strings.TrimSpace(r.HTMLDoc.Find(".event-category").Text()); cat != "" {
				event.Category = mapCategory(cat)
			}

			priceText := r.HTMLDoc.Find(".event-price").Text()
			if priceText != "" {
				matches := priceRe.FindAllString(priceText, -1)

				var minPrice, maxPrice float64
				first := true
				for _, m := range matches {
					m = strings.ReplaceAll(m, ",", ".")
					p, err := strconv.ParseFloat(m, 64)
					if err != nil {
						continue
					}
					if first {
						minPrice, maxPrice = p, p
						first = false
						continue
					}
					if p < minPrice {
						minPrice = p
					}
					if p > maxPrice {
						maxPrice = p
					}
				}

				if !first {
					event.Price = &domain.PriceRange{Min: minPrice, Max: maxPrice, Currency: "EUR"}
				} else if strings.Contains(strings.ToLower(priceText), "free") {
					event.Price = &domain.PriceRange{Currency: "EUR"}
				}
			}

			if _, ok := r.HTMLDoc.Find(".event-booking-button").Attr("href"); ok {
				event.BookingRequired = true
				event.Availability = domain.AvailabilityAvailable
			}
			if strings.Contains(strings.ToLower(r.HTMLDoc.Find(".event-status").Text()), "sold out") {
				event.Availability = domain.AvailabilitySoldOut
			}
		},
	})
	gez.Start()

	return event, nil
}

func mapCategory(raw string) domain.Category {
	switch strings.ToLower(raw) {
	case "concert", "music", "live music":
		return domain.CategoryConcert
	case "theatre", "theater":
		return domain.CategoryTheatre
	case "sports", "sport":
		return domain.CategorySports
	case "food", "dining", "restaurant":
		return domain.CategoryDining
	case "nightlife", "club", "party":
		return domain.CategoryNightlife
	case "outdoor", "nature":
		return domain.CategoryOutdoor
	case "culture", "cultural", "museum":
		return domain.CategoryCultural
	case "workshop", "class":
		return domain.CategoryWorkshop
	case "exhibition", "art":
		return domain.CategoryExhibition
	case "festival":
		return domain.CategoryFestival
	default:
		return domain.CategoryOther
	}
}

// uniqueStrings removes duplicates from a string slice, preserving order.
func uniqueStrings(input []string) []string {
	seen := make(map[string]bool)
	result := []string{}
	for _, v := range input {
		if !seen[v] {
			seen[v] = true
			result = append(result, v)
		}
	}
	return result
}
