package repositories

import (
	"context"
	"fmt"

	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/models/domain"

	"github.com/google/uuid"
)

// PersistItinerary stores an approved itinerary and its items for the user.
// Upserts on itinerary id so a retried call is idempotent. Returns the
// itinerary id and the number of items written.
func (r *Repository) PersistItinerary(ctx context.Context, userID string, itinerary domain.Itinerary) (uuid.UUID, int, error) {
	op := "repositories.PersistItinerary()"

	if r.DB == nil {
		return uuid.Nil, 0, fmt.Errorf("%s: no database connection", op)
	}
	if itinerary.ID == uuid.Nil {
		itinerary.ID = uuid.New()
	}

	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	insertItinerary := `INSERT INTO itineraries (
		id, user_id, name, vibe, status, total_cost, total_duration_minutes,
		created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	ON CONFLICT (id) DO UPDATE SET
		status = EXCLUDED.status,
		updated_at = CURRENT_TIMESTAMP`

	_, err = tx.ExecContext(ctx, insertItinerary,
		itinerary.ID,
		userID,
		itinerary.Name,
		itinerary.Vibe,
		string(itinerary.Status),
		itinerary.TotalCost,
		int(itinerary.TotalDuration.Minutes()),
	)
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM itinerary_items WHERE itinerary_id = $1`, itinerary.ID); err != nil {
		return uuid.Nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	insertItem := `INSERT INTO itinerary_items (
		itinerary_id, position, event_name, category, venue, start_time, end_time,
		is_main_event, travel_minutes, travel_mode, cost_per_person, price_tier,
		booking_required, status, source_url
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	for i, item := range itinerary.Items {
		_, err = tx.ExecContext(ctx, insertItem,
			itinerary.ID,
			i,
			item.Event.Name,
			string(item.Event.Category),
			item.Event.Location.Name,
			item.Scheduled.Start,
			item.Scheduled.End,
			item.IsMainEvent,
			item.TravelMinutes,
			item.TravelMode,
			item.CostPerPerson,
			item.PriceTier,
			item.BookingRequired,
			string(item.Status),
			item.Event.SourceURL,
		)
		if err != nil {
			return uuid.Nil, 0, fmt.Errorf("%s: item %d: %w", op, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	return itinerary.ID, len(itinerary.Items), nil
}
