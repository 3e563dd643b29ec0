package repositories

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/config"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Repository owns the database handle. Persistence is an external
// collaborator of the pipeline: one idempotent "persist this itinerary for
// this user" call after approval, plus read-backs for the HTTP layer.
type Repository struct {
	logger *slog.Logger
	DB     *sqlx.DB
}

func New(logger *slog.Logger, cfg *config.Config) *Repository {
	op := "repositories.New()"
	log := logger.With(slog.String("op", op))

	dsn := fmt.Sprintf("host=%s port=%s dbname=%s user=%s password=%s sslmode=disable",
		cfg.DBConfig.Host,
		cfg.DBConfig.Port,
		cfg.DBConfig.Name,
		cfg.DBConfig.User,
		cfg.DBConfig.Password,
	)

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		log.Error("cannot open database", slog.String("error", err.Error()))
		return &Repository{logger: logger}
	}

	log.Info("repository created", slog.String("host", cfg.DBConfig.Host))

	return &Repository{
		logger: logger,
		DB:     db,
	}
}

// Shutdown closes the database handle.
func (r *Repository) Shutdown(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("force exit repository: %w", ctx.Err())
	default:
		if r.DB != nil {
			return r.DB.Close()
		}
		return nil
	}
}
