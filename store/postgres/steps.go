package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StepStore keeps the trial provisioning markers.
type StepStore struct {
	pool *pgxpool.Pool
}

func (s *StepStore) MarkStep(ctx context.Context, agencyID uuid.UUID, step string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO agency_provisioning_steps (agency_id, step) VALUES ($1, $2)
		 ON CONFLICT (agency_id, step) DO NOTHING`,
		agencyID, step,
	)
	if err != nil {
		return fmt.Errorf("mark provisioning step: %w", err)
	}
	return nil
}

// CompletedSteps lists the finished steps of an agency.
func (s *StepStore) CompletedSteps(ctx context.Context, agencyID uuid.UUID) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT step FROM agency_provisioning_steps WHERE agency_id = $1 ORDER BY completed_at, step`, agencyID)
	if err != nil {
		return nil, fmt.Errorf("query provisioning steps: %w", err)
	}
	defer rows.Close()

	var steps []string
	for rows.Next() {
		var step string
		if err := rows.Scan(&step); err != nil {
			return nil, fmt.Errorf("scan provisioning step: %w", err)
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}
