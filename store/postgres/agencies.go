package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/agencyhub/pkg/pg"
	"github.com/dmitrymomot/agencyhub/svc/agency"
)

// AgencyStore persists agencies, profiles, roles and the default boards.
type AgencyStore struct {
	pool *pgxpool.Pool
}

var (
	_ agency.Store          = (*AgencyStore)(nil)
	_ agency.ProfileStore   = (*AgencyStore)(nil)
	_ agency.RoleStore      = (*AgencyStore)(nil)
	_ agency.WorkflowSeeder = (*AgencyStore)(nil)
)

func (s *AgencyStore) CreateAgency(ctx context.Context, a *agency.Agency) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO agencies (id, name, email, phone, active)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		a.ID, a.Name, a.Email, a.Phone, a.Active,
	).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert agency: %w", err)
	}
	return nil
}

func (s *AgencyStore) GetAgency(ctx context.Context, id uuid.UUID) (*agency.Agency, error) {
	var a agency.Agency
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, email, phone, active, created_at FROM agencies WHERE id = $1`, id,
	).Scan(&a.ID, &a.Name, &a.Email, &a.Phone, &a.Active, &a.CreatedAt)
	if pg.IsNotFoundError(err) {
		return nil, agency.ErrAgencyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query agency: %w", err)
	}
	return &a, nil
}

func (s *AgencyStore) GetProfile(ctx context.Context, userID uuid.UUID) (*agency.Profile, error) {
	var p agency.Profile
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, agency_id, full_name, email FROM profiles WHERE user_id = $1`, userID,
	).Scan(&p.UserID, &p.AgencyID, &p.FullName, &p.Email)
	if pg.IsNotFoundError(err) {
		return nil, agency.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query profile: %w", err)
	}
	return &p, nil
}

// LinkAgency sets the profile's agency. An empty fullName keeps the stored one.
func (s *AgencyStore) LinkAgency(ctx context.Context, userID, agencyID uuid.UUID, fullName string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE profiles
		 SET agency_id = $2,
		     full_name = COALESCE(NULLIF($3, ''), full_name),
		     updated_at = NOW()
		 WHERE user_id = $1`,
		userID, agencyID, fullName,
	)
	if err != nil {
		return fmt.Errorf("link profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return agency.ErrProfileNotFound
	}
	return nil
}

func (s *AgencyStore) GetRole(ctx context.Context, userID uuid.UUID) (agency.Role, error) {
	var role string
	err := s.pool.QueryRow(ctx, `SELECT role FROM user_roles WHERE user_id = $1`, userID).Scan(&role)
	if pg.IsNotFoundError(err) {
		return "", agency.ErrRoleNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query role: %w", err)
	}
	return agency.Role(role), nil
}

func (s *AgencyStore) SetRole(ctx context.Context, userID uuid.UUID, role agency.Role) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_roles (user_id, role) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET role = EXCLUDED.role, updated_at = NOW()`,
		userID, string(role),
	)
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	return nil
}

func (s *AgencyStore) SeedPipelineStages(ctx context.Context, agencyID uuid.UUID) error {
	return s.seed(ctx, "pipeline_stages", agencyID, agency.DefaultPipelineStages)
}

func (s *AgencyStore) SeedTaskColumns(ctx context.Context, agencyID uuid.UUID) error {
	return s.seed(ctx, "task_columns", agencyID, agency.DefaultTaskColumns)
}

// seed inserts stages in one batch; rerunning it is a no-op.
func (s *AgencyStore) seed(ctx context.Context, table string, agencyID uuid.UUID, stages []agency.Stage) error {
	batch := &pgx.Batch{}
	query := fmt.Sprintf(
		`INSERT INTO %s (agency_id, name, color, position) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (agency_id, position) DO NOTHING`,
		pgx.Identifier{table}.Sanitize(),
	)
	for _, st := range stages {
		batch.Queue(query, agencyID, st.Name, st.Color, st.Position)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("seed %s: %w", table, err)
	}
	return nil
}
