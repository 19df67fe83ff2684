// Package trial bootstraps a new agency on a free trial for a freshly signed
// up user.
//
// Provisioning runs as a sequence of independent steps. Only creating the
// agency is fatal; later steps log their failure, leave a missing marker in
// the step log and let the call succeed so the user is not stuck on signup.
package trial

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/agencyhub/pkg/async"
	"github.com/dmitrymomot/agencyhub/pkg/logger"
	"github.com/dmitrymomot/agencyhub/pkg/metrics"
	"github.com/dmitrymomot/agencyhub/pkg/validator"
	"github.com/dmitrymomot/agencyhub/svc/agency"
	"github.com/dmitrymomot/agencyhub/svc/settings"
	"github.com/dmitrymomot/agencyhub/svc/subscription"
)

// Provisioning steps, in execution order.
const (
	StepCreateAgency       = "create_agency"
	StepLinkProfile        = "link_profile"
	StepAssignRole         = "assign_role"
	StepCreateSubscription = "create_subscription"
	StepSeedPipeline       = "seed_pipeline_stages"
	StepSeedTaskColumns    = "seed_task_columns"
)

// Steps lists every provisioning step in execution order.
var Steps = []string{
	StepCreateAgency,
	StepLinkProfile,
	StepAssignRole,
	StepCreateSubscription,
	StepSeedPipeline,
	StepSeedTaskColumns,
}

// Policy supplies the platform trial settings.
type Policy interface {
	Trial(ctx context.Context) (settings.Trial, error)
}

// StepRecorder stores a completion marker per finished step.
type StepRecorder interface {
	MarkStep(ctx context.Context, agencyID uuid.UUID, step string) error
}

type Request struct {
	UserID     uuid.UUID
	AgencyName string
	Email      string
	UserName   string
	// TrialDays overrides the platform trial length when set.
	TrialDays *int
}

func (r Request) validate() error {
	return validator.Apply(
		validator.Rule{Check: func() bool { return r.UserID != uuid.Nil }, Error: validator.ValidationError{Field: "user_id", Message: "field is required", Key: "validation.required"}},
		validator.RequiredString("agency_name", r.AgencyName),
		validator.MaxLenString("agency_name", r.AgencyName, 200),
		validator.ValidEmail("email", r.Email),
		validator.MaxLenString("user_name", r.UserName, 200),
		validator.When(r.TrialDays != nil, validator.MinNum("trial_days", deref(r.TrialDays), 1)),
		validator.When(r.TrialDays != nil, validator.MaxNum("trial_days", deref(r.TrialDays), 365)),
	)
}

type Result struct {
	AgencyID    uuid.UUID
	TrialEndsAt time.Time
}

// Service provisions trial agencies.
type Service struct {
	agencies agency.Store
	profiles agency.ProfileStore
	roles    agency.RoleStore
	subs     subscription.Store
	seeder   agency.WorkflowSeeder
	policy   Policy
	steps    StepRecorder
	now      func() time.Time
	log      *slog.Logger
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithStepRecorder enables saga markers.
func WithStepRecorder(r StepRecorder) Option {
	return func(s *Service) { s.steps = r }
}

func NewService(
	agencies agency.Store,
	profiles agency.ProfileStore,
	roles agency.RoleStore,
	subs subscription.Store,
	seeder agency.WorkflowSeeder,
	policy Policy,
	opts ...Option,
) *Service {
	if agencies == nil || profiles == nil || roles == nil || subs == nil || seeder == nil || policy == nil {
		panic("trial: service dependencies are required")
	}
	s := &Service{
		agencies: agencies,
		profiles: profiles,
		roles:    roles,
		subs:     subs,
		seeder:   seeder,
		policy:   policy,
		now:      time.Now,
		log:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Provision creates an agency for the caller and starts its trial.
func (s *Service) Provision(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetProfile(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if profile.HasAgency() {
		return nil, ErrAlreadyProvisioned
	}

	policy, err := s.policy.Trial(ctx)
	if err != nil {
		return nil, fmt.Errorf("load trial settings: %w", err)
	}
	if !policy.Enabled {
		return nil, ErrTrialDisabled
	}
	days := policy.Days
	if req.TrialDays != nil {
		days = *req.TrialDays
	}
	if days <= 0 {
		days = settings.DefaultTrialDays
	}

	log := s.log.With(logger.Component("trial"), logger.UserID(req.UserID))

	a := &agency.Agency{
		ID:     uuid.New(),
		Name:   strings.TrimSpace(req.AgencyName),
		Email:  req.Email,
		Active: true,
	}
	if err := s.agencies.CreateAgency(ctx, a); err != nil {
		s.observe(ctx, log, a.ID, StepCreateAgency, err)
		return nil, fmt.Errorf("create agency: %w", err)
	}
	s.observe(ctx, log, a.ID, StepCreateAgency, nil)
	log = log.With(logger.AgencyID(a.ID))

	name := strings.TrimSpace(req.UserName)
	if name == "" {
		name = profile.FullName
	}
	s.observe(ctx, log, a.ID, StepLinkProfile, s.profiles.LinkAgency(ctx, req.UserID, a.ID, name))
	s.observe(ctx, log, a.ID, StepAssignRole, s.roles.SetRole(ctx, req.UserID, agency.RoleAdmin))

	start := s.now().UTC()
	end := start.AddDate(0, 0, days)
	err = s.subs.Create(ctx, &subscription.Subscription{
		AgencyID:           a.ID,
		BillingCycle:       subscription.CycleMonthly,
		Status:             subscription.StatusTrialing,
		CurrentPeriodStart: &start,
		CurrentPeriodEnd:   &end,
		Limits: subscription.Limits{
			MaxUsers:     policy.MaxUsers,
			MaxClients:   policy.MaxClients,
			MaxProposals: policy.MaxProposals,
		},
	})
	s.observe(ctx, log, a.ID, StepCreateSubscription, err)

	// Seeding must outlive the request.
	async.Async(context.WithoutCancel(ctx), a.ID, func(ctx context.Context, id uuid.UUID) (struct{}, error) {
		s.observe(ctx, log, id, StepSeedPipeline, s.seeder.SeedPipelineStages(ctx, id))
		s.observe(ctx, log, id, StepSeedTaskColumns, s.seeder.SeedTaskColumns(ctx, id))
		return struct{}{}, nil
	})

	log.InfoContext(ctx, "trial agency provisioned", slog.Int("trial_days", days), slog.Time("trial_ends_at", end))
	return &Result{AgencyID: a.ID, TrialEndsAt: end}, nil
}

func (s *Service) observe(ctx context.Context, log *slog.Logger, agencyID uuid.UUID, step string, err error) {
	if err != nil {
		metrics.TrialProvisioningTotal.WithLabelValues(step, "failed").Inc()
		level := slog.LevelWarn
		if step == StepCreateAgency {
			level = slog.LevelError
		}
		log.Log(ctx, level, "trial provisioning step failed", logger.Step(step), logger.Error(err))
		return
	}
	metrics.TrialProvisioningTotal.WithLabelValues(step, "ok").Inc()
	if s.steps == nil {
		return
	}
	if err := s.steps.MarkStep(ctx, agencyID, step); err != nil {
		log.WarnContext(ctx, "failed to record provisioning step", logger.Step(step), logger.Error(err))
	}
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
