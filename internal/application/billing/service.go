package billing

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	appgroup "github.com/wintercreative/lagoon/internal/application/group"
	"github.com/wintercreative/lagoon/internal/domain/billing"
	"github.com/wintercreative/lagoon/internal/domain/project"
	"github.com/wintercreative/lagoon/internal/domain/shared"
)

// metricsFanOut caps concurrent environment metric fetches per report
const metricsFanOut = 8

// Service aggregates measured usage into priced monthly reports for
// billing groups.
type Service struct {
	groups  *appgroup.Service
	store   project.Store
	metrics billing.MetricsSource
	pricing *billing.Table
	logger  *zap.Logger
	tracer  trace.Tracer
}

// NewService creates a new billing service
func NewService(
	groups *appgroup.Service,
	store project.Store,
	metrics billing.MetricsSource,
	pricing *billing.Table,
	logger *zap.Logger,
	tracer trace.Tracer,
) *Service {
	return &Service{
		groups:  groups,
		store:   store,
		metrics: metrics,
		pricing: pricing,
		logger:  logger,
		tracer:  tracer,
	}
}

// GroupCost prices one billing group's consumption for one month. Metric
// source failures degrade to zero usage for the affected measurement so a
// flaky metrics backend cannot sink the whole report; pricing lookup
// failures are hard errors.
func (s *Service) GroupCost(ctx context.Context, ref string, month billing.Month) (*billing.Report, error) {
	ctx, span := s.tracer.Start(ctx, "billing.GroupCost",
		trace.WithAttributes(
			attribute.String("group", ref),
			attribute.String("month", month.String()),
		))
	defer span.End()

	g, err := s.groups.LoadGroupByIDOrName(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !g.IsBilling() {
		return nil, shared.NewValidationError(fmt.Sprintf("Group %s is not a billing group", g.Name))
	}
	currency := billing.CurrencyCode(g.Currency)
	if _, err := s.pricing.Currency(currency); err != nil {
		return nil, err
	}

	projectIDs, err := s.groups.ProjectsFromGroupAndSubgroups(ctx, g.ID.String())
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	usageByAvailability := make(map[project.Availability][]billing.ProjectUsage)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(metricsFanOut)
	for _, id := range projectIDs {
		eg.Go(func() error {
			p, err := s.store.ProjectByID(egCtx, id)
			if err != nil {
				return err
			}
			usage, err := s.projectUsage(egCtx, p, month)
			if err != nil {
				return err
			}

			switch p.Availability {
			case project.AvailabilityHigh, project.AvailabilityStandard:
			default:
				s.logger.Warn("Project has no availability, excluded from report",
					zap.Int("project", p.ID),
					zap.String("group", g.Name))
				return nil
			}

			mu.Lock()
			usageByAvailability[p.Availability] = append(usageByAvailability[p.Availability], usage)
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	report := &billing.Report{
		GroupName: g.Name,
		Month:     month,
		Currency:  currency,
	}
	for availability, usage := range usageByAvailability {
		sort.Slice(usage, func(i, j int) bool { return usage[i].ProjectID < usage[j].ProjectID })
		cost, err := s.pricing.CostForPartition(currency, availability, usage)
		if err != nil {
			return nil, err
		}
		switch availability {
		case project.AvailabilityHigh:
			report.High = cost
		case project.AvailabilityStandard:
			report.Standard = cost
		}
	}
	return report, nil
}

// projectUsage measures one project for the month across all of its
// environments, deleted ones included since they still bill for the days
// they existed.
func (s *Service) projectUsage(ctx context.Context, p project.Project, month billing.Month) (billing.ProjectUsage, error) {
	envs, err := s.store.EnvironmentsByProjectID(ctx, p.ID, true)
	if err != nil {
		return billing.ProjectUsage{}, err
	}

	measured := make([]billing.EnvironmentUsage, len(envs))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(metricsFanOut)
	for i, env := range envs {
		eg.Go(func() error {
			measured[i] = s.environmentUsage(egCtx, env, month)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return billing.ProjectUsage{}, err
	}

	return billing.FoldUsage(p.ID, p.Name, measured), nil
}

// environmentUsage fetches the three metrics for one environment. Each
// failed fetch is absorbed as zero with a warning.
func (s *Service) environmentUsage(ctx context.Context, env project.Environment, month billing.Month) billing.EnvironmentUsage {
	usage := billing.EnvironmentUsage{
		EnvironmentID: env.ID,
		Production:    env.IsProduction(),
	}

	hits, err := s.metrics.HitsForEnvironment(ctx, env.OpenshiftProjectName, month)
	if err != nil {
		s.logger.Warn("Hit metrics unavailable, billing zero hits",
			zap.Int("environment", env.ID),
			zap.String("namespace", env.OpenshiftProjectName),
			zap.Error(err))
	} else {
		usage.Hits = hits
	}

	storage, err := s.metrics.StorageForEnvironment(ctx, env.ID, month)
	if err != nil {
		s.logger.Warn("Storage metrics unavailable, billing zero storage",
			zap.Int("environment", env.ID),
			zap.Error(err))
	} else {
		usage.StorageBytes = storage
	}

	hours, err := s.metrics.HoursForEnvironment(ctx, env.ID, month)
	if err != nil {
		s.logger.Warn("Hour metrics unavailable, billing zero hours",
			zap.Int("environment", env.ID),
			zap.Error(err))
	} else {
		usage.Hours = hours
	}

	return usage
}
