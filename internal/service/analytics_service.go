package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/mgsa-portal-api/internal/dto"
	"github.com/noah-isme/mgsa-portal-api/internal/models"
	"github.com/noah-isme/mgsa-portal-api/internal/policy"
	"github.com/noah-isme/mgsa-portal-api/internal/repository"
)

const topTutorialsLimit = 5

// AnalyticsService aggregates the tutorial ledger for administrators.
type AnalyticsService interface {
	TutorialSummary(ctx context.Context, principal policy.Principal) (dto.TutorialAnalyticsResponse, error)
}

type analyticsService struct {
	repo     repository.AnalyticsRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewAnalyticsService constructs the analytics service.
func NewAnalyticsService(repo repository.AnalyticsRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) AnalyticsService {
	return &analyticsService{
		repo:     repo,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "analytics_service").Logger(),
		now:      time.Now,
	}
}

func (s *analyticsService) TutorialSummary(ctx context.Context, principal policy.Principal) (dto.TutorialAnalyticsResponse, error) {
	if err := policy.Authorize(principal, policy.ActionViewAnalytics, policy.Target{}); err != nil {
		return dto.TutorialAnalyticsResponse{}, ErrPermissionDenied
	}

	tracer := otel.Tracer("github.com/noah-isme/mgsa-portal-api/internal/service/analytics")
	ctx, span := tracer.Start(ctx, "analytics.tutorials")
	span.SetAttributes(attribute.String("analytics.cache_key", analyticsCacheKey))
	defer span.End()

	var cached dto.TutorialAnalyticsResponse
	if readCache(ctx, s.cache, s.logger, analyticsCacheKey, &cached) {
		cached.CacheHit = true
		span.SetAttributes(attribute.Bool("analytics.cache_hit", true))
		return cached, nil
	}

	tutorials, err := s.repo.ListTutorials(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list_tutorials_failed")
		return dto.TutorialAnalyticsResponse{}, err
	}

	statuses, err := s.repo.CountRegistrationsByStatus(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count_registrations_failed")
		return dto.TutorialAnalyticsResponse{}, err
	}

	roles, err := s.repo.CountUsersByRole(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count_users_failed")
		return dto.TutorialAnalyticsResponse{}, err
	}

	summary := s.buildSummary(tutorials, statuses, roles)
	span.SetAttributes(
		attribute.Int64("analytics.tutorials", summary.TotalTutorials),
		attribute.Int64("analytics.seats_held", summary.SeatsHeld),
	)

	writeCache(ctx, s.cache, s.logger, analyticsCacheKey, summary, s.cacheTTL)

	return summary, nil
}

func (s *analyticsService) buildSummary(tutorials []models.Tutorial, statuses map[models.RegistrationStatus]int64, roles map[models.Role]int64) dto.TutorialAnalyticsResponse {
	summary := dto.TutorialAnalyticsResponse{
		RegistrationsByStatus: map[string]int64{
			string(models.RegistrationStatusRegistered): statuses[models.RegistrationStatusRegistered],
			string(models.RegistrationStatusAttended):   statuses[models.RegistrationStatusAttended],
			string(models.RegistrationStatusCancelled):  statuses[models.RegistrationStatusCancelled],
		},
		AccountsByRole: map[string]int64{
			models.RoleStudent.String():   roles[models.RoleStudent],
			models.RoleExecutive.String(): roles[models.RoleExecutive],
			models.RoleAdmin.String():     roles[models.RoleAdmin],
		},
		GeneratedAt: s.now().UTC(),
	}

	departments := map[string]*dto.DepartmentAnalytics{}
	fills := make([]dto.TutorialFill, 0, len(tutorials))

	for _, tutorial := range tutorials {
		summary.TotalTutorials++
		if tutorial.IsActive {
			summary.ActiveTutorials++
		}
		summary.TotalCapacity += int64(tutorial.MaxStudents)
		summary.SeatsHeld += int64(tutorial.CurrentRegistrations)

		name := strings.TrimSpace(tutorial.Department)
		if name == "" {
			name = "Unassigned"
		}
		department, ok := departments[name]
		if !ok {
			department = &dto.DepartmentAnalytics{Department: name}
			departments[name] = department
		}
		department.Tutorials++
		department.Capacity += int64(tutorial.MaxStudents)
		department.SeatsHeld += int64(tutorial.CurrentRegistrations)

		fills = append(fills, dto.TutorialFill{
			ID:                   tutorial.ID,
			Title:                tutorial.Title,
			Department:           name,
			MaxStudents:          tutorial.MaxStudents,
			CurrentRegistrations: tutorial.CurrentRegistrations,
			FillRate:             fillRate(int64(tutorial.CurrentRegistrations), int64(tutorial.MaxStudents)),
		})
	}
	summary.FillRate = fillRate(summary.SeatsHeld, summary.TotalCapacity)

	summary.Departments = make([]dto.DepartmentAnalytics, 0, len(departments))
	for _, department := range departments {
		department.FillRate = fillRate(department.SeatsHeld, department.Capacity)
		summary.Departments = append(summary.Departments, *department)
	}
	sort.Slice(summary.Departments, func(i, j int) bool {
		return summary.Departments[i].Department < summary.Departments[j].Department
	})

	sort.SliceStable(fills, func(i, j int) bool {
		if fills[i].FillRate != fills[j].FillRate {
			return fills[i].FillRate > fills[j].FillRate
		}
		return fills[i].CurrentRegistrations > fills[j].CurrentRegistrations
	})
	if len(fills) > topTutorialsLimit {
		fills = fills[:topTutorialsLimit]
	}
	summary.TopTutorials = fills

	return summary
}

// fillRate returns held/capacity as a percentage rounded to two decimals.
func fillRate(held, capacity int64) float64 {
	if capacity <= 0 {
		return 0
	}
	rate := float64(held) / float64(capacity) * 100
	return float64(int64(rate*100+0.5)) / 100
}
