package service

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/mgsa-portal-api/internal/dto"
	"github.com/noah-isme/mgsa-portal-api/internal/models"
	"github.com/noah-isme/mgsa-portal-api/internal/policy"
	"github.com/noah-isme/mgsa-portal-api/internal/repository"
)

const (
	dashboardRecentLimit    = 5
	dashboardAvailableLimit = 50
)

// DashboardService produces the aggregated landing pages for students and staff.
type DashboardService interface {
	Student(ctx context.Context, principal policy.Principal) (dto.StudentDashboardResponse, error)
	Executive(ctx context.Context, principal policy.Principal) (dto.ExecutiveDashboardResponse, error)
}

type dashboardService struct {
	users         repository.UserRepository
	tutorials     repository.TutorialRepository
	registrations repository.RegistrationRepository
	cache         *redis.Client
	cacheTTL      time.Duration
	logger        zerolog.Logger
	now           func() time.Time
}

// NewDashboardService builds the dashboard aggregator.
func NewDashboardService(users repository.UserRepository, tutorials repository.TutorialRepository, registrations repository.RegistrationRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) DashboardService {
	return &dashboardService{
		users:         users,
		tutorials:     tutorials,
		registrations: registrations,
		cache:         cache,
		cacheTTL:      ttl,
		logger:        logger.With().Str("component", "dashboard_service").Logger(),
		now:           time.Now,
	}
}

func (s *dashboardService) Student(ctx context.Context, principal policy.Principal) (dto.StudentDashboardResponse, error) {
	if err := policy.Authorize(principal, policy.ActionViewOwnRegistrations, policy.Target{}); err != nil {
		return dto.StudentDashboardResponse{}, ErrPermissionDenied
	}

	cacheKey := studentDashboardKey(principal.ID)
	var cached dto.StudentDashboardResponse
	if readCache(ctx, s.cache, s.logger, cacheKey, &cached) {
		s.logger.Debug().Uint("student_id", principal.ID).Msg("dashboard cache hit")
		cached.CacheHit = true
		return cached, nil
	}

	student, err := s.users.GetByID(ctx, principal.ID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StudentDashboardResponse{}, err
		}
		// Accounts may exist at the identity provider before they are provisioned here.
		student = models.User{ID: principal.ID, Role: principal.Role}
	}

	recent, err := s.registrations.ListByStudent(ctx, principal.ID, 0)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	counts, err := s.registrations.CountByStudent(ctx, principal.ID)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	active := true
	tutorials, _, err := s.tutorials.List(ctx, repository.TutorialFilter{
		Department: student.Department,
		Active:     &active,
		Sort:       "start_date",
		Page:       1,
		PageSize:   dashboardAvailableLimit,
	})
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	response := s.buildStudentResponse(student, tutorials, recent, counts)
	writeCache(ctx, s.cache, s.logger, cacheKey, response, s.cacheTTL)

	return response, nil
}

func (s *dashboardService) buildStudentResponse(student models.User, tutorials []models.Tutorial, registrations []models.TutorialRegistration, counts map[models.RegistrationStatus]int64) dto.StudentDashboardResponse {
	now := s.now()

	holding := make(map[uint]struct{}, len(registrations))
	for _, registration := range registrations {
		if registration.Status.HoldsSeat() {
			holding[registration.TutorialID] = struct{}{}
		}
	}

	available := make([]dto.AvailableTutorial, 0, len(tutorials))
	for _, tutorial := range tutorials {
		_, registered := holding[tutorial.ID]
		available = append(available, dto.AvailableTutorial{
			ID:             tutorial.ID,
			Title:          tutorial.Title,
			Instructor:     tutorial.Instructor,
			StartDate:      tutorial.StartDate.Format(dto.DateLayout),
			Days:           append([]string{}, tutorial.Days...),
			StartTime:      tutorial.StartTime,
			EndTime:        tutorial.EndTime,
			AvailableSlots: tutorial.AvailableSlots(),
			IsFull:         tutorial.IsFull(),
			IsRegistered:   registered,
		})
	}

	recentCount := len(registrations)
	if recentCount > dashboardRecentLimit {
		recentCount = dashboardRecentLimit
	}
	recent := make([]dto.MyRegistrationResponse, 0, recentCount)
	for _, registration := range registrations[:recentCount] {
		recent = append(recent, dto.NewMyRegistrationResponse(registration, now))
	}

	summary := dto.RegistrationCounts{
		Registered: counts[models.RegistrationStatusRegistered],
		Attended:   counts[models.RegistrationStatusAttended],
		Cancelled:  counts[models.RegistrationStatusCancelled],
	}
	summary.Total = summary.Registered + summary.Attended + summary.Cancelled

	return dto.StudentDashboardResponse{
		Student: dto.DashboardStudent{
			ID:          student.ID,
			Name:        student.FullName(),
			Department:  student.Department,
			YearOfStudy: student.YearOfStudy,
		},
		AvailableTutorials:  available,
		RecentRegistrations: recent,
		Counts:              summary,
		GeneratedAt:         now.UTC(),
	}
}

func (s *dashboardService) Executive(ctx context.Context, principal policy.Principal) (dto.ExecutiveDashboardResponse, error) {
	if err := policy.Authorize(principal, policy.ActionCreateTutorial, policy.Target{}); err != nil {
		return dto.ExecutiveDashboardResponse{}, ErrPermissionDenied
	}

	cacheKey := executiveDashboardKey(principal.ID)
	var cached dto.ExecutiveDashboardResponse
	if readCache(ctx, s.cache, s.logger, cacheKey, &cached) {
		cached.CacheHit = true
		return cached, nil
	}

	creatorID := principal.ID
	tutorials, _, err := s.tutorials.List(ctx, repository.TutorialFilter{CreatedByID: &creatorID})
	if err != nil {
		return dto.ExecutiveDashboardResponse{}, err
	}

	response := dto.ExecutiveDashboardResponse{
		RecentTutorials: make([]dto.ExecutiveTutorialSummary, 0, dashboardRecentLimit),
		GeneratedAt:     s.now().UTC(),
	}
	for i, tutorial := range tutorials {
		response.TotalTutorials++
		if tutorial.IsActive {
			response.ActiveTutorials++
		}
		response.TotalCapacity += int64(tutorial.MaxStudents)
		response.SeatsHeld += int64(tutorial.CurrentRegistrations)

		if i < dashboardRecentLimit {
			response.RecentTutorials = append(response.RecentTutorials, dto.ExecutiveTutorialSummary{
				ID:                   tutorial.ID,
				Title:                tutorial.Title,
				IsActive:             tutorial.IsActive,
				StartDate:            tutorial.StartDate.Format(dto.DateLayout),
				MaxStudents:          tutorial.MaxStudents,
				CurrentRegistrations: tutorial.CurrentRegistrations,
				AvailableSlots:       tutorial.AvailableSlots(),
			})
		}
	}

	writeCache(ctx, s.cache, s.logger, cacheKey, response, s.cacheTTL)

	return response, nil
}
