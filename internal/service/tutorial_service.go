package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/mgsa-portal-api/internal/dto"
	"github.com/noah-isme/mgsa-portal-api/internal/models"
	"github.com/noah-isme/mgsa-portal-api/internal/policy"
	"github.com/noah-isme/mgsa-portal-api/internal/repository"
)

const (
	defaultTutorialPageSize = 20
	maxTutorialPageSize     = 100
)

var weekdays = map[string]string{
	"monday":    "Monday",
	"tuesday":   "Tuesday",
	"wednesday": "Wednesday",
	"thursday":  "Thursday",
	"friday":    "Friday",
	"saturday":  "Saturday",
	"sunday":    "Sunday",
}

// TutorialService manages the tutorial catalogue.
type TutorialService interface {
	List(ctx context.Context, principal policy.Principal, req dto.TutorialListRequest) (dto.TutorialListResponse, error)
	ListMine(ctx context.Context, principal policy.Principal, req dto.TutorialListRequest) (dto.TutorialListResponse, error)
	Get(ctx context.Context, principal policy.Principal, id uint) (dto.TutorialResponse, error)
	Create(ctx context.Context, principal policy.Principal, req dto.TutorialCreateRequest) (dto.TutorialResponse, error)
	Update(ctx context.Context, principal policy.Principal, id uint, req dto.TutorialUpdateRequest) (dto.TutorialResponse, error)
	Deactivate(ctx context.Context, principal policy.Principal, id uint) (dto.TutorialResponse, error)
	Delete(ctx context.Context, principal policy.Principal, id uint) error
}

type tutorialService struct {
	repo      repository.TutorialRepository
	activity  ActivityRecorder
	cache     *redis.Client
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewTutorialService constructs the catalogue service.
func NewTutorialService(repo repository.TutorialRepository, activity ActivityRecorder, cache *redis.Client, validate *validator.Validate, logger zerolog.Logger) TutorialService {
	return &tutorialService{
		repo:      repo,
		activity:  activity,
		cache:     cache,
		validator: validate,
		sanitizer: bluemonday.UGCPolicy(),
		logger:    logger.With().Str("component", "tutorial_service").Logger(),
	}
}

// List returns the catalogue. Students only ever see active tutorials.
func (s *tutorialService) List(ctx context.Context, principal policy.Principal, req dto.TutorialListRequest) (dto.TutorialListResponse, error) {
	if !principal.Authenticated() {
		return dto.TutorialListResponse{}, ErrPermissionDenied
	}

	filter := s.filterFromRequest(req)
	if !principal.Role.IsStaff() {
		active := true
		filter.Active = &active
	}

	return s.list(ctx, filter)
}

func (s *tutorialService) ListMine(ctx context.Context, principal policy.Principal, req dto.TutorialListRequest) (dto.TutorialListResponse, error) {
	if err := policy.Authorize(principal, policy.ActionCreateTutorial, policy.Target{}); err != nil {
		return dto.TutorialListResponse{}, ErrPermissionDenied
	}

	filter := s.filterFromRequest(req)
	creatorID := principal.ID
	filter.CreatedByID = &creatorID

	return s.list(ctx, filter)
}

func (s *tutorialService) list(ctx context.Context, filter repository.TutorialFilter) (dto.TutorialListResponse, error) {
	tutorials, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.TutorialListResponse{}, err
	}

	return dto.TutorialListResponse{
		Items:      dto.NewTutorialResponseSlice(tutorials),
		Pagination: dto.NewPaginationMeta(filter.Page, filter.PageSize, total),
	}, nil
}

func (s *tutorialService) filterFromRequest(req dto.TutorialListRequest) repository.TutorialFilter {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = defaultTutorialPageSize
	}
	if pageSize > maxTutorialPageSize {
		pageSize = maxTutorialPageSize
	}
	page := req.Page
	if page <= 0 {
		page = 1
	}

	return repository.TutorialFilter{
		Search:     strings.TrimSpace(req.Search),
		Department: req.Department,
		Instructor: req.Instructor,
		Active:     req.Active,
		Sort:       req.Sort,
		Page:       page,
		PageSize:   pageSize,
	}
}

func (s *tutorialService) Get(ctx context.Context, principal policy.Principal, id uint) (dto.TutorialResponse, error) {
	if !principal.Authenticated() {
		return dto.TutorialResponse{}, ErrPermissionDenied
	}

	tutorial, err := s.load(ctx, id)
	if err != nil {
		return dto.TutorialResponse{}, err
	}
	if !tutorial.IsActive && !principal.Role.IsStaff() {
		return dto.TutorialResponse{}, ErrTutorialNotFound
	}

	return dto.NewTutorialResponse(tutorial), nil
}

func (s *tutorialService) Create(ctx context.Context, principal policy.Principal, req dto.TutorialCreateRequest) (dto.TutorialResponse, error) {
	if err := policy.Authorize(principal, policy.ActionCreateTutorial, policy.Target{}); err != nil {
		return dto.TutorialResponse{}, ErrPermissionDenied
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.TutorialResponse{}, err
	}

	tutorial := models.Tutorial{
		Title:       strings.TrimSpace(req.Title),
		Description: s.sanitizeDescription(req.Description),
		Instructor:  strings.TrimSpace(req.Instructor),
		Department:  strings.TrimSpace(req.Department),
		Topics:      normalizeTopics(req.Topics),
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		MaxStudents: req.MaxStudents,
		IsActive:    true,
		CreatedByID: principal.ID,
	}
	if req.IsActive != nil {
		tutorial.IsActive = *req.IsActive
	}

	if err := applySchedule(&tutorial, req.StartDate, req.EndDate, req.Days); err != nil {
		return dto.TutorialResponse{}, err
	}

	if err := s.repo.Create(ctx, &tutorial); err != nil {
		s.logger.Error().Err(err).Uint("creator_id", principal.ID).Msg("failed to create tutorial")
		return dto.TutorialResponse{}, err
	}

	s.logger.Info().Uint("tutorial_id", tutorial.ID).Uint("creator_id", principal.ID).Msg("tutorial created")
	s.record(ctx, principal, "tutorial.created", tutorial.ID, map[string]interface{}{
		"title":        tutorial.Title,
		"max_students": tutorial.MaxStudents,
	})
	s.invalidate(ctx, tutorial.CreatedByID)

	return s.reload(ctx, tutorial)
}

func (s *tutorialService) Update(ctx context.Context, principal policy.Principal, id uint, req dto.TutorialUpdateRequest) (dto.TutorialResponse, error) {
	tutorial, err := s.load(ctx, id)
	if err != nil {
		return dto.TutorialResponse{}, err
	}
	if err := policy.Authorize(principal, policy.ActionManageTutorial, policy.TutorialTarget(tutorial)); err != nil {
		return dto.TutorialResponse{}, ErrPermissionDenied
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.TutorialResponse{}, err
	}

	changed := []string{}
	if req.Title != nil {
		tutorial.Title = strings.TrimSpace(*req.Title)
		changed = append(changed, "title")
	}
	if req.Description != nil {
		tutorial.Description = s.sanitizeDescription(*req.Description)
		changed = append(changed, "description")
	}
	if req.Instructor != nil {
		tutorial.Instructor = strings.TrimSpace(*req.Instructor)
		changed = append(changed, "instructor")
	}
	if req.Department != nil {
		tutorial.Department = strings.TrimSpace(*req.Department)
		changed = append(changed, "department")
	}
	if req.Topics != nil {
		tutorial.Topics = normalizeTopics(*req.Topics)
		changed = append(changed, "topics")
	}
	if req.StartTime != nil {
		tutorial.StartTime = *req.StartTime
		changed = append(changed, "start_time")
	}
	if req.EndTime != nil {
		tutorial.EndTime = *req.EndTime
		changed = append(changed, "end_time")
	}
	if req.MaxStudents != nil {
		tutorial.MaxStudents = *req.MaxStudents
		changed = append(changed, "max_students")
	}
	if req.IsActive != nil {
		tutorial.IsActive = *req.IsActive
		changed = append(changed, "is_active")
	}

	startDate := tutorial.StartDate.Format(dto.DateLayout)
	endDate := tutorial.EndDate.Format(dto.DateLayout)
	days := []string(tutorial.Days)
	if req.StartDate != nil {
		startDate = *req.StartDate
		changed = append(changed, "start_date")
	}
	if req.EndDate != nil {
		endDate = *req.EndDate
		changed = append(changed, "end_date")
	}
	if req.Days != nil {
		days = *req.Days
		changed = append(changed, "days")
	}
	if err := applySchedule(&tutorial, startDate, endDate, days); err != nil {
		return dto.TutorialResponse{}, err
	}

	if err := s.repo.Update(ctx, &tutorial); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return dto.TutorialResponse{}, ErrTutorialNotFound
		case errors.Is(err, repository.ErrCapacityBelowHeldSeats):
			return dto.TutorialResponse{}, ErrCapacityBelowRegistrations
		}
		s.logger.Error().Err(err).Uint("tutorial_id", id).Msg("failed to update tutorial")
		return dto.TutorialResponse{}, err
	}

	s.logger.Info().Uint("tutorial_id", id).Strs("fields", changed).Msg("tutorial updated")
	s.record(ctx, principal, "tutorial.updated", id, map[string]interface{}{"fields": changed})
	s.invalidate(ctx, tutorial.CreatedByID)

	return s.reload(ctx, tutorial)
}

func (s *tutorialService) Deactivate(ctx context.Context, principal policy.Principal, id uint) (dto.TutorialResponse, error) {
	tutorial, err := s.load(ctx, id)
	if err != nil {
		return dto.TutorialResponse{}, err
	}
	if err := policy.Authorize(principal, policy.ActionManageTutorial, policy.TutorialTarget(tutorial)); err != nil {
		return dto.TutorialResponse{}, ErrPermissionDenied
	}

	if err := s.repo.Deactivate(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TutorialResponse{}, ErrTutorialNotFound
		}
		return dto.TutorialResponse{}, err
	}

	s.logger.Info().Uint("tutorial_id", id).Msg("tutorial deactivated")
	s.record(ctx, principal, "tutorial.deactivated", id, nil)
	s.invalidate(ctx, tutorial.CreatedByID)

	return s.reload(ctx, tutorial)
}

func (s *tutorialService) Delete(ctx context.Context, principal policy.Principal, id uint) error {
	tutorial, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := policy.Authorize(principal, policy.ActionManageTutorial, policy.TutorialTarget(tutorial)); err != nil {
		return ErrPermissionDenied
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTutorialNotFound
		}
		s.logger.Error().Err(err).Uint("tutorial_id", id).Msg("failed to delete tutorial")
		return err
	}

	s.logger.Info().Uint("tutorial_id", id).Msg("tutorial deleted")
	s.record(ctx, principal, "tutorial.deleted", id, map[string]interface{}{
		"title":                 tutorial.Title,
		"current_registrations": tutorial.CurrentRegistrations,
	})
	s.invalidate(ctx, tutorial.CreatedByID)

	return nil
}

func (s *tutorialService) load(ctx context.Context, id uint) (models.Tutorial, error) {
	return loadTutorial(ctx, s.repo, id)
}

func (s *tutorialService) reload(ctx context.Context, fallback models.Tutorial) (dto.TutorialResponse, error) {
	tutorial, err := s.repo.GetByID(ctx, fallback.ID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("tutorial_id", fallback.ID).Msg("failed to reload tutorial")
		return dto.NewTutorialResponse(fallback), nil
	}
	return dto.NewTutorialResponse(tutorial), nil
}

// sanitizeDescription keeps the safe subset of an HTML description. The result
// is HTML, not plain text.
func (s *tutorialService) sanitizeDescription(description string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(description))
}

func (s *tutorialService) record(ctx context.Context, principal policy.Principal, action string, tutorialID uint, metadata map[string]interface{}) {
	if s.activity == nil {
		return
	}
	id := tutorialID
	if _, err := s.activity.Record(ctx, ActivityEntry{
		ActorID:    principal.ID,
		ActorRole:  principal.Role.String(),
		Action:     action,
		EntityType: "tutorial",
		EntityID:   &id,
		Metadata:   metadata,
	}); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("failed to record activity")
	}
}

func (s *tutorialService) invalidate(ctx context.Context, creatorID uint) {
	invalidateCache(ctx, s.cache, s.logger, analyticsCacheKey, executiveDashboardKey(creatorID))
}

// applySchedule parses and checks the date range, weekdays and time range.
func applySchedule(tutorial *models.Tutorial, startDate, endDate string, days []string) error {
	start, err := time.Parse(dto.DateLayout, startDate)
	if err != nil {
		return fmt.Errorf("%w: start_date must be YYYY-MM-DD", ErrInvalidSchedule)
	}
	end, err := time.Parse(dto.DateLayout, endDate)
	if err != nil {
		return fmt.Errorf("%w: end_date must be YYYY-MM-DD", ErrInvalidSchedule)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: end_date is before start_date", ErrInvalidSchedule)
	}

	startTime, err := time.Parse("15:04", tutorial.StartTime)
	if err != nil {
		return fmt.Errorf("%w: start_time must be HH:MM", ErrInvalidSchedule)
	}
	endTime, err := time.Parse("15:04", tutorial.EndTime)
	if err != nil {
		return fmt.Errorf("%w: end_time must be HH:MM", ErrInvalidSchedule)
	}
	if !endTime.After(startTime) {
		return fmt.Errorf("%w: end_time must be after start_time", ErrInvalidSchedule)
	}

	normalized, err := normalizeDays(days)
	if err != nil {
		return err
	}

	tutorial.StartDate = start
	tutorial.EndDate = end
	tutorial.Days = normalized
	return nil
}

func normalizeDays(days []string) ([]string, error) {
	if len(days) == 0 {
		return nil, fmt.Errorf("%w: at least one weekday is required", ErrInvalidSchedule)
	}

	seen := make(map[string]struct{}, len(days))
	out := make([]string, 0, len(days))
	for _, day := range days {
		name, ok := weekdays[strings.ToLower(strings.TrimSpace(day))]
		if !ok {
			return nil, fmt.Errorf("%w: unknown weekday %q", ErrInvalidSchedule, day)
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out, nil
}

func normalizeTopics(topics []string) []string {
	seen := make(map[string]struct{}, len(topics))
	out := make([]string, 0, len(topics))
	for _, topic := range topics {
		trimmed := strings.TrimSpace(topic)
		key := strings.ToLower(trimmed)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
