package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/mgsa-portal-api/internal/dto"
	"github.com/noah-isme/mgsa-portal-api/internal/models"
	"github.com/noah-isme/mgsa-portal-api/internal/observability"
	"github.com/noah-isme/mgsa-portal-api/internal/policy"
	"github.com/noah-isme/mgsa-portal-api/internal/repository"
)

// Outcome labels of tutorial_registrations_total.
const (
	outcomeRegistered  = "registered"
	outcomeReactivated = "reactivated"
	outcomeFull        = "full"
	outcomeInactive    = "inactive"
	outcomeDuplicate   = "duplicate"
	outcomeNotFound    = "not_found"
	outcomeDenied      = "denied"
	outcomeError       = "error"
)

// NotificationPublisher delivers in-app notifications.
type NotificationPublisher interface {
	Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error)
}

// RegistrationService runs the tutorial registration ledger.
type RegistrationService interface {
	Register(ctx context.Context, principal policy.Principal, tutorialID uint) (dto.RegisterResponse, error)
	Cancel(ctx context.Context, principal policy.Principal, registrationID uint) (dto.RegistrationResponse, error)
	MarkAttended(ctx context.Context, principal policy.Principal, registrationID uint) (dto.RegistrationResponse, error)
	ListRegistrations(ctx context.Context, principal policy.Principal, tutorialID uint) (dto.RosterResponse, error)
	ListMine(ctx context.Context, principal policy.Principal) ([]dto.MyRegistrationResponse, error)
	Reconcile(ctx context.Context, principal policy.Principal, tutorialID uint) (dto.ReconcileResponse, error)
	ReconcileAll(ctx context.Context, principal policy.Principal) (dto.ReconcileAllResponse, error)
}

type registrationService struct {
	registrations repository.RegistrationRepository
	tutorials     repository.TutorialRepository
	activity      ActivityRecorder
	notifier      NotificationPublisher
	cache         *redis.Client
	logger        zerolog.Logger
	tracer        trace.Tracer
	now           func() time.Time
}

// NewRegistrationService constructs the ledger service. The activity recorder,
// notifier and cache are optional.
func NewRegistrationService(
	registrations repository.RegistrationRepository,
	tutorials repository.TutorialRepository,
	activity ActivityRecorder,
	notifier NotificationPublisher,
	cache *redis.Client,
	logger zerolog.Logger,
) RegistrationService {
	return &registrationService{
		registrations: registrations,
		tutorials:     tutorials,
		activity:      activity,
		notifier:      notifier,
		cache:         cache,
		logger:        logger.With().Str("component", "registration_service").Logger(),
		tracer:        otel.Tracer("github.com/noah-isme/mgsa-portal-api/internal/service/registration"),
		now:           time.Now,
	}
}

func (s *registrationService) Register(ctx context.Context, principal policy.Principal, tutorialID uint) (dto.RegisterResponse, error) {
	ctx, span := s.tracer.Start(ctx, "registrations.register", trace.WithAttributes(
		attribute.Int64("tutorial.id", int64(tutorialID)),
		attribute.Int64("student.id", int64(principal.ID)),
	))
	defer span.End()

	if err := policy.Authorize(principal, policy.ActionRegister, policy.Target{}); err != nil {
		s.countOutcome(outcomeDenied)
		span.SetStatus(codes.Error, "permission denied")
		return dto.RegisterResponse{}, ErrPermissionDenied
	}

	result, err := s.registrations.Register(ctx, tutorialID, principal.ID, s.now().UTC())
	if err != nil {
		outcome, mapped := mapRegisterError(err)
		s.countOutcome(outcome)
		span.SetAttributes(attribute.String("registration.outcome", outcome))
		if outcome == outcomeError {
			span.RecordError(err)
			span.SetStatus(codes.Error, "register failed")
			s.logger.Error().Err(err).Uint("tutorial_id", tutorialID).Uint("student_id", principal.ID).Msg("failed to register for tutorial")
		} else {
			s.logger.Debug().Str("outcome", outcome).Uint("tutorial_id", tutorialID).Uint("student_id", principal.ID).Msg("tutorial registration rejected")
		}
		return dto.RegisterResponse{}, mapped
	}

	registration := result.Registration
	tutorial := registration.Tutorial

	outcome := outcomeRegistered
	action := "tutorial.registration.created"
	message := "tutorial registration created"
	if result.Reactivated {
		outcome = outcomeReactivated
		action = "tutorial.registration.reactivated"
		message = "tutorial registration reactivated"
	}
	s.countOutcome(outcome)
	span.SetAttributes(
		attribute.String("registration.outcome", outcome),
		attribute.Int("tutorial.current_registrations", tutorial.CurrentRegistrations),
	)
	s.logger.Info().
		Uint("registration_id", registration.ID).
		Uint("tutorial_id", tutorialID).
		Uint("student_id", principal.ID).
		Int("current_registrations", tutorial.CurrentRegistrations).
		Int("max_students", tutorial.MaxStudents).
		Msg(message)

	s.recordActivity(ctx, principal, action, registration, map[string]interface{}{
		"tutorial_id":           tutorialID,
		"current_registrations": tutorial.CurrentRegistrations,
	})
	s.notify(ctx, tutorial.CreatedByID, models.NotificationTypeRegistration,
		fmt.Sprintf("A student registered for %q (%d of %d seats taken).", tutorial.Title, tutorial.CurrentRegistrations, tutorial.MaxStudents))
	s.invalidate(ctx, principal.ID, tutorial.CreatedByID)

	return dto.RegisterResponse{
		Registration:         dto.NewRegistrationResponse(registration),
		Reactivated:          result.Reactivated,
		CurrentRegistrations: tutorial.CurrentRegistrations,
		AvailableSlots:       tutorial.AvailableSlots(),
	}, nil
}

func mapRegisterError(err error) (string, error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return outcomeNotFound, ErrTutorialNotFound
	case errors.Is(err, repository.ErrTutorialInactive):
		return outcomeInactive, ErrTutorialNotActive
	case errors.Is(err, repository.ErrDuplicateRegistration):
		return outcomeDuplicate, ErrAlreadyRegistered
	case errors.Is(err, repository.ErrCapacityReached):
		return outcomeFull, ErrTutorialFull
	default:
		return outcomeError, err
	}
}

// Cancel releases the seat of a registered row. Registrations the requester
// may not cancel are reported as not found.
func (s *registrationService) Cancel(ctx context.Context, principal policy.Principal, registrationID uint) (dto.RegistrationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "registrations.cancel", trace.WithAttributes(
		attribute.Int64("registration.id", int64(registrationID)),
	))
	defer span.End()

	existing, err := s.registrations.GetByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RegistrationResponse{}, ErrRegistrationNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		return dto.RegistrationResponse{}, err
	}

	if !policy.Allowed(principal, policy.ActionCancelRegistration, policy.RegistrationTarget(existing)) {
		return dto.RegistrationResponse{}, ErrRegistrationNotFound
	}
	if existing.Status != models.RegistrationStatusRegistered {
		return dto.RegistrationResponse{}, ErrRegistrationNotFound
	}

	cancelled, err := s.registrations.Cancel(ctx, registrationID, s.now().UTC())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, repository.ErrRegistrationNotRegistered) {
			return dto.RegistrationResponse{}, ErrRegistrationNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancel failed")
		s.logger.Error().Err(err).Uint("registration_id", registrationID).Msg("failed to cancel registration")
		return dto.RegistrationResponse{}, err
	}

	tutorial := cancelled.Tutorial
	selfService := principal.ID == cancelled.StudentID
	s.logger.Info().
		Uint("registration_id", cancelled.ID).
		Uint("tutorial_id", cancelled.TutorialID).
		Uint("student_id", cancelled.StudentID).
		Uint("actor_id", principal.ID).
		Bool("self_service", selfService).
		Msg("tutorial registration cancelled")

	s.recordActivity(ctx, principal, "tutorial.registration.cancelled", cancelled, map[string]interface{}{
		"tutorial_id":  cancelled.TutorialID,
		"student_id":   cancelled.StudentID,
		"self_service": selfService,
	})
	if selfService {
		s.notify(ctx, tutorial.CreatedByID, models.NotificationTypeCancellation,
			fmt.Sprintf("A student cancelled their registration for %q.", tutorial.Title))
	} else {
		s.notify(ctx, cancelled.StudentID, models.NotificationTypeCancellation,
			fmt.Sprintf("Your registration for %q was cancelled by the organisers.", tutorial.Title))
	}
	s.invalidate(ctx, cancelled.StudentID, tutorial.CreatedByID)

	return dto.NewRegistrationResponse(cancelled), nil
}

func (s *registrationService) MarkAttended(ctx context.Context, principal policy.Principal, registrationID uint) (dto.RegistrationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "registrations.attend", trace.WithAttributes(
		attribute.Int64("registration.id", int64(registrationID)),
	))
	defer span.End()

	existing, err := s.registrations.GetByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RegistrationResponse{}, ErrRegistrationNotFound
		}
		span.RecordError(err)
		return dto.RegistrationResponse{}, err
	}

	if err := policy.Authorize(principal, policy.ActionManageTutorial, policy.TutorialTarget(existing.Tutorial)); err != nil {
		return dto.RegistrationResponse{}, ErrPermissionDenied
	}
	if existing.Status != models.RegistrationStatusRegistered {
		return dto.RegistrationResponse{}, ErrInvalidTransition
	}

	attended, err := s.registrations.MarkAttended(ctx, registrationID, s.now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return dto.RegistrationResponse{}, ErrRegistrationNotFound
		case errors.Is(err, repository.ErrRegistrationNotRegistered):
			return dto.RegistrationResponse{}, ErrInvalidTransition
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "attend failed")
		s.logger.Error().Err(err).Uint("registration_id", registrationID).Msg("failed to mark attendance")
		return dto.RegistrationResponse{}, err
	}

	s.logger.Info().
		Uint("registration_id", attended.ID).
		Uint("tutorial_id", attended.TutorialID).
		Uint("student_id", attended.StudentID).
		Msg("tutorial attendance recorded")

	s.recordActivity(ctx, principal, "tutorial.registration.attended", attended, map[string]interface{}{
		"tutorial_id": attended.TutorialID,
		"student_id":  attended.StudentID,
	})
	s.notify(ctx, attended.StudentID, models.NotificationTypeAttendance,
		fmt.Sprintf("Your attendance at %q has been recorded.", attended.Tutorial.Title))
	s.invalidate(ctx, attended.StudentID, attended.Tutorial.CreatedByID)

	return dto.NewRegistrationResponse(attended), nil
}

func (s *registrationService) ListRegistrations(ctx context.Context, principal policy.Principal, tutorialID uint) (dto.RosterResponse, error) {
	tutorial, err := s.tutorials.GetByID(ctx, tutorialID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RosterResponse{}, ErrTutorialNotFound
		}
		return dto.RosterResponse{}, err
	}

	if err := policy.Authorize(principal, policy.ActionManageTutorial, policy.TutorialTarget(tutorial)); err != nil {
		return dto.RosterResponse{}, ErrPermissionDenied
	}

	registrations, err := s.registrations.ListByTutorial(ctx, tutorialID)
	if err != nil {
		return dto.RosterResponse{}, err
	}

	entries := make([]dto.RosterEntry, 0, len(registrations))
	for _, registration := range registrations {
		entries = append(entries, dto.NewRosterEntry(registration))
	}

	return dto.RosterResponse{
		TutorialID:           tutorial.ID,
		TutorialTitle:        tutorial.Title,
		MaxStudents:          tutorial.MaxStudents,
		CurrentRegistrations: tutorial.CurrentRegistrations,
		Registrations:        entries,
	}, nil
}

func (s *registrationService) ListMine(ctx context.Context, principal policy.Principal) ([]dto.MyRegistrationResponse, error) {
	if err := policy.Authorize(principal, policy.ActionViewOwnRegistrations, policy.Target{}); err != nil {
		return nil, ErrPermissionDenied
	}

	registrations, err := s.registrations.ListByStudent(ctx, principal.ID, 0)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]dto.MyRegistrationResponse, 0, len(registrations))
	for _, registration := range registrations {
		out = append(out, dto.NewMyRegistrationResponse(registration, now))
	}
	return out, nil
}

func (s *registrationService) Reconcile(ctx context.Context, principal policy.Principal, tutorialID uint) (dto.ReconcileResponse, error) {
	ctx, span := s.tracer.Start(ctx, "registrations.reconcile", trace.WithAttributes(
		attribute.Int64("tutorial.id", int64(tutorialID)),
	))
	defer span.End()

	tutorial, err := s.tutorials.GetByID(ctx, tutorialID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ReconcileResponse{}, ErrTutorialNotFound
		}
		return dto.ReconcileResponse{}, err
	}

	if err := policy.Authorize(principal, policy.ActionManageTutorial, policy.TutorialTarget(tutorial)); err != nil {
		return dto.ReconcileResponse{}, ErrPermissionDenied
	}

	result, err := s.registrations.Reconcile(ctx, tutorialID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ReconcileResponse{}, ErrTutorialNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "reconcile failed")
		return dto.ReconcileResponse{}, err
	}

	response := s.reconcileResponse(result)
	if response.Changed {
		s.activityEntry(ctx, principal, "tutorial.counter.reconciled", "tutorial", tutorialID, map[string]interface{}{
			"previous":   response.Previous,
			"current":    response.Current,
			"overbooked": response.Overbooked,
		})
		s.invalidate(ctx, 0, tutorial.CreatedByID)
	}

	return response, nil
}

func (s *registrationService) ReconcileAll(ctx context.Context, principal policy.Principal) (dto.ReconcileAllResponse, error) {
	ctx, span := s.tracer.Start(ctx, "registrations.reconcile_all")
	defer span.End()

	if err := policy.Authorize(principal, policy.ActionManageTutorial, policy.Target{}); err != nil {
		return dto.ReconcileAllResponse{}, ErrPermissionDenied
	}

	results, err := s.registrations.ReconcileAll(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reconcile failed")
		return dto.ReconcileAllResponse{}, err
	}

	summary := dto.ReconcileAllResponse{Results: make([]dto.ReconcileResponse, 0, len(results))}
	for _, result := range results {
		response := s.reconcileResponse(result)
		summary.Checked++
		if response.Changed {
			summary.Changed++
		}
		if response.Overbooked {
			summary.Overbooked++
		}
		summary.Results = append(summary.Results, response)
	}
	span.SetAttributes(
		attribute.Int("reconcile.checked", summary.Checked),
		attribute.Int("reconcile.changed", summary.Changed),
	)

	if summary.Changed > 0 {
		s.activityEntry(ctx, principal, "tutorial.counter.reconciled_all", "tutorial", 0, map[string]interface{}{
			"checked":    summary.Checked,
			"changed":    summary.Changed,
			"overbooked": summary.Overbooked,
		})
	}

	return summary, nil
}

func (s *registrationService) reconcileResponse(result repository.ReconcileResult) dto.ReconcileResponse {
	response := dto.ReconcileResponse{
		TutorialID:  result.TutorialID,
		Previous:    result.Previous,
		Current:     result.Current,
		MaxStudents: result.MaxStudents,
		Changed:     result.Previous != result.Current,
		Overbooked:  result.Current > result.MaxStudents,
	}

	if response.Changed {
		s.logger.Info().
			Uint("tutorial_id", result.TutorialID).
			Int("previous", result.Previous).
			Int("current", result.Current).
			Msg("tutorial counter reconciled")
	}
	if response.Overbooked {
		s.logger.Warn().
			Uint("tutorial_id", result.TutorialID).
			Int("current", result.Current).
			Int("max_students", result.MaxStudents).
			Msg("tutorial holds more seats than its capacity")
	}

	return response
}

func (s *registrationService) countOutcome(outcome string) {
	observability.RegistrationOutcomes().WithLabelValues(outcome).Inc()
}

func (s *registrationService) recordActivity(ctx context.Context, principal policy.Principal, action string, registration models.TutorialRegistration, metadata map[string]interface{}) {
	s.activityEntry(ctx, principal, action, "tutorial_registration", registration.ID, metadata)
}

func (s *registrationService) activityEntry(ctx context.Context, principal policy.Principal, action, entityType string, entityID uint, metadata map[string]interface{}) {
	if s.activity == nil {
		return
	}

	entry := ActivityEntry{
		ActorID:    principal.ID,
		ActorRole:  principal.Role.String(),
		Action:     action,
		EntityType: entityType,
		Metadata:   metadata,
	}
	if entityID != 0 {
		id := entityID
		entry.EntityID = &id
	}

	if _, err := s.activity.Record(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("failed to record activity")
	}
}

func (s *registrationService) notify(ctx context.Context, userID uint, kind, message string) {
	if s.notifier == nil || userID == 0 {
		return
	}

	if _, err := s.notifier.Publish(ctx, dto.NotificationCreateRequest{UserID: userID, Type: kind, Message: message}); err != nil {
		s.logger.Warn().Err(err).Uint("user_id", userID).Str("type", kind).Msg("failed to publish notification")
	}
}

func (s *registrationService) invalidate(ctx context.Context, studentID, creatorID uint) {
	keys := []string{analyticsCacheKey}
	if studentID != 0 {
		keys = append(keys, studentDashboardKey(studentID))
	}
	if creatorID != 0 {
		keys = append(keys, executiveDashboardKey(creatorID))
	}
	invalidateCache(ctx, s.cache, s.logger, keys...)
}
