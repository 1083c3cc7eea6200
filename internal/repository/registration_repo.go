package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/mgsa-portal-api/internal/models"
)

// RegistrationResult is the outcome of a successful Register call.
type RegistrationResult struct {
	Registration models.TutorialRegistration
	Reactivated  bool
}

// ReconcileResult reports a counter recomputation for one tutorial.
type ReconcileResult struct {
	TutorialID  uint
	Previous    int
	Current     int
	MaxStudents int
}

// RegistrationRepository persists the tutorial registration ledger. Every
// mutation keeps tutorials.current_registrations in step with the rows that
// hold a seat inside a single transaction.
type RegistrationRepository interface {
	Register(ctx context.Context, tutorialID, studentID uint, now time.Time) (RegistrationResult, error)
	Cancel(ctx context.Context, registrationID uint, now time.Time) (models.TutorialRegistration, error)
	MarkAttended(ctx context.Context, registrationID uint, now time.Time) (models.TutorialRegistration, error)
	GetByID(ctx context.Context, id uint) (models.TutorialRegistration, error)
	ListByTutorial(ctx context.Context, tutorialID uint) ([]models.TutorialRegistration, error)
	ListByStudent(ctx context.Context, studentID uint, limit int) ([]models.TutorialRegistration, error)
	CountByStudent(ctx context.Context, studentID uint) (map[models.RegistrationStatus]int64, error)
	Reconcile(ctx context.Context, tutorialID uint) (ReconcileResult, error)
	ReconcileAll(ctx context.Context) ([]ReconcileResult, error)
}

type registrationRepository struct {
	db *gorm.DB
}

// NewRegistrationRepository constructs a GORM-backed ledger repository.
func NewRegistrationRepository(db *gorm.DB) RegistrationRepository {
	return &registrationRepository{db: db}
}

func (r *registrationRepository) Register(ctx context.Context, tutorialID, studentID uint, now time.Time) (RegistrationResult, error) {
	var result RegistrationResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tutorial models.Tutorial
		if err := tx.First(&tutorial, tutorialID).Error; err != nil {
			return err
		}
		if !tutorial.IsActive {
			return ErrTutorialInactive
		}

		var existing models.TutorialRegistration
		lookup := tx.Where("student_id = ? AND tutorial_id = ?", studentID, tutorialID).Limit(1).Find(&existing)
		if lookup.Error != nil {
			return lookup.Error
		}
		found := lookup.RowsAffected > 0
		if found && existing.Status != models.RegistrationStatusCancelled {
			return ErrDuplicateRegistration
		}

		if err := claimSeat(tx, tutorialID); err != nil {
			return err
		}
		tutorial.CurrentRegistrations++

		if found {
			if err := reactivateIfCancelled(tx, &existing, now); err != nil {
				return err
			}
			existing.Tutorial = tutorial
			result = RegistrationResult{Registration: existing, Reactivated: true}
			return nil
		}

		registration := models.TutorialRegistration{
			StudentID:    studentID,
			TutorialID:   tutorialID,
			Status:       models.RegistrationStatusRegistered,
			RegisteredAt: now,
		}
		if err := tx.Omit(clause.Associations).Create(&registration).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateRegistration
			}
			return err
		}

		registration.Tutorial = tutorial
		result = RegistrationResult{Registration: registration}
		return nil
	})
	if err != nil {
		return RegistrationResult{}, err
	}

	return result, nil
}

// claimSeat increments the counter only while the tutorial is open and below
// capacity, so the capacity check and the write are one statement.
func claimSeat(tx *gorm.DB, tutorialID uint) error {
	res := tx.Model(&models.Tutorial{}).
		Where("id = ? AND is_active = ? AND current_registrations < max_students", tutorialID, true).
		UpdateColumn("current_registrations", gorm.Expr("current_registrations + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var current models.Tutorial
	if err := tx.Select("id", "is_active").First(&current, tutorialID).Error; err != nil {
		return err
	}
	if !current.IsActive {
		return ErrTutorialInactive
	}
	return ErrCapacityReached
}

// releaseSeat decrements the counter, floored at zero.
func releaseSeat(tx *gorm.DB, tutorialID uint) error {
	return tx.Model(&models.Tutorial{}).
		Where("id = ? AND current_registrations > 0", tutorialID).
		UpdateColumn("current_registrations", gorm.Expr("current_registrations - ?", 1)).
		Error
}

// reactivateIfCancelled flips a cancelled row back to registered instead of
// inserting a second row for the pair.
func reactivateIfCancelled(tx *gorm.DB, registration *models.TutorialRegistration, now time.Time) error {
	res := tx.Model(&models.TutorialRegistration{}).
		Where("id = ? AND status = ?", registration.ID, models.RegistrationStatusCancelled).
		Updates(map[string]interface{}{
			"status":        models.RegistrationStatusRegistered,
			"registered_at": now,
			"cancelled_at":  nil,
			"updated_at":    now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrDuplicateRegistration
	}

	registration.Status = models.RegistrationStatusRegistered
	registration.RegisteredAt = now
	registration.CancelledAt = nil
	registration.UpdatedAt = now
	return nil
}

func (r *registrationRepository) Cancel(ctx context.Context, registrationID uint, now time.Time) (models.TutorialRegistration, error) {
	var registration models.TutorialRegistration

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Tutorial").Preload("Student").First(&registration, registrationID).Error; err != nil {
			return err
		}
		if registration.Status != models.RegistrationStatusRegistered {
			return ErrRegistrationNotRegistered
		}

		res := tx.Model(&models.TutorialRegistration{}).
			Where("id = ? AND status = ?", registrationID, models.RegistrationStatusRegistered).
			Updates(map[string]interface{}{
				"status":       models.RegistrationStatusCancelled,
				"cancelled_at": now,
				"updated_at":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrRegistrationNotRegistered
		}

		if err := releaseSeat(tx, registration.TutorialID); err != nil {
			return err
		}

		registration.Status = models.RegistrationStatusCancelled
		registration.CancelledAt = &now
		registration.UpdatedAt = now
		if registration.Tutorial.CurrentRegistrations > 0 {
			registration.Tutorial.CurrentRegistrations--
		}
		return nil
	})
	if err != nil {
		return models.TutorialRegistration{}, err
	}

	return registration, nil
}

func (r *registrationRepository) MarkAttended(ctx context.Context, registrationID uint, now time.Time) (models.TutorialRegistration, error) {
	var registration models.TutorialRegistration

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Tutorial").Preload("Student").First(&registration, registrationID).Error; err != nil {
			return err
		}

		res := tx.Model(&models.TutorialRegistration{}).
			Where("id = ? AND status = ?", registrationID, models.RegistrationStatusRegistered).
			Updates(map[string]interface{}{
				"status":      models.RegistrationStatusAttended,
				"attended_at": now,
				"updated_at":  now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrRegistrationNotRegistered
		}

		registration.Status = models.RegistrationStatusAttended
		registration.AttendedAt = &now
		registration.UpdatedAt = now
		return nil
	})
	if err != nil {
		return models.TutorialRegistration{}, err
	}

	return registration, nil
}

func (r *registrationRepository) GetByID(ctx context.Context, id uint) (models.TutorialRegistration, error) {
	var registration models.TutorialRegistration
	if err := r.db.WithContext(ctx).Preload("Tutorial").Preload("Student").First(&registration, id).Error; err != nil {
		return models.TutorialRegistration{}, err
	}

	return registration, nil
}

func (r *registrationRepository) ListByTutorial(ctx context.Context, tutorialID uint) ([]models.TutorialRegistration, error) {
	var registrations []models.TutorialRegistration
	if err := r.db.WithContext(ctx).
		Preload("Student").
		Where("tutorial_id = ?", tutorialID).
		Order("registered_at DESC").
		Order("id DESC").
		Find(&registrations).Error; err != nil {
		return nil, err
	}

	return registrations, nil
}

func (r *registrationRepository) ListByStudent(ctx context.Context, studentID uint, limit int) ([]models.TutorialRegistration, error) {
	query := r.db.WithContext(ctx).
		Preload("Tutorial").
		Where("student_id = ?", studentID).
		Order("registered_at DESC").
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var registrations []models.TutorialRegistration
	if err := query.Find(&registrations).Error; err != nil {
		return nil, err
	}

	return registrations, nil
}

func (r *registrationRepository) CountByStudent(ctx context.Context, studentID uint) (map[models.RegistrationStatus]int64, error) {
	var rows []struct {
		Status models.RegistrationStatus
		Total  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.TutorialRegistration{}).
		Select("status, COUNT(*) AS total").
		Where("student_id = ?", studentID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[models.RegistrationStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

func (r *registrationRepository) Reconcile(ctx context.Context, tutorialID uint) (ReconcileResult, error) {
	var result ReconcileResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = reconcileTutorial(tx, tutorialID)
		return err
	})
	if err != nil {
		return ReconcileResult{}, err
	}

	return result, nil
}

func (r *registrationRepository) ReconcileAll(ctx context.Context) ([]ReconcileResult, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.Tutorial{}).Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}

	results := make([]ReconcileResult, 0, len(ids))
	for _, id := range ids {
		result, err := r.Reconcile(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		results = append(results, result)
	}

	return results, nil
}

// reconcileTutorial treats the stored counter as a cache of the seat-holding
// rows and overwrites it with the recomputed value.
func reconcileTutorial(tx *gorm.DB, tutorialID uint) (ReconcileResult, error) {
	var tutorial models.Tutorial
	if err := tx.Select("id", "max_students", "current_registrations").First(&tutorial, tutorialID).Error; err != nil {
		return ReconcileResult{}, err
	}

	var held int64
	if err := tx.Model(&models.TutorialRegistration{}).
		Where("tutorial_id = ? AND status IN ?", tutorialID, models.SeatHoldingStatuses).
		Count(&held).Error; err != nil {
		return ReconcileResult{}, err
	}

	if int(held) != tutorial.CurrentRegistrations {
		if err := tx.Model(&models.Tutorial{}).
			Where("id = ?", tutorialID).
			UpdateColumn("current_registrations", held).Error; err != nil {
			return ReconcileResult{}, err
		}
	}

	return ReconcileResult{
		TutorialID:  tutorialID,
		Previous:    tutorial.CurrentRegistrations,
		Current:     int(held),
		MaxStudents: tutorial.MaxStudents,
	}, nil
}
