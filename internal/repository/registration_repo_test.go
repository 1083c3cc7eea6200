package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/mgsa-portal-api/internal/models"
)

func TestRegistrationRepositoryRegisterClaimsSeat(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRegistrationRepository(db)
	exec := seedUser(t, db, "exec@mgsa.test", models.RoleExecutive)
	student := seedUser(t, db, "ama@mgsa.test", models.RoleStudent)
	tutorial := seedTutorial(t, db, exec.ID, 2)

	now := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	result, err := repo.Register(context.Background(), tutorial.ID, student.ID, now)
	require.NoError(t, err)
	require.False(t, result.Reactivated)
	require.Equal(t, models.RegistrationStatusRegistered, result.Registration.Status)
	require.Equal(t, 1, result.Registration.Tutorial.CurrentRegistrations)

	var stored models.Tutorial
	require.NoError(t, db.First(&stored, tutorial.ID).Error)
	require.Equal(t, 1, stored.CurrentRegistrations)

	_, err = repo.Register(context.Background(), tutorial.ID, student.ID, now)
	require.ErrorIs(t, err, ErrDuplicateRegistration)

	require.NoError(t, db.First(&stored, tutorial.ID).Error)
	require.Equal(t, 1, stored.CurrentRegistrations, "duplicate must not consume a seat")
}

func TestRegistrationRepositoryRejectsWhenFull(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRegistrationRepository(db)
	exec := seedUser(t, db, "exec@mgsa.test", models.RoleExecutive)
	first := seedUser(t, db, "a@mgsa.test", models.RoleStudent)
	second := seedUser(t, db, "b@mgsa.test", models.RoleStudent)
	third := seedUser(t, db, "c@mgsa.test", models.RoleStudent)
	tutorial := seedTutorial(t, db, exec.ID, 2)

	now := time.Now().UTC()
	_, err := repo.Register(context.Background(), tutorial.ID, first.ID, now)
	require.NoError(t, err)
	_, err = repo.Register(context.Background(), tutorial.ID, second.ID, now)
	require.NoError(t, err)

	_, err = repo.Register(context.Background(), tutorial.ID, third.ID, now)
	require.ErrorIs(t, err, ErrCapacityReached)

	var count int64
	require.NoError(t, db.Model(&models.TutorialRegistration{}).Where("tutorial_id = ?", tutorial.ID).Count(&count).Error)
	require.Equal(t, int64(2), count)
}

func TestRegistrationRepositoryRejectsInactiveAndMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRegistrationRepository(db)
	exec := seedUser(t, db, "exec@mgsa.test", models.RoleExecutive)
	student := seedUser(t, db, "ama@mgsa.test", models.RoleStudent)
	tutorial := seedTutorial(t, db, exec.ID, 5)
	require.NoError(t, db.Model(&models.Tutorial{}).Where("id = ?", tutorial.ID).Update("is_active", false).Error)

	_, err := repo.Register(context.Background(), tutorial.ID, student.ID, time.Now())
	require.ErrorIs(t, err, ErrTutorialInactive)

	_, err = repo.Register(context.Background(), 9999, student.ID, time.Now())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRegistrationRepositoryCancelAndReactivate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRegistrationRepository(db)
	exec := seedUser(t, db, "exec@mgsa.test", models.RoleExecutive)
	student := seedUser(t, db, "ama@mgsa.test", models.RoleStudent)
	tutorial := seedTutorial(t, db, exec.ID, 1)

	registeredAt := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	result, err := repo.Register(context.Background(), tutorial.ID, student.ID, registeredAt)
	require.NoError(t, err)

	cancelled, err := repo.Cancel(context.Background(), result.Registration.ID, registeredAt.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, models.RegistrationStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	require.Equal(t, 0, cancelled.Tutorial.CurrentRegistrations)

	_, err = repo.Cancel(context.Background(), result.Registration.ID, registeredAt.Add(2*time.Hour))
	require.ErrorIs(t, err, ErrRegistrationNotRegistered)

	var stored models.Tutorial
	require.NoError(t, db.First(&stored, tutorial.ID).Error)
	require.Equal(t, 0, stored.CurrentRegistrations)

	reactivatedAt := registeredAt.Add(24 * time.Hour)
	again, err := repo.Register(context.Background(), tutorial.ID, student.ID, reactivatedAt)
	require.NoError(t, err)
	require.True(t, again.Reactivated)
	require.Equal(t, result.Registration.ID, again.Registration.ID)
	require.True(t, again.Registration.RegisteredAt.Equal(reactivatedAt))
	require.Nil(t, again.Registration.CancelledAt)

	var rows int64
	require.NoError(t, db.Model(&models.TutorialRegistration{}).Where("student_id = ? AND tutorial_id = ?", student.ID, tutorial.ID).Count(&rows).Error)
	require.Equal(t, int64(1), rows, "reactivation must reuse the existing row")

	require.NoError(t, db.First(&stored, tutorial.ID).Error)
	require.Equal(t, 1, stored.CurrentRegistrations)
}

func TestRegistrationRepositoryCancelFloorsCounterAtZero(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRegistrationRepository(db)
	exec := seedUser(t, db, "exec@mgsa.test", models.RoleExecutive)
	student := seedUser(t, db, "ama@mgsa.test", models.RoleStudent)
	tutorial := seedTutorial(t, db, exec.ID, 3)

	result, err := repo.Register(context.Background(), tutorial.ID, student.ID, time.Now())
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.Tutorial{}).Where("id = ?", tutorial.ID).UpdateColumn("current_registrations", 0).Error)

	_, err = repo.Cancel(context.Background(), result.Registration.ID, time.Now())
	require.NoError(t, err)

	var stored models.Tutorial
	require.NoError(t, db.First(&stored, tutorial.ID).Error)
	require.Equal(t, 0, stored.CurrentRegistrations)
}

func TestRegistrationRepositoryMarkAttendedKeepsSeat(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRegistrationRepository(db)
	exec := seedUser(t, db, "exec@mgsa.test", models.RoleExecutive)
	student := seedUser(t, db, "ama@mgsa.test", models.RoleStudent)
	tutorial := seedTutorial(t, db, exec.ID, 3)

	result, err := repo.Register(context.Background(), tutorial.ID, student.ID, time.Now())
	require.NoError(t, err)

	attended, err := repo.MarkAttended(context.Background(), result.Registration.ID, time.Now())
	require.NoError(t, err)
	require.Equal(t, models.RegistrationStatusAttended, attended.Status)
	require.NotNil(t, attended.AttendedAt)

	_, err = repo.MarkAttended(context.Background(), result.Registration.ID, time.Now())
	require.ErrorIs(t, err, ErrRegistrationNotRegistered)
	_, err = repo.Cancel(context.Background(), result.Registration.ID, time.Now())
	require.ErrorIs(t, err, ErrRegistrationNotRegistered)

	_, err = repo.Register(context.Background(), tutorial.ID, student.ID, time.Now())
	require.ErrorIs(t, err, ErrDuplicateRegistration)

	var stored models.Tutorial
	require.NoError(t, db.First(&stored, tutorial.ID).Error)
	require.Equal(t, 1, stored.CurrentRegistrations)
}

func TestRegistrationRepositoryConcurrentRegistrationsNeverOverbook(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRegistrationRepository(db)
	exec := seedUser(t, db, "exec@mgsa.test", models.RoleExecutive)
	tutorial := seedTutorial(t, db, exec.ID, 5)

	const attempts = 100
	students := make([]models.User, attempts)
	for i := range students {
		students[i] = seedUser(t, db, fmt.Sprintf("student%03d@mgsa.test", i), models.RoleStudent)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		full      int
	)
	for _, student := range students {
		wg.Add(1)
		go func(studentID uint) {
			defer wg.Done()
			_, err := repo.Register(context.Background(), tutorial.ID, studentID, time.Now())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrCapacityReached):
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(student.ID)
	}
	wg.Wait()

	require.Equal(t, 5, succeeded)
	require.Equal(t, attempts-5, full)

	var stored models.Tutorial
	require.NoError(t, db.First(&stored, tutorial.ID).Error)
	require.Equal(t, 5, stored.CurrentRegistrations)

	var held int64
	require.NoError(t, db.Model(&models.TutorialRegistration{}).
		Where("tutorial_id = ? AND status IN ?", tutorial.ID, models.SeatHoldingStatuses).
		Count(&held).Error)
	require.Equal(t, int64(5), held)
}

func TestRegistrationRepositoryReconcile(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRegistrationRepository(db)
	exec := seedUser(t, db, "exec@mgsa.test", models.RoleExecutive)
	first := seedUser(t, db, "a@mgsa.test", models.RoleStudent)
	second := seedUser(t, db, "b@mgsa.test", models.RoleStudent)
	tutorial := seedTutorial(t, db, exec.ID, 4)
	other := seedTutorial(t, db, exec.ID, 4)

	_, err := repo.Register(context.Background(), tutorial.ID, first.ID, time.Now())
	require.NoError(t, err)
	registered, err := repo.Register(context.Background(), tutorial.ID, second.ID, time.Now())
	require.NoError(t, err)
	_, err = repo.MarkAttended(context.Background(), registered.Registration.ID, time.Now())
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.Tutorial{}).Where("id = ?", tutorial.ID).UpdateColumn("current_registrations", 7).Error)

	result, err := repo.Reconcile(context.Background(), tutorial.ID)
	require.NoError(t, err)
	require.Equal(t, 7, result.Previous)
	require.Equal(t, 2, result.Current)

	require.NoError(t, db.Model(&models.Tutorial{}).Where("id = ?", other.ID).UpdateColumn("current_registrations", 3).Error)
	results, err := repo.ReconcileAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, other.ID, results[1].TutorialID)
	require.Equal(t, 0, results[1].Current)

	_, err = repo.Reconcile(context.Background(), 9999)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRegistrationRepositoryListings(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRegistrationRepository(db)
	exec := seedUser(t, db, "exec@mgsa.test", models.RoleExecutive)
	student := seedUser(t, db, "ama@mgsa.test", models.RoleStudent)
	tutorial := seedTutorial(t, db, exec.ID, 4)
	other := seedTutorial(t, db, exec.ID, 4)

	base := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	_, err := repo.Register(context.Background(), tutorial.ID, student.ID, base)
	require.NoError(t, err)
	second, err := repo.Register(context.Background(), other.ID, student.ID, base.Add(time.Hour))
	require.NoError(t, err)
	_, err = repo.Cancel(context.Background(), second.Registration.ID, base.Add(2*time.Hour))
	require.NoError(t, err)

	mine, err := repo.ListByStudent(context.Background(), student.ID, 0)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	require.Equal(t, other.ID, mine[0].TutorialID, "newest registration first")
	require.Equal(t, other.Title, mine[0].Tutorial.Title)

	roster, err := repo.ListByTutorial(context.Background(), tutorial.ID)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	require.Equal(t, student.Email, roster[0].Student.Email)

	counts, err := repo.CountByStudent(context.Background(), student.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), counts[models.RegistrationStatusRegistered])
	require.Equal(t, int64(1), counts[models.RegistrationStatusCancelled])
}

func TestRegistrationRepositoryFirstRegistrationLogsNoErrors(t *testing.T) {
	db := setupTestDB(t)
	exec := seedUser(t, db, "exec@mgsa.test", models.RoleExecutive)
	student := seedUser(t, db, "ama@mgsa.test", models.RoleStudent)
	tutorial := seedTutorial(t, db, exec.ID, 3)

	var logs bytes.Buffer
	quiet := db.Session(&gorm.Session{Logger: logger.New(log.New(&logs, "", 0), logger.Config{
		LogLevel: logger.Error,
	})})

	_, err := NewRegistrationRepository(quiet).Register(context.Background(), tutorial.ID, student.ID, time.Now().UTC())
	require.NoError(t, err)
	require.Empty(t, logs.String())
}
