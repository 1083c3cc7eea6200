package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mgsa-portal-api/internal/models"
	"github.com/noah-isme/mgsa-portal-api/internal/repository"
)

type fakeAnalyticsRepo struct {
	tutorials []models.Tutorial
	statuses  map[models.RegistrationStatus]int64
	roles     map[models.Role]int64
	calls     int
}

func (f *fakeAnalyticsRepo) ListTutorials(ctx context.Context) ([]models.Tutorial, error) {
	f.calls++
	return append([]models.Tutorial(nil), f.tutorials...), nil
}

func (f *fakeAnalyticsRepo) CountRegistrationsByStatus(ctx context.Context) (map[models.RegistrationStatus]int64, error) {
	return f.statuses, nil
}

func (f *fakeAnalyticsRepo) CountUsersByRole(ctx context.Context) (map[models.Role]int64, error) {
	return f.roles, nil
}

func TestAnalyticsServiceSummaryAndCaching(t *testing.T) {
	repo := &fakeAnalyticsRepo{
		tutorials: []models.Tutorial{
			{ID: 1, Title: "Data Structures", Department: "Computer Science", MaxStudents: 4, CurrentRegistrations: 4, IsActive: true},
			{ID: 2, Title: "Algorithms", Department: "Computer Science", MaxStudents: 10, CurrentRegistrations: 2, IsActive: true},
			{ID: 3, Title: "Calculus", Department: "Mathematics", MaxStudents: 6, CurrentRegistrations: 3, IsActive: false},
		},
		statuses: map[models.RegistrationStatus]int64{
			models.RegistrationStatusRegistered: 8,
			models.RegistrationStatusAttended:   1,
			models.RegistrationStatusCancelled:  2,
		},
		roles: map[models.Role]int64{models.RoleStudent: 30, models.RoleExecutive: 4, models.RoleAdmin: 1},
	}

	svc := NewAnalyticsService(repo, setupRedis(t), time.Minute, testLogger())
	admin := models.User{ID: 1, Role: models.RoleAdmin}

	summary, err := svc.TutorialSummary(context.Background(), principalOf(admin))
	require.NoError(t, err)
	require.False(t, summary.CacheHit)
	require.EqualValues(t, 3, summary.TotalTutorials)
	require.EqualValues(t, 2, summary.ActiveTutorials)
	require.EqualValues(t, 20, summary.TotalCapacity)
	require.EqualValues(t, 9, summary.SeatsHeld)
	require.InDelta(t, 45.0, summary.FillRate, 0.001)
	require.EqualValues(t, 2, summary.RegistrationsByStatus["cancelled"])
	require.EqualValues(t, 30, summary.AccountsByRole["student"])

	require.Len(t, summary.Departments, 2)
	require.Equal(t, "Computer Science", summary.Departments[0].Department)
	require.EqualValues(t, 6, summary.Departments[0].SeatsHeld)

	require.Len(t, summary.TopTutorials, 3)
	require.Equal(t, uint(1), summary.TopTutorials[0].ID)
	require.InDelta(t, 100.0, summary.TopTutorials[0].FillRate, 0.001)

	cached, err := svc.TutorialSummary(context.Background(), principalOf(admin))
	require.NoError(t, err)
	require.True(t, cached.CacheHit)
	require.Equal(t, 1, repo.calls)
}

func TestAnalyticsServiceRequiresStaff(t *testing.T) {
	svc := NewAnalyticsService(&fakeAnalyticsRepo{}, nil, time.Minute, testLogger())

	_, err := svc.TutorialSummary(context.Background(), principalOf(models.User{ID: 7, Role: models.RoleStudent}))
	require.ErrorIs(t, err, ErrPermissionDenied)
}

func TestAnalyticsServiceAgainstDatabase(t *testing.T) {
	db := setupServiceDB(t)
	exec := createUser(t, db, "Esi", "esi@example.com", models.RoleExecutive)
	student := createUser(t, db, "Kojo", "kojo@example.com", models.RoleStudent)
	tutorial := createTutorial(t, db, exec.ID, "Data Structures", 2, true)

	_, err := repository.NewRegistrationRepository(db).Register(context.Background(), tutorial.ID, student.ID, time.Now())
	require.NoError(t, err)

	svc := NewAnalyticsService(repository.NewAnalyticsRepository(db), nil, time.Minute, testLogger())
	summary, err := svc.TutorialSummary(context.Background(), principalOf(exec))
	require.NoError(t, err)
	require.EqualValues(t, 1, summary.SeatsHeld)
	require.InDelta(t, 50.0, summary.FillRate, 0.001)
	require.EqualValues(t, 1, summary.RegistrationsByStatus["registered"])
	require.EqualValues(t, 1, summary.AccountsByRole["executive"])
}
