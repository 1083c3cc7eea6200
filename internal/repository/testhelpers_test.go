package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/mgsa-portal-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Tutorial{},
		&models.TutorialRegistration{},
		&models.TutorialMaterial{},
		&models.ActivityLog{},
		&models.Notification{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string, role models.Role) models.User {
	t.Helper()
	user := models.User{
		FirstName:  "Test",
		LastName:   strings.Split(email, "@")[0],
		Email:      email,
		Role:       role,
		Department: "Computer Science",
		IsActive:   true,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedTutorial(t *testing.T, db *gorm.DB, creatorID uint, maxStudents int) models.Tutorial {
	t.Helper()
	start := time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)
	tutorial := models.Tutorial{
		Title:       "Linear Algebra Review",
		Instructor:  "Dr. Mensah",
		Department:  "Computer Science",
		Topics:      []string{"matrices"},
		Days:        []string{"Monday"},
		StartDate:   start,
		EndDate:     start.AddDate(0, 1, 0),
		StartTime:   "14:00",
		EndTime:     "16:00",
		MaxStudents: maxStudents,
		IsActive:    true,
		CreatedByID: creatorID,
	}
	require.NoError(t, db.Omit("CreatedBy").Create(&tutorial).Error)
	return tutorial
}
