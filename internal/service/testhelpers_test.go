package service

import (
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/mgsa-portal-api/internal/models"
	"github.com/noah-isme/mgsa-portal-api/internal/policy"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name)), &gorm.Config{TranslateError: true})
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

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func createUser(t *testing.T, db *gorm.DB, first, email string, role models.Role) models.User {
	t.Helper()
	user := models.User{
		FirstName:   first,
		LastName:    "Mensah",
		Email:       email,
		Role:        role,
		Department:  "Computer Science",
		YearOfStudy: "2",
		IsActive:    true,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createTutorial(t *testing.T, db *gorm.DB, creatorID uint, title string, maxStudents int, active bool) models.Tutorial {
	t.Helper()
	start := time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)
	tutorial := models.Tutorial{
		Title:       title,
		Instructor:  "Dr. Owusu",
		Department:  "Computer Science",
		Topics:      []string{"revision"},
		Days:        []string{"Tuesday"},
		StartDate:   start,
		EndDate:     start.AddDate(0, 1, 0),
		StartTime:   "10:00",
		EndTime:     "12:00",
		MaxStudents: maxStudents,
		IsActive:    active,
		CreatedByID: creatorID,
	}
	require.NoError(t, db.Omit("CreatedBy").Create(&tutorial).Error)
	return tutorial
}

func principalOf(user models.User) policy.Principal {
	return policy.Principal{ID: user.ID, Role: user.Role}
}
