package handler_test

import (
	"bytes"
	"context"
	"errors"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/mgsa-portal-api/internal/config"
	"github.com/noah-isme/mgsa-portal-api/internal/database"
	"github.com/noah-isme/mgsa-portal-api/internal/handler"
	"github.com/noah-isme/mgsa-portal-api/internal/models"
	"github.com/noah-isme/mgsa-portal-api/internal/repository"
	"github.com/noah-isme/mgsa-portal-api/internal/router"
	"github.com/noah-isme/mgsa-portal-api/internal/service"
)

const testJWTSecret = "portal-handler-secret"

var fixtureSeq atomic.Int64

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
}

type portalFixture struct {
	app       *fiber.App
	db        *gorm.DB
	executive models.User
	admin     models.User
	students  []models.User
}

func newPortalFixture(t *testing.T, probes ...handler.HealthProbe) *portalFixture {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, fixtureSeq.Add(1))
	db, err := database.Connect(database.DriverSQLite, dsn)
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	logger := zerolog.Nop()
	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	tutorialRepo := repository.NewTutorialRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)
	activity := service.NewActivityService(repository.NewActivityLogRepository(db), logger)
	notifications := service.NewNotificationService(repository.NewNotificationRepository(db), nil, nil, "portal.notifications", validate, logger)

	tutorials := service.NewTutorialService(tutorialRepo, activity, nil, validate, logger)
	registrations := service.NewRegistrationService(registrationRepo, tutorialRepo, activity, notifications, nil, logger)
	dashboards := service.NewDashboardService(userRepo, tutorialRepo, registrationRepo, nil, time.Minute, logger)
	analytics := service.NewAnalyticsService(repository.NewAnalyticsRepository(db), nil, time.Minute, logger)

	cfg := config.Config{
		AppName:           "mgsa-portal-api",
		AppEnv:            "test",
		JWTSecret:         testJWTSecret,
		RegisterRateLimit: 100,
	}

	app := fiber.New()
	router.Register(app, cfg, router.Dependencies{
		TutorialHandler:     handler.NewTutorialHandler(tutorials, logger),
		RegistrationHandler: handler.NewRegistrationHandler(registrations, logger),
		DashboardHandler:    handler.NewDashboardHandler(dashboards, logger),
		AnalyticsHandler:    handler.NewAnalyticsHandler(analytics, logger),
		ActivityHandler:     handler.NewActivityHandler(activity, logger),
		UserHandler:         handler.NewUserHandler(service.NewUserService(userRepo, activity, validate, logger), logger),
		NotificationHandler: handler.NewNotificationHandler(notifications, logger, time.Second),
		HealthProbes:        probes,
	})

	fixture := &portalFixture{app: app, db: db}
	fixture.executive = seedAccount(t, db, "exec@mgsa.test", models.RoleExecutive)
	fixture.admin = seedAccount(t, db, "admin@mgsa.test", models.RoleAdmin)
	for i := 1; i <= 2; i++ {
		fixture.students = append(fixture.students, seedAccount(t, db, fmt.Sprintf("student%d@mgsa.test", i), models.RoleStudent))
	}
	return fixture
}

func seedAccount(t *testing.T, db *gorm.DB, email string, role models.Role) models.User {
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

func bearer(t *testing.T, user models.User) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  fmt.Sprint(user.ID),
		"role": user.Role.String(),
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func (f *portalFixture) do(t *testing.T, method, path string, user *models.User, body interface{}) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if user != nil {
		req.Header.Set(fiber.HeaderAuthorization, bearer(t, *user))
	}

	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var payload envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &payload), string(raw))
	}
	return resp, payload
}

func tutorialPayload(maxStudents int) map[string]interface{} {
	return map[string]interface{}{
		"title":        "Discrete Maths Clinic",
		"description":  "<p>Proof techniques</p><script>alert(1)</script>",
		"instructor":   "Ama Owusu",
		"department":   "Computer Science",
		"topics":       []string{"induction", "graphs"},
		"start_date":   "2026-11-02",
		"end_date":     "2026-12-14",
		"days":         []string{"monday", "thursday"},
		"start_time":   "14:00",
		"end_time":     "16:00",
		"max_students": maxStudents,
	}
}

func (f *portalFixture) createTutorial(t *testing.T, maxStudents int) uint {
	t.Helper()
	resp, body := f.do(t, http.MethodPost, "/api/v2/tutorials", &f.executive, tutorialPayload(maxStudents))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body.Message)

	var created struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &created))
	require.NotZero(t, created.ID)
	return created.ID
}

func TestRegistrationLifecycleOverHTTP(t *testing.T) {
	f := newPortalFixture(t)
	tutorialID := f.createTutorial(t, 1)
	first, second := f.students[0], f.students[1]
	registerPath := fmt.Sprintf("/api/v2/tutorials/%d/registrations", tutorialID)

	resp, body := f.do(t, http.MethodPost, registerPath, &first, nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.Equal(t, "registered for tutorial", body.Message)

	var registered struct {
		Registration struct {
			ID     uint   `json:"id"`
			Status string `json:"status"`
		} `json:"registration"`
		CurrentRegistrations int `json:"current_registrations"`
		AvailableSlots       int `json:"available_slots"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &registered))
	require.Equal(t, "registered", registered.Registration.Status)
	require.Equal(t, 1, registered.CurrentRegistrations)
	require.Equal(t, 0, registered.AvailableSlots)

	resp, _ = f.do(t, http.MethodPost, registerPath, &first, nil)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, registerPath, &second, nil)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	cancelPath := fmt.Sprintf("/api/v2/registrations/%d/cancel", registered.Registration.ID)
	resp, _ = f.do(t, http.MethodPost, cancelPath, &second, nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, body = f.do(t, http.MethodPost, cancelPath, &first, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "registration cancelled", body.Message)

	resp, _ = f.do(t, http.MethodPost, registerPath, &second, nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, registerPath, &first, nil)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, body = f.do(t, http.MethodGet, "/api/v2/registrations/mine", &first, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var mine []struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &mine))
	require.Len(t, mine, 1)
	require.Equal(t, "cancelled", mine[0].Status)

	resp, body = f.do(t, http.MethodGet, registerPath, &f.executive, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var roster struct {
		CurrentRegistrations int `json:"current_registrations"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &roster))
	require.Equal(t, 1, roster.CurrentRegistrations)

	resp, body = f.do(t, http.MethodPost, fmt.Sprintf("/api/v2/tutorials/%d/reconcile", tutorialID), &f.executive, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var reconciled struct {
		Current int  `json:"current"`
		Changed bool `json:"changed"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &reconciled))
	require.Equal(t, 1, reconciled.Current)
	require.False(t, reconciled.Changed)
}

func TestRegistrationRejectsInactiveAndUnknownTutorials(t *testing.T) {
	f := newPortalFixture(t)
	tutorialID := f.createTutorial(t, 5)
	student := f.students[0]

	resp, _ := f.do(t, http.MethodPost, fmt.Sprintf("/api/v2/tutorials/%d/deactivate", tutorialID), &f.executive, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, fmt.Sprintf("/api/v2/tutorials/%d/registrations", tutorialID), &student, nil)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/api/v2/tutorials/999/registrations", &student, nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/api/v2/tutorials/abc/registrations", &student, nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, fmt.Sprintf("/api/v2/tutorials/%d", tutorialID), &student, nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestRoutesEnforceRoles(t *testing.T) {
	f := newPortalFixture(t)
	student := f.students[0]

	resp, _ := f.do(t, http.MethodGet, "/api/v2/tutorials", nil, nil)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/api/v2/tutorials", &student, tutorialPayload(3))
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	tutorialID := f.createTutorial(t, 3)
	resp, _ = f.do(t, http.MethodPost, fmt.Sprintf("/api/v2/tutorials/%d/registrations", tutorialID), &f.executive, nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, fmt.Sprintf("/api/v2/tutorials/%d/registrations", tutorialID), &student, nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, "/api/admin/analytics/tutorials", &f.executive, nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, body := f.do(t, http.MethodGet, "/api/admin/analytics/tutorials", &f.admin, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"cache_hit":false}`, string(body.Meta))
}

func TestCreateTutorialValidation(t *testing.T) {
	f := newPortalFixture(t)

	payload := tutorialPayload(0)
	payload["title"] = ""
	resp, body := f.do(t, http.MethodPost, "/api/v2/tutorials", &f.executive, payload)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "validation failed", body.Message)

	payload = tutorialPayload(10)
	payload["end_date"] = "2026-10-01"
	resp, _ = f.do(t, http.MethodPost, "/api/v2/tutorials", &f.executive, payload)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestStudentDashboardOverHTTP(t *testing.T) {
	f := newPortalFixture(t)
	tutorialID := f.createTutorial(t, 4)
	student := f.students[0]

	resp, _ := f.do(t, http.MethodPost, fmt.Sprintf("/api/v2/tutorials/%d/registrations", tutorialID), &student, nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, body := f.do(t, http.MethodGet, "/api/v2/student/dashboard", &student, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"cache_hit":false}`, string(body.Meta))

	resp, _ = f.do(t, http.MethodGet, "/api/v2/executive/dashboard", &student, nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, "/api/v2/executive/dashboard", &f.executive, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestHealthReportsProbes(t *testing.T) {
	f := newPortalFixture(t, handler.HealthProbe{Name: "database", Check: func(ctx context.Context) error { return nil }})
	resp, body := f.do(t, http.MethodGet, "/api/v1/health", nil, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "mgsa-portal-api", resp.Header.Get("X-Application"))
	require.Contains(t, string(body.Data), `"database":"ok"`)

	degraded := newPortalFixture(t, handler.HealthProbe{Name: "redis", Check: func(ctx context.Context) error {
		return errors.New("connection refused")
	}})
	resp, _ = degraded.do(t, http.MethodGet, "/api/v1/health", nil, nil)
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestRegistrationNotifiesTutorialCreator(t *testing.T) {
	f := newPortalFixture(t)
	tutorialID := f.createTutorial(t, 3)

	resp, _ := f.do(t, http.MethodPost, fmt.Sprintf("/api/v2/tutorials/%d/registrations", tutorialID), &f.students[0], nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, body := f.do(t, http.MethodGet, "/api/v2/notifications", &f.executive, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var notifications []struct {
		ID      uint   `json:"id"`
		Message string `json:"message"`
		Read    bool   `json:"read"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &notifications))
	require.Len(t, notifications, 1)
	require.JSONEq(t, `{"unread_count":1}`, string(body.Meta))
	require.Contains(t, notifications[0].Message, "Discrete Maths Clinic")
	require.False(t, notifications[0].Read)

	readPath := fmt.Sprintf("/api/v2/notifications/%d/read", notifications[0].ID)
	resp, _ = f.do(t, http.MethodPatch, readPath, &f.students[1], nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, body = f.do(t, http.MethodPatch, readPath, &f.executive, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Contains(t, string(body.Data), `"read":true`)

	resp, body = f.do(t, http.MethodPatch, "/api/v2/notifications/read-all", &f.executive, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"updated":0}`, string(body.Data))

	resp, body = f.do(t, http.MethodGet, "/api/v2/notifications?unread=true", &f.executive, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"unread_count":0}`, string(body.Meta))
}
