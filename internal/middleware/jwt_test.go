package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "portal-secret"

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func newJWTApp() *fiber.App {
	app := fiber.New()
	app.Use(JWTProtected(testSecret))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"id": UserIDFromLocals(c), "role": RoleFromLocals(c).String()})
	})
	return app
}

func TestJWTProtectedBindsPrincipal(t *testing.T) {
	token := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
		"sub":  "42",
		"role": " Student ",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := newJWTApp().Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestJWTProtectedRejectsBadTokens(t *testing.T) {
	cases := map[string]struct {
		header string
		status int
	}{
		"missing header": {header: "", status: fiber.StatusUnauthorized},
		"wrong scheme":   {header: "Basic abc", status: fiber.StatusUnauthorized},
		"wrong secret": {
			header: "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"sub": 1, "role": "student"}),
			status: fiber.StatusUnauthorized,
		},
		"expired": {
			header: "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
				"sub": 1, "role": "student", "exp": time.Now().Add(-time.Hour).Unix(),
			}),
			status: fiber.StatusUnauthorized,
		},
		"no subject": {
			header: "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"role": "student"}),
			status: fiber.StatusUnauthorized,
		},
		"unknown role": {
			header: "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"sub": 1, "role": "teacher"}),
			status: fiber.StatusForbidden,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := newJWTApp().Test(req, -1)
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestExtractUserRoleAcceptsRoleLists(t *testing.T) {
	role := extractUserRoleFromClaims(jwt.MapClaims{"roles": []interface{}{"", "ADMIN"}})
	require.Equal(t, "admin", role.String())
}
