package handler_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"
)

func TestTutorialResponseContract(t *testing.T) {
	schemaPath, err := filepath.Abs(filepath.Join("testdata", "tutorial_response.schema.json"))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	schema, err := compiler.Compile("file://" + filepath.ToSlash(schemaPath))
	require.NoError(t, err)

	f := newPortalFixture(t)
	tutorialID := f.createTutorial(t, 2)
	student := f.students[0]

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v2/tutorials/%d", tutorialID), nil)
	req.Header.Set(fiber.HeaderAuthorization, bearer(t, student))
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))

	var envelope struct {
		Data struct {
			Description string   `json:"description"`
			Days        []string `json:"days"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &envelope))
	require.NotContains(t, envelope.Data.Description, "<script>")
	require.Equal(t, []string{"Monday", "Thursday"}, envelope.Data.Days)
}
