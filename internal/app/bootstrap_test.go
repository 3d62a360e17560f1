package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type ticketBody struct {
	ID                 int64   `json:"id"`
	Status             string  `json:"status"`
	AssignedEmployeeID *int64  `json:"assigned_employee_id"`
	DateResolved       *string `json:"date_resolved"`
	ResolutionNotes    string  `json:"resolution_notes"`
	Summary            string  `json:"summary"`
}

func testConfig(driver string) *config.Config {
	return &config.Config{
		App:     config.AppConfig{Name: "helpdesk-test", Version: "test", Env: "production", RequestTimeoutSeconds: 5},
		Store:   config.StoreConfig{Driver: driver, SeedEmployees: "7:Ana Silva,3:Ben Ortiz"},
		SQLite:  config.SQLiteConfig{Path: ":memory:"},
		Tickets: config.TicketConfig{ReopenClearsNotes: "new"},
	}
}

func newTestApp(t *testing.T, driver string) *fiber.App {
	t.Helper()
	c, err := New(context.Background(), testConfig(driver), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c.HTTP()
}

func doRequest(t *testing.T, app *fiber.App, method, path, body string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	return resp.StatusCode, env
}

func decodeTicket(t *testing.T, env envelope) ticketBody {
	t.Helper()
	var tb ticketBody
	require.NoError(t, json.Unmarshal(env.Data, &tb))
	return tb
}

func TestPostgresWithoutDSNFallsBackToMemory(t *testing.T) {
	c, err := New(context.Background(), testConfig(config.StoreDriverPostgres), zap.NewNop())
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, config.StoreDriverMemory, c.Driver)
}

func TestNewRejectsBadSeedEmployees(t *testing.T) {
	cfg := testConfig(config.StoreDriverMemory)
	cfg.Store.SeedEmployees = "seven:Ana"
	_, err := New(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestEmptyEmployeeDirectoryIsWarned(t *testing.T) {
	const warning = "employee directory is empty; tickets cannot be resolved or closed until employees exist"

	for _, driver := range []string{config.StoreDriverMemory, config.StoreDriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			core, logs := observer.New(zapcore.InfoLevel)
			cfg := testConfig(driver)
			cfg.Store.SeedEmployees = ""
			c, err := New(context.Background(), cfg, zap.New(core))
			require.NoError(t, err)
			defer c.Close()
			assert.Equal(t, 1, logs.FilterMessage(warning).Len())

			core, logs = observer.New(zapcore.InfoLevel)
			seeded, err := New(context.Background(), testConfig(driver), zap.New(core))
			require.NoError(t, err)
			defer seeded.Close()
			assert.Zero(t, logs.FilterMessage(warning).Len())
		})
	}
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	for _, driver := range []string{config.StoreDriverMemory, config.StoreDriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			app := newTestApp(t, driver)

			status, env := doRequest(t, app, http.MethodPost, "/tickets",
				`{"issue_title":"  Printer jam ","description":"Tray 2","category_id":1}`)
			require.Equal(t, http.StatusCreated, status)
			assert.Equal(t, "Ticket created successfully", env.Message)
			created := decodeTicket(t, env)
			assert.Equal(t, "New", created.Status)
			assert.Equal(t, "Ticket: Printer jam | Status: New | Unassigned | Resolved: Not resolved", created.Summary)

			status, env = doRequest(t, app, http.MethodPut, "/tickets/1",
				`{"issue_title":"Printer jam","category_id":1,"status":"Resolved","assigned_employee_id":7}`)
			require.Equal(t, http.StatusUnprocessableEntity, status)
			assert.Equal(t, "Resolution notes are required", env.Error.Message)
			assert.Equal(t, "notes", env.Error.Details["rule"])

			status, env = doRequest(t, app, http.MethodPut, "/tickets/1",
				`{"issue_title":"Printer jam","category_id":1,"status":"Resolved","assigned_employee_id":7,"resolution_notes":"Cleared tray"}`)
			require.Equal(t, http.StatusOK, status)
			resolved := decodeTicket(t, env)
			assert.Equal(t, "Resolved", resolved.Status)
			assert.NotNil(t, resolved.DateResolved)

			status, env = doRequest(t, app, http.MethodGet, "/tickets?status=Resolved&employee_id=7", "")
			require.Equal(t, http.StatusOK, status)
			var listed []ticketBody
			require.NoError(t, json.Unmarshal(env.Data, &listed))
			require.Len(t, listed, 1)

			status, env = doRequest(t, app, http.MethodGet, "/tickets/counts", "")
			require.Equal(t, http.StatusOK, status)
			assert.Equal(t, "Total: 1 | Open: 0 | Closed: 1", env.Message)

			status, env = doRequest(t, app, http.MethodPut, "/tickets/1",
				`{"issue_title":"Printer jam","category_id":1,"status":"New","resolution_notes":"stale"}`)
			require.Equal(t, http.StatusOK, status)
			reopened := decodeTicket(t, env)
			assert.Empty(t, reopened.ResolutionNotes)
			assert.Nil(t, reopened.DateResolved)

			status, env = doRequest(t, app, http.MethodDelete, "/tickets/1", "")
			require.Equal(t, http.StatusOK, status)
			assert.Equal(t, "Ticket deleted", env.Message)

			status, env = doRequest(t, app, http.MethodDelete, "/tickets/1", "")
			require.Equal(t, http.StatusOK, status)
			assert.Equal(t, "Nothing to delete", env.Message)

			status, env = doRequest(t, app, http.MethodGet, "/tickets/1", "")
			require.Equal(t, http.StatusNotFound, status)
			assert.Equal(t, "NOT_FOUND", env.Error.Code)
		})
	}
}

func TestClearAllOverHTTP(t *testing.T) {
	app := newTestApp(t, config.StoreDriverMemory)

	status, env := doRequest(t, app, http.MethodDelete, "/tickets", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "No tickets to clear", env.Message)

	for i := 0; i < 3; i++ {
		status, _ = doRequest(t, app, http.MethodPost, "/tickets", `{"issue_title":"VPN down","category_id":3}`)
		require.Equal(t, http.StatusCreated, status)
	}

	status, env = doRequest(t, app, http.MethodDelete, "/tickets", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "All tickets have been deleted", env.Message)
	assert.JSONEq(t, `{"affected":3}`, string(env.Data))
}

func TestRequestValidationOverHTTP(t *testing.T) {
	app := newTestApp(t, config.StoreDriverMemory)

	cases := []struct {
		name, method, path, body string
		status                   int
		code                     string
	}{
		{"malformed body", http.MethodPost, "/tickets", `{"issue_title":`, http.StatusBadRequest, "BAD_REQUEST"},
		{"empty title", http.MethodPost, "/tickets", `{"issue_title":"  ","category_id":1}`, http.StatusUnprocessableEntity, "VALIDATION_FAILED"},
		{"unknown status", http.MethodPost, "/tickets", `{"issue_title":"x","category_id":1,"status":"Pending"}`, http.StatusUnprocessableEntity, "VALIDATION_FAILED"},
		{"bad resolved_at", http.MethodPost, "/tickets", `{"issue_title":"x","category_id":1,"resolved_at":"yesterday"}`, http.StatusBadRequest, "BAD_REQUEST"},
		{"bad id", http.MethodGet, "/tickets/abc", "", http.StatusBadRequest, "BAD_REQUEST"},
		{"unknown filter status", http.MethodGet, "/tickets?status=Pending", "", http.StatusBadRequest, "BAD_REQUEST"},
		{"update missing ticket", http.MethodPut, "/tickets/99", `{"issue_title":"x","category_id":1}`, http.StatusNotFound, "NOT_FOUND"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, env := doRequest(t, app, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, status)
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.code, env.Error.Code)
		})
	}
}

func TestListFiltersAcceptAllSentinels(t *testing.T) {
	app := newTestApp(t, config.StoreDriverMemory)
	doRequest(t, app, http.MethodPost, "/tickets", `{"issue_title":"a","category_id":1}`)
	doRequest(t, app, http.MethodPost, "/tickets", `{"issue_title":"b","category_id":2}`)

	status, env := doRequest(t, app, http.MethodGet, "/tickets?status=All&category_id=0&employee_id=All", "")
	require.Equal(t, http.StatusOK, status)
	var listed []ticketBody
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	require.Len(t, listed, 2)
	assert.Equal(t, int64(1), listed[0].ID)
	assert.Equal(t, int64(2), listed[1].ID)

	status, env = doRequest(t, app, http.MethodGet, "/tickets?category_id=2", "")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, int64(2), listed[0].ID)
}

func TestLookupsHealthAndMetrics(t *testing.T) {
	app := newTestApp(t, config.StoreDriverSQLite)

	status, env := doRequest(t, app, http.MethodGet, "/categories", "")
	require.Equal(t, http.StatusOK, status)
	var categories []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &categories))
	assert.Len(t, categories, 5)

	status, env = doRequest(t, app, http.MethodGet, "/employees", "")
	require.Equal(t, http.StatusOK, status)
	var employees []struct {
		ID       int64  `json:"id"`
		FullName string `json:"full_name"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &employees))
	require.Len(t, employees, 2)
	assert.Equal(t, "Ana Silva", employees[0].FullName)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	resp.Body.Close()

	doRequest(t, app, http.MethodPost, "/tickets", `{"issue_title":"","category_id":1}`)
	status, env = doRequest(t, app, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, status)
	var snap struct {
		Outcomes map[string]int64 `json:"outcomes"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, int64(1), snap.Outcomes["create|VALIDATION_FAILED"])
}
