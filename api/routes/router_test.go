package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/prairieworks/grainledger-backend/internal/audit"
	"github.com/prairieworks/grainledger-backend/internal/contracts"
	"github.com/prairieworks/grainledger-backend/internal/ledger"
	"github.com/prairieworks/grainledger-backend/internal/tickets"
	"github.com/prairieworks/grainledger-backend/internal/xlsx"
	"github.com/prairieworks/grainledger-backend/pkg/config"
	"github.com/prairieworks/grainledger-backend/pkg/db"
	"github.com/prairieworks/grainledger-backend/pkg/logger"
	"github.com/prairieworks/grainledger-backend/pkg/outbox"
)

const testSecret = "router-test-secret"

var testSchemas = []string{`
CREATE TABLE IF NOT EXISTS contracts (
  id TEXT PRIMARY KEY,
  contract_number TEXT NOT NULL UNIQUE,
  crop TEXT NOT NULL,
  owner TEXT,
  destination TEXT NOT NULL,
  through TEXT NOT NULL DEFAULT 'Any',
  contracted_bushels NUMERIC NOT NULL DEFAULT 0,
  priority INTEGER NOT NULL DEFAULT 5,
  overfill_allowed INTEGER NOT NULL DEFAULT 0,
  is_template INTEGER NOT NULL DEFAULT 0,
  is_spot_sale INTEGER NOT NULL DEFAULT 0,
  crop_year TEXT NOT NULL,
  start_date DATETIME,
  end_date DATETIME,
  notes TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS tickets (
  id TEXT PRIMARY KEY,
  ticket_number TEXT,
  status TEXT NOT NULL DEFAULT 'needs_review',
  delivery_date DATETIME,
  person TEXT,
  crop TEXT,
  bushels NUMERIC NOT NULL DEFAULT 0,
  delivery_location TEXT,
  through TEXT,
  elevator TEXT,
  moisture_percent NUMERIC,
  origin TEXT,
  crop_year TEXT NOT NULL,
  notes TEXT,
  image_key TEXT,
  contract_id TEXT,
  approved_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME,
  deleted_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS audit_records (
  id TEXT PRIMARY KEY,
  ticket_id TEXT NOT NULL,
  action TEXT NOT NULL,
  before TEXT,
  after TEXT,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT,
  published_at DATETIME,
  created_at DATETIME
);`}

func setupRouter(t *testing.T) http.Handler {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	for _, schema := range testSchemas {
		require.NoError(t, conn.Exec(schema).Error)
	}

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	client := db.NewWithConn(conn)

	contractsRepo := contracts.NewRepository(conn)
	contractsSvc, err := contracts.NewService(contractsRepo, client, logg)
	require.NoError(t, err)
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	require.NoError(t, err)
	auditSvc, err := audit.NewService(audit.NewRepository(conn))
	require.NoError(t, err)
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), logg)
	ticketsSvc, err := tickets.NewService(tickets.NewRepository(conn), contractsRepo, ledgerSvc, auditSvc, outboxSvc, client, logg, nil)
	require.NoError(t, err)
	xlsxSvc, err := xlsx.NewService(contractsSvc, ticketsSvc, logg)
	require.NoError(t, err)

	cfg := &config.Config{
		App:  config.AppConfig{Env: "test"},
		Auth: config.AuthConfig{SharedSecret: testSecret},
	}

	return NewRouter(Dependencies{
		Config:           cfg,
		Logger:           logg,
		TicketsService:   ticketsSvc,
		ContractsService: contractsSvc,
		XLSXService:      xlsxSvc,
	})
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testSecret)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var envelope struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestHealthLive(t *testing.T) {
	handler := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get("X-GrainLedger-Env"))
}

func TestAPIRequiresKey(t *testing.T) {
	handler := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tickets?crop_year=2025", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req.Header.Set("X-API-Key", "wrong")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListingRequiresCropYear(t *testing.T) {
	handler := setupRouter(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/tickets", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "crop_year")

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/contracts", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContractLifecycleOverHTTP(t *testing.T) {
	handler := setupRouter(t)

	create := map[string]any{
		"contract_number":    "C-100",
		"crop":               "Corn",
		"owner":              "Karl",
		"destination":        "Elevator-A",
		"through":            "Akron",
		"contracted_bushels": "1000",
		"crop_year":          "2025",
	}
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/contracts", create)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	contractID := decodeData(t, rec)["id"].(string)

	// Duplicate number conflicts.
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/contracts", create)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/contracts/"+contractID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	assert.Equal(t, "C-100", data["contract_number"])
	assert.Equal(t, "0", data["delivered_bushels"])

	rec = doJSON(t, handler, http.MethodPatch, "/api/v1/contracts/"+contractID, map[string]any{"priority": 2})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/contracts?crop_year=2025", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodDelete, "/api/v1/contracts/"+contractID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/contracts/"+contractID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTicketApprovalFlowOverHTTP(t *testing.T) {
	handler := setupRouter(t)

	contract := map[string]any{
		"contract_number":    "C-200",
		"crop":               "Corn",
		"owner":              "Karl",
		"destination":        "Elevator-A",
		"through":            "Akron",
		"contracted_bushels": "1000",
		"crop_year":          "2025",
	}
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/contracts", contract)
	require.Equal(t, http.StatusCreated, rec.Code)
	contractID := decodeData(t, rec)["id"].(string)

	ticket := map[string]any{
		"person":            "Karl",
		"crop":              "Corn",
		"bushels":           "400",
		"delivery_location": "Elevator-A",
		"through":           "Akron",
		"origin":            "Home farm",
		"crop_year":         "2025",
	}
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/tickets", ticket)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ticketID := decodeData(t, rec)["id"].(string)

	rec = doJSON(t, handler, http.MethodPost, fmt.Sprintf("/api/v1/tickets/%s/approve", ticketID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := decodeData(t, rec)
	assert.Equal(t, false, data["spot_sale_created"])

	boundContract := data["contract"].(map[string]any)
	assert.Equal(t, contractID, boundContract["id"])

	totals := data["totals"].(map[string]any)
	assert.Equal(t, "400", totals["delivered_bushels"])
	assert.Equal(t, "600", totals["remaining_bushels"])

	// Second approve attempt is a state conflict.
	rec = doJSON(t, handler, http.MethodPost, fmt.Sprintf("/api/v1/tickets/%s/approve", ticketID), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, fmt.Sprintf("/api/v1/tickets/%s/history", ticketID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decodeData(t, rec)["history"].([]any)
	assert.Len(t, history, 2)
}

func TestOverfillDecisionOverHTTP(t *testing.T) {
	handler := setupRouter(t)

	contract := map[string]any{
		"contract_number":    "C-300",
		"crop":               "Corn",
		"owner":              "Karl",
		"destination":        "Elevator-A",
		"contracted_bushels": "100",
		"crop_year":          "2025",
	}
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/contracts", contract)
	require.Equal(t, http.StatusCreated, rec.Code)

	ticket := map[string]any{
		"person":            "Karl",
		"crop":              "Corn",
		"bushels":           "150",
		"delivery_location": "Elevator-A",
		"origin":            "Home farm",
		"crop_year":         "2025",
	}
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/tickets", ticket)
	require.Equal(t, http.StatusCreated, rec.Code)
	ticketID := decodeData(t, rec)["id"].(string)

	approvePath := fmt.Sprintf("/api/v1/tickets/%s/approve", ticketID)
	rec = doJSON(t, handler, http.MethodPost, approvePath, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "DECISION_REQUIRED")
	assert.Contains(t, rec.Body.String(), "remaining_bushels")

	rec = doJSON(t, handler, http.MethodPost, approvePath, map[string]any{"resolution": "spot"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := decodeData(t, rec)
	assert.Equal(t, true, data["spot_sale_created"])
}

func TestTicketTransitionOverHTTP(t *testing.T) {
	handler := setupRouter(t)

	ticket := map[string]any{"crop_year": "2025"}
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/tickets", ticket)
	require.Equal(t, http.StatusCreated, rec.Code)
	ticketID := decodeData(t, rec)["id"].(string)

	path := fmt.Sprintf("/api/v1/tickets/%s/transition", ticketID)

	rec = doJSON(t, handler, http.MethodPost, path, map[string]any{"status": "hold"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, path, map[string]any{"status": "approved"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, path, map[string]any{"status": "bogus"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContractsExportOverHTTP(t *testing.T) {
	handler := setupRouter(t)

	contract := map[string]any{
		"contract_number":    "C-400",
		"crop":               "Corn",
		"destination":        "Elevator-A",
		"contracted_bushels": "500",
		"crop_year":          "2025",
	}
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/contracts", contract)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/contracts/export?crop_year=2025", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.NotZero(t, rec.Body.Len())
}
