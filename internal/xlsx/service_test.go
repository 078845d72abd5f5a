package xlsx

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/prairieworks/grainledger-backend/internal/audit"
	"github.com/prairieworks/grainledger-backend/internal/contracts"
	"github.com/prairieworks/grainledger-backend/internal/ledger"
	"github.com/prairieworks/grainledger-backend/internal/tickets"
	"github.com/prairieworks/grainledger-backend/pkg/db"
	"github.com/prairieworks/grainledger-backend/pkg/logger"
	"github.com/prairieworks/grainledger-backend/pkg/outbox"
)

func setupXLSXService(t *testing.T) (Service, contracts.Service, tickets.Service) {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schemas := []string{`
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
	for _, schema := range schemas {
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

	svc, err := NewService(contractsSvc, ticketsSvc, logg)
	require.NoError(t, err)
	return svc, contractsSvc, ticketsSvc
}

func buildContractWorkbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()

	book := excelize.NewFile()
	sheet := book.GetSheetName(0)
	require.NoError(t, book.SetSheetName(sheet, contractsSheet))

	for i, header := range contractHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		require.NoError(t, err)
		require.NoError(t, book.SetCellValue(contractsSheet, cell, header))
	}
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			require.NoError(t, err)
			require.NoError(t, book.SetCellValue(contractsSheet, cell, value))
		}
	}

	var buf bytes.Buffer
	require.NoError(t, book.Write(&buf))
	return &buf
}

func TestImportContracts(t *testing.T) {
	svc, contractsSvc, _ := setupXLSXService(t)
	ctx := context.Background()

	buf := buildContractWorkbook(t, [][]any{
		{"C-100", "Corn", "Karl", "Elevator-A", "Akron", "1000", "3", "false", "2025", "2025-04-01", "2025-11-01", "fall delivery"},
		{"C-200", "Soybeans", "Anthony", "Cargill-Lacon", "", "500", "", "true", "2025", "", "", ""},
		{"", "Corn", "", "Elevator-A", "", "10", "", "", "2025", "", "", ""},
		{"C-300", "Corn", "", "Elevator-A", "", "not-a-number", "", "", "2025", "", "", ""},
	})

	result, err := svc.ImportContracts(ctx, buf)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	require.Len(t, result.Skipped, 2)
	assert.Equal(t, 3, result.Skipped[0].Row)
	assert.Equal(t, 4, result.Skipped[1].Row)

	page, err := contractsSvc.List(ctx, contracts.ListContractsFilter{CropYear: "2025"})
	require.NoError(t, err)
	assert.Len(t, page.Contracts, 2)

	// Defaults applied through the same path as the API.
	for _, contract := range page.Contracts {
		if contract.ContractNumber == "C-200" {
			assert.Equal(t, "Any", contract.Through)
			assert.Equal(t, 5, contract.Priority)
			assert.True(t, contract.OverfillAllowed)
		}
	}
}

func TestImportContractsSkipsDuplicates(t *testing.T) {
	svc, _, _ := setupXLSXService(t)
	ctx := context.Background()

	buf := buildContractWorkbook(t, [][]any{
		{"C-DUP", "Corn", "", "Elevator-A", "", "1000", "", "", "2025", "", "", ""},
		{"C-DUP", "Corn", "", "Elevator-A", "", "1000", "", "", "2025", "", "", ""},
	})

	result, err := svc.ImportContracts(ctx, buf)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	require.Len(t, result.Skipped, 1)
	assert.Contains(t, result.Skipped[0].Message, "already exists")
}

func TestExportContractsRoundTrip(t *testing.T) {
	svc, contractsSvc, _ := setupXLSXService(t)
	ctx := context.Background()

	_, err := contractsSvc.Create(ctx, contracts.CreateContractInput{
		ContractNumber:    "C-EXP",
		Crop:              "Corn",
		Destination:       "Elevator-A",
		ContractedBushels: decimal.NewFromInt(1000),
		CropYear:          "2025",
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportContracts(ctx, "2025", &buf))

	book, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer book.Close()

	rows, err := book.GetRows(contractsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "contract_number", rows[0][0])
	assert.Equal(t, "C-EXP", rows[1][0])
	assert.Equal(t, "1000", rows[1][5])
}

func TestExportTickets(t *testing.T) {
	svc, _, ticketsSvc := setupXLSXService(t)
	ctx := context.Background()

	person := "Karl"
	crop := "Corn"
	_, err := ticketsSvc.Ingest(ctx, tickets.CreateTicketInput{
		Person:   &person,
		Crop:     &crop,
		Bushels:  decimal.NewFromInt(120),
		CropYear: "2025",
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportTickets(ctx, "2025", &buf))

	book, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer book.Close()

	rows, err := book.GetRows(ticketsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "needs_review", rows[1][1])
	assert.Equal(t, "Karl", rows[1][3])
	assert.Equal(t, "120", rows[1][5])
}
