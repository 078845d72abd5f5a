package xlsx

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/prairieworks/grainledger-backend/internal/contracts"
	"github.com/prairieworks/grainledger-backend/internal/tickets"
	pkgerrors "github.com/prairieworks/grainledger-backend/pkg/errors"
	"github.com/prairieworks/grainledger-backend/pkg/logger"
	"github.com/prairieworks/grainledger-backend/pkg/pagination"
)

const (
	contractsSheet = "Contracts"
	ticketsSheet   = "Tickets"
	dateLayout     = "2006-01-02"
)

var contractHeaders = []string{
	"contract_number", "crop", "owner", "destination", "through",
	"contracted_bushels", "priority", "overfill_allowed", "crop_year",
	"start_date", "end_date", "notes",
}

var ticketHeaders = []string{
	"ticket_number", "status", "delivery_date", "person", "crop", "bushels",
	"delivery_location", "through", "elevator", "moisture_percent", "origin",
	"crop_year", "contract_id", "notes",
}

// RowError records why one spreadsheet row was skipped during import.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportResult summarizes a bulk contract import.
type ImportResult struct {
	Imported int        `json:"imported"`
	Skipped  []RowError `json:"skipped,omitempty"`
}

// Service handles bulk contract import and ticket/contract export as xlsx
// workbooks. Import goes through the contract service so every row gets the
// same validation as the API surface.
type Service interface {
	ImportContracts(ctx context.Context, r io.Reader) (*ImportResult, error)
	ExportContracts(ctx context.Context, cropYear string, w io.Writer) error
	ExportTickets(ctx context.Context, cropYear string, w io.Writer) error
}

type service struct {
	contracts contracts.Service
	tickets   tickets.Service
	logg      *logger.Logger
}

// NewService wires the spreadsheet service.
func NewService(contractsSvc contracts.Service, ticketsSvc tickets.Service, logg *logger.Logger) (Service, error) {
	if contractsSvc == nil {
		return nil, fmt.Errorf("contract service required")
	}
	if ticketsSvc == nil {
		return nil, fmt.Errorf("ticket service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{contracts: contractsSvc, tickets: ticketsSvc, logg: logg}, nil
}

func (s *service) ImportContracts(ctx context.Context, r io.Reader) (*ImportResult, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reading workbook")
	}
	defer book.Close()

	sheet := contractsSheet
	if !sheetExists(book, sheet) {
		sheet = book.GetSheetName(0)
	}

	rows, err := book.GetRows(sheet)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reading sheet rows")
	}
	if len(rows) < 2 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "workbook has no data rows")
	}

	result := &ImportResult{}
	for i, row := range rows[1:] {
		rowNum := i + 2
		input, err := parseContractRow(row)
		if err != nil {
			result.Skipped = append(result.Skipped, RowError{Row: rowNum, Message: err.Error()})
			continue
		}
		if _, err := s.contracts.Create(ctx, *input); err != nil {
			message := err.Error()
			if typed := pkgerrors.As(err); typed != nil {
				message = typed.Message()
			}
			result.Skipped = append(result.Skipped, RowError{Row: rowNum, Message: message})
			continue
		}
		result.Imported++
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"imported": result.Imported,
		"skipped":  len(result.Skipped),
	})
	s.logg.Info(logCtx, "contract import finished")
	return result, nil
}

func sheetExists(book *excelize.File, name string) bool {
	for _, sheet := range book.GetSheetList() {
		if sheet == name {
			return true
		}
	}
	return false
}

func parseContractRow(row []string) (*contracts.CreateContractInput, error) {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	input := &contracts.CreateContractInput{
		ContractNumber: cell(0),
		Crop:           cell(1),
		Destination:    cell(3),
		Through:        cell(4),
		CropYear:       cell(8),
	}
	if input.ContractNumber == "" {
		return nil, fmt.Errorf("contract_number is required")
	}
	if input.Crop == "" {
		return nil, fmt.Errorf("crop is required")
	}
	if input.Destination == "" {
		return nil, fmt.Errorf("destination is required")
	}
	if input.CropYear == "" {
		return nil, fmt.Errorf("crop_year is required")
	}

	if owner := cell(2); owner != "" {
		input.Owner = &owner
	}
	if raw := cell(5); raw != "" {
		bushels, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid contracted_bushels %q", raw)
		}
		input.ContractedBushels = bushels
	}
	if raw := cell(6); raw != "" {
		priority, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid priority %q", raw)
		}
		input.Priority = priority
	}
	if raw := cell(7); raw != "" {
		overfill, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid overfill_allowed %q", raw)
		}
		input.OverfillAllowed = overfill
	}
	if raw := cell(9); raw != "" {
		start, err := time.Parse(dateLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid start_date %q", raw)
		}
		input.StartDate = &start
	}
	if raw := cell(10); raw != "" {
		end, err := time.Parse(dateLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid end_date %q", raw)
		}
		input.EndDate = &end
	}
	if notes := cell(11); notes != "" {
		input.Notes = &notes
	}
	return input, nil
}

func (s *service) ExportContracts(ctx context.Context, cropYear string, w io.Writer) error {
	book := excelize.NewFile()
	defer book.Close()

	sheet := book.GetSheetName(0)
	if err := book.SetSheetName(sheet, contractsSheet); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "naming sheet")
	}
	sheet = contractsSheet

	exportHeaders := append(append([]string{}, contractHeaders...),
		"delivered_bushels", "remaining_bushels", "percent_filled")
	writeHeaderRow(book, sheet, exportHeaders)

	rowNum := 2
	cursor := ""
	for {
		page, err := s.contracts.List(ctx, contracts.ListContractsFilter{
			CropYear:         cropYear,
			IncludeTemplates: true,
			Limit:            pagination.MaxLimit,
			Cursor:           cursor,
		})
		if err != nil {
			return err
		}
		for _, contract := range page.Contracts {
			values := []any{
				contract.ContractNumber,
				contract.Crop,
				derefString(contract.Owner),
				contract.Destination,
				contract.Through,
				contract.ContractedBushels.String(),
				contract.Priority,
				contract.OverfillAllowed,
				contract.CropYear,
				formatDate(contract.StartDate),
				formatDate(contract.EndDate),
				derefString(contract.Notes),
				contract.DeliveredBushels.String(),
				contract.RemainingBushels.String(),
				contract.PercentFilled.Round(2).String(),
			}
			writeRow(book, sheet, rowNum, values)
			rowNum++
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	return writeBook(book, w)
}

func (s *service) ExportTickets(ctx context.Context, cropYear string, w io.Writer) error {
	book := excelize.NewFile()
	defer book.Close()

	sheet := book.GetSheetName(0)
	if err := book.SetSheetName(sheet, ticketsSheet); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "naming sheet")
	}
	sheet = ticketsSheet

	writeHeaderRow(book, sheet, ticketHeaders)

	rowNum := 2
	cursor := ""
	for {
		page, err := s.tickets.List(ctx, tickets.ListTicketsFilter{
			CropYear: cropYear,
			Limit:    pagination.MaxLimit,
			Cursor:   cursor,
		})
		if err != nil {
			return err
		}
		for _, ticket := range page.Tickets {
			contractID := ""
			if ticket.ContractID != nil {
				contractID = ticket.ContractID.String()
			}
			moisture := ""
			if ticket.MoisturePercent != nil {
				moisture = ticket.MoisturePercent.String()
			}
			values := []any{
				derefString(ticket.TicketNumber),
				ticket.Status.String(),
				formatDate(ticket.DeliveryDate),
				derefString(ticket.Person),
				derefString(ticket.Crop),
				ticket.Bushels.String(),
				derefString(ticket.DeliveryLocation),
				derefString(ticket.Through),
				derefString(ticket.Elevator),
				moisture,
				derefString(ticket.Origin),
				ticket.CropYear,
				contractID,
				derefString(ticket.Notes),
			}
			writeRow(book, sheet, rowNum, values)
			rowNum++
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	return writeBook(book, w)
}

func writeHeaderRow(book *excelize.File, sheet string, headers []string) {
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = book.SetCellValue(sheet, cell, header)
	}
}

func writeRow(book *excelize.File, sheet string, row int, values []any) {
	for i, value := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = book.SetCellValue(sheet, cell, value)
	}
}

func writeBook(book *excelize.File, w io.Writer) error {
	if err := book.Write(w); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "writing workbook")
	}
	return nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}
