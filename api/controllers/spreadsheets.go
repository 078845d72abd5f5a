package controllers

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prairieworks/grainledger-backend/api/responses"
	"github.com/prairieworks/grainledger-backend/api/validators"
	"github.com/prairieworks/grainledger-backend/internal/xlsx"
	pkgerrors "github.com/prairieworks/grainledger-backend/pkg/errors"
	"github.com/prairieworks/grainledger-backend/pkg/logger"
)

const (
	maxImportBytes  = 10 * 1024 * 1024
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ContractsImport accepts an xlsx workbook, either as a multipart "file" field
// or as the raw request body.
func ContractsImport(svc xlsx.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reader, cleanup, err := importReader(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer cleanup()

		result, err := svc.ImportContracts(r.Context(), reader)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func importReader(r *http.Request) (io.Reader, func(), error) {
	noop := func() {}

	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		return http.MaxBytesReader(nil, r.Body, maxImportBytes), noop, nil
	}

	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		return nil, noop, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parsing multipart form")
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, noop, pkgerrors.Wrap(pkgerrors.CodeValidation, err, `multipart field "file" is required`)
	}
	return file, func() { _ = file.Close() }, nil
}

func ContractsExport(svc xlsx.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cropYear, err := validators.RequireQueryCropYear(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		setWorkbookHeaders(w, fmt.Sprintf("contracts-%s-%s.xlsx", cropYear, time.Now().Format("20060102")))
		if err := svc.ExportContracts(r.Context(), cropYear, w); err != nil {
			// Headers are already on the wire; the truncated body is the signal.
			if logg != nil {
				logg.Error(r.Context(), "contract export failed", err)
			}
		}
	}
}

func TicketsExport(svc xlsx.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cropYear, err := validators.RequireQueryCropYear(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		setWorkbookHeaders(w, fmt.Sprintf("tickets-%s-%s.xlsx", cropYear, time.Now().Format("20060102")))
		if err := svc.ExportTickets(r.Context(), cropYear, w); err != nil {
			if logg != nil {
				logg.Error(r.Context(), "ticket export failed", err)
			}
		}
	}
}

func setWorkbookHeaders(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}
