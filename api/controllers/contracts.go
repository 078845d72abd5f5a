package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/prairieworks/grainledger-backend/api/responses"
	"github.com/prairieworks/grainledger-backend/api/validators"
	"github.com/prairieworks/grainledger-backend/internal/contracts"
	"github.com/prairieworks/grainledger-backend/pkg/logger"
	"github.com/prairieworks/grainledger-backend/pkg/pagination"
)

func ContractCreate(svc contracts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input contracts.CreateContractInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		contract, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, contracts.NewContractResponse(*contract))
	}
}

func ContractList(svc contracts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := parseContractListFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), *filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func parseContractListFilter(r *http.Request) (*contracts.ListContractsFilter, error) {
	cropYear, err := validators.RequireQueryCropYear(r)
	if err != nil {
		return nil, err
	}
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return nil, err
	}
	openOnly, err := validators.ParseQueryBool(r, "open_only")
	if err != nil {
		return nil, err
	}
	includeTemplates, err := validators.ParseQueryBool(r, "include_templates")
	if err != nil {
		return nil, err
	}

	return &contracts.ListContractsFilter{
		CropYear:         cropYear,
		Crop:             r.URL.Query().Get("crop"),
		OpenOnly:         openOnly,
		IncludeTemplates: includeTemplates,
		Limit:            limit,
		Cursor:           r.URL.Query().Get("cursor"),
	}, nil
}

func ContractDetail(svc contracts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "contractId"), "contract_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		contract, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, contracts.NewContractResponse(*contract))
	}
}

func ContractUpdate(svc contracts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "contractId"), "contract_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var input contracts.UpdateContractInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		contract, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, contracts.NewContractResponse(*contract))
	}
}

func ContractDelete(svc contracts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "contractId"), "contract_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
