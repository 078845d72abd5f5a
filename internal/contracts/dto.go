package contracts

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/prairieworks/grainledger-backend/pkg/db/models"
)

// CreateContractInput captures the fields for a new standing contract.
type CreateContractInput struct {
	ContractNumber    string          `json:"contract_number" validate:"required"`
	Crop              string          `json:"crop" validate:"required"`
	Owner             *string         `json:"owner"`
	Destination       string          `json:"destination" validate:"required"`
	Through           string          `json:"through"`
	ContractedBushels decimal.Decimal `json:"contracted_bushels"`
	Priority          int             `json:"priority" validate:"omitempty,min=1,max=10"`
	OverfillAllowed   bool            `json:"overfill_allowed"`
	IsTemplate        bool            `json:"is_template"`
	CropYear          string          `json:"crop_year" validate:"required"`
	StartDate         *time.Time      `json:"start_date"`
	EndDate           *time.Time      `json:"end_date"`
	Notes             *string         `json:"notes"`
}

// UpdateContractInput applies a partial update; nil fields are untouched.
type UpdateContractInput struct {
	Crop              *string          `json:"crop"`
	Owner             *string          `json:"owner"`
	Destination       *string          `json:"destination"`
	Through           *string          `json:"through"`
	ContractedBushels *decimal.Decimal `json:"contracted_bushels"`
	Priority          *int             `json:"priority" validate:"omitempty,min=1,max=10"`
	OverfillAllowed   *bool            `json:"overfill_allowed"`
	IsTemplate        *bool            `json:"is_template"`
	StartDate         *time.Time       `json:"start_date"`
	EndDate           *time.Time       `json:"end_date"`
	Notes             *string          `json:"notes"`
}

// ListContractsFilter narrows the contract listing. CropYear is always
// required; global "current crop year" state is deliberately not a thing.
type ListContractsFilter struct {
	CropYear         string
	Crop             string
	OpenOnly         bool
	IncludeTemplates bool
	Limit            int
	Cursor           string
}

// ListContractsResult is one page of contracts plus the cursor for the next.
type ListContractsResult struct {
	Contracts  []ContractResponse `json:"contracts"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

// ContractResponse is a contract with its derived fulfillment figures
// materialized for the boundary.
type ContractResponse struct {
	models.Contract
	RemainingBushels     decimal.Decimal `json:"remaining_bushels"`
	PercentFilled        decimal.Decimal `json:"percent_filled"`
	DisplayPercentFilled decimal.Decimal `json:"display_percent_filled"`
}

// NewContractResponse derives the read-side aggregate fields.
func NewContractResponse(c models.Contract) ContractResponse {
	return ContractResponse{
		Contract:             c,
		RemainingBushels:     c.RemainingBushels(),
		PercentFilled:        c.PercentFilled(),
		DisplayPercentFilled: c.DisplayPercentFilled(),
	}
}
