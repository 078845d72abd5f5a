package tickets

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prairieworks/grainledger-backend/internal/ledger"
	"github.com/prairieworks/grainledger-backend/pkg/db/models"
	"github.com/prairieworks/grainledger-backend/pkg/enums"
)

// CreateTicketInput is the ingestion-boundary record. Upstream OCR output is
// best effort, so everything except the crop year may be absent; the approval
// pre-condition is what enforces completeness later.
type CreateTicketInput struct {
	TicketNumber     *string          `json:"ticket_number"`
	DeliveryDate     *time.Time       `json:"delivery_date"`
	Person           *string          `json:"person"`
	Crop             *string          `json:"crop"`
	Bushels          decimal.Decimal  `json:"bushels"`
	DeliveryLocation *string          `json:"delivery_location"`
	Through          *string          `json:"through"`
	Elevator         *string          `json:"elevator"`
	MoisturePercent  *decimal.Decimal `json:"moisture_percent"`
	Origin           *string          `json:"origin"`
	CropYear         string           `json:"crop_year" validate:"required"`
	Notes            *string          `json:"notes"`
	ImageKey         *string          `json:"image_key"`
}

// UpdateTicketInput applies a partial update during triage; nil fields are
// untouched.
type UpdateTicketInput struct {
	TicketNumber     *string          `json:"ticket_number"`
	DeliveryDate     *time.Time       `json:"delivery_date"`
	Person           *string          `json:"person"`
	Crop             *string          `json:"crop"`
	Bushels          *decimal.Decimal `json:"bushels"`
	DeliveryLocation *string          `json:"delivery_location"`
	Through          *string          `json:"through"`
	Elevator         *string          `json:"elevator"`
	MoisturePercent  *decimal.Decimal `json:"moisture_percent"`
	Origin           *string          `json:"origin"`
	Notes            *string          `json:"notes"`
	ImageKey         *string          `json:"image_key"`
}

// ApproveTicketInput carries the optional operator decision for the overfill
// branch. Absent when the operator has not decided yet.
type ApproveTicketInput struct {
	Resolution *enums.OverfillResolution `json:"resolution"`
}

// ApproveTicketResult reports where an approved ticket landed and the
// contract's aggregate after binding.
type ApproveTicketResult struct {
	Ticket          models.Ticket   `json:"ticket"`
	Contract        models.Contract `json:"contract"`
	Totals          ledger.Totals   `json:"totals"`
	SpotSaleCreated bool            `json:"spot_sale_created"`
}

// ReassignTicketInput moves an approved ticket to a different contract.
type ReassignTicketInput struct {
	ContractID uuid.UUID `json:"contract_id" validate:"required"`
}

// TransitionTicketInput moves a ticket between review states.
type TransitionTicketInput struct {
	Status enums.TicketStatus `json:"status" validate:"required"`
}

// ListTicketsFilter narrows the ticket listing; CropYear is always required.
type ListTicketsFilter struct {
	CropYear       string
	Status         enums.TicketStatus
	Person         string
	Crop           string
	ContractID     uuid.UUID
	IncludeDeleted bool
	Limit          int
	Cursor         string
}

// ListTicketsResult is one page of tickets plus the cursor for the next.
type ListTicketsResult struct {
	Tickets    []models.Ticket `json:"tickets"`
	NextCursor string          `json:"next_cursor,omitempty"`
}
