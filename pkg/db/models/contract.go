package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ThroughAny is the wildcard routing preference matching any delivery route.
const ThroughAny = "Any"

// Contract is a standing commitment to deliver a crop quantity to a destination.
//
// DeliveredBushels is a read-only aggregate selected by repository queries
// (COALESCE'd SUM over approved, non-deleted bound tickets). It is never
// written to the contracts table; remaining and percent-filled figures are
// derived from it on read so totals can never drift from the ticket rows.
type Contract struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ContractNumber    string          `gorm:"column:contract_number;not null;uniqueIndex" json:"contract_number"`
	Crop              string          `gorm:"column:crop;not null" json:"crop"`
	Owner             *string         `gorm:"column:owner" json:"owner,omitempty"`
	Destination       string          `gorm:"column:destination;not null" json:"destination"`
	Through           string          `gorm:"column:through;not null;default:'Any'" json:"through"`
	ContractedBushels decimal.Decimal `gorm:"column:contracted_bushels;type:numeric(14,2);not null;default:0" json:"contracted_bushels"`
	Priority          int             `gorm:"column:priority;not null;default:5" json:"priority"`
	OverfillAllowed   bool            `gorm:"column:overfill_allowed;not null;default:false" json:"overfill_allowed"`
	IsTemplate        bool            `gorm:"column:is_template;not null;default:false" json:"is_template"`
	IsSpotSale        bool            `gorm:"column:is_spot_sale;not null;default:false" json:"is_spot_sale"`
	CropYear          string          `gorm:"column:crop_year;not null;index" json:"crop_year"`
	StartDate         *time.Time      `gorm:"column:start_date" json:"start_date,omitempty"`
	EndDate           *time.Time      `gorm:"column:end_date" json:"end_date,omitempty"`
	Notes             *string         `gorm:"column:notes" json:"notes,omitempty"`

	DeliveredBushels decimal.Decimal `gorm:"column:delivered_bushels;->" json:"delivered_bushels"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// RemainingBushels is the contracted target minus delivered volume. Negative
// when a contract has been overfilled.
func (c Contract) RemainingBushels() decimal.Decimal {
	return c.ContractedBushels.Sub(c.DeliveredBushels)
}

// PercentFilled is delivered/contracted expressed as a percentage. Contracts
// with a zero target (spot sales) report 0 by convention.
func (c Contract) PercentFilled() decimal.Decimal {
	if c.ContractedBushels.IsZero() {
		return decimal.Zero
	}
	return c.DeliveredBushels.
		Div(c.ContractedBushels).
		Mul(decimal.NewFromInt(100))
}

// DisplayPercentFilled clamps the derived fill percentage to [0, 100] for
// presentation; the underlying value may legitimately exceed 100.
func (c Contract) DisplayPercentFilled() decimal.Decimal {
	pct := c.PercentFilled()
	hundred := decimal.NewFromInt(100)
	if pct.GreaterThan(hundred) {
		return hundred
	}
	if pct.IsNegative() {
		return decimal.Zero
	}
	return pct
}
