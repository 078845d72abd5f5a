package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/prairieworks/grainledger-backend/pkg/enums"
)

// Ticket records a single grain delivery event. Fields arriving from the
// ingestion/OCR boundary are nullable; the approval pre-condition enforces
// the required set before a ticket can bind to a contract.
type Ticket struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TicketNumber *string            `gorm:"column:ticket_number" json:"ticket_number,omitempty"`
	Status       enums.TicketStatus `gorm:"column:status;type:ticket_status;not null;default:'needs_review'" json:"status"`

	DeliveryDate     *time.Time       `gorm:"column:delivery_date" json:"delivery_date,omitempty"`
	Person           *string          `gorm:"column:person" json:"person,omitempty"`
	Crop             *string          `gorm:"column:crop" json:"crop,omitempty"`
	Bushels          decimal.Decimal  `gorm:"column:bushels;type:numeric(14,2);not null;default:0" json:"bushels"`
	DeliveryLocation *string          `gorm:"column:delivery_location" json:"delivery_location,omitempty"`
	Through          *string          `gorm:"column:through" json:"through,omitempty"`
	Elevator         *string          `gorm:"column:elevator" json:"elevator,omitempty"`
	MoisturePercent  *decimal.Decimal `gorm:"column:moisture_percent;type:numeric(5,2)" json:"moisture_percent,omitempty"`
	Origin           *string          `gorm:"column:origin" json:"origin,omitempty"`
	CropYear         string           `gorm:"column:crop_year;not null;index" json:"crop_year"`
	Notes            *string          `gorm:"column:notes" json:"notes,omitempty"`
	ImageKey         *string          `gorm:"column:image_key" json:"image_key,omitempty"`

	// ContractID is set exclusively by the approval flow; the schema enforces
	// that it is non-null only while status = approved.
	ContractID *uuid.UUID `gorm:"column:contract_id;type:uuid;index" json:"contract_id,omitempty"`
	ApprovedAt *time.Time `gorm:"column:approved_at" json:"approved_at,omitempty"`

	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}
