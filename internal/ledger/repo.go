package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/prairieworks/grainledger-backend/pkg/db/models"
	"github.com/prairieworks/grainledger-backend/pkg/enums"
)

// Repository reads the rows a contract's fulfillment aggregate derives from.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	SumApprovedBushels(ctx context.Context, contractID uuid.UUID) (decimal.Decimal, error)
	ContractTarget(ctx context.Context, contractID uuid.UUID) (decimal.Decimal, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// SumApprovedBushels re-aggregates delivered volume from the ticket rows.
// Soft-deleted tickets are excluded by the gorm soft-delete scope.
func (r *repository) SumApprovedBushels(ctx context.Context, contractID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("contract_id = ? AND status = ?", contractID, enums.TicketStatusApproved).
		Select("COALESCE(SUM(bushels), 0)").
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

func (r *repository) ContractTarget(ctx context.Context, contractID uuid.UUID) (decimal.Decimal, error) {
	var contract models.Contract
	err := r.db.WithContext(ctx).
		Select("id", "contracted_bushels").
		Where("id = ?", contractID).
		Take(&contract).Error
	if err != nil {
		return decimal.Zero, err
	}
	return contract.ContractedBushels, nil
}
