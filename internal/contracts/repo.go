package contracts

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/prairieworks/grainledger-backend/pkg/db/models"
	"github.com/prairieworks/grainledger-backend/pkg/pagination"
)

// deliveredSubquery aggregates approved, non-deleted ticket volume per
// contract. Selected alongside contract rows so delivered_bushels is always
// derived from the ticket rows, never stored.
const deliveredSubquery = `COALESCE((SELECT SUM(t.bushels) FROM tickets t ` +
	`WHERE t.contract_id = contracts.id AND t.status = 'approved' AND t.deleted_at IS NULL), 0)`

const contractColumns = "contracts.*, " + deliveredSubquery + " AS delivered_bushels"

// Repository manages persistence for contracts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, contract *models.Contract) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	GetByNumber(ctx context.Context, number string) (*models.Contract, error)
	List(ctx context.Context, filter ListContractsFilter) ([]models.Contract, error)
	ListOpenForMatching(ctx context.Context, cropYear string, lock bool) ([]models.Contract, error)
	Update(ctx context.Context, contract *models.Contract) error
	Delete(ctx context.Context, id uuid.UUID) error
	UnbindTickets(ctx context.Context, contractID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a contract repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, contract *models.Contract) error {
	return r.db.WithContext(ctx).Create(contract).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	var contract models.Contract
	err := r.db.WithContext(ctx).
		Select(contractColumns).
		Where("contracts.id = ?", id).
		Take(&contract).Error
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

func (r *repository) GetByNumber(ctx context.Context, number string) (*models.Contract, error) {
	var contract models.Contract
	err := r.db.WithContext(ctx).
		Select(contractColumns).
		Where("contracts.contract_number = ?", number).
		Take(&contract).Error
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

func (r *repository) List(ctx context.Context, filter ListContractsFilter) ([]models.Contract, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Contract{}).
		Select(contractColumns).
		Where("contracts.crop_year = ?", filter.CropYear)

	if filter.Crop != "" {
		query = query.Where("contracts.crop = ?", filter.Crop)
	}
	if !filter.IncludeTemplates {
		query = query.Where("contracts.is_template = ?", false)
	}
	if filter.OpenOnly {
		query = query.Where(fmt.Sprintf("contracts.contracted_bushels > %s", deliveredSubquery))
	}

	cursor, err := pagination.ParseCursor(filter.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(contracts.created_at, contracts.id) < (?, ?)",
			cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Contract
	err = query.
		Order("contracts.created_at DESC").
		Order("contracts.id DESC").
		Limit(pagination.LimitWithBuffer(filter.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListOpenForMatching returns every non-template, non-spot contract for the
// crop year with its delivered aggregate. With lock set the rows are locked
// FOR UPDATE so concurrent approvals against the same contract serialize.
func (r *repository) ListOpenForMatching(ctx context.Context, cropYear string, lock bool) ([]models.Contract, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Contract{}).
		Select(contractColumns).
		Where("contracts.crop_year = ?", cropYear).
		Where("contracts.is_template = ?", false).
		Where("contracts.is_spot_sale = ?", false)

	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: "contracts"}})
	}

	var rows []models.Contract
	if err := query.Order("contracts.contract_number ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Update(ctx context.Context, contract *models.Contract) error {
	return r.db.WithContext(ctx).Save(contract).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Contract{}, "id = ?", id).Error
}

// UnbindTickets clears contract_id on every ticket bound to the contract,
// soft-deleted ones included so a later restore cannot resurrect a dangling
// reference. Returns how many rows were touched.
func (r *repository) UnbindTickets(ctx context.Context, contractID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Unscoped().
		Model(&models.Ticket{}).
		Where("contract_id = ?", contractID).
		Update("contract_id", nil)
	return result.RowsAffected, result.Error
}
