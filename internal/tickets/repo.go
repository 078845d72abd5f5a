package tickets

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/prairieworks/grainledger-backend/pkg/db/models"
	"github.com/prairieworks/grainledger-backend/pkg/pagination"
)

// Repository manages persistence for delivery tickets.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, ticket *models.Ticket) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
	// GetForUpdate loads the ticket with a row lock when the dialect
	// supports one, so concurrent mutations of the same ticket serialize.
	GetForUpdate(ctx context.Context, id uuid.UUID, lock bool) (*models.Ticket, error)
	// GetUnscoped loads the ticket whether or not it is soft-deleted.
	GetUnscoped(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
	List(ctx context.Context, filter ListTicketsFilter) ([]models.Ticket, error)
	Update(ctx context.Context, ticket *models.Ticket) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	Restore(ctx context.Context, id uuid.UUID) error
	HardDelete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ticket repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, ticket *models.Ticket) error {
	return r.db.WithContext(ctx).Create(ticket).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&ticket).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *repository) GetForUpdate(ctx context.Context, id uuid.UUID, lock bool) (*models.Ticket, error) {
	query := r.db.WithContext(ctx)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var ticket models.Ticket
	if err := query.Where("id = ?", id).Take(&ticket).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *repository) GetUnscoped(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := r.db.WithContext(ctx).Unscoped().Where("id = ?", id).Take(&ticket).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *repository) List(ctx context.Context, filter ListTicketsFilter) ([]models.Ticket, error) {
	query := r.db.WithContext(ctx).Model(&models.Ticket{})
	if filter.IncludeDeleted {
		query = query.Unscoped()
	}
	query = query.Where("crop_year = ?", filter.CropYear)

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Person != "" {
		query = query.Where("person = ?", filter.Person)
	}
	if filter.Crop != "" {
		query = query.Where("crop = ?", filter.Crop)
	}
	if filter.ContractID != uuid.Nil {
		query = query.Where("contract_id = ?", filter.ContractID)
	}

	cursor, err := pagination.ParseCursor(filter.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Ticket
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(filter.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Update(ctx context.Context, ticket *models.Ticket) error {
	return r.db.WithContext(ctx).Save(ticket).Error
}

func (r *repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Ticket{}, "id = ?", id).Error
}

func (r *repository) Restore(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Unscoped().
		Model(&models.Ticket{}).
		Where("id = ?", id).
		Update("deleted_at", nil).Error
}

// HardDelete removes the ticket row for good. Audit rows are removed in the
// same statement batch; the Postgres FK cascade covers this too, but doing it
// here keeps the behavior identical across backends.
func (r *repository) HardDelete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Where("ticket_id = ?", id).
		Delete(&models.AuditRecord{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Unscoped().
		Delete(&models.Ticket{}, "id = ?", id).Error
}
