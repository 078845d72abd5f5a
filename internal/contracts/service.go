package contracts

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prairieworks/grainledger-backend/pkg/db"
	"github.com/prairieworks/grainledger-backend/pkg/db/models"
	pkgerrors "github.com/prairieworks/grainledger-backend/pkg/errors"
	"github.com/prairieworks/grainledger-backend/pkg/logger"
	"github.com/prairieworks/grainledger-backend/pkg/pagination"
)

// Service defines operations over standing contracts.
type Service interface {
	Create(ctx context.Context, input CreateContractInput) (*models.Contract, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	List(ctx context.Context, filter ListContractsFilter) (*ListContractsResult, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateContractInput) (*models.Contract, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo   Repository
	client *db.Client
	logg   *logger.Logger
}

// NewService wires a contract service with its dependencies.
func NewService(repo Repository, client *db.Client, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("contract repository required")
	}
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, client: client, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, input CreateContractInput) (*models.Contract, error) {
	if input.ContractedBushels.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contracted bushels cannot be negative")
	}
	if input.StartDate != nil && input.EndDate != nil && input.EndDate.Before(*input.StartDate) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end date precedes start date")
	}

	through := strings.TrimSpace(input.Through)
	if through == "" {
		through = models.ThroughAny
	}
	priority := input.Priority
	if priority == 0 {
		priority = 5
	}
	if priority < 1 || priority > 10 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "priority must be between 1 and 10")
	}

	contract := &models.Contract{
		ID:                uuid.New(),
		ContractNumber:    strings.TrimSpace(input.ContractNumber),
		Crop:              strings.TrimSpace(input.Crop),
		Owner:             input.Owner,
		Destination:       strings.TrimSpace(input.Destination),
		Through:           through,
		ContractedBushels: input.ContractedBushels,
		Priority:          priority,
		OverfillAllowed:   input.OverfillAllowed,
		IsTemplate:        input.IsTemplate,
		CropYear:          strings.TrimSpace(input.CropYear),
		StartDate:         input.StartDate,
		EndDate:           input.EndDate,
		Notes:             input.Notes,
	}

	if err := s.repo.Create(ctx, contract); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "contract number already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating contract")
	}

	logCtx := s.logg.WithContractID(ctx, contract.ID.String())
	s.logg.Info(logCtx, "contract created")
	return contract, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contract id is required")
	}
	contract, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "contract not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading contract")
	}
	return contract, nil
}

func (s *service) List(ctx context.Context, filter ListContractsFilter) (*ListContractsResult, error) {
	if strings.TrimSpace(filter.CropYear) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "crop year is required")
	}

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing contracts")
	}

	limit := pagination.NormalizeLimit(filter.Limit)
	result := &ListContractsResult{}
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	result.Contracts = make([]ContractResponse, 0, len(rows))
	for _, row := range rows {
		result.Contracts = append(result.Contracts, NewContractResponse(row))
	}
	return result, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateContractInput) (*models.Contract, error) {
	contract, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Crop != nil {
		contract.Crop = strings.TrimSpace(*input.Crop)
	}
	if input.Owner != nil {
		contract.Owner = input.Owner
	}
	if input.Destination != nil {
		contract.Destination = strings.TrimSpace(*input.Destination)
	}
	if input.Through != nil {
		through := strings.TrimSpace(*input.Through)
		if through == "" {
			through = models.ThroughAny
		}
		contract.Through = through
	}
	if input.ContractedBushels != nil {
		if input.ContractedBushels.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "contracted bushels cannot be negative")
		}
		contract.ContractedBushels = *input.ContractedBushels
	}
	if input.Priority != nil {
		if *input.Priority < 1 || *input.Priority > 10 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "priority must be between 1 and 10")
		}
		contract.Priority = *input.Priority
	}
	if input.OverfillAllowed != nil {
		contract.OverfillAllowed = *input.OverfillAllowed
	}
	if input.IsTemplate != nil {
		contract.IsTemplate = *input.IsTemplate
	}
	if input.StartDate != nil {
		contract.StartDate = input.StartDate
	}
	if input.EndDate != nil {
		contract.EndDate = input.EndDate
	}
	if input.Notes != nil {
		contract.Notes = input.Notes
	}
	if contract.StartDate != nil && contract.EndDate != nil && contract.EndDate.Before(*contract.StartDate) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end date precedes start date")
	}

	if err := s.repo.Update(ctx, contract); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating contract")
	}
	return contract, nil
}

// Delete removes a contract and unbinds (never deletes) its tickets inside
// one transaction.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "contract id is required")
	}

	var unbound int64
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.GetByID(ctx, id); err != nil {
			if stdErrors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "contract not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading contract")
		}

		count, err := repo.UnbindTickets(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unbinding tickets")
		}
		unbound = count

		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting contract")
		}
		return nil
	})
	if err != nil {
		return err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"contract_id":     id.String(),
		"tickets_unbound": unbound,
	})
	s.logg.Info(logCtx, "contract deleted")
	return nil
}
