package ledger

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	pkgerrors "github.com/prairieworks/grainledger-backend/pkg/errors"
)

// Totals is a contract's fulfillment aggregate, recomputed in full from the
// approved ticket rows rather than patched incrementally. Remaining goes
// negative when a contract is overfilled; percent is unclamped.
type Totals struct {
	DeliveredBushels decimal.Decimal `json:"delivered_bushels"`
	RemainingBushels decimal.Decimal `json:"remaining_bushels"`
	PercentFilled    decimal.Decimal `json:"percent_filled"`
}

// Service recomputes contract fulfillment aggregates.
//
// Recompute must run inside the same transaction as the ticket mutation that
// triggers it; callers obtain a transactional view via WithTx. Running it
// twice without an intervening mutation yields identical results, which is
// what makes retry-after-conflict safe.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Recompute(ctx context.Context, contractID uuid.UUID) (Totals, error)
}

type service struct {
	repo Repository
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) Recompute(ctx context.Context, contractID uuid.UUID) (Totals, error) {
	if contractID == uuid.Nil {
		return Totals{}, pkgerrors.New(pkgerrors.CodeValidation, "contract id is required")
	}

	target, err := s.repo.ContractTarget(ctx, contractID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return Totals{}, pkgerrors.New(pkgerrors.CodeNotFound, "contract not found")
		}
		return Totals{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading contract target")
	}

	delivered, err := s.repo.SumApprovedBushels(ctx, contractID)
	if err != nil {
		return Totals{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "summing delivered bushels")
	}

	totals := Totals{
		DeliveredBushels: delivered,
		RemainingBushels: target.Sub(delivered),
	}
	if !target.IsZero() {
		totals.PercentFilled = delivered.Div(target).Mul(decimal.NewFromInt(100))
	}
	return totals, nil
}
