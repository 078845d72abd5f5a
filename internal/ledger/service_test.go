package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	pkgerrors "github.com/prairieworks/grainledger-backend/pkg/errors"
)

type stubLedgerRepo struct {
	sum       decimal.Decimal
	target    decimal.Decimal
	sumErr    error
	targetErr error
}

func (s *stubLedgerRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubLedgerRepo) SumApprovedBushels(ctx context.Context, contractID uuid.UUID) (decimal.Decimal, error) {
	return s.sum, s.sumErr
}

func (s *stubLedgerRepo) ContractTarget(ctx context.Context, contractID uuid.UUID) (decimal.Decimal, error) {
	return s.target, s.targetErr
}

func TestNewServiceRequiresRepo(t *testing.T) {
	_, err := NewService(nil)
	require.Error(t, err)
}

func TestRecomputeRequiresContractID(t *testing.T) {
	svc, err := NewService(&stubLedgerRepo{})
	require.NoError(t, err)

	_, err = svc.Recompute(context.Background(), uuid.Nil)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestRecomputeContractNotFound(t *testing.T) {
	svc, err := NewService(&stubLedgerRepo{targetErr: gorm.ErrRecordNotFound})
	require.NoError(t, err)

	_, err = svc.Recompute(context.Background(), uuid.New())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestRecomputeSurfacesStoreFailure(t *testing.T) {
	svc, err := NewService(&stubLedgerRepo{
		target: decimal.NewFromInt(1000),
		sumErr: errors.New("connection reset"),
	})
	require.NoError(t, err)

	_, err = svc.Recompute(context.Background(), uuid.New())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInternal, typed.Code())
}

func TestRecomputeDerivedValues(t *testing.T) {
	svc, err := NewService(&stubLedgerRepo{
		target: decimal.NewFromInt(800),
		sum:    decimal.NewFromInt(200),
	})
	require.NoError(t, err)

	totals, err := svc.Recompute(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.True(t, totals.DeliveredBushels.Equal(decimal.NewFromInt(200)))
	assert.True(t, totals.RemainingBushels.Equal(decimal.NewFromInt(600)))
	assert.True(t, totals.PercentFilled.Equal(decimal.NewFromInt(25)))
}
