package audit

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/prairieworks/grainledger-backend/pkg/db/models"
	"github.com/prairieworks/grainledger-backend/pkg/enums"
)

type stubAuditRepo struct {
	created []models.AuditRecord
	listed  []models.AuditRecord
}

func (s *stubAuditRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubAuditRepo) Create(ctx context.Context, record *models.AuditRecord) error {
	s.created = append(s.created, *record)
	return nil
}

func (s *stubAuditRepo) ListByTicketID(ctx context.Context, ticketID uuid.UUID) ([]models.AuditRecord, error) {
	return s.listed, nil
}

func TestRecordChange(t *testing.T) {
	repo := &stubAuditRepo{}
	svc, err := NewService(repo)
	require.NoError(t, err)

	ticketID := uuid.New()
	before := map[string]string{"status": "needs_review"}
	after := map[string]string{"status": "approved"}

	require.NoError(t, svc.RecordChange(context.Background(), ticketID, enums.AuditActionApprove, before, after))
	require.Len(t, repo.created, 1)

	record := repo.created[0]
	assert.Equal(t, ticketID, record.TicketID)
	assert.Equal(t, enums.AuditActionApprove, record.Action)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(record.Before, &decoded))
	assert.Equal(t, "needs_review", decoded["status"])
	require.NoError(t, json.Unmarshal(record.After, &decoded))
	assert.Equal(t, "approved", decoded["status"])
}

func TestRecordChangeNilSnapshots(t *testing.T) {
	repo := &stubAuditRepo{}
	svc, err := NewService(repo)
	require.NoError(t, err)

	require.NoError(t, svc.RecordChange(context.Background(), uuid.New(), enums.AuditActionCreate, nil, map[string]string{"crop": "Corn"}))
	require.Len(t, repo.created, 1)
	assert.Nil(t, repo.created[0].Before)
	assert.NotNil(t, repo.created[0].After)
}

func TestRecordChangeValidation(t *testing.T) {
	svc, err := NewService(&stubAuditRepo{})
	require.NoError(t, err)

	assert.Error(t, svc.RecordChange(context.Background(), uuid.Nil, enums.AuditActionCreate, nil, nil))
	assert.Error(t, svc.RecordChange(context.Background(), uuid.New(), enums.AuditAction("bogus"), nil, nil))
}
