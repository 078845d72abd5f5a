package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prairieworks/grainledger-backend/pkg/db/models"
	"github.com/prairieworks/grainledger-backend/pkg/enums"
)

// Service appends immutable audit entries for ticket mutations. RecordChange
// is called inside the transaction performing the mutation so the trail and
// the change commit or roll back together.
type Service interface {
	WithTx(tx *gorm.DB) Service
	RecordChange(ctx context.Context, ticketID uuid.UUID, action enums.AuditAction, before, after any) error
	History(ctx context.Context, ticketID uuid.UUID) ([]models.AuditRecord, error)
}

type service struct {
	repo Repository
}

// NewService wires an audit service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) RecordChange(ctx context.Context, ticketID uuid.UUID, action enums.AuditAction, before, after any) error {
	if ticketID == uuid.Nil {
		return fmt.Errorf("ticket id is required")
	}
	if !action.IsValid() {
		return fmt.Errorf("invalid audit action %q", action)
	}

	record := &models.AuditRecord{
		ID:       uuid.New(),
		TicketID: ticketID,
		Action:   action,
	}

	if before != nil {
		snapshot, err := json.Marshal(before)
		if err != nil {
			return fmt.Errorf("marshaling before snapshot: %w", err)
		}
		record.Before = snapshot
	}
	if after != nil {
		snapshot, err := json.Marshal(after)
		if err != nil {
			return fmt.Errorf("marshaling after snapshot: %w", err)
		}
		record.After = snapshot
	}

	return s.repo.Create(ctx, record)
}

func (s *service) History(ctx context.Context, ticketID uuid.UUID) ([]models.AuditRecord, error) {
	if ticketID == uuid.Nil {
		return nil, fmt.Errorf("ticket id is required")
	}
	return s.repo.ListByTicketID(ctx, ticketID)
}
