package tickets

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/prairieworks/grainledger-backend/internal/allocation"
	"github.com/prairieworks/grainledger-backend/internal/audit"
	"github.com/prairieworks/grainledger-backend/internal/contracts"
	"github.com/prairieworks/grainledger-backend/internal/ledger"
	"github.com/prairieworks/grainledger-backend/pkg/db"
	"github.com/prairieworks/grainledger-backend/pkg/db/models"
	"github.com/prairieworks/grainledger-backend/pkg/enums"
	pkgerrors "github.com/prairieworks/grainledger-backend/pkg/errors"
	"github.com/prairieworks/grainledger-backend/pkg/logger"
	"github.com/prairieworks/grainledger-backend/pkg/metrics"
	"github.com/prairieworks/grainledger-backend/pkg/outbox"
	"github.com/prairieworks/grainledger-backend/pkg/pagination"
)

// Service governs the delivery ticket lifecycle. Approve is the only
// operation that runs the allocation pipeline; every other transition is a
// plain field update.
type Service interface {
	Ingest(ctx context.Context, input CreateTicketInput) (*models.Ticket, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
	List(ctx context.Context, filter ListTicketsFilter) (*ListTicketsResult, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateTicketInput) (*models.Ticket, error)
	Approve(ctx context.Context, id uuid.UUID, input ApproveTicketInput) (*ApproveTicketResult, error)
	Transition(ctx context.Context, id uuid.UUID, target enums.TicketStatus) (*models.Ticket, error)
	Reassign(ctx context.Context, id uuid.UUID, contractID uuid.UUID) (*models.Ticket, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	Restore(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
	HardDelete(ctx context.Context, id uuid.UUID) error
	History(ctx context.Context, id uuid.UUID) ([]models.AuditRecord, error)
}

type service struct {
	repo      Repository
	contracts contracts.Repository
	ledger    ledger.Service
	audit     audit.Service
	outbox    *outbox.Service
	client    *db.Client
	logg      *logger.Logger
	metrics   *metrics.AllocationMetrics
}

// NewService wires a ticket service with its dependencies. The metrics sink
// may be nil (counters become no-ops); everything else is required.
func NewService(
	repo Repository,
	contractsRepo contracts.Repository,
	ledgerSvc ledger.Service,
	auditSvc audit.Service,
	outboxSvc *outbox.Service,
	client *db.Client,
	logg *logger.Logger,
	allocMetrics *metrics.AllocationMetrics,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ticket repository required")
	}
	if contractsRepo == nil {
		return nil, fmt.Errorf("contract repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if auditSvc == nil {
		return nil, fmt.Errorf("audit service required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      repo,
		contracts: contractsRepo,
		ledger:    ledgerSvc,
		audit:     auditSvc,
		outbox:    outboxSvc,
		client:    client,
		logg:      logg,
		metrics:   allocMetrics,
	}, nil
}

// allowedTransitions covers every non-approval move. Nothing leaves approved.
var allowedTransitions = map[enums.TicketStatus][]enums.TicketStatus{
	enums.TicketStatusNeedsReview: {enums.TicketStatusRejected, enums.TicketStatusHold},
	enums.TicketStatusRejected:    {enums.TicketStatusNeedsReview, enums.TicketStatusHold},
	enums.TicketStatusHold:        {enums.TicketStatusNeedsReview, enums.TicketStatusRejected},
	enums.TicketStatusApproved:    {},
}

func transitionAllowed(from, to enums.TicketStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

func (s *service) Ingest(ctx context.Context, input CreateTicketInput) (*models.Ticket, error) {
	if strings.TrimSpace(input.CropYear) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "crop year is required")
	}
	if input.Bushels.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bushels cannot be negative")
	}

	ticket := &models.Ticket{
		ID:               uuid.New(),
		TicketNumber:     input.TicketNumber,
		Status:           enums.TicketStatusNeedsReview,
		DeliveryDate:     input.DeliveryDate,
		Person:           input.Person,
		Crop:             input.Crop,
		Bushels:          input.Bushels,
		DeliveryLocation: input.DeliveryLocation,
		Through:          input.Through,
		Elevator:         input.Elevator,
		MoisturePercent:  input.MoisturePercent,
		Origin:           input.Origin,
		CropYear:         strings.TrimSpace(input.CropYear),
		Notes:            input.Notes,
		ImageKey:         input.ImageKey,
	}

	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, ticket); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating ticket")
		}
		return s.audit.WithTx(tx).RecordChange(ctx, ticket.ID, enums.AuditActionCreate, nil, ticket)
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithTicketID(ctx, ticket.ID.String())
	s.logg.Info(logCtx, "ticket ingested")
	return ticket, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket id is required")
	}
	ticket, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading ticket")
	}
	return ticket, nil
}

func (s *service) List(ctx context.Context, filter ListTicketsFilter) (*ListTicketsResult, error) {
	if strings.TrimSpace(filter.CropYear) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "crop year is required")
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid ticket status filter")
	}

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing tickets")
	}

	limit := pagination.NormalizeLimit(filter.Limit)
	result := &ListTicketsResult{}
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	result.Tickets = rows
	return result, nil
}

// Update applies triage edits. Editing an approved ticket's allocation fields
// does not re-match it; the bound contract's aggregate is recomputed in the
// same transaction so totals stay exact.
func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateTicketInput) (*models.Ticket, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket id is required")
	}

	var updated *models.Ticket
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ticket, err := repo.GetForUpdate(ctx, id, db.SupportsRowLocks(tx))
		if err != nil {
			if stdErrors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading ticket")
		}

		before := *ticket
		allocationFieldsChanged := applyTicketUpdate(ticket, input)

		if ticket.Bushels.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "bushels cannot be negative")
		}
		if ticket.Status == enums.TicketStatusApproved && !ticket.Bushels.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "approved tickets require bushels > 0")
		}

		if err := repo.Update(ctx, ticket); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating ticket")
		}

		if allocationFieldsChanged && ticket.Status == enums.TicketStatusApproved && ticket.ContractID != nil {
			if _, err := s.ledger.WithTx(tx).Recompute(ctx, *ticket.ContractID); err != nil {
				return err
			}
		}

		if err := s.audit.WithTx(tx).RecordChange(ctx, ticket.ID, enums.AuditActionUpdate, before, ticket); err != nil {
			return err
		}

		updated = ticket
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// applyTicketUpdate copies non-nil fields onto the ticket and reports whether
// any field the allocation pipeline keys on changed.
func applyTicketUpdate(ticket *models.Ticket, input UpdateTicketInput) bool {
	allocationChanged := false

	if input.TicketNumber != nil {
		ticket.TicketNumber = input.TicketNumber
	}
	if input.DeliveryDate != nil {
		ticket.DeliveryDate = input.DeliveryDate
	}
	if input.Person != nil {
		ticket.Person = input.Person
		allocationChanged = true
	}
	if input.Crop != nil {
		ticket.Crop = input.Crop
		allocationChanged = true
	}
	if input.Bushels != nil {
		if !ticket.Bushels.Equal(*input.Bushels) {
			allocationChanged = true
		}
		ticket.Bushels = *input.Bushels
	}
	if input.DeliveryLocation != nil {
		ticket.DeliveryLocation = input.DeliveryLocation
		allocationChanged = true
	}
	if input.Through != nil {
		ticket.Through = input.Through
		allocationChanged = true
	}
	if input.Elevator != nil {
		ticket.Elevator = input.Elevator
	}
	if input.MoisturePercent != nil {
		ticket.MoisturePercent = input.MoisturePercent
	}
	if input.Origin != nil {
		ticket.Origin = input.Origin
	}
	if input.Notes != nil {
		ticket.Notes = input.Notes
	}
	if input.ImageKey != nil {
		ticket.ImageKey = input.ImageKey
	}
	return allocationChanged
}

// approvalFieldErrors returns the field-level failures blocking approval.
func approvalFieldErrors(ticket *models.Ticket) map[string]string {
	missing := map[string]string{}
	if ticket.Person == nil || strings.TrimSpace(*ticket.Person) == "" {
		missing["person"] = "required"
	}
	if ticket.Crop == nil || strings.TrimSpace(*ticket.Crop) == "" {
		missing["crop"] = "required"
	}
	if !ticket.Bushels.IsPositive() {
		missing["bushels"] = "must be greater than zero"
	}
	if ticket.DeliveryLocation == nil || strings.TrimSpace(*ticket.DeliveryLocation) == "" {
		missing["delivery_location"] = "required"
	}
	if ticket.Origin == nil || strings.TrimSpace(*ticket.Origin) == "" {
		missing["origin"] = "required"
	}
	if len(missing) == 0 {
		return nil
	}
	return missing
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Approve runs the allocation pipeline: validate, match, detect overfill,
// apply the operator's resolution if one is needed, bind, recompute the
// ledger, and queue notifications. Everything happens in one transaction; on
// any failure the ticket stays exactly as it was.
func (s *service) Approve(ctx context.Context, id uuid.UUID, input ApproveTicketInput) (*ApproveTicketResult, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket id is required")
	}
	if input.Resolution != nil && !input.Resolution.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid overfill resolution")
	}

	var (
		result             ApproveTicketResult
		appliedResolution  *enums.OverfillResolution
		spotContractOpened bool
	)

	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		lock := db.SupportsRowLocks(tx)
		repo := s.repo.WithTx(tx)

		ticket, err := repo.GetForUpdate(ctx, id, lock)
		if err != nil {
			if stdErrors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading ticket")
		}

		if ticket.Status != enums.TicketStatusNeedsReview {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot approve ticket in status %q", ticket.Status))
		}

		if fieldErrs := approvalFieldErrors(ticket); fieldErrs != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "ticket is missing required fields").
				WithDetails(fieldErrs)
		}

		before := *ticket
		delivery := allocation.Delivery{
			Person:           deref(ticket.Person),
			Crop:             deref(ticket.Crop),
			Through:          deref(ticket.Through),
			DeliveryLocation: deref(ticket.DeliveryLocation),
			Bushels:          ticket.Bushels,
		}

		contractsRepo := s.contracts.WithTx(tx)
		candidates, err := contractsRepo.ListOpenForMatching(ctx, ticket.CropYear, lock)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading candidate contracts")
		}

		matched := allocation.Match(delivery, candidates)

		var target *models.Contract
		switch {
		case matched == nil:
			target, err = s.synthesizeSpot(ctx, contractsRepo, delivery, ticket)
			if err != nil {
				return err
			}
			spotContractOpened = true

		case allocation.RequiresDecision(*matched, ticket.Bushels):
			if input.Resolution == nil {
				// Pending-decision condition: ticket stays in needs_review
				// until the operator picks keep, roll, or spot.
				return pkgerrors.New(pkgerrors.CodeDecisionRequired,
					"delivery would overfill the matched contract").
					WithDetails(map[string]any{
						"contract_id":       matched.ID,
						"contract_number":   matched.ContractNumber,
						"remaining_bushels": matched.RemainingBushels(),
						"ticket_bushels":    ticket.Bushels,
						"resolutions":       []enums.OverfillResolution{enums.OverfillResolutionKeep, enums.OverfillResolutionRoll, enums.OverfillResolutionSpot},
					})
			}
			appliedResolution = input.Resolution

			switch *input.Resolution {
			case enums.OverfillResolutionKeep:
				target = matched
			case enums.OverfillResolutionRoll:
				// Single pass: the rolled-to contract is not re-checked for
				// overfill before binding.
				rolled := allocation.MatchExcluding(delivery, candidates, matched.ID)
				if rolled != nil {
					target = rolled
				} else {
					target, err = s.synthesizeSpot(ctx, contractsRepo, delivery, ticket)
					if err != nil {
						return err
					}
					spotContractOpened = true
				}
			case enums.OverfillResolutionSpot:
				target, err = s.synthesizeSpot(ctx, contractsRepo, delivery, ticket)
				if err != nil {
					return err
				}
				spotContractOpened = true
			}

		default:
			target = matched
		}

		now := time.Now()
		ticket.Status = enums.TicketStatusApproved
		ticket.ContractID = &target.ID
		ticket.ApprovedAt = &now
		if err := repo.Update(ctx, ticket); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "binding ticket")
		}

		totals, err := s.ledger.WithTx(tx).Recompute(ctx, target.ID)
		if err != nil {
			return err
		}

		if err := s.audit.WithTx(tx).RecordChange(ctx, ticket.ID, enums.AuditActionApprove, before, ticket); err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTicketApproved,
			AggregateType: enums.AggregateTicket,
			AggregateID:   ticket.ID,
			Data: map[string]any{
				"ticket_id":         ticket.ID,
				"contract_id":       target.ID,
				"contract_number":   target.ContractNumber,
				"bushels":           ticket.Bushels,
				"crop_year":         ticket.CropYear,
				"spot_sale_created": spotContractOpened,
			},
		}); err != nil {
			return err
		}
		if spotContractOpened {
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventSpotContractOpened,
				AggregateType: enums.AggregateContract,
				AggregateID:   target.ID,
				Data: map[string]any{
					"contract_id":     target.ID,
					"contract_number": target.ContractNumber,
					"crop_year":       target.CropYear,
				},
			}); err != nil {
				return err
			}
		}

		target.DeliveredBushels = totals.DeliveredBushels
		result = ApproveTicketResult{
			Ticket:          *ticket,
			Contract:        *target,
			Totals:          totals,
			SpotSaleCreated: spotContractOpened,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	outcome := "matched"
	if result.SpotSaleCreated {
		outcome = "spot"
	}
	s.metrics.IncApproval(outcome)
	if result.SpotSaleCreated {
		s.metrics.IncSpotSale()
	}
	if appliedResolution != nil {
		s.metrics.IncResolution(appliedResolution.String())
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"ticket_id":   result.Ticket.ID.String(),
		"contract_id": result.Contract.ID.String(),
		"outcome":     outcome,
	})
	s.logg.Info(logCtx, "ticket approved")
	return &result, nil
}

// synthesizeSpot persists a zero-target contract before the caller binds the
// ticket to it. Retries once on a contract number collision.
func (s *service) synthesizeSpot(ctx context.Context, repo contracts.Repository, delivery allocation.Delivery, ticket *models.Ticket) (*models.Contract, error) {
	ticketDate := time.Now()
	if ticket.DeliveryDate != nil {
		ticketDate = *ticket.DeliveryDate
	}

	for attempt := 0; attempt < 2; attempt++ {
		contract, err := allocation.NewSpotContract(delivery, ticketDate, ticket.CropYear)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "synthesizing spot contract")
		}
		if err := repo.Create(ctx, &contract); err != nil {
			if db.IsUniqueViolation(err, "") {
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting spot contract")
		}
		return &contract, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "spot contract number collision")
}

func (s *service) Transition(ctx context.Context, id uuid.UUID, target enums.TicketStatus) (*models.Ticket, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket id is required")
	}
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid ticket status")
	}
	if target == enums.TicketStatusApproved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "approval must go through the approve operation")
	}

	var updated *models.Ticket
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ticket, err := repo.GetForUpdate(ctx, id, db.SupportsRowLocks(tx))
		if err != nil {
			if stdErrors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading ticket")
		}

		if ticket.Status == target {
			updated = ticket
			return nil
		}
		if !transitionAllowed(ticket.Status, target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot transition ticket from %q to %q", ticket.Status, target))
		}

		before := *ticket
		ticket.Status = target
		if err := repo.Update(ctx, ticket); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating ticket status")
		}
		if err := s.audit.WithTx(tx).RecordChange(ctx, ticket.ID, enums.AuditActionTransition, before, ticket); err != nil {
			return err
		}
		updated = ticket
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Reassign moves an approved ticket to another contract and recomputes both
// sides of the move so neither aggregate goes stale.
func (s *service) Reassign(ctx context.Context, id uuid.UUID, contractID uuid.UUID) (*models.Ticket, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket id is required")
	}
	if contractID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contract id is required")
	}

	var updated *models.Ticket
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		lock := db.SupportsRowLocks(tx)
		repo := s.repo.WithTx(tx)

		ticket, err := repo.GetForUpdate(ctx, id, lock)
		if err != nil {
			if stdErrors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading ticket")
		}
		if ticket.Status != enums.TicketStatusApproved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only approved tickets can be reassigned")
		}

		if _, err := s.contracts.WithTx(tx).GetByID(ctx, contractID); err != nil {
			if stdErrors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "target contract not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading target contract")
		}

		before := *ticket
		previous := ticket.ContractID
		if previous != nil && *previous == contractID {
			updated = ticket
			return nil
		}

		ticket.ContractID = &contractID
		if err := repo.Update(ctx, ticket); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rebinding ticket")
		}

		ledgerSvc := s.ledger.WithTx(tx)
		var recomputeErr error
		if previous != nil {
			_, err := ledgerSvc.Recompute(ctx, *previous)
			recomputeErr = multierr.Append(recomputeErr, err)
		}
		_, err = ledgerSvc.Recompute(ctx, contractID)
		recomputeErr = multierr.Append(recomputeErr, err)
		if recomputeErr != nil {
			return recomputeErr
		}

		if err := s.audit.WithTx(tx).RecordChange(ctx, ticket.ID, enums.AuditActionReassign, before, ticket); err != nil {
			return err
		}
		updated = ticket
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SoftDelete hides the ticket from active views and the ledger aggregation;
// its lifecycle state is retained for a later restore.
func (s *service) SoftDelete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "ticket id is required")
	}

	var deleted models.Ticket
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ticket, err := repo.GetForUpdate(ctx, id, db.SupportsRowLocks(tx))
		if err != nil {
			if stdErrors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading ticket")
		}

		if err := repo.SoftDelete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting ticket")
		}

		if ticket.Status == enums.TicketStatusApproved && ticket.ContractID != nil {
			if _, err := s.ledger.WithTx(tx).Recompute(ctx, *ticket.ContractID); err != nil {
				return err
			}
		}

		if err := s.audit.WithTx(tx).RecordChange(ctx, ticket.ID, enums.AuditActionDelete, ticket, nil); err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTicketDeleted,
			AggregateType: enums.AggregateTicket,
			AggregateID:   ticket.ID,
			Data: map[string]any{
				"ticket_id":   ticket.ID,
				"status":      ticket.Status,
				"contract_id": ticket.ContractID,
			},
		}); err != nil {
			return err
		}

		deleted = *ticket
		return nil
	})
	if err != nil {
		return err
	}

	logCtx := s.logg.WithTicketID(ctx, deleted.ID.String())
	s.logg.Info(logCtx, "ticket soft-deleted")
	return nil
}

// Restore brings a soft-deleted ticket back, re-including it in the ledger
// aggregation if it was approved and bound.
func (s *service) Restore(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket id is required")
	}

	var restored *models.Ticket
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ticket, err := repo.GetUnscoped(ctx, id)
		if err != nil {
			if stdErrors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading ticket")
		}
		if !ticket.DeletedAt.Valid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "ticket is not deleted")
		}

		if err := repo.Restore(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "restoring ticket")
		}

		if ticket.Status == enums.TicketStatusApproved && ticket.ContractID != nil {
			if _, err := s.ledger.WithTx(tx).Recompute(ctx, *ticket.ContractID); err != nil {
				return err
			}
		}

		ticket.DeletedAt = gorm.DeletedAt{}
		if err := s.audit.WithTx(tx).RecordChange(ctx, ticket.ID, enums.AuditActionRestore, nil, ticket); err != nil {
			return err
		}

		restored = ticket
		return nil
	})
	if err != nil {
		return nil, err
	}
	return restored, nil
}

// HardDelete removes the ticket and its audit trail permanently.
func (s *service) HardDelete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "ticket id is required")
	}

	return s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ticket, err := repo.GetUnscoped(ctx, id)
		if err != nil {
			if stdErrors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading ticket")
		}

		if err := repo.HardDelete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hard-deleting ticket")
		}

		if ticket.Status == enums.TicketStatusApproved && ticket.ContractID != nil && !ticket.DeletedAt.Valid {
			if _, err := s.ledger.WithTx(tx).Recompute(ctx, *ticket.ContractID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *service) History(ctx context.Context, id uuid.UUID) ([]models.AuditRecord, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket id is required")
	}
	return s.audit.History(ctx, id)
}
