package enums

// OutboxEventType names the domain events recorded in the outbox.
type OutboxEventType string

const (
	EventTicketApproved     OutboxEventType = "ticket.approved"
	EventTicketDeleted      OutboxEventType = "ticket.deleted"
	EventSpotContractOpened OutboxEventType = "contract.spot_created"
)

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateTicket   OutboxAggregateType = "ticket"
	AggregateContract OutboxAggregateType = "contract"
)
