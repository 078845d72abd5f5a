package enums

import "fmt"

// AuditAction labels the mutation captured by an audit record.
type AuditAction string

const (
	AuditActionCreate     AuditAction = "create"
	AuditActionUpdate     AuditAction = "update"
	AuditActionApprove    AuditAction = "approve"
	AuditActionTransition AuditAction = "transition"
	AuditActionReassign   AuditAction = "reassign"
	AuditActionDelete     AuditAction = "delete"
	AuditActionRestore    AuditAction = "restore"
)

var validAuditActions = []AuditAction{
	AuditActionCreate,
	AuditActionUpdate,
	AuditActionApprove,
	AuditActionTransition,
	AuditActionReassign,
	AuditActionDelete,
	AuditActionRestore,
}

// String implements fmt.Stringer.
func (a AuditAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AuditAction.
func (a AuditAction) IsValid() bool {
	for _, candidate := range validAuditActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuditAction converts raw input into an AuditAction.
func ParseAuditAction(value string) (AuditAction, error) {
	for _, candidate := range validAuditActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit action %q", value)
}
