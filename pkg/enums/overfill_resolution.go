package enums

import "fmt"

// OverfillResolution is the operator's decision when a delivery would push a
// contract past its target and the contract disallows overfill.
type OverfillResolution string

const (
	// OverfillResolutionKeep binds the ticket to the matched contract anyway.
	OverfillResolutionKeep OverfillResolution = "keep"
	// OverfillResolutionRoll binds the ticket to the next eligible contract.
	OverfillResolutionRoll OverfillResolution = "roll"
	// OverfillResolutionSpot sends the ticket straight to a synthesized spot sale.
	OverfillResolutionSpot OverfillResolution = "spot"
)

var validOverfillResolutions = []OverfillResolution{
	OverfillResolutionKeep,
	OverfillResolutionRoll,
	OverfillResolutionSpot,
}

// String implements fmt.Stringer.
func (o OverfillResolution) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OverfillResolution.
func (o OverfillResolution) IsValid() bool {
	for _, candidate := range validOverfillResolutions {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOverfillResolution converts raw input into an OverfillResolution.
func ParseOverfillResolution(value string) (OverfillResolution, error) {
	for _, candidate := range validOverfillResolutions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid overfill resolution %q", value)
}
