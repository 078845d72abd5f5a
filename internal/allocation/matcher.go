package allocation

import (
	"sort"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prairieworks/grainledger-backend/pkg/db/models"
)

// Delivery carries the ticket attributes the matcher keys on. Callers build it
// from an approved ticket's fields after the approval pre-condition check, so
// every field is populated.
type Delivery struct {
	Person           string
	Crop             string
	Through          string
	DeliveryLocation string
	Bushels          decimal.Decimal
}

var oneHundred = decimal.NewFromInt(100)

// NormalizeDestination lowercases a location and strips every non-alphanumeric
// rune, so "Cargill-Lacon" and "cargill lacon" compare equal.
func NormalizeDestination(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Eligible reports whether the contract can absorb the delivery: same crop and
// owner, routing equal or wildcard, destinations equal under normalization,
// not yet fully filled, and not a synthesized spot sale or template.
func Eligible(c models.Contract, d Delivery) bool {
	if c.IsSpotSale || c.IsTemplate {
		return false
	}
	if strings.TrimSpace(c.Crop) != strings.TrimSpace(d.Crop) {
		return false
	}
	if c.Owner == nil || strings.TrimSpace(*c.Owner) != strings.TrimSpace(d.Person) {
		return false
	}
	if c.Through != models.ThroughAny && c.Through != d.Through {
		return false
	}
	if NormalizeDestination(c.Destination) != NormalizeDestination(d.DeliveryLocation) {
		return false
	}
	// Fully filled contracts never take more volume, overfill_allowed or not.
	if c.PercentFilled().GreaterThanOrEqual(oneHundred) {
		return false
	}
	return true
}

// Match selects the best-fit open contract for the delivery, or nil when no
// candidate is eligible. Pure function over the snapshot the caller supplies;
// candidates are expected to be pre-filtered to the delivery's crop year.
func Match(d Delivery, candidates []models.Contract) *models.Contract {
	return MatchExcluding(d, candidates, uuid.Nil)
}

// MatchExcluding is Match with one contract removed from consideration. The
// roll resolution uses it to search past the contract that would overfill.
func MatchExcluding(d Delivery, candidates []models.Contract, exclude uuid.UUID) *models.Contract {
	eligible := make([]models.Contract, 0, len(candidates))
	for _, c := range candidates {
		if exclude != uuid.Nil && c.ID == exclude {
			continue
		}
		if Eligible(c, d) {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		return nil
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return moreUrgent(eligible[i], eligible[j])
	})
	best := eligible[0]
	return &best
}

// moreUrgent orders contracts by expiry: soonest end date first, missing end
// dates last, contract number as the deterministic tie-break.
func moreUrgent(a, b models.Contract) bool {
	switch {
	case a.EndDate == nil && b.EndDate == nil:
		return a.ContractNumber < b.ContractNumber
	case a.EndDate == nil:
		return false
	case b.EndDate == nil:
		return true
	case a.EndDate.Equal(*b.EndDate):
		return a.ContractNumber < b.ContractNumber
	default:
		return a.EndDate.Before(*b.EndDate)
	}
}

// Overfills reports whether absorbing the bushels would push the contract's
// delivered total strictly past its target. Landing exactly on the target is
// not an overfill.
func Overfills(c models.Contract, bushels decimal.Decimal) bool {
	return c.DeliveredBushels.Add(bushels).GreaterThan(c.ContractedBushels)
}

// RequiresDecision reports whether binding the bushels needs an explicit
// operator resolution: the contract would overfill and does not allow it.
func RequiresDecision(c models.Contract, bushels decimal.Decimal) bool {
	return !c.OverfillAllowed && Overfills(c, bushels)
}
