package allocation

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prairieworks/grainledger-backend/pkg/db/models"
)

const (
	spotNumberPrefix   = "SPOT"
	spotSuffixLength   = 6
	spotSuffixAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// SpotPriority is the least-urgent slot; synthesized contracts never
	// compete with standing ones for future deliveries.
	SpotPriority = 10
)

// NewSpotContract fabricates a zero-target contract to absorb a delivery with
// no matching standing contract. The result always carries overfill_allowed so
// it can hold any volume, and a validity window collapsed to the ticket date.
func NewSpotContract(d Delivery, ticketDate time.Time, cropYear string) (models.Contract, error) {
	number, err := spotContractNumber(ticketDate)
	if err != nil {
		return models.Contract{}, fmt.Errorf("generating spot contract number: %w", err)
	}

	through := strings.TrimSpace(d.Through)
	if through == "" {
		through = models.ThroughAny
	}

	start := ticketDate
	end := ticketDate
	notes := "Auto-created spot sale for unmatched delivery"

	contract := models.Contract{
		ID:                uuid.New(),
		ContractNumber:    number,
		Crop:              strings.TrimSpace(d.Crop),
		Destination:       d.DeliveryLocation,
		Through:           through,
		ContractedBushels: decimal.Zero,
		Priority:          SpotPriority,
		OverfillAllowed:   true,
		IsTemplate:        false,
		IsSpotSale:        true,
		CropYear:          cropYear,
		StartDate:         &start,
		EndDate:           &end,
		Notes:             &notes,
	}
	if person := strings.TrimSpace(d.Person); person != "" {
		contract.Owner = &person
	}
	return contract, nil
}

// spotContractNumber encodes the ticket date plus a random suffix, e.g.
// SPOT-20250914-X7K2QD. Six alphanumeric characters give ~2.2 billion
// combinations per day, enough to make collisions negligible; the unique
// index on contract_number backstops the remainder.
func spotContractNumber(ticketDate time.Time) (string, error) {
	random := make([]byte, spotSuffixLength)
	if _, err := rand.Read(random); err != nil {
		return "", err
	}
	suffix := make([]byte, spotSuffixLength)
	for i, b := range random {
		suffix[i] = spotSuffixAlphabet[int(b)%len(spotSuffixAlphabet)]
	}
	return fmt.Sprintf("%s-%s-%s", spotNumberPrefix, ticketDate.Format("20060102"), suffix), nil
}
