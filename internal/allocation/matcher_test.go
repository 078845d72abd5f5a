package allocation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prairieworks/grainledger-backend/pkg/db/models"
)

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func testDelivery() Delivery {
	return Delivery{
		Person:           "Karl",
		Crop:             "Corn",
		Through:          "Akron",
		DeliveryLocation: "Elevator-A",
		Bushels:          decimal.NewFromInt(40),
	}
}

func testContract(number string) models.Contract {
	return models.Contract{
		ID:                uuid.New(),
		ContractNumber:    number,
		Crop:              "Corn",
		Owner:             strPtr("Karl"),
		Destination:       "Elevator-A",
		Through:           "Akron",
		ContractedBushels: decimal.NewFromInt(1000),
		Priority:          5,
		CropYear:          "2025",
	}
}

func TestNormalizeDestination(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Cargill-Lacon", "cargilllacon"},
		{"cargill lacon", "cargilllacon"},
		{"CARGILL_LACON", "cargilllacon"},
		{"Elevator #3", "elevator3"},
		{"", ""},
		{"---", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, NormalizeDestination(tc.in), "input %q", tc.in)
	}
}

func TestEligible(t *testing.T) {
	d := testDelivery()

	tests := []struct {
		name   string
		mutate func(*models.Contract)
		want   bool
	}{
		{
			name:   "exact match",
			mutate: func(c *models.Contract) {},
			want:   true,
		},
		{
			name:   "wrong crop",
			mutate: func(c *models.Contract) { c.Crop = "Soybeans" },
			want:   false,
		},
		{
			name:   "wrong owner",
			mutate: func(c *models.Contract) { c.Owner = strPtr("Anthony") },
			want:   false,
		},
		{
			name:   "missing owner",
			mutate: func(c *models.Contract) { c.Owner = nil },
			want:   false,
		},
		{
			name:   "owner with surrounding whitespace",
			mutate: func(c *models.Contract) { c.Owner = strPtr("  Karl ") },
			want:   true,
		},
		{
			name:   "wrong through",
			mutate: func(c *models.Contract) { c.Through = "RVC" },
			want:   false,
		},
		{
			name:   "wildcard through",
			mutate: func(c *models.Contract) { c.Through = models.ThroughAny },
			want:   true,
		},
		{
			name:   "destination differs only in punctuation",
			mutate: func(c *models.Contract) { c.Destination = "elevator a" },
			want:   true,
		},
		{
			name:   "different destination",
			mutate: func(c *models.Contract) { c.Destination = "Elevator-B" },
			want:   false,
		},
		{
			name: "fully filled",
			mutate: func(c *models.Contract) {
				c.DeliveredBushels = decimal.NewFromInt(1000)
			},
			want: false,
		},
		{
			name: "fully filled even with overfill allowed",
			mutate: func(c *models.Contract) {
				c.DeliveredBushels = decimal.NewFromInt(1200)
				c.OverfillAllowed = true
			},
			want: false,
		},
		{
			name: "nearly filled stays eligible",
			mutate: func(c *models.Contract) {
				c.DeliveredBushels = decimal.NewFromFloat(999.99)
			},
			want: true,
		},
		{
			name:   "spot sale excluded",
			mutate: func(c *models.Contract) { c.IsSpotSale = true },
			want:   false,
		},
		{
			name:   "template excluded",
			mutate: func(c *models.Contract) { c.IsTemplate = true },
			want:   false,
		},
		{
			name: "zero target non-spot stays eligible",
			mutate: func(c *models.Contract) {
				c.ContractedBushels = decimal.Zero
				c.DeliveredBushels = decimal.NewFromInt(500)
			},
			want: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := testContract("C-100")
			tc.mutate(&c)
			assert.Equal(t, tc.want, Eligible(c, d))
		})
	}
}

func TestMatchPicksSoonestEndDate(t *testing.T) {
	d := testDelivery()

	near := testContract("C-NEAR")
	near.EndDate = timePtr(time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC))
	far := testContract("C-FAR")
	far.EndDate = timePtr(time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC))
	open := testContract("C-OPEN")

	got := Match(d, []models.Contract{open, far, near})
	require.NotNil(t, got)
	assert.Equal(t, "C-NEAR", got.ContractNumber)
}

func TestMatchNilEndDateSortsLast(t *testing.T) {
	d := testDelivery()

	open := testContract("A-OPEN")
	dated := testContract("Z-DATED")
	dated.EndDate = timePtr(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))

	got := Match(d, []models.Contract{open, dated})
	require.NotNil(t, got)
	assert.Equal(t, "Z-DATED", got.ContractNumber)
}

func TestMatchTieBreakByContractNumber(t *testing.T) {
	d := testDelivery()
	end := time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC)

	b := testContract("C-200")
	b.EndDate = timePtr(end)
	a := testContract("C-100")
	a.EndDate = timePtr(end)

	got := Match(d, []models.Contract{b, a})
	require.NotNil(t, got)
	assert.Equal(t, "C-100", got.ContractNumber)

	// Same candidate set, same answer.
	again := Match(d, []models.Contract{a, b})
	require.NotNil(t, again)
	assert.Equal(t, "C-100", again.ContractNumber)
}

func TestMatchNoEligibleCandidates(t *testing.T) {
	d := testDelivery()
	other := testContract("C-300")
	other.Crop = "Soybeans"

	assert.Nil(t, Match(d, []models.Contract{other}))
	assert.Nil(t, Match(d, nil))
}

func TestMatchExcluding(t *testing.T) {
	d := testDelivery()

	first := testContract("C-100")
	first.EndDate = timePtr(time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC))
	second := testContract("C-200")
	second.EndDate = timePtr(time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC))

	candidates := []models.Contract{first, second}

	got := MatchExcluding(d, candidates, first.ID)
	require.NotNil(t, got)
	assert.Equal(t, "C-200", got.ContractNumber)

	assert.Nil(t, MatchExcluding(d, []models.Contract{first}, first.ID))
}

func TestOverfillsBoundary(t *testing.T) {
	c := testContract("C-100")
	c.DeliveredBushels = decimal.NewFromInt(950)

	// Landing exactly on the target is not an overfill.
	assert.False(t, Overfills(c, decimal.NewFromInt(50)))
	assert.True(t, Overfills(c, decimal.NewFromFloat(50.01)))
	assert.False(t, Overfills(c, decimal.NewFromInt(40)))
}

func TestRequiresDecision(t *testing.T) {
	c := testContract("C-100")
	c.DeliveredBushels = decimal.NewFromInt(950)

	assert.True(t, RequiresDecision(c, decimal.NewFromInt(60)))
	assert.False(t, RequiresDecision(c, decimal.NewFromInt(50)))

	c.OverfillAllowed = true
	assert.False(t, RequiresDecision(c, decimal.NewFromInt(60)))
}
