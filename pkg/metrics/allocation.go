package metrics

import "github.com/prometheus/client_golang/prometheus"

// AllocationMetrics counts the outcomes of the ticket approval pipeline.
type AllocationMetrics struct {
	approvals   *prometheus.CounterVec
	spotSales   prometheus.Counter
	resolutions *prometheus.CounterVec
}

// NewAllocationMetrics registers the allocation counters on the provided registerer.
func NewAllocationMetrics(reg prometheus.Registerer) *AllocationMetrics {
	if reg == nil {
		return &AllocationMetrics{}
	}
	approvals := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ticket_approvals_total",
		Help: "Approved tickets by binding outcome.",
	}, []string{"outcome"})
	spotSales := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "spot_contracts_created_total",
		Help: "Spot-sale contracts synthesized for unmatched deliveries.",
	})
	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "overfill_resolutions_total",
		Help: "Operator overfill decisions by resolution.",
	}, []string{"resolution"})
	reg.MustRegister(approvals, spotSales, resolutions)
	return &AllocationMetrics{
		approvals:   approvals,
		spotSales:   spotSales,
		resolutions: resolutions,
	}
}

// IncApproval counts an approved ticket by its binding outcome (matched/spot).
func (m *AllocationMetrics) IncApproval(outcome string) {
	if m == nil || m.approvals == nil {
		return
	}
	m.approvals.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncSpotSale counts a synthesized spot contract.
func (m *AllocationMetrics) IncSpotSale() {
	if m == nil || m.spotSales == nil {
		return
	}
	m.spotSales.Inc()
}

// IncResolution counts an applied overfill resolution.
func (m *AllocationMetrics) IncResolution(resolution string) {
	if m == nil || m.resolutions == nil {
		return
	}
	m.resolutions.WithLabelValues(normalizeLabel(resolution)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
