package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Reservation results.
const (
	ReservationReserved    = "reserved"
	ReservationUnavailable = "unavailable"
	ReservationNotFound    = "not_found"
)

// Reconciliation outcomes.
const (
	ReconcileCreated            = "created"
	ReconcileAlreadyProcessed   = "already_processed"
	ReconcileNotVerified        = "not_verified"
	ReconcileInvalidMetadata    = "invalid_metadata"
	ReconcileBuyerMismatch      = "buyer_mismatch"
	ReconcileGatewayUnavailable = "gateway_unavailable"
	ReconcileFailed             = "failed"
)

// OrderMetrics records the order and payment workflows.
type OrderMetrics struct {
	ordersCreated   *prometheus.CounterVec
	reservations    *prometheus.CounterVec
	reconciliations *prometheus.CounterVec
	soldConflicts   prometheus.Counter
	gatewayLatency  *prometheus.HistogramVec
}

// NewOrderMetrics registers the order metrics on the provided registerer. A nil
// registerer yields a no-op recorder.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders written to the ledger, by creation path.",
	}, []string{"path"})
	reservations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_reservations_total",
		Help: "Direct order reservation attempts, by result.",
	}, []string{"result"})
	reconciliations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_reconciliations_total",
		Help: "Payment reconciliation attempts, by outcome.",
	}, []string{"outcome"})
	soldConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_reconciliation_sold_conflicts_total",
		Help: "Reconciled order lines whose item was already sold.",
	})
	gatewayLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_gateway_verify_duration_seconds",
		Help:    "Latency of payment gateway verification calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	reg.MustRegister(ordersCreated, reservations, reconciliations, soldConflicts, gatewayLatency)
	return &OrderMetrics{
		ordersCreated:   ordersCreated,
		reservations:    reservations,
		reconciliations: reconciliations,
		soldConflicts:   soldConflicts,
		gatewayLatency:  gatewayLatency,
	}
}

// AddOrdersCreated counts n orders created through path ("direct" or "reconcile").
func (m *OrderMetrics) AddOrdersCreated(path string, n int) {
	if m == nil || m.ordersCreated == nil || n <= 0 {
		return
	}
	m.ordersCreated.WithLabelValues(normalizeLabel(path)).Add(float64(n))
}

func (m *OrderMetrics) IncReservation(result string) {
	if m == nil || m.reservations == nil {
		return
	}
	m.reservations.WithLabelValues(normalizeLabel(result)).Inc()
}

func (m *OrderMetrics) IncReconciliation(outcome string) {
	if m == nil || m.reconciliations == nil {
		return
	}
	m.reconciliations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *OrderMetrics) IncSoldConflict() {
	if m == nil || m.soldConflicts == nil {
		return
	}
	m.soldConflicts.Inc()
}

// ObserveGatewayVerify records how long a verification call took.
func (m *OrderMetrics) ObserveGatewayVerify(outcome string, duration time.Duration) {
	if m == nil || m.gatewayLatency == nil {
		return
	}
	m.gatewayLatency.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
