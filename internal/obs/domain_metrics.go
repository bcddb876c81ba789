package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// SalesRecordedTotal counts confirmed sales by payment method.
	SalesRecordedTotal *prometheus.CounterVec
	// SaleAmountCents records the distribution of confirmed sale totals.
	SaleAmountCents prometheus.Histogram
	// CartMutationsTotal counts cart mutations by operation.
	CartMutationsTotal *prometheus.CounterVec
	// PaymentFailuresTotal counts rejected payment attempts by reason.
	PaymentFailuresTotal *prometheus.CounterVec
	// HistoryClearsTotal counts explicit history wipes.
	HistoryClearsTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers register-domain Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		SalesRecordedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_recorded_total",
			Help:      "Count of confirmed sales by payment method.",
		}, []string{"method"})
		SaleAmountCents = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sale_amount_cents",
			Help:      "Distribution of confirmed sale totals in minor units.",
			Buckets:   []float64{100, 250, 500, 1000, 2500, 5000, 10000, 25000, 50000},
		})
		CartMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Count of cart mutations by operation.",
		}, []string{"op"})
		PaymentFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_failures_total",
			Help:      "Count of rejected payment attempts by reason.",
		}, []string{"reason"})
		HistoryClearsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_clears_total",
			Help:      "Number of explicit sales history wipes.",
		})
		reg.MustRegister(SalesRecordedTotal, SaleAmountCents, CartMutationsTotal, PaymentFailuresTotal, HistoryClearsTotal)
	})
}
