package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LedgerMetrics holds the service's Prometheus collectors. A nil
// *LedgerMetrics is valid and records nothing.
type LedgerMetrics struct {
	// Ledger operations
	OperationTotal    *prometheus.CounterVec   // by operation, result
	OperationDuration *prometheus.HistogramVec // by operation
	GoldMovedTotal    *prometheus.CounterVec   // by operation, gold type

	// Available stock after the last mutation
	AvailableStock *prometheus.GaugeVec // by gold type

	// Deposits
	SlipVerifyTotal    *prometheus.CounterVec // by result
	DepositAmountTotal prometheus.Counter

	// Notifications
	NotificationTotal *prometheus.CounterVec // by channel, result

	// Price feed
	PriceRefreshTotal *prometheus.CounterVec // by result
}

// New registers the collectors on reg
func New(reg prometheus.Registerer) *LedgerMetrics {
	f := promauto.With(reg)
	return &LedgerMetrics{
		OperationTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goldtrade_ledger_operation_total",
				Help: "Total number of ledger operations",
			},
			[]string{"operation", "result"}, // result: success/failed
		),
		OperationDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "goldtrade_ledger_operation_duration_seconds",
				Help:    "Duration of ledger operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		GoldMovedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goldtrade_gold_moved_total",
				Help: "Total gold amount moved by ledger operations",
			},
			[]string{"operation", "gold_type"},
		),
		AvailableStock: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "goldtrade_available_stock",
				Help: "Inventory total minus customer holdings",
			},
			[]string{"gold_type"},
		),
		SlipVerifyTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goldtrade_slip_verify_total",
				Help: "Total number of slip verifications",
			},
			[]string{"result"},
		),
		DepositAmountTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "goldtrade_deposit_amount_total",
				Help: "Total cash credited from verified slips",
			},
		),
		NotificationTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goldtrade_notification_total",
				Help: "Total number of notification deliveries",
			},
			[]string{"channel", "result"},
		),
		PriceRefreshTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goldtrade_price_refresh_total",
				Help: "Total number of price feed refreshes",
			},
			[]string{"result"},
		),
	}
}

func result(err error) string {
	if err != nil {
		return "failed"
	}
	return "success"
}

// ObserveOperation records one ledger operation
func (m *LedgerMetrics) ObserveOperation(op string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.OperationTotal.WithLabelValues(op, result(err)).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(seconds)
}

// AddGoldMoved records the amount of gold an operation moved
func (m *LedgerMetrics) AddGoldMoved(op, goldType string, amount float64) {
	if m == nil || amount <= 0 {
		return
	}
	m.GoldMovedTotal.WithLabelValues(op, goldType).Add(amount)
}

// SetAvailableStock records the latest available stock of a gold type
func (m *LedgerMetrics) SetAvailableStock(goldType string, v float64) {
	if m == nil {
		return
	}
	m.AvailableStock.WithLabelValues(goldType).Set(v)
}

// ObserveSlip records a slip verification outcome
func (m *LedgerMetrics) ObserveSlip(outcome string, credited float64) {
	if m == nil {
		return
	}
	m.SlipVerifyTotal.WithLabelValues(outcome).Inc()
	if credited > 0 {
		m.DepositAmountTotal.Add(credited)
	}
}

// ObserveNotification records a notification delivery
func (m *LedgerMetrics) ObserveNotification(channel string, err error) {
	if m == nil {
		return
	}
	m.NotificationTotal.WithLabelValues(channel, result(err)).Inc()
}

// ObservePriceRefresh records a price feed refresh
func (m *LedgerMetrics) ObservePriceRefresh(err error) {
	if m == nil {
		return
	}
	m.PriceRefreshTotal.WithLabelValues(result(err)).Inc()
}
