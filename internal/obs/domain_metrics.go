package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// OrdersPlacedTotal counts checkout submissions by payment method and outcome.
	OrdersPlacedTotal *prometheus.CounterVec
	// PaymentSessionTotal counts wallet payment session creation outcomes.
	PaymentSessionTotal *prometheus.CounterVec
	// PaymentCallbackTotal counts inbound payment confirmation callbacks by outcome.
	PaymentCallbackTotal *prometheus.CounterVec
	// VoucherAppliedTotal counts voucher apply attempts by outcome.
	VoucherAppliedTotal *prometheus.CounterVec
	// AddressSaveFailures counts best-effort address book save failures.
	AddressSaveFailures prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		OrdersPlacedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Count of checkout submissions by payment method and outcome.",
		}, []string{"payment_method", "result"})
		PaymentSessionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_session_total",
			Help:      "Count of wallet payment session creation outcomes.",
		}, []string{"provider", "result"})
		PaymentCallbackTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_callback_total",
			Help:      "Count of processed payment confirmation callbacks by outcome.",
		}, []string{"provider", "result"})
		VoucherAppliedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voucher_applied_total",
			Help:      "Count of voucher apply attempts by outcome.",
		}, []string{"result"})
		AddressSaveFailures = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "address_save_failures_total",
			Help:      "Best-effort address book saves that failed.",
		})

		mustRegisterCollector(reg, OrdersPlacedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				OrdersPlacedTotal = v
			}
		})
		mustRegisterCollector(reg, PaymentSessionTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PaymentSessionTotal = v
			}
		})
		mustRegisterCollector(reg, PaymentCallbackTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PaymentCallbackTotal = v
			}
		})
		mustRegisterCollector(reg, VoucherAppliedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				VoucherAppliedTotal = v
			}
		})
		mustRegisterCollector(reg, AddressSaveFailures, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				AddressSaveFailures = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, replace func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			replace(are.ExistingCollector)
			return
		}
		panic(fmt.Errorf("register collector: %w", err))
	}
}
