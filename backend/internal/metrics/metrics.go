package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SettlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rawlink_settlements_total",
			Help: "Total number of committed order settlements",
		},
		[]string{"payment_method"},
	)

	SettlementFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rawlink_settlement_failures_total",
			Help: "Total number of rejected settlement attempts",
		},
		[]string{"code"},
	)

	WalletCreditsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rawlink_wallet_credits_total",
			Help: "Total number of wallet credit operations",
		},
	)

	OrderTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rawlink_order_transitions_total",
			Help: "Total number of order lifecycle transitions",
		},
		[]string{"to"},
	)

	ActiveChatConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rawlink_chat_connections",
			Help: "Number of currently open chat connections",
		},
	)

	MessagesRelayedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rawlink_messages_relayed_total",
			Help: "Total number of chat messages persisted and broadcast",
		},
	)
)

func RecordSettlement(paymentMethod string) {
	SettlementsTotal.WithLabelValues(paymentMethod).Inc()
}

func RecordSettlementFailure(code string) {
	SettlementFailuresTotal.WithLabelValues(code).Inc()
}

func RecordWalletCredit() {
	WalletCreditsTotal.Inc()
}

func RecordOrderTransition(to string) {
	OrderTransitionsTotal.WithLabelValues(to).Inc()
}

func RecordMessageRelayed() {
	MessagesRelayedTotal.Inc()
}
