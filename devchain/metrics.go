package devchain

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raffle_devchain_transactions_total",
			Help: "Transactions sent to the development chain by outcome",
		},
		[]string{"status"},
	)

	blocksMined = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "raffle_devchain_blocks_total",
			Help: "Blocks produced by the development chain",
		},
	)
)
