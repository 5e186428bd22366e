package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	preparesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "claimengine",
		Name:      "prepares_total",
		Help:      "Total Prepare calls, partitioned by outcome.",
	}, []string{"outcome"})

	confirmsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "claimengine",
		Name:      "confirms_total",
		Help:      "Total Confirm calls, partitioned by outcome.",
	}, []string{"outcome"})

	confirmDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "claimengine",
		Name:      "confirm_duration_seconds",
		Help:      "Wall-clock duration of a Confirm call measured from its start (including lock wait); recorded only for calls that acquired the claim lock.",
		Buckets:   prometheus.DefBuckets,
	})

	pendingClaims = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "claimengine",
		Name:      "pending_claims",
		Help:      "Current number of entries held in the PendingClaimRegistry.",
	})
)
