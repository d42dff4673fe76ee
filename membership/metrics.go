package membership

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activities",
		Name:      "membership_operations_total",
		Help:      "Membership operations by outcome code.",
	}, []string{"operation", "outcome"})

	casRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activities",
		Name:      "membership_cas_retries_total",
		Help:      "Activity writes that lost a version race and were re-applied.",
	}, []string{"operation"})

	followerRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activities",
		Name:      "membership_follower_retries_total",
		Help:      "User-side writes retried after a failure.",
	}, []string{"action"})

	repairsRecordedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activities",
		Name:      "membership_repairs_recorded_total",
		Help:      "User-side writes handed to reconciliation after exhausting retries.",
	}, []string{"action"})

	reconcileFixesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activities",
		Name:      "membership_reconcile_fixes_total",
		Help:      "User records corrected by the reconciliation pass.",
	}, []string{"kind"})
)

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return "error"
}
