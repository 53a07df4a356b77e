// Package metrics holds the bill counters exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Bills counts what employees do with their bills.
type Bills struct {
	uploads     *prometheus.CounterVec
	submissions *prometheus.CounterVec
	listErrors  prometheus.Counter
}

// NewBills registers the bill counters on reg.
func NewBills(reg prometheus.Registerer) (*Bills, error) {
	m := &Bills{
		uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billed_receipt_uploads_total",
				Help: "Receipt selections by outcome.",
			},
			[]string{"outcome"},
		),
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billed_bill_submissions_total",
				Help: "New bill submissions by outcome.",
			},
			[]string{"outcome"},
		),
		listErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "billed_bill_list_errors_total",
			Help: "Bill list loads rejected by the store.",
		}),
	}

	for _, c := range []prometheus.Collector{m.uploads, m.submissions, m.listErrors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Upload records a receipt selection.
func (m *Bills) Upload(outcome string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(outcome).Inc()
}

// Submit records a New Bill submission.
func (m *Bills) Submit(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

// ListError records a failed bill list load.
func (m *Bills) ListError() {
	if m == nil {
		return
	}
	m.listErrors.Inc()
}
