package service

import "github.com/prometheus/client_golang/prometheus"

// Upload outcomes recorded by DocumentMetrics.
const (
	uploadRegistered   = "registered"
	uploadUnregistered = "unregistered"
	uploadRejected     = "rejected"
	uploadStoreFailed  = "store_failed"
)

// DocumentMetrics counts document lifecycle outcomes. A nil *DocumentMetrics records nothing.
type DocumentMetrics struct {
	uploads         *prometheus.CounterVec
	cleanupFailures prometheus.Counter
}

// NewDocumentMetrics registers the document counters on reg.
func NewDocumentMetrics(reg prometheus.Registerer) (*DocumentMetrics, error) {
	m := &DocumentMetrics{
		uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docvault_uploads_total",
				Help: "Document uploads by outcome.",
			},
			[]string{"result"},
		),
		cleanupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docvault_document_cleanup_failures_total",
			Help: "Stored files that could not be removed while deleting a document.",
		}),
	}
	if err := reg.Register(m.uploads); err != nil {
		return nil, err
	}
	if err := reg.Register(m.cleanupFailures); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *DocumentMetrics) upload(result string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(result).Inc()
}

func (m *DocumentMetrics) cleanupFailed() {
	if m == nil {
		return
	}
	m.cleanupFailures.Inc()
}
