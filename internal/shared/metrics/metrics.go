package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector the service exposes.
var Registry = prometheus.NewRegistry()

var (
	imagesUploadedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "images_uploaded_total",
		Help: "Total images uploaded and cataloged",
	})
	imagesDeletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "images_deleted_total",
		Help: "Total images deleted from both stores",
	})
	storeFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "image_store_failures_total",
		Help: "Backing store failures by store and operation",
	}, []string{"store", "op"})
	inconsistenciesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_inconsistencies_total",
		Help: "Detected orphaned objects and dangling records",
	}, []string{"kind"})
	reconciledTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_reconciled_total",
		Help: "Reconciliation outcomes by inconsistency kind",
	}, []string{"kind", "outcome"})
	reconcileMessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconcile_messages_total",
		Help: "Reconciliation queue messages by outcome",
	}, []string{"outcome"})
	uploadDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "image_upload_duration_ms",
		Help:    "Upload duration in milliseconds",
		Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	})
)

func init() {
	Registry.MustRegister(
		imagesUploadedTotal,
		imagesDeletedTotal,
		storeFailuresTotal,
		inconsistenciesTotal,
		reconciledTotal,
		reconcileMessagesTotal,
		uploadDuration,
		collectors.NewGoCollector(),
	)
}

// IncUploaded increments the uploaded counter.
func IncUploaded() {
	imagesUploadedTotal.Inc()
}

// IncDeleted increments the deleted counter.
func IncDeleted() {
	imagesDeletedTotal.Inc()
}

// IncStoreFailure counts a failure of store ("object" or "catalog") during op.
func IncStoreFailure(store, op string) {
	storeFailuresTotal.WithLabelValues(store, op).Inc()
}

// IncInconsistency counts a reported inconsistency of the given kind.
func IncInconsistency(kind string) {
	inconsistenciesTotal.WithLabelValues(kind).Inc()
}

// IncReconciled counts a reconciliation attempt that ended in outcome
// ("repaired" or "skipped").
func IncReconciled(kind, outcome string) {
	reconciledTotal.WithLabelValues(kind, outcome).Inc()
}

// IncReconcileMessage counts a queue message by outcome: received, completed,
// failed or dropped.
func IncReconcileMessage(outcome string) {
	reconcileMessagesTotal.WithLabelValues(outcome).Inc()
}

// ObserveUploadDurationMs records an upload duration in milliseconds.
func ObserveUploadDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	uploadDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
}
