package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var countJobsInQueue = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "count_jobs_in_queue",
	Help: "Number of jobs in queue",
})

var dispatcherSignalCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "dispatcher_signal_count",
	Help: "How often the dispatcher has signaled to start worker",
})

var activeWorkerCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "active_worker_count",
	Help: "Number of active workers",
})

var extractionTierTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "extraction_tier_total",
	Help: "Page extraction outcomes labelled by classification",
}, []string{"class"})

var chunksUpsertedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "chunks_upserted_total",
	Help: "Chunks written to the vector store",
})

var tenantCapRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "tenant_cap_rejections_total",
	Help: "Ingestions rejected by the per-tenant active chunk cap",
})

var answerCacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "answer_cache_total",
	Help: "Semantic answer cache lookups labelled hit or miss",
}, []string{"outcome"})

type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HttpStatusRecorder) CaptureWriteHeaderMetrics(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

func IncrementJobsInQueue() {
	countJobsInQueue.Inc()
}

func DecrementJobsInQueue() {
	countJobsInQueue.Dec()
}

func StartDispatcherSignalCount() {
	dispatcherSignalCount.Inc()
}

func IncrementActiveWorkerCount() {
	activeWorkerCount.Inc()
}
func DecrementActiveWorkerCount() {
	activeWorkerCount.Dec()
}

func CountExtractionTier(class string) {
	extractionTierTotal.WithLabelValues(class).Inc()
}

func CountChunksUpserted(n int) {
	chunksUpsertedTotal.Add(float64(n))
}

func CountTenantCapRejection() {
	tenantCapRejectionsTotal.Inc()
}

func CountAnswerCache(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	answerCacheHitsTotal.WithLabelValues(outcome).Inc()
}

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "process_request_duration_seconds",
	Help:    "Total time spent in ProcessRequest.",
	Buckets: []float64{.1, .5, 1, 2, 5, 10, 30},
}, []string{"status"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
}, []string{"service"})

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

func CaptureJobMetrics(label string, timeElapsed time.Duration) {
	requestDuration.WithLabelValues(label).Observe(timeElapsed.Seconds())
}
