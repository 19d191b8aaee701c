package observability

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "s3200",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "s3200",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	transactions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "s3200",
			Subsystem: "serial",
			Name:      "transactions_total",
			Help:      "Serial request/response transactions by command and outcome.",
		},
		[]string{"command", "outcome"},
	)
	transactionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "s3200",
			Subsystem: "serial",
			Name:      "transaction_duration_seconds",
			Help:      "Serial transaction duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 3, 6},
		},
		[]string{"command", "outcome"},
	)
	listItems = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "s3200",
			Subsystem: "serial",
			Name:      "list_items",
			Help:      "Items collected per paginated list.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 500},
		},
		[]string{"command", "success"},
	)
	decodeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "s3200",
			Subsystem: "schema",
			Name:      "decode_errors_total",
			Help:      "Payload decode failures by layout.",
		},
		[]string{"layout"},
	)
)

// Transaction outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeChecksum    = "checksum"
	OutcomeFraming     = "framing"
	OutcomeNoAnswer    = "no_answer"
	OutcomeTransport   = "transport"
	OutcomeOpenFailure = "open"
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, transactions, transactionDuration, listItems, decodeErrors)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordTransaction(command byte, outcome string, duration time.Duration) {
	RegisterMetrics()
	label := commandLabel(command)
	transactions.WithLabelValues(label, outcome).Inc()
	transactionDuration.WithLabelValues(label, outcome).Observe(duration.Seconds())
}

func RecordList(command byte, items int, success bool) {
	RegisterMetrics()
	listItems.WithLabelValues(commandLabel(command), strconv.FormatBool(success)).Observe(float64(items))
}

func RecordDecodeError(layout string) {
	RegisterMetrics()
	decodeErrors.WithLabelValues(layout).Inc()
}

func commandLabel(command byte) string {
	return fmt.Sprintf("%02X", command)
}
