package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rconduit",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests served by the bridge.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rconduit",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	consoleCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rconduit",
			Subsystem: "console",
			Name:      "commands_total",
			Help:      "Console commands executed through the bridge.",
		},
		[]string{"outcome"},
	)
	consoleCommandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rconduit",
			Subsystem: "console",
			Name:      "command_duration_seconds",
			Help:      "Console command round-trip duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
	consoleConnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rconduit",
			Subsystem: "console",
			Name:      "connect_attempts_total",
			Help:      "Console connection attempts by the bridge, including redials.",
		},
		[]string{"success"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, consoleCommands, consoleCommandDuration, consoleConnects)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, code).Inc()
	httpDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
}

func RecordConsoleCommand(outcome string, duration time.Duration) {
	consoleCommands.WithLabelValues(outcome).Inc()
	consoleCommandDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func RecordConsoleConnect(success bool) {
	consoleConnects.WithLabelValues(strconv.FormatBool(success)).Inc()
}
