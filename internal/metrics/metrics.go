/*
Copyright 2024 Locafin Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	LedgerMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_mutations_total",
			Help: "Committed movement mutations by operation.",
		},
		[]string{"operation"},
	)

	PositionRowsWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "position_rows_written_total",
		Help: "Daily position rows written by the recalculator.",
	})

	RecalculationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "recalculation_duration_seconds",
		Help:    "Time spent recalculating positions for one account.",
		Buckets: prometheus.DefBuckets,
	})

	RecalculationFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recalculation_failures_total",
		Help: "Recalculations that failed after a committed mutation.",
	})

	CnabLinesSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cnab_lines_skipped_total",
			Help: "Lines of imported bank files that were not posted.",
		},
		[]string{"file"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Registry holds every Locafin collector.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		LedgerMutations,
		PositionRowsWritten,
		RecalculationDuration,
		RecalculationFailures,
		CnabLinesSkipped,
		httpRequestsTotal,
		httpRequestDuration,
		prometheus.NewGoCollector(),
	)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latencies labelled by route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		httpRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}
