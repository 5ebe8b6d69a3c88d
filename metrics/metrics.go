// File: /metrics/metrics.go
package metrics

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trianglecal_http_requests_total",
		Help: "HTTP requests handled, by method, route and status.",
	}, []string{"method", "route", "status"})

	GeoProviderCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trianglecal_geo_provider_calls_total",
		Help: "Calls to the external geocoding/directions provider, by service and outcome.",
	}, []string{"service", "outcome"})

	PlannerSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "trianglecal_planner_sessions",
		Help: "Route planner sessions currently held in memory.",
	})
)

// GinMiddleware counts every handled request.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Handler serves the Prometheus scrape endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
