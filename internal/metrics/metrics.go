package metrics

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentbox_commands_total",
			Help: "Commands by policy classification",
		},
		[]string{"classification"},
	)

	CommandTimeoutsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "agentbox_command_timeouts_total",
			Help: "Commands killed by the wall-clock timeout",
		},
	)

	ExecDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "agentbox_exec_duration_seconds",
			Help:    "Time to execute a foreground command",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 30.0, 60.0, 300.0},
		},
	)

	FileOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentbox_file_ops_total",
			Help: "File operations by type and outcome",
		},
		[]string{"op", "status"},
	)

	ToolInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentbox_tool_invocations_total",
			Help: "Tool dispatches by tool name and outcome",
		},
		[]string{"tool", "status"},
	)

	PTYSessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "agentbox_pty_sessions_active",
			Help: "Number of active PTY sessions",
		},
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentbox_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		CommandsTotal,
		CommandTimeoutsTotal,
		ExecDuration,
		FileOpsTotal,
		ToolInvocationsTotal,
		PTYSessionsActive,
		HTTPRequestsTotal,
	)
}

// Handler returns the HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// EchoMiddleware instruments HTTP requests.
func EchoMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}

			HTTPRequestsTotal.WithLabelValues(
				c.Request().Method,
				c.Path(),
				strconv.Itoa(status),
			).Inc()
			return err
		}
	}
}
