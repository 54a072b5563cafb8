// Package api exposes the tool surface over HTTP. All operations go
// through the dispatch registry; the handlers translate typed error
// kinds into HTTP statuses and never let a bad request crash the daemon.
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/agentbox/agentbox/internal/auth"
	"github.com/agentbox/agentbox/internal/metrics"
	"github.com/agentbox/agentbox/internal/pty"
	"github.com/agentbox/agentbox/internal/sandbox"
	"github.com/agentbox/agentbox/internal/tool"
	"github.com/agentbox/agentbox/pkg/types"
)

// Server holds the API server dependencies.
type Server struct {
	echo       *echo.Echo
	manager    *sandbox.Manager
	registry   *tool.Registry
	ptyManager *pty.Manager
}

// NewServer creates the API server with all routes configured.
func NewServer(mgr *sandbox.Manager, registry *tool.Registry, ptyMgr *pty.Manager, apiKey string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:       e,
		manager:    mgr,
		registry:   registry,
		ptyManager: ptyMgr,
	}

	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.RequestID())
	e.Use(metrics.EchoMiddleware())

	// Health and metrics (no auth)
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	// Tool surface (with auth)
	api := e.Group("")
	api.Use(auth.APIKeyMiddleware(apiKey))

	api.GET("/tools", s.listTools)
	api.POST("/tools/:name", s.invokeTool)

	// Background processes
	api.GET("/processes", s.listProcesses)
	api.GET("/processes/:handle", s.pollProcess)
	api.POST("/processes/:handle/collect", s.collectProcess)
	api.DELETE("/processes/:handle", s.killProcess)

	// Interactive sessions
	api.POST("/pty", s.createPTY)
	api.GET("/pty/:sessionID", s.ptyWebSocket)
	api.POST("/pty/:sessionID/resize", s.resizePTY)
	api.DELETE("/pty/:sessionID", s.killPTY)

	return s
}

// Start starts the HTTP server on the given address.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Close shuts down the server.
func (s *Server) Close() error {
	return s.echo.Close()
}

// ServeHTTP implements http.Handler for tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// statusFor maps typed error kinds to HTTP statuses.
func statusFor(err error) int {
	switch types.KindOf(err) {
	case types.KindBlocked:
		return http.StatusForbidden
	case types.KindNotAbsolute, types.KindAmbiguousMatch:
		return http.StatusBadRequest
	case types.KindOutsideScope:
		return http.StatusForbidden
	case types.KindNotFound:
		return http.StatusNotFound
	case types.KindNotAFile, types.KindParentMissing, types.KindNotText, types.KindNotWritable:
		return http.StatusUnprocessableEntity
	case types.KindStillRunning:
		return http.StatusConflict
	case types.KindSpawnFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// errorJSON renders a failure as a typed JSON body.
func errorJSON(c echo.Context, err error) error {
	if e, ok := err.(*types.Error); ok {
		return c.JSON(statusFor(err), e)
	}
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
