// Package api contains the HTTP handlers of the agentflow REST API.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"

	"agentflow/internal/auth"
	"agentflow/internal/github"
	"agentflow/internal/logging"
	"agentflow/internal/services"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Pinger checks a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatsSource supplies the project repository counters.
type StatsSource interface {
	Stats(ctx context.Context) (*github.Stats, error)
}

// Deps are the collaborators of a Server.
type Deps struct {
	Agents     *services.AgentService
	Workflows  *services.WorkflowService
	Executions *services.ExecutionService
	CodeSearch *services.CodeSearchService
	GitHub     StatsSource
	Hub        *services.Hub
	DB         Pinger
	Logger     *logging.Logger
}

// Server holds the dependencies for the API server.
type Server struct {
	Deps
	upgrader websocket.Upgrader
}

// NewServer creates a new Server.
func NewServer(d Deps) *Server {
	return &Server{
		Deps: d,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterHandlers mounts the /api/v1 routes on g.
func RegisterHandlers(g *echo.Group, s *Server) {
	g.GET("/github/stars", s.GetGitHubStars)

	g.GET("/agents", s.ListAgents)
	g.POST("/agents", s.CreateAgent)
	g.GET("/agents/:id", s.GetAgent)
	g.PUT("/agents/:id", s.UpdateAgent)
	g.DELETE("/agents/:id", s.DeleteAgent)
	g.PUT("/agents/:id/status", s.UpdateAgentStatus)
	g.POST("/agents/:id/reset", s.ResetAgent)

	g.GET("/workflows", s.ListWorkflows)
	g.POST("/workflows", s.CreateWorkflow)
	g.POST("/workflows/validate", s.ValidateWorkflow)
	g.GET("/workflows/:id", s.GetWorkflow)
	g.PUT("/workflows/:id", s.UpdateWorkflow)
	g.DELETE("/workflows/:id", s.DeleteWorkflow)
	g.POST("/workflows/:id/executions", s.CreateExecution)
	g.GET("/workflows/:id/executions", s.ListExecutions)

	g.GET("/executions/:id", s.GetExecution)
	g.POST("/executions/:id/start", s.StartExecution)
	g.POST("/executions/:id/steps", s.RecordStepResult)
	g.POST("/executions/:id/finish", s.FinishExecution)
	g.POST("/executions/:id/cancel", s.CancelExecution)
	g.GET("/executions/:id/watch", s.WatchExecution)

	g.POST("/code/embeddings", s.IndexCode)
	g.DELETE("/code/embeddings", s.DeleteCodeFile)
	g.POST("/code/search", s.SearchCode)
}

// HealthStatus represents the health check response
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Database  string    `json:"database"`
}

// Health reports whether the service and its database are reachable
// (GET /healthz)
func (s *Server) Health(c echo.Context) error {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Service:   "agentflow",
		Version:   Version,
		Database:  "ok",
	}
	code := http.StatusOK
	if err := s.DB.Ping(c.Request().Context()); err != nil {
		s.Logger.WithError(err).Warn("health check: database unreachable")
		status.Status = "degraded"
		status.Database = "unavailable"
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, status)
}

// GetGitHubStars returns the project repository counters
// (GET /api/v1/github/stars)
func (s *Server) GetGitHubStars(c echo.Context) error {
	stats, err := s.GitHub.Stats(c.Request().Context())
	if err != nil {
		s.Logger.WithError(err).Warn("github stats unavailable")
		return c.JSON(http.StatusBadGateway, github.Stats{})
	}
	return c.JSON(http.StatusOK, stats)
}

// pathID binds the :id path parameter.
func pathID(c echo.Context) (int64, error) {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", "id", c.Param("id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid format for parameter id: "+err.Error())
	}
	if id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid parameter id: "+strconv.FormatInt(id, 10))
	}
	return id, nil
}

// currentUserID returns the id of the authenticated caller.
func currentUserID(c echo.Context) (int64, error) {
	user, ok := auth.UserFromContext(c.Request().Context())
	if !ok {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "User not found in context")
	}
	return user.ID, nil
}

func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+unwrapBindError(err))
	}
	return nil
}

func unwrapBindError(err error) string {
	if he, ok := err.(*echo.HTTPError); ok {
		if he.Internal != nil {
			return he.Internal.Error()
		}
		if msg, ok := he.Message.(string); ok {
			return msg
		}
	}
	return err.Error()
}
