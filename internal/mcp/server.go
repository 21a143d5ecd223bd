// Package mcp exposes workflow, execution and code search operations as
// Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"agentflow/internal/logging"
	"agentflow/internal/services"
)

// Server wraps the MCP server and the services its tools call.
type Server struct {
	mcpServer  *server.MCPServer
	workflows  *services.WorkflowService
	executions *services.ExecutionService
	codeSearch *services.CodeSearchService
	logger     *logging.Logger
}

// NewServer creates an MCP server with the agentflow tools registered.
func NewServer(workflows *services.WorkflowService, executions *services.ExecutionService, codeSearch *services.CodeSearchService, logger *logging.Logger) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"agentflow",
			"1.0.0",
			server.WithToolCapabilities(true),
		),
		workflows:  workflows,
		executions: executions,
		codeSearch: codeSearch,
		logger:     logger,
	}

	s.registerTools()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_workflows",
			mcp.WithDescription("List every workflow definition"),
		),
		s.handleListWorkflows,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"validate_workflow",
			mcp.WithDescription("Check a workflow definition for duplicate, empty or dangling step ids and dependency cycles without saving it"),
			mcp.WithString("definition", mcp.Required(), mcp.Description("The workflow definition as YAML or JSON")),
		),
		s.handleValidateWorkflow,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_execution",
			mcp.WithDescription("Get the state and step results of a workflow execution"),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("The execution id")),
		),
		s.handleGetExecution,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"cancel_execution",
			mcp.WithDescription("Cancel a pending or running workflow execution"),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("The execution id")),
		),
		s.handleCancelExecution,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"search_code",
			mcp.WithDescription("Find indexed code chunks by meaning"),
			mcp.WithString("query", mcp.Required(), mcp.Description("Natural language description of the code")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of matches, default 10")),
		),
		s.handleSearchCode,
	)
}

func args(request mcp.CallToolRequest) map[string]any {
	if a, ok := request.Params.Arguments.(map[string]any); ok {
		return a
	}
	return map[string]any{}
}

// idArg reads a positive integer id. JSON numbers arrive as float64.
func idArg(request mcp.CallToolRequest) (int64, bool) {
	f, ok := args(request)["id"].(float64)
	if !ok || f < 1 || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleListWorkflows(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workflows, err := s.workflows.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list workflows: %v", err)), nil
	}
	return jsonResult(workflows)
}

func (s *Server) handleValidateWorkflow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	definition, ok := args(request)["definition"].(string)
	if !ok || definition == "" {
		return mcp.NewToolResultError("Missing required parameter: definition"), nil
	}

	in, err := services.ParseDefinition([]byte(definition))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	report, err := services.CheckDefinition(in.Workflow())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid workflow: %v", err)), nil
	}
	return jsonResult(report)
}

func (s *Server) handleGetExecution(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, ok := idArg(request)
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: id"), nil
	}

	e, err := s.executions.Get(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get execution %d: %v", id, err)), nil
	}
	return jsonResult(e)
}

func (s *Server) handleCancelExecution(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, ok := idArg(request)
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: id"), nil
	}

	e, err := s.executions.Cancel(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to cancel execution %d: %v", id, err)), nil
	}
	s.logger.Info("execution %d cancelled through MCP", id)
	return jsonResult(e)
}

func (s *Server) handleSearchCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a := args(request)
	query, ok := a["query"].(string)
	if !ok || query == "" {
		return mcp.NewToolResultError("Missing required parameter: query"), nil
	}
	limit := 0
	if f, ok := a["limit"].(float64); ok {
		limit = int(f)
	}

	matches, err := s.codeSearch.Search(ctx, query, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to search code: %v", err)), nil
	}
	return jsonResult(matches)
}

// Mount serves the MCP endpoints on e: streamable HTTP at /mcp and the
// SSE transport at /mcp/sse with messages posted to /mcp/message.
func Mount(e *echo.Echo, s *server.MCPServer, mw ...echo.MiddlewareFunc) {
	sseServer := server.NewSSEServer(s, server.WithStaticBasePath("/mcp"))
	streamable := server.NewStreamableHTTPServer(s, server.WithEndpointPath("/mcp"))

	g := e.Group("/mcp", mw...)
	g.Any("", echo.WrapHandler(streamable))
	g.GET("/sse", echo.WrapHandler(sseServer))
	g.POST("/message", echo.WrapHandler(sseServer))
}
