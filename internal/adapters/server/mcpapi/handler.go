// Package mcpapi provides a stateless MCP streamable-HTTP adapter.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/evanschultz/taskflow/internal/adapters/server/common"
	"github.com/evanschultz/taskflow/internal/domain"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter exposing the board tools.
func NewHandler(cfg Config, board common.BoardService) (*Handler, error) {
	if board == nil {
		return nil, fmt.Errorf("board service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerBoardTools(mcpSrv, board)
	registerTaskTools(mcpSrv, board)
	registerReportTools(mcpSrv, board)

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "taskflow"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// registerBoardTools registers the board read and column tools.
func registerBoardTools(srv *mcpserver.MCPServer, board common.BoardService) {
	srv.AddTool(
		mcp.NewTool(
			"taskflow.get_board",
			mcp.WithDescription("Return every column with its tasks in display order, plus the board summary."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			view, err := board.Board(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("get_board", view)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"taskflow.create_column",
			mcp.WithDescription("Append a new column after the existing ones."),
			mcp.WithString("title", mcp.Required(), mcp.Description("Column title")),
			mcp.WithString("color", mcp.Description("Palette value, e.g. from-green-500 to-green-600")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			title, err := req.RequireString("title")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			column, err := board.CreateColumn(ctx, common.CreateColumnRequest{
				Title: title,
				Color: req.GetString("color", ""),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("create_column", column)
		},
	)
}

// registerTaskTools registers task create/update/move/delete tools.
func registerTaskTools(srv *mcpserver.MCPServer, board common.BoardService) {
	priorities := make([]string, 0, len(domain.Priorities()))
	for _, p := range domain.Priorities() {
		priorities = append(priorities, string(p))
	}

	srv.AddTool(
		mcp.NewTool(
			"taskflow.create_task",
			mcp.WithDescription("Create a task in the To Do column."),
			mcp.WithString("title", mcp.Required(), mcp.Description("Task title")),
			mcp.WithString("description", mcp.Description("Task description")),
			mcp.WithString("priority", mcp.Description("Task priority"), mcp.Enum(priorities...)),
			mcp.WithString("assignee", mcp.Description("Assignee display name")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			title, err := req.RequireString("title")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			task, err := board.CreateTask(ctx, common.CreateTaskRequest{
				Title:       title,
				Description: req.GetString("description", ""),
				Priority:    req.GetString("priority", ""),
				Assignee:    req.GetString("assignee", ""),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("create_task", task)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"taskflow.update_task",
			mcp.WithDescription("Patch one task. Omitted fields stay unchanged."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Task id")),
			mcp.WithString("title", mcp.Description("New title")),
			mcp.WithString("description", mcp.Description("New description")),
			mcp.WithString("status", mcp.Description("Target column id")),
			mcp.WithString("priority", mcp.Description("New priority"), mcp.Enum(priorities...)),
			mcp.WithString("assignee", mcp.Description("New assignee display name")),
			mcp.WithNumber("progress", mcp.Description("Progress percentage 0..100")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := req.RequireString("id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			args := req.GetArguments()
			patch := common.UpdateTaskRequest{
				ID:          id,
				Title:       optionalString(args, "title"),
				Description: optionalString(args, "description"),
				Status:      optionalString(args, "status"),
				Priority:    optionalString(args, "priority"),
				Assignee:    optionalString(args, "assignee"),
			}
			if _, ok := args["progress"]; ok {
				progress := req.GetInt("progress", 0)
				patch.Progress = &progress
			}
			task, err := board.UpdateTask(ctx, patch)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("update_task", task)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"taskflow.move_task",
			mcp.WithDescription("Move one task to another column."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Task id")),
			mcp.WithString("status", mcp.Required(), mcp.Description("Target column id")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := req.RequireString("id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			status, err := req.RequireString("status")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			task, err := board.MoveTask(ctx, common.MoveTaskRequest{ID: id, Status: status})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("move_task", task)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"taskflow.delete_task",
			mcp.WithDescription("Delete one task. Unknown ids succeed."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Task id")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := req.RequireString("id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if err := board.DeleteTask(ctx, id); err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("delete_task", map[string]any{
				"id":      id,
				"deleted": true,
			})
		},
	)
}

// registerReportTools registers the summary and activity tools.
func registerReportTools(srv *mcpserver.MCPServer, board common.BoardService) {
	srv.AddTool(
		mcp.NewTool(
			"taskflow.report_summary",
			mcp.WithDescription("Return completion, priority and productivity figures for the board."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			summary, err := board.Summary(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("report_summary", summary)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"taskflow.list_activity",
			mcp.WithDescription("List activity entries, newest first."),
			mcp.WithString("source", mcp.Description("recorded (default) or synthesized"), mcp.Enum(common.SupportedActivitySources()...)),
			mcp.WithNumber("limit", mcp.Description("Maximum entries; 0 means the default")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			feed, err := board.ListActivity(ctx, common.ListActivityRequest{
				Source: req.GetString("source", ""),
				Limit:  req.GetInt("limit", 0),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("list_activity", feed)
		},
	)
}

// optionalString returns a pointer to a string argument when the caller sent one.
func optionalString(args map[string]any, key string) *string {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil
	}
	value, ok := raw.(string)
	if !ok {
		value = fmt.Sprint(raw)
	}
	return &value
}

// jsonResult encodes one tool payload.
func jsonResult(tool string, payload any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", tool, err)
	}
	return result, nil
}

// toolResultFromError maps service errors into MCP-visible tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, common.ErrInvalidRequest):
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	case errors.Is(err, common.ErrNotFound):
		return mcp.NewToolResultError("not_found: " + err.Error())
	default:
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}
