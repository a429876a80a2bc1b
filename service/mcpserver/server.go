// Package mcpserver 通过 MCP 暴露工具目录，与对话入口共用同一执行器和确认策略
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"crm-agent-backend/service/agent/action"
	"crm-agent-backend/service/agent/tool"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	serverName    = "crm-agent"
	serverVersion = "1.0.0"

	// MCP 调用没有页面上下文
	mcpPage = "mcp"
)

type userIDKey struct{}

// WithUserID 由鉴权中间件写入请求上下文
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

func userIDFrom(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey{}).(string)
	return userID
}

type Server struct {
	mcpServer   *server.MCPServer
	httpHandler http.Handler
	executor    *action.Executor
}

func New(registry *tool.Registry, executor *action.Executor) (*Server, error) {
	s := &Server{
		mcpServer: server.NewMCPServer(serverName, serverVersion,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
		executor: executor,
	}

	for _, t := range registry.GetAll() {
		schema, err := json.Marshal(tool.SchemaOf(t).Parameters)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal schema of tool %s: %v", t.Name(), err)
		}
		s.mcpServer.AddTool(
			mcp.NewToolWithRawSchema(t.Name(), t.Description(), schema),
			s.handle(t),
		)
	}

	s.httpHandler = server.NewStreamableHTTPServer(s.mcpServer, server.WithStateLess(true))
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.httpHandler
}

// handle 需要确认的工具只创建待确认动作，其余直接执行
func (s *Server) handle(t tool.Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID := userIDFrom(ctx)
		if userID == "" {
			return mcp.NewToolResultError("unauthenticated"), nil
		}

		ec := tool.ExecutionContext{
			UserID: userID,
			Page:   mcpPage,
		}
		params := tool.Params(req.GetArguments())

		if t.RequiresApproval() {
			pending, err := s.executor.CreatePendingAction(ctx, t.Name(), params, ec)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return jsonResult(map[string]any{
				"status":      "PENDING",
				"action_id":   pending.ID,
				"description": pending.Description,
			}, false)
		}

		result, err := s.executor.ExecuteToolDirectly(ctx, t.Name(), params, ec)
		if err != nil {
			slog.Error("failed to execute tool via mcp",
				"tool", t.Name(),
				"user_id", userID,
				"err", err)
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(result, result.Result == nil || !result.Result.Success)
	}
}

func jsonResult(v any, isError bool) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool result: %v", err)
	}
	res := mcp.NewToolResultText(string(data))
	res.IsError = isError
	return res, nil
}
