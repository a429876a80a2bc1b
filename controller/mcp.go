package controller

import (
	"net/http"

	"crm-agent-backend/middleware"
	"crm-agent-backend/service/mcpserver"

	"github.com/gin-gonic/gin"
)

// MCP 把鉴权得到的用户写入请求上下文后交给 MCP 服务
func MCP(handler http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := mcpserver.WithUserID(c.Request.Context(), c.GetString(middleware.ContextUserID))
		handler.ServeHTTP(c.Writer, c.Request.WithContext(ctx))
	}
}
