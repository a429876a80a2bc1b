package router

import (
	"net/http"

	"crm-agent-backend/controller"
	"crm-agent-backend/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Options struct {
	JWTSecret   string
	CORSOrigins []string

	// 为空时不挂载 /mcp
	MCPHandler http.Handler
}

func Register(agent *controller.AgentController, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(middleware.CORSMiddleware(opts.CORSOrigins))

	r.GET("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := middleware.AuthMiddleware(opts.JWTSecret)

	if opts.MCPHandler != nil {
		r.Any("/mcp", auth, controller.MCP(opts.MCPHandler))
	}

	api := r.Group("/api")
	api.Use(auth)
	{
		a := api.Group("/agent")
		a.POST("/chat", agent.Chat)
		a.POST("/chat/stream", agent.ChatStream)

		a.POST("/actions/:id/approve", agent.ApproveAction)
		a.POST("/actions/:id/reject", agent.RejectAction)
		a.GET("/actions/pending", agent.GetPendingActions)

		a.GET("/session", agent.GetSession)
		a.DELETE("/session/:id/messages", agent.ClearSession)
		a.GET("/sessions/recent", agent.GetRecentSessions)

		a.GET("/context", agent.GetContext)
	}

	return r
}
