package controller

import (
	"errors"
	"log/slog"
	"net/http"

	"crm-agent-backend/middleware"
	"crm-agent-backend/request"
	"crm-agent-backend/response"
	"crm-agent-backend/service/agent/session"

	"github.com/gin-gonic/gin"
)

const (
	defaultRecentSessions = 10
	maxRecentSessions     = 50
)

func (ac *AgentController) GetSession(c *gin.Context) {
	var query request.ScopeQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	s, err := ac.agent.FetchSession(c.Request.Context(),
		scopeOf(c, query.Page, query.EntityType, query.EntityID))
	if err != nil {
		slog.Error(ErrGetSession.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetSession.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Data: response.NewSessionResponse(s),
	})
}

func (ac *AgentController) ClearSession(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)
	sessionID := c.Param("id")

	if err := ac.agent.ClearSession(c.Request.Context(), sessionID, userID); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, response.Response{
				Msg: ErrSessionNotFound.Error(),
			})
			return
		}
		slog.Error(ErrClearSession.Error(), "session_id", sessionID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrClearSession.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.Response{})
}

func (ac *AgentController) GetRecentSessions(c *gin.Context) {
	var query request.RecentSessionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}
	limit := query.Limit
	if limit <= 0 {
		limit = defaultRecentSessions
	}
	limit = min(limit, maxRecentSessions)

	userID := c.GetString(middleware.ContextUserID)
	sessions, err := ac.agent.GetRecentSessions(c.Request.Context(), userID, limit)
	if err != nil {
		slog.Error(ErrGetSessions.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetSessions.Error(),
		})
		return
	}

	resp := response.GetSessionsResponse{
		Sessions: make([]response.SessionResponse, 0, len(sessions)),
	}
	for i := range sessions {
		resp.Sessions = append(resp.Sessions, response.NewSessionResponse(&sessions[i]))
	}

	c.JSON(http.StatusOK, response.Response{
		Data: resp,
	})
}
