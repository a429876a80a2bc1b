package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"crm-agent-backend/middleware"
	"crm-agent-backend/request"
	"crm-agent-backend/response"
	"crm-agent-backend/service/agent/action"
	"crm-agent-backend/service/chat"

	"github.com/gin-gonic/gin"
)

type AgentController struct {
	agent *chat.Agent
}

func NewAgentController(agent *chat.Agent) *AgentController {
	return &AgentController{agent: agent}
}

func scopeOf(c *gin.Context, page, entityType, entityID string) chat.Scope {
	return chat.Scope{
		UserID:     c.GetString(middleware.ContextUserID),
		UserName:   c.GetString(middleware.ContextUserName),
		Page:       page,
		EntityType: entityType,
		EntityID:   entityID,
	}
}

func (ac *AgentController) Chat(c *gin.Context) {
	var req request.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	scope := scopeOf(c, req.Page, req.EntityType, req.EntityID)
	reply, err := ac.agent.SubmitMessage(c.Request.Context(), scope, req.Message)
	if err != nil {
		slog.Error(ErrSubmitMessage.Error(), "user_id", scope.UserID, "err", err)
		status := http.StatusInternalServerError
		if errors.Is(err, chat.ErrEmptyMessage) {
			status = http.StatusBadRequest
		} else if errors.Is(err, chat.ErrReasoningFailed) {
			status = http.StatusBadGateway
		}
		c.AbortWithStatusJSON(status, response.Response{
			Msg: ErrSubmitMessage.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Data: reply,
	})
}

// ChatStream 以 SSE 返回推理文本片段，结束时推送工具调用结果、待确认动作和最终回复
func (ac *AgentController) ChatStream(c *gin.Context) {
	stream := newChatStream(c)

	var req request.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		stream.Fail(ErrParseRequest)
		return
	}

	scope := scopeOf(c, req.Page, req.EntityType, req.EntityID)
	reply, err := ac.agent.SubmitMessageStream(c.Request.Context(), scope, req.Message,
		func(ctx context.Context, chunk []byte) error {
			stream.Delta(chunk)
			return ctx.Err()
		})
	if err != nil {
		slog.Error(ErrSubmitMessage.Error(), "user_id", scope.UserID, "err", err)
		stream.Fail(ErrSubmitMessage)
		return
	}

	stream.Reply(reply)
}

func (ac *AgentController) ApproveAction(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)
	actionID := c.Param("id")

	result, err := ac.agent.ApproveAction(c.Request.Context(), actionID, userID)
	if result == nil && err != nil {
		if errors.Is(err, action.ErrActionNotFound) {
			c.AbortWithStatusJSON(http.StatusConflict, response.Response{
				Msg: ErrActionProcessed.Error(),
			})
			return
		}
		slog.Error(ErrApproveAction.Error(), "action_id", actionID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrApproveAction.Error(),
		})
		return
	}
	if err != nil {
		// 动作已标记为 FAILED，结果照常返回
		slog.Warn("Approved action failed", "action_id", actionID, "err", err)
	}

	c.JSON(http.StatusOK, response.Response{
		Data: result,
	})
}

func (ac *AgentController) RejectAction(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)
	actionID := c.Param("id")

	if err := ac.agent.RejectAction(c.Request.Context(), actionID, userID); err != nil {
		if errors.Is(err, action.ErrActionNotFound) {
			c.AbortWithStatusJSON(http.StatusConflict, response.Response{
				Msg: ErrActionProcessed.Error(),
			})
			return
		}
		slog.Error(ErrRejectAction.Error(), "action_id", actionID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrRejectAction.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.Response{})
}

func (ac *AgentController) GetPendingActions(c *gin.Context) {
	var query request.PendingActionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	userID := c.GetString(middleware.ContextUserID)
	actions, err := ac.agent.GetPendingActions(c.Request.Context(), userID, query.SessionID)
	if err != nil {
		slog.Error(ErrGetPendingActions.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetPendingActions.Error(),
		})
		return
	}

	resp := response.GetPendingActionsResponse{
		Actions: make([]response.ActionResponse, 0, len(actions)),
	}
	for i := range actions {
		resp.Actions = append(resp.Actions, response.NewActionResponse(&actions[i]))
	}

	c.JSON(http.StatusOK, response.Response{
		Data: resp,
	})
}

func (ac *AgentController) GetContext(c *gin.Context) {
	var query request.ScopeQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	enhanced, err := ac.agent.FetchContext(c.Request.Context(),
		scopeOf(c, query.Page, query.EntityType, query.EntityID))
	if err != nil {
		slog.Error(ErrGetContext.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetContext.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Data: enhanced,
	})
}
