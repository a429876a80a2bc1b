package controller

import (
	"crm-agent-backend/service/agent/action"
	"crm-agent-backend/service/chat"

	"github.com/gin-gonic/gin"
)

const (
	eventDelta           = "delta"
	eventToolCallResults = "tool_call_results"
	eventPendingActions  = "pending_actions"
	eventFinalAnswer     = "final_answer"
	eventError           = "error"
	eventDone            = "done"
)

// chatStream 将一轮对话写成 SSE 事件，每个事件立即 flush
// 顺序: delta* -> tool_call_results? -> pending_actions? -> final_answer -> done
type chatStream struct {
	c *gin.Context
}

func newChatStream(c *gin.Context) *chatStream {
	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Transfer-Encoding", "chunked")
	h.Set("X-Accel-Buffering", "no")
	return &chatStream{c: c}
}

func (s *chatStream) send(event string, data any) {
	s.c.SSEvent(event, data)
	s.c.Writer.Flush()
}

func (s *chatStream) Delta(chunk []byte) {
	s.send(eventDelta, string(chunk))
}

func (s *chatStream) Outcomes(outcomes []chat.Outcome) {
	if len(outcomes) == 0 {
		return
	}
	s.send(eventToolCallResults, outcomes)
}

func (s *chatStream) PendingActions(pending []action.PendingAction) {
	if len(pending) == 0 {
		return
	}
	s.send(eventPendingActions, pending)
}

// Reply 推送本轮的工具结果、待确认动作和最终回复，然后结束
func (s *chatStream) Reply(reply *chat.Reply) {
	s.Outcomes(reply.Outcomes)
	s.PendingActions(reply.PendingActions)
	s.send(eventFinalAnswer, reply)
	s.done()
}

// Fail 只推送对外错误信息，然后结束
func (s *chatStream) Fail(err error) {
	s.send(eventError, err.Error())
	s.done()
}

func (s *chatStream) done() {
	s.send(eventDone, "")
}
