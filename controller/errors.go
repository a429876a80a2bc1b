package controller

import "errors"

var (
	ErrParseRequest = errors.New("failed to parse request")

	ErrSubmitMessage     = errors.New("failed to process agent message")
	ErrApproveAction     = errors.New("failed to approve action")
	ErrRejectAction      = errors.New("failed to reject action")
	ErrActionProcessed   = errors.New("action not found or already processed")
	ErrGetPendingActions = errors.New("failed to get pending actions")

	ErrGetSession      = errors.New("failed to get agent session")
	ErrClearSession    = errors.New("failed to clear agent session")
	ErrSessionNotFound = errors.New("agent session not found")
	ErrGetSessions     = errors.New("failed to get agent sessions")
	ErrGetContext      = errors.New("failed to build agent context")
)
