package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActionStatus_CanTransitionTo(t *testing.T) {
	all := []ActionStatus{
		ActionStatusPending,
		ActionStatusExecuting,
		ActionStatusCompleted,
		ActionStatusFailed,
		ActionStatusRejected,
	}
	allowed := map[[2]ActionStatus]bool{
		{ActionStatusPending, ActionStatusExecuting}:   true,
		{ActionStatusPending, ActionStatusRejected}:    true,
		{ActionStatusExecuting, ActionStatusCompleted}: true,
		{ActionStatusExecuting, ActionStatusFailed}:    true,
	}

	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]ActionStatus{from, to}], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}
