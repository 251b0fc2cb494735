package stream

import (
	"time"

	"ai-notetaking-client/internal/constant"
)

// ToolExecution records one invocation of an agent capability, from the
// tool_start frame to its eventual tool_end.
type ToolExecution struct {
	Tool      string    `json:"tool"`
	Arguments string    `json:"arguments"`
	Result    string    `json:"result"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ToolTracker keeps tool executions in invocation order. Completion is
// matched by tool name: the first still-executing entry with that name is
// closed. The wire protocol carries no call identifier, so two concurrent
// invocations of the same tool cannot be told apart.
type ToolTracker struct {
	executions []ToolExecution
}

func NewToolTracker() *ToolTracker {
	return &ToolTracker{}
}

// Start appends a new executing entry.
func (t *ToolTracker) Start(tool, arguments string, now time.Time) {
	t.executions = append(t.executions, ToolExecution{
		Tool:      tool,
		Arguments: arguments,
		Status:    constant.ToolStatusExecuting,
		Timestamp: now,
	})
}

// Finish closes the first open invocation of the named tool. A tool_end
// with no matching open invocation is dropped; it must not create an
// orphan record.
func (t *ToolTracker) Finish(tool, result string) bool {
	for i := range t.executions {
		if t.executions[i].Tool == tool && t.executions[i].Status == constant.ToolStatusExecuting {
			t.executions[i].Result = result
			t.executions[i].Status = constant.ToolStatusCompleted
			return true
		}
	}
	return false
}

// Executions returns a copy of the tracked executions in invocation order.
func (t *ToolTracker) Executions() []ToolExecution {
	out := make([]ToolExecution, len(t.executions))
	copy(out, t.executions)
	return out
}

// Reset drops all tracked executions.
func (t *ToolTracker) Reset() {
	t.executions = nil
}
