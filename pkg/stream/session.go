package stream

import (
	"encoding/json"
	"sync"
	"time"

	"ai-notetaking-client/internal/constant"
	"ai-notetaking-client/internal/dto"
	"ai-notetaking-client/internal/pkg/logger"
)

// Status is the lifecycle state of a streamed agent reply.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusStreaming Status = "streaming"
	StatusCompleted Status = "completed"
	StatusErrored   Status = "errored"
	StatusCancelled Status = "cancelled"
)

// EstimateFunc approximates the token count of a text.
type EstimateFunc func(text string) int

// ContextEstimateFunc approximates the token cost of the context block the
// server injected for the given retrieved notes.
type ContextEstimateFunc func(notes []dto.RetrievedNoteDTO) int

// RetrievedContext is the RAG context the server attached to the reply.
type RetrievedContext struct {
	Notes    []dto.RetrievedNoteDTO `json:"notes"`
	RagLogId string                 `json:"rag_log_id,omitempty"`
}

// Snapshot is a read-only copy of the session state. Token estimates and
// duration are nil until computable.
type Snapshot struct {
	Status              Status            `json:"status"`
	MessageText         string            `json:"message_text"`
	ThinkingSteps       []ThinkingStep    `json:"thinking_steps"`
	ToolExecutions      []ToolExecution   `json:"tool_executions"`
	RetrievedContext    *RetrievedContext `json:"retrieved_context,omitempty"`
	InputTokenEstimate  *int              `json:"input_token_estimate,omitempty"`
	OutputTokenEstimate *int              `json:"output_token_estimate,omitempty"`
	ProcessingStatus    string            `json:"processing_status,omitempty"`
	DurationMs          *int64            `json:"duration_ms,omitempty"`
	Error               string            `json:"error,omitempty"`
}

// Session owns the aggregate state of one streamed agent reply and the
// transition rules between its statuses. All mutation happens through
// HandleFrame and the lifecycle methods; readers get copies via Snapshot.
//
// The token estimator and the completion hook are injected so the machine
// stays testable without process-wide setup. The completion hook fires on
// the completed transition only; scheduling (the invalidation debounce)
// belongs to the owning layer, not here.
type Session struct {
	mu sync.Mutex

	status           Status
	messageText      string
	thinking         *ThinkingTracker
	tools            *ToolTracker
	retrieved        *RetrievedContext
	inputTokens      *int
	outputTokens     *int
	processingStatus string
	errMsg           string
	startedAt        time.Time
	durationMs       *int64

	estimate        EstimateFunc
	estimateContext ContextEstimateFunc
	onCompleted     func()
	log             logger.ILogger
	now             func() time.Time
}

func NewSession(log logger.ILogger, estimate EstimateFunc, estimateContext ContextEstimateFunc, onCompleted func()) *Session {
	return &Session{
		status:          StatusIdle,
		thinking:        NewThinkingTracker(),
		tools:           NewToolTracker(),
		estimate:        estimate,
		estimateContext: estimateContext,
		onCompleted:     onCompleted,
		log:             log,
		now:             time.Now,
	}
}

// Begin moves the session to streaming and clears every aggregate field,
// including the token counters and duration a Reset deliberately preserves.
// The outgoing message is estimated up front; retrieved-context cost is
// added later if a context_retrieval frame arrives.
func (s *Session) Begin(outgoingMessage string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearAggregatesLocked()
	s.inputTokens = nil
	s.outputTokens = nil
	s.durationMs = nil
	if s.estimate != nil {
		in := s.estimate(outgoingMessage)
		s.inputTokens = &in
	}
	s.status = StatusStreaming
}

func (s *Session) clearAggregatesLocked() {
	s.messageText = ""
	s.thinking.Reset()
	s.tools.Reset()
	s.retrieved = nil
	s.processingStatus = ""
	s.errMsg = ""
	s.startedAt = time.Time{}
}

// HandleFrame dispatches one decoded frame. Frames received outside the
// streaming state are ignored; malformed payloads are logged and dropped
// without terminating the stream.
func (s *Session) HandleFrame(frame Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusStreaming {
		return
	}

	switch frame.Event {
	case constant.StreamEventStart:
		s.startedAt = s.now()

	case constant.StreamEventMessage, constant.StreamEventData:
		s.messageText += frame.Data
		s.thinking.Apply(s.messageText, s.now())
		if s.estimate != nil {
			out := s.estimate(s.messageText)
			s.outputTokens = &out
		}

	case constant.StreamEventToolStart:
		var payload dto.ToolStartPayload
		if !s.decodePayload(frame, &payload) {
			return
		}
		s.tools.Start(payload.Tool, payload.Arguments, s.now())

	case constant.StreamEventToolEnd:
		var payload dto.ToolEndPayload
		if !s.decodePayload(frame, &payload) {
			return
		}
		if !s.tools.Finish(payload.Tool, payload.Result) {
			s.log.Debug("StreamSession", "tool_end without matching open invocation", map[string]interface{}{"tool": payload.Tool})
		}

	case constant.StreamEventThinking:
		var payload dto.ThinkingPayload
		if !s.decodePayload(frame, &payload) {
			return
		}
		s.thinking.ApplyEvent(payload.Content, s.now())

	case constant.StreamEventStatus:
		var payload dto.StatusPayload
		if !s.decodePayload(frame, &payload) {
			return
		}
		s.processingStatus = payload.Status

	case constant.StreamEventContextRetrieval:
		var payload dto.ContextRetrievalPayload
		if !s.decodePayload(frame, &payload) {
			return
		}
		if s.retrieved != nil {
			// Context arrives at most once; a duplicate at session end is a
			// fallback and must not double-count tokens.
			if s.retrieved.RagLogId == "" {
				s.retrieved.RagLogId = payload.RagLogId
			}
			return
		}
		s.retrieved = &RetrievedContext{Notes: payload.RetrievedNotes, RagLogId: payload.RagLogId}
		if s.estimateContext != nil && len(payload.RetrievedNotes) > 0 {
			contextCost := s.estimateContext(payload.RetrievedNotes)
			total := contextCost
			if s.inputTokens != nil {
				total += *s.inputTokens
			}
			s.inputTokens = &total
		}

	case constant.StreamEventEnd:
		var payload dto.EndPayload
		// End frames may carry a bare acknowledgement payload; a decode
		// failure still finalizes the session.
		if err := json.Unmarshal([]byte(frame.Data), &payload); err == nil && payload.RagLogId != "" {
			if s.retrieved == nil {
				s.retrieved = &RetrievedContext{RagLogId: payload.RagLogId}
			} else if s.retrieved.RagLogId == "" {
				s.retrieved.RagLogId = payload.RagLogId
			}
		}
		s.finalizeLocked(StatusCompleted)

	case constant.StreamEventError:
		s.errMsg = parseErrorPayload(frame.Data)
		s.finalizeLocked(StatusErrored)

	default:
		s.log.Debug("StreamSession", "ignoring unknown event type", map[string]interface{}{"event": frame.Event})
	}
}

func (s *Session) decodePayload(frame Frame, out interface{}) bool {
	if err := json.Unmarshal([]byte(frame.Data), out); err != nil {
		s.log.Warn("StreamSession", "dropping malformed frame payload", map[string]interface{}{
			"event": frame.Event,
			"error": err.Error(),
		})
		return false
	}
	return true
}

// parseErrorPayload extracts the error message from an error frame: the
// JSON "error" field when present, the raw payload when not JSON, a generic
// message when there is nothing at all.
func parseErrorPayload(data string) string {
	if data == "" {
		return "stream error"
	}
	var payload dto.ErrorPayload
	if err := json.Unmarshal([]byte(data), &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return data
}

// Complete finalizes the session on graceful stream closure without an
// explicit end frame.
func (s *Session) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusStreaming {
		return
	}
	s.finalizeLocked(StatusCompleted)
}

// Fail moves the session to errored with the given transport error message.
func (s *Session) Fail(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusStreaming {
		return
	}
	s.errMsg = message
	s.finalizeLocked(StatusErrored)
}

// MarkCancelled records the caller's cancellation intent. State already
// parsed stays visible; the transition only stops further processing.
func (s *Session) MarkCancelled() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusStreaming {
		return
	}
	s.finalizeLocked(StatusCancelled)
}

func (s *Session) finalizeLocked(terminal Status) {
	s.processingStatus = ""
	if !s.startedAt.IsZero() {
		elapsed := s.now().Sub(s.startedAt).Milliseconds()
		s.durationMs = &elapsed
	}
	s.status = terminal
	if terminal == StatusCompleted && s.onCompleted != nil {
		s.onCompleted()
	}
}

// Reset returns the session to idle and clears everything except the token
// estimates and duration, which stay visible until the next Begin so the UI
// can keep showing the finished stream's statistics.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearAggregatesLocked()
	s.status = StatusIdle
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Snapshot copies all session fields for the consumer.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Status:           s.status,
		MessageText:      s.messageText,
		ThinkingSteps:    s.thinking.Steps(),
		ToolExecutions:   s.tools.Executions(),
		ProcessingStatus: s.processingStatus,
		Error:            s.errMsg,
	}
	if s.retrieved != nil {
		retrieved := *s.retrieved
		retrieved.Notes = append([]dto.RetrievedNoteDTO(nil), s.retrieved.Notes...)
		snap.RetrievedContext = &retrieved
	}
	if s.inputTokens != nil {
		in := *s.inputTokens
		snap.InputTokenEstimate = &in
	}
	if s.outputTokens != nil {
		out := *s.outputTokens
		snap.OutputTokenEstimate = &out
	}
	if s.durationMs != nil {
		d := *s.durationMs
		snap.DurationMs = &d
	}
	return snap
}
