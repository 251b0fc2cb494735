package constant

// Event types emitted by the agent streaming endpoint.
const (
	StreamEventStart            = "start"
	StreamEventMessage          = "message"
	StreamEventData             = "data"
	StreamEventToolStart        = "tool_start"
	StreamEventToolEnd          = "tool_end"
	StreamEventThinking         = "thinking"
	StreamEventStatus           = "status"
	StreamEventContextRetrieval = "context_retrieval"
	StreamEventEnd              = "end"
	StreamEventError            = "error"
)

// Tool execution lifecycle.
const (
	ToolStatusExecuting = "executing"
	ToolStatusCompleted = "completed"
)

// Thinking block tag spellings. Both appear in the wild depending on which
// model produced the reply, so both must be recognized.
const (
	ThinkingTagLong  = "thinking"
	ThinkingTagShort = "think"
)

// ThinkingEventPrefixLength is how many characters of a thinking step's
// content are compared when matching a dedicated "thinking" event against
// steps already discovered in the message text.
const ThinkingEventPrefixLength = 50

// Token estimation. The backend uses the same character heuristic, so the
// client-side estimate stays consistent with server-side accounting.
const (
	TokenCharsPerToken = 4

	// Context block framing. Must mirror what the backend injects into the
	// agent prompt when RAG context is attached, since the injected block is
	// reconstructed locally to estimate its token cost.
	ContextBlockHeader = "Relevant notes from your knowledge base:"
	ContextBlockFooter = "Answer using these notes where they are relevant."
)

// Cache invalidation topics published after a streamed reply completes.
const (
	InvalidateConversationTopic     = "cache.invalidate.conversation"
	InvalidateConversationListTopic = "cache.invalidate.conversation_list"
	InvalidateNotesTopic            = "cache.invalidate.notes"
)

// InvalidationDebounceMs delays invalidation after stream completion so the
// persisted reply is not read back before the server has committed it.
const InvalidationDebounceMs = 150

// Streaming endpoint path, relative to the API base URL.
const StreamChatEndpoint = "/api/chatbot/stream"
