package dto

// SendMessageRequest is the JSON body posted to the streaming chat endpoint.
type SendMessageRequest struct {
	Content      string   `json:"content" validate:"required"`
	Temperature  float64  `json:"temperature" validate:"gte=0,lte=2"`
	MaxTokens    int      `json:"max_tokens" validate:"gte=0"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// RetrievedNoteDTO is one note the server pulled into the agent's context.
// The client does not interpret these fields beyond token estimation and
// surfacing them to the UI.
type RetrievedNoteDTO struct {
	Title      string   `json:"title"`
	Similarity float64  `json:"similarity"`
	Tags       []string `json:"tags,omitempty"`
	Preview    string   `json:"preview,omitempty"`
}

// --- Frame payloads ---

type ToolStartPayload struct {
	Tool      string `json:"tool"`
	Arguments string `json:"arguments"`
}

type ToolEndPayload struct {
	Tool   string `json:"tool"`
	Result string `json:"result"`
}

type ThinkingPayload struct {
	Content string `json:"content"`
}

type StatusPayload struct {
	Status string `json:"status"`
}

type ContextRetrievalPayload struct {
	RetrievedNotes []RetrievedNoteDTO `json:"retrievedNotes,omitempty"`
	RagLogId       string             `json:"ragLogId,omitempty"`
}

type EndPayload struct {
	RagLogId string `json:"ragLogId,omitempty"`
}

type ErrorPayload struct {
	Error string `json:"error,omitempty"`
}
