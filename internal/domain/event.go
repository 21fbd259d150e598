package domain

// Wire event names exchanged with the backend.
const (
	EventChatRequest     = "chat_request"
	EventThinking        = "thinking"
	EventThought         = "thought"
	EventChatResponse    = "chat_response"
	EventError           = "error"
	EventSystemResources = "system_resources"
)

// Event is the tagged union of all inbound channel events. Each variant
// carries the originating chat id when the backend tags it; an empty ChatID
// means the event targets whichever chat is active when it is processed.
type Event interface {
	// Name returns the wire event name.
	Name() string
	// Target returns the originating chat id, or "" for untagged events.
	Target() string
}

// ThinkingEvent marks the start of a new reasoning phase within the current
// user turn.
type ThinkingEvent struct {
	ChatID string
	Step   string
}

func (e ThinkingEvent) Name() string   { return EventThinking }
func (e ThinkingEvent) Target() string { return e.ChatID }

// ThoughtEvent carries one unit of intermediate reasoning.
type ThoughtEvent struct {
	ChatID  string
	Thought Thought
}

func (e ThoughtEvent) Name() string   { return EventThought }
func (e ThoughtEvent) Target() string { return e.ChatID }

// ChatResponseEvent carries the final answer for a request.
type ChatResponseEvent struct {
	ChatID       string
	Response     string
	ThinkingTime float64
}

func (e ChatResponseEvent) Name() string   { return EventChatResponse }
func (e ChatResponseEvent) Target() string { return e.ChatID }

// ErrorEvent reports a non-fatal backend failure. It never mutates session
// state.
type ErrorEvent struct {
	ChatID       string
	Message      string
	ThinkingTime float64
}

func (e ErrorEvent) Name() string   { return EventError }
func (e ErrorEvent) Target() string { return e.ChatID }

// SystemResourcesEvent is a server telemetry sample. Consumed by the
// telemetry recorder, not the session core.
type SystemResourcesEvent struct {
	CPULoad       float64
	MemoryUsage   float64
	DiskReadRate  float64
	DiskWriteRate float64
	GPULoad       float64
	GPUMemory     float64
}

func (e SystemResourcesEvent) Name() string   { return EventSystemResources }
func (e SystemResourcesEvent) Target() string { return "" }

// HistoryEntry is one role/content pair in an outbound conversation history.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the outbound request payload. ConversationHistory lists all
// assistant messages in original order followed by all user messages in
// original order; the backend depends on that exact shape.
type ChatRequest struct {
	ChatID              string         `json:"chat_id,omitempty"`
	Message             string         `json:"message"`
	ConversationHistory []HistoryEntry `json:"conversation_history"`
}
