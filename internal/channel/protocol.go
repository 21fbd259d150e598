// Package channel implements the WebSocket event channel to the chat
// backend: named outbound emissions and a typed inbound event stream.
package channel

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/soyeahso/dewey/internal/domain"
)

// ErrUnknownEvent is returned when an inbound frame names an event this
// client does not understand.
var ErrUnknownEvent = errors.New("unknown event")

// Frame is the envelope for all messages on the wire.
type Frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Seq     int64           `json:"seq,omitempty"`
}

// NewFrame creates an event frame with a marshaled payload.
func NewFrame(event string, payload any, seq int64) (Frame, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Event: event, Payload: raw, Seq: seq}, nil
}

// Inbound payload shapes. The chat_id tag is optional: the original backend
// never sets it, in which case events target the active chat.
type thinkingPayload struct {
	ChatID string `json:"chat_id,omitempty"`
	Step   string `json:"step"`
}

type thoughtPayload struct {
	ChatID  string `json:"chat_id,omitempty"`
	Type    string `json:"type,omitempty"`
	Content string `json:"content"`
	Details string `json:"details,omitempty"`
}

type chatResponsePayload struct {
	ChatID       string  `json:"chat_id,omitempty"`
	Response     string  `json:"response"`
	ThinkingTime float64 `json:"thinking_time,omitempty"`
}

type errorPayload struct {
	ChatID       string  `json:"chat_id,omitempty"`
	Message      string  `json:"message"`
	ThinkingTime float64 `json:"thinking_time,omitempty"`
}

type resourcesPayload struct {
	CPULoad       float64 `json:"cpu_load"`
	MemoryUsage   float64 `json:"memory_usage"`
	DiskReadRate  float64 `json:"disk_read_rate"`
	DiskWriteRate float64 `json:"disk_write_rate"`
	GPULoad       float64 `json:"gpu_load"`
	GPUMemory     float64 `json:"gpu_memory"`
}

// DecodeEvent translates an inbound frame into a typed domain event.
func DecodeEvent(f Frame) (domain.Event, error) {
	switch f.Event {
	case domain.EventThinking:
		var p thinkingPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			return nil, fmt.Errorf("decoding thinking payload: %w", err)
		}
		return domain.ThinkingEvent{ChatID: p.ChatID, Step: p.Step}, nil

	case domain.EventThought:
		var p thoughtPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			return nil, fmt.Errorf("decoding thought payload: %w", err)
		}
		if p.Type == "" {
			p.Type = "thought"
		}
		return domain.ThoughtEvent{
			ChatID:  p.ChatID,
			Thought: domain.Thought{Type: p.Type, Content: p.Content, Details: p.Details},
		}, nil

	case domain.EventChatResponse:
		var p chatResponsePayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			return nil, fmt.Errorf("decoding chat_response payload: %w", err)
		}
		return domain.ChatResponseEvent{ChatID: p.ChatID, Response: p.Response, ThinkingTime: p.ThinkingTime}, nil

	case domain.EventError:
		var p errorPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			return nil, fmt.Errorf("decoding error payload: %w", err)
		}
		return domain.ErrorEvent{ChatID: p.ChatID, Message: p.Message, ThinkingTime: p.ThinkingTime}, nil

	case domain.EventSystemResources:
		var p resourcesPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			return nil, fmt.Errorf("decoding system_resources payload: %w", err)
		}
		return domain.SystemResourcesEvent{
			CPULoad:       p.CPULoad,
			MemoryUsage:   p.MemoryUsage,
			DiskReadRate:  p.DiskReadRate,
			DiskWriteRate: p.DiskWriteRate,
			GPULoad:       p.GPULoad,
			GPUMemory:     p.GPUMemory,
		}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, f.Event)
	}
}
