// Package domain defines the core chat data model shared by all components.
package domain

// Message is a single entry in a chat transcript. Immutable once appended.
type Message struct {
	Content string `json:"content"`
	IsUser  bool   `json:"isUser"`
}

// Thought is one typed unit of the assistant's intermediate reasoning.
// The type vocabulary is open-ended; known kinds include "thinking", "plan",
// "decision", "tool_call", "tool_result", "think_more" and "answer".
type Thought struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Details string `json:"details,omitempty"`
}

// ThinkingSection groups the reasoning trace for a single user turn.
type ThinkingSection struct {
	Thoughts []Thought `json:"thoughts"`
}

// ChatSession is one independent conversation thread. Exactly one thinking
// section is opened per user turn, so the number of sections always equals
// the number of user messages. OpenSection is the index of the section that
// receives incoming thoughts (-1 before the first send).
type ChatSession struct {
	Messages         []Message         `json:"messages"`
	ThinkingSections []ThinkingSection `json:"thinkingSections"`
	OpenSection      int               `json:"openSection"`
}

// NewChatSession returns an empty session with no open thinking section.
func NewChatSession() *ChatSession {
	return &ChatSession{OpenSection: -1}
}

// UserMessageCount returns the number of user-authored messages.
func (s *ChatSession) UserMessageCount() int {
	n := 0
	for _, m := range s.Messages {
		if m.IsUser {
			n++
		}
	}
	return n
}

// HasOpenSection reports whether a thinking section is available to receive
// thoughts.
func (s *ChatSession) HasOpenSection() bool {
	return s.OpenSection >= 0 && s.OpenSection < len(s.ThinkingSections)
}

// Clone returns a deep copy of the session.
func (s *ChatSession) Clone() *ChatSession {
	c := &ChatSession{OpenSection: s.OpenSection}
	if s.Messages != nil {
		c.Messages = make([]Message, len(s.Messages))
		copy(c.Messages, s.Messages)
	}
	if s.ThinkingSections != nil {
		c.ThinkingSections = make([]ThinkingSection, len(s.ThinkingSections))
		for i, sec := range s.ThinkingSections {
			if sec.Thoughts != nil {
				thoughts := make([]Thought, len(sec.Thoughts))
				copy(thoughts, sec.Thoughts)
				c.ThinkingSections[i] = ThinkingSection{Thoughts: thoughts}
			}
		}
	}
	return c
}

// Registry is the ordered set of chat sessions. Order defines tab display
// order. ActiveID is empty only when the registry is empty.
type Registry struct {
	Order    []string
	Chats    map[string]*ChatSession
	ActiveID string
}

// NewRegistry returns an empty registry.
func NewRegistry() Registry {
	return Registry{Chats: make(map[string]*ChatSession)}
}

// Len returns the number of sessions.
func (r *Registry) Len() int {
	return len(r.Order)
}

// Get returns the session for the given id.
func (r *Registry) Get(id string) (*ChatSession, bool) {
	s, ok := r.Chats[id]
	return s, ok
}

// Active returns the active session, if any.
func (r *Registry) Active() (*ChatSession, bool) {
	if r.ActiveID == "" {
		return nil, false
	}
	return r.Get(r.ActiveID)
}

// Insert adds a session at the end of the tab order. Existing ids are
// overwritten in place without disturbing order.
func (r *Registry) Insert(id string, s *ChatSession) {
	if r.Chats == nil {
		r.Chats = make(map[string]*ChatSession)
	}
	if _, exists := r.Chats[id]; !exists {
		r.Order = append(r.Order, id)
	}
	r.Chats[id] = s
}

// Remove deletes a session. The caller is responsible for reassigning the
// active id if the removed session was active.
func (r *Registry) Remove(id string) {
	delete(r.Chats, id)
	for i, o := range r.Order {
		if o == id {
			r.Order = append(r.Order[:i], r.Order[i+1:]...)
			break
		}
	}
	if r.ActiveID == id {
		r.ActiveID = ""
	}
}

// Clone returns a deep copy of the registry.
func (r *Registry) Clone() Registry {
	c := Registry{ActiveID: r.ActiveID, Chats: make(map[string]*ChatSession, len(r.Chats))}
	if r.Order != nil {
		c.Order = make([]string, len(r.Order))
		copy(c.Order, r.Order)
	}
	for id, s := range r.Chats {
		c.Chats[id] = s.Clone()
	}
	return c
}
