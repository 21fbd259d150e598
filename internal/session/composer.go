package session

import (
	"strings"

	"github.com/soyeahso/dewey/internal/domain"
	"github.com/soyeahso/dewey/internal/logging"
	"github.com/soyeahso/dewey/internal/store"
)

// Emitter sends a named payload over the backend channel.
type Emitter interface {
	Emit(event string, payload any) error
}

// Composer turns user input into chat requests: it records the message in
// the active chat, opens a thinking section for the turn, and emits the
// request with the conversation so far.
type Composer struct {
	store   *store.RegistryStore
	emitter Emitter
	log     *logging.Logger
}

// NewComposer creates a composer bound to the given store and emitter.
func NewComposer(s *store.RegistryStore, e Emitter, log *logging.Logger) *Composer {
	return &Composer{
		store:   s,
		emitter: e,
		log:     log.Sub("session"),
	}
}

// Send submits user input to the active chat. Blank input is a no-op. The
// conversation history sent with the request excludes the message being
// sent; the backend receives the new message separately.
func (c *Composer) Send(input string) error {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}

	var req domain.ChatRequest
	sent := false
	err := c.store.Apply(func(reg *domain.Registry) error {
		sess, ok := reg.Active()
		if !ok {
			return nil
		}
		req = domain.ChatRequest{
			ChatID:              reg.ActiveID,
			Message:             input,
			ConversationHistory: BuildHistory(sess.Messages),
		}
		sess.Messages = append(sess.Messages, domain.Message{Content: input, IsUser: true})
		sess.ThinkingSections = append(sess.ThinkingSections, domain.ThinkingSection{})
		sess.OpenSection = len(sess.ThinkingSections) - 1
		sent = true
		return nil
	})
	if err != nil {
		return err
	}
	if !sent {
		c.log.Warn().Msg("no active chat, input dropped")
		return nil
	}

	// Fire and forget: the message stays in the transcript even if the
	// emit fails, matching the optimistic-append behavior of the UI.
	if err := c.emitter.Emit(domain.EventChatRequest, req); err != nil {
		c.log.Error().Err(err).Str("chatId", req.ChatID).Msg("chat request not sent")
	}
	return nil
}

// BuildHistory flattens a transcript into the request history format:
// assistant messages first, then user messages, each group in order.
func BuildHistory(messages []domain.Message) []domain.HistoryEntry {
	history := make([]domain.HistoryEntry, 0, len(messages))
	for _, msg := range messages {
		if !msg.IsUser {
			history = append(history, domain.HistoryEntry{Role: "assistant", Content: msg.Content})
		}
	}
	for _, msg := range messages {
		if msg.IsUser {
			history = append(history, domain.HistoryEntry{Role: "user", Content: msg.Content})
		}
	}
	return history
}
