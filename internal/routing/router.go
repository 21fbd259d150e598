// Package routing translates inbound channel events into registry
// transforms applied through the chat session store.
package routing

import (
	"errors"
	"fmt"

	"github.com/soyeahso/dewey/internal/domain"
	"github.com/soyeahso/dewey/internal/logging"
	"github.com/soyeahso/dewey/internal/store"
	"github.com/soyeahso/dewey/internal/telemetry"
)

// ErrNoOpenSection is returned when a thought arrives for a chat that has no
// thinking section to receive it (no request is outstanding).
var ErrNoOpenSection = errors.New("no open thinking section")

// ErrNoActiveChat is returned when an untagged event arrives while no chat
// is active.
var ErrNoActiveChat = errors.New("no active chat")

// Notifier surfaces non-fatal, user-visible notifications.
type Notifier interface {
	Notify(message string)
}

// Router applies inbound events to the session registry. Events tagged with
// a chat id route to that chat even if it is no longer active; untagged
// events target whichever chat is active when the event is processed.
type Router struct {
	store    *store.RegistryStore
	recorder *telemetry.Recorder
	notifier Notifier
	log      *logging.Logger
}

// NewRouter creates an event router. The recorder and notifier may be nil,
// in which case resource samples and error notifications are dropped.
func NewRouter(s *store.RegistryStore, rec *telemetry.Recorder, n Notifier, log *logging.Logger) *Router {
	return &Router{
		store:    s,
		recorder: rec,
		notifier: n,
		log:      log.Sub("routing"),
	}
}

// Run consumes events until the stream closes. The stream delivers events
// in arrival order on a single goroutine, so registry mutations are never
// reordered or interleaved.
func (r *Router) Run(events <-chan domain.Event) {
	for evt := range events {
		if err := r.Handle(evt); err != nil {
			r.log.Warn().Err(err).Str("event", evt.Name()).Msg("event not applied")
		}
	}
	r.log.Debug().Msg("event stream closed")
}

// Handle applies a single event. Returning an error means the registry was
// left untouched.
func (r *Router) Handle(evt domain.Event) error {
	switch e := evt.(type) {
	case domain.ThinkingEvent:
		return r.applyToChat(e.Target(), func(sess *domain.ChatSession) error {
			return appendThought(sess, domain.Thought{Type: "thinking", Content: e.Step})
		})

	case domain.ThoughtEvent:
		return r.applyToChat(e.Target(), func(sess *domain.ChatSession) error {
			return appendThought(sess, e.Thought)
		})

	case domain.ChatResponseEvent:
		return r.applyToChat(e.Target(), func(sess *domain.ChatSession) error {
			sess.Messages = append(sess.Messages, domain.Message{Content: e.Response, IsUser: false})
			return nil
		})

	case domain.ErrorEvent:
		r.log.Warn().Str("message", e.Message).Msg("backend error")
		if r.notifier != nil {
			r.notifier.Notify(e.Message)
		}
		return nil

	case domain.SystemResourcesEvent:
		if r.recorder != nil {
			r.recorder.Record(e)
		}
		return nil

	default:
		return fmt.Errorf("unhandled event %q", evt.Name())
	}
}

// errChatClosed aborts a transform without surfacing an error: the event
// targeted a chat that no longer exists.
var errChatClosed = errors.New("chat closed")

// applyToChat resolves the target chat and applies the mutation to it. A
// tagged event whose chat has since been closed is dropped silently: closing
// a chat does not cancel its in-flight request, it just discards the late
// results.
func (r *Router) applyToChat(chatID string, mutate func(sess *domain.ChatSession) error) error {
	err := r.store.Apply(func(reg *domain.Registry) error {
		id := chatID
		if id == "" {
			if reg.ActiveID == "" {
				return ErrNoActiveChat
			}
			id = reg.ActiveID
		}

		sess, ok := reg.Get(id)
		if !ok {
			return errChatClosed
		}
		return mutate(sess)
	})
	if errors.Is(err, errChatClosed) {
		r.log.Debug().Str("chatId", chatID).Msg("dropping event for closed chat")
		return nil
	}
	return err
}

// appendThought adds a thought to the session's open thinking section.
func appendThought(sess *domain.ChatSession, thought domain.Thought) error {
	if !sess.HasOpenSection() {
		return ErrNoOpenSection
	}
	sec := &sess.ThinkingSections[sess.OpenSection]
	sec.Thoughts = append(sec.Thoughts, thought)
	return nil
}
