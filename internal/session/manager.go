// Package session manages chat lifecycle and outbound requests on top of
// the registry store.
package session

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/soyeahso/dewey/internal/domain"
	"github.com/soyeahso/dewey/internal/logging"
	"github.com/soyeahso/dewey/internal/store"
)

// ErrUnknownChat is returned when an operation names a chat id that is not
// in the registry.
var ErrUnknownChat = errors.New("unknown chat")

// Confirmer asks the user a yes/no question before a destructive action.
type Confirmer interface {
	Confirm(prompt string) bool
}

// Manager owns chat lifecycle: creating, activating and closing chats.
type Manager struct {
	store   *store.RegistryStore
	confirm Confirmer
	log     *logging.Logger
	now     func() time.Time
}

// NewManager creates a manager. The confirmer may be nil, in which case
// closes proceed without asking.
func NewManager(s *store.RegistryStore, confirm Confirmer, log *logging.Logger) *Manager {
	return &Manager{
		store:   s,
		confirm: confirm,
		log:     log.Sub("session"),
		now:     time.Now,
	}
}

// Init ensures the registry is usable: an empty registry gets a fresh chat,
// and a registry with chats but no active one activates the oldest.
func (m *Manager) Init() error {
	reg := m.store.Snapshot()
	if reg.Len() == 0 {
		_, err := m.NewChat()
		return err
	}
	if reg.ActiveID != "" {
		return nil
	}
	return m.store.Apply(func(reg *domain.Registry) error {
		reg.ActiveID = reg.Order[0]
		return nil
	})
}

// NewChat creates an empty chat, activates it and returns its id. Ids are
// millisecond timestamps; a collision within the same millisecond bumps
// forward until the id is free.
func (m *Manager) NewChat() (string, error) {
	var id string
	err := m.store.Apply(func(reg *domain.Registry) error {
		base := m.now().UnixMilli()
		id = strconv.FormatInt(base, 10)
		for {
			if _, exists := reg.Get(id); !exists {
				break
			}
			base++
			id = strconv.FormatInt(base, 10)
		}
		reg.Insert(id, domain.NewChatSession())
		reg.ActiveID = id
		return nil
	})
	if err != nil {
		return "", err
	}
	m.log.Info().Str("chatId", id).Msg("chat created")
	return id, nil
}

// SwitchTo makes the named chat active.
func (m *Manager) SwitchTo(id string) error {
	err := m.store.Apply(func(reg *domain.Registry) error {
		if _, ok := reg.Get(id); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownChat, id)
		}
		reg.ActiveID = id
		return nil
	})
	if err != nil {
		m.log.Warn().Str("chatId", id).Err(err).Msg("switch failed")
		return err
	}
	m.log.Debug().Str("chatId", id).Msg("chat activated")
	return nil
}

// Close removes the named chat after confirmation. It reports whether the
// chat was actually closed (false when the user declines). Closing the
// active chat activates the oldest remaining one; closing the last chat
// creates a fresh empty chat so there is always somewhere to type.
func (m *Manager) Close(id string) (bool, error) {
	reg := m.store.Snapshot()
	if _, ok := reg.Get(id); !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownChat, id)
	}

	if m.confirm != nil && !m.confirm.Confirm(fmt.Sprintf("Close chat %s?", id)) {
		return false, nil
	}

	err := m.store.Apply(func(reg *domain.Registry) error {
		if _, ok := reg.Get(id); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownChat, id)
		}
		wasActive := reg.ActiveID == id
		reg.Remove(id)
		if wasActive && len(reg.Order) > 0 {
			reg.ActiveID = reg.Order[0]
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	m.log.Info().Str("chatId", id).Msg("chat closed")

	if snap := m.store.Snapshot(); snap.Len() == 0 {
		if _, err := m.NewChat(); err != nil {
			return true, err
		}
	}
	return true, nil
}
