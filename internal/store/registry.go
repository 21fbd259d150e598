package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/soyeahso/dewey/internal/domain"
	"github.com/soyeahso/dewey/internal/logging"
)

// registryKey is the durable store key holding the session registry.
const registryKey = "chats"

// schemaVersion is the current persisted envelope version. Blobs written by
// the pre-versioning client (a bare id → session mapping) are migrated on
// load.
const schemaVersion = 1

// Transform is a mutation of the session registry. It receives a private
// copy of the current registry; returning an error discards the copy and
// leaves both memory and persisted state untouched.
type Transform func(reg *domain.Registry) error

// RegistryStore owns the session registry. All mutations flow through Apply,
// which centralizes persistence and change notification. User actions and
// inbound channel events serialize on the store's lock, so transforms never
// observe a half-applied mutation.
type RegistryStore struct {
	mu    sync.Mutex
	reg   domain.Registry
	kv    KV
	dirty bool // last persist failed; retry on next mutation
	subs  []func(domain.Registry)
	log   *logging.Logger
}

// persistedSession is the on-disk shape of one chat session.
type persistedSession struct {
	Messages         []domain.Message         `json:"messages"`
	ThinkingSections []domain.ThinkingSection `json:"thinkingSections"`
	OpenSection      int                      `json:"openSection"`
}

// persistedState is the versioned envelope stored under the registry key.
// Insertion order is stored explicitly since JSON objects do not keep it.
type persistedState struct {
	Schema int                         `json:"schema"`
	Order  []string                    `json:"order"`
	Chats  map[string]persistedSession `json:"chats"`
}

// NewRegistryStore creates a registry store rehydrated from the durable
// store. A corrupt blob is an error; a missing one yields an empty registry.
func NewRegistryStore(kv KV, log *logging.Logger) (*RegistryStore, error) {
	s := &RegistryStore{kv: kv, log: log.Sub("registry")}

	reg, err := s.load()
	if err != nil {
		return nil, err
	}
	s.reg = reg
	return s, nil
}

// Apply runs a transform against a copy of the registry. On success the
// registry is replaced, persisted and subscribers are notified; on error
// nothing changes. Persistence is best-effort: a failed write keeps the
// in-memory registry authoritative and is retried on the next mutation.
func (s *RegistryStore) Apply(t Transform) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.reg.Clone()
	if err := t(&next); err != nil {
		return err
	}
	s.reg = next

	if err := s.persistLocked(); err != nil {
		s.dirty = true
		s.log.Warn().Err(err).Msg("persist failed, will retry on next mutation")
	} else {
		s.dirty = false
	}

	for _, fn := range s.subs {
		fn(s.reg.Clone())
	}
	return nil
}

// Snapshot returns a copy of the current registry.
func (s *RegistryStore) Snapshot() domain.Registry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.Clone()
}

// Active returns a copy of the active session and its id, if any.
func (s *RegistryStore) Active() (*domain.ChatSession, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.reg.Active()
	if !ok {
		return nil, "", false
	}
	return sess.Clone(), s.reg.ActiveID, true
}

// Subscribe registers an observer invoked with a registry snapshot after
// every successful mutation.
func (s *RegistryStore) Subscribe(fn func(domain.Registry)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *RegistryStore) persistLocked() error {
	state := persistedState{
		Schema: schemaVersion,
		Order:  s.reg.Order,
		Chats:  make(map[string]persistedSession, len(s.reg.Chats)),
	}
	for id, sess := range s.reg.Chats {
		state.Chats[id] = persistedSession{
			Messages:         sess.Messages,
			ThinkingSections: sess.ThinkingSections,
			OpenSection:      sess.OpenSection,
		}
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding registry: %w", err)
	}
	return s.kv.Set(registryKey, data)
}

func (s *RegistryStore) load() (domain.Registry, error) {
	data, ok, err := s.kv.Get(registryKey)
	if err != nil {
		return domain.Registry{}, fmt.Errorf("loading registry: %w", err)
	}
	if !ok {
		return domain.NewRegistry(), nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return domain.Registry{}, fmt.Errorf("decoding registry: %w", err)
	}

	if _, versioned := probe["schema"]; !versioned {
		reg, err := s.loadLegacy(data)
		if err != nil {
			return domain.Registry{}, err
		}
		s.log.Info().Int("chats", reg.Len()).Msg("migrated legacy chat store")
		return reg, nil
	}

	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.Registry{}, fmt.Errorf("decoding registry: %w", err)
	}
	if state.Schema > schemaVersion {
		return domain.Registry{}, fmt.Errorf("chat store schema %d is newer than supported %d", state.Schema, schemaVersion)
	}

	reg := domain.NewRegistry()
	for _, id := range state.Order {
		p, ok := state.Chats[id]
		if !ok {
			continue
		}
		reg.Insert(id, &domain.ChatSession{
			Messages:         p.Messages,
			ThinkingSections: p.ThinkingSections,
			OpenSection:      p.OpenSection,
		})
	}
	return reg, nil
}

// loadLegacy decodes the pre-versioning blob: a bare mapping from chat id to
// {messages, thinkingSections}. Ids are millisecond timestamps, so sorting
// them recovers creation order.
func (s *RegistryStore) loadLegacy(data []byte) (domain.Registry, error) {
	var chats map[string]persistedSession
	if err := json.Unmarshal(data, &chats); err != nil {
		return domain.Registry{}, fmt.Errorf("decoding legacy registry: %w", err)
	}

	ids := make([]string, 0, len(chats))
	for id := range chats {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	reg := domain.NewRegistry()
	for _, id := range ids {
		p := chats[id]
		reg.Insert(id, &domain.ChatSession{
			Messages:         p.Messages,
			ThinkingSections: p.ThinkingSections,
			OpenSection:      len(p.ThinkingSections) - 1,
		})
	}
	return reg, nil
}
