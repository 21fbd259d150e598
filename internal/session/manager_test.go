package session

import (
	"testing"
	"time"

	"github.com/soyeahso/dewey/internal/domain"
	"github.com/soyeahso/dewey/internal/logging"
	"github.com/soyeahso/dewey/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memKV struct {
	data map[string][]byte
}

func (m *memKV) Get(key string) ([]byte, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(key string, value []byte) error {
	m.data[key] = value
	return nil
}

type fakeConfirmer struct {
	answer  bool
	prompts []string
}

func (f *fakeConfirmer) Confirm(prompt string) bool {
	f.prompts = append(f.prompts, prompt)
	return f.answer
}

func testStore(t *testing.T) *store.RegistryStore {
	t.Helper()
	s, err := store.NewRegistryStore(&memKV{data: make(map[string][]byte)}, logging.New(nil, "silent"))
	require.NoError(t, err)
	return s
}

func testManager(t *testing.T, s *store.RegistryStore, confirm Confirmer) *Manager {
	t.Helper()
	m := NewManager(s, confirm, logging.New(nil, "silent"))
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }
	return m
}

func addMessage(t *testing.T, s *store.RegistryStore, id, content string) {
	t.Helper()
	require.NoError(t, s.Apply(func(reg *domain.Registry) error {
		sess, _ := reg.Get(id)
		sess.Messages = append(sess.Messages, domain.Message{Content: content, IsUser: true})
		sess.ThinkingSections = append(sess.ThinkingSections, domain.ThinkingSection{})
		return nil
	}))
}

func TestManager_InitCreatesFirstChat(t *testing.T) {
	s := testStore(t)
	m := testManager(t, s, nil)

	require.NoError(t, m.Init())

	reg := s.Snapshot()
	assert.Equal(t, 1, reg.Len())
	assert.NotEmpty(t, reg.ActiveID)
}

func TestManager_InitActivatesOldest(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.Apply(func(reg *domain.Registry) error {
		reg.Insert("100", domain.NewChatSession())
		reg.Insert("200", domain.NewChatSession())
		return nil
	}))
	m := testManager(t, s, nil)

	require.NoError(t, m.Init())

	assert.Equal(t, "100", s.Snapshot().ActiveID)
}

func TestManager_InitKeepsExistingActive(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.Apply(func(reg *domain.Registry) error {
		reg.Insert("100", domain.NewChatSession())
		reg.Insert("200", domain.NewChatSession())
		reg.ActiveID = "200"
		return nil
	}))
	m := testManager(t, s, nil)

	require.NoError(t, m.Init())

	assert.Equal(t, "200", s.Snapshot().ActiveID)
}

func TestManager_NewChatTimestampID(t *testing.T) {
	s := testStore(t)
	m := testManager(t, s, nil)

	id, err := m.NewChat()
	require.NoError(t, err)
	assert.Equal(t, "1772366400000", id)
	assert.Equal(t, id, s.Snapshot().ActiveID)
}

func TestManager_NewChatBumpsOnCollision(t *testing.T) {
	s := testStore(t)
	m := testManager(t, s, nil)

	first, err := m.NewChat()
	require.NoError(t, err)
	second, err := m.NewChat()
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, "1772366400001", second)
	assert.Equal(t, []string{first, second}, s.Snapshot().Order)
}

func TestManager_SwitchTo(t *testing.T) {
	s := testStore(t)
	m := testManager(t, s, nil)

	first, _ := m.NewChat()
	_, err := m.NewChat()
	require.NoError(t, err)

	require.NoError(t, m.SwitchTo(first))
	assert.Equal(t, first, s.Snapshot().ActiveID)
}

func TestManager_SwitchToUnknown(t *testing.T) {
	s := testStore(t)
	m := testManager(t, s, nil)
	_, err := m.NewChat()
	require.NoError(t, err)

	before := s.Snapshot().ActiveID
	assert.ErrorIs(t, m.SwitchTo("nope"), ErrUnknownChat)
	assert.Equal(t, before, s.Snapshot().ActiveID)
}

func TestManager_CloseActivatesOldestRemaining(t *testing.T) {
	s := testStore(t)
	m := testManager(t, s, nil)

	first, _ := m.NewChat()
	second, _ := m.NewChat()
	require.NoError(t, m.SwitchTo(second))

	closed, err := m.Close(second)
	require.NoError(t, err)
	assert.True(t, closed)

	reg := s.Snapshot()
	assert.Equal(t, []string{first}, reg.Order)
	assert.Equal(t, first, reg.ActiveID)
}

func TestManager_CloseInactiveKeepsActive(t *testing.T) {
	s := testStore(t)
	m := testManager(t, s, nil)

	first, _ := m.NewChat()
	second, _ := m.NewChat()

	closed, err := m.Close(first)
	require.NoError(t, err)
	assert.True(t, closed)
	assert.Equal(t, second, s.Snapshot().ActiveID)
}

func TestManager_CloseLastChatCreatesReplacement(t *testing.T) {
	s := testStore(t)
	m := testManager(t, s, nil)

	only, _ := m.NewChat()
	closed, err := m.Close(only)
	require.NoError(t, err)
	assert.True(t, closed)

	reg := s.Snapshot()
	require.Equal(t, 1, reg.Len())
	assert.NotEqual(t, only, reg.ActiveID, "replacement must be a fresh chat")
	sess, _ := reg.Active()
	assert.Empty(t, sess.Messages)
}

func TestManager_CloseAsksFirst(t *testing.T) {
	s := testStore(t)
	confirm := &fakeConfirmer{answer: true}
	m := testManager(t, s, confirm)

	id, _ := m.NewChat()
	addMessage(t, s, id, "hi")

	closed, err := m.Close(id)
	require.NoError(t, err)
	assert.True(t, closed)
	require.Len(t, confirm.prompts, 1)
	assert.Contains(t, confirm.prompts[0], id)
}

func TestManager_CloseDeclined(t *testing.T) {
	s := testStore(t)
	confirm := &fakeConfirmer{answer: false}
	m := testManager(t, s, confirm)

	id, _ := m.NewChat()
	addMessage(t, s, id, "hi")

	closed, err := m.Close(id)
	require.NoError(t, err)
	assert.False(t, closed)

	snap := s.Snapshot()
	_, ok := snap.Get(id)
	assert.True(t, ok, "declined close must not remove the chat")
}

func TestManager_CloseWithoutConfirmer(t *testing.T) {
	s := testStore(t)
	m := testManager(t, s, nil)

	id, _ := m.NewChat()
	addMessage(t, s, id, "hi")

	closed, err := m.Close(id)
	require.NoError(t, err)
	assert.True(t, closed)
}

func TestManager_CloseUnknown(t *testing.T) {
	s := testStore(t)
	m := testManager(t, s, nil)

	_, err := m.Close("nope")
	assert.ErrorIs(t, err, ErrUnknownChat)
}
