package session

import (
	"errors"
	"testing"

	"github.com/soyeahso/dewey/internal/domain"
	"github.com/soyeahso/dewey/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmitter struct {
	events   []string
	payloads []any
	fail     error
}

func (f *fakeEmitter) Emit(event string, payload any) error {
	if f.fail != nil {
		return f.fail
	}
	f.events = append(f.events, event)
	f.payloads = append(f.payloads, payload)
	return nil
}

func TestComposer_SendAppendsAndEmits(t *testing.T) {
	s := testStore(t)
	m := testManager(t, s, nil)
	id, _ := m.NewChat()

	e := &fakeEmitter{}
	c := NewComposer(s, e, logging.New(nil, "silent"))

	require.NoError(t, c.Send("hello there"))

	sess, _, _ := s.Active()
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, domain.Message{Content: "hello there", IsUser: true}, sess.Messages[0])
	require.Len(t, sess.ThinkingSections, 1)
	assert.Equal(t, 0, sess.OpenSection)

	require.Len(t, e.events, 1)
	assert.Equal(t, domain.EventChatRequest, e.events[0])
	req := e.payloads[0].(domain.ChatRequest)
	assert.Equal(t, id, req.ChatID)
	assert.Equal(t, "hello there", req.Message)
	assert.Empty(t, req.ConversationHistory, "first message carries no history")
}

func TestComposer_HistoryExcludesOutgoingMessage(t *testing.T) {
	s := testStore(t)
	m := testManager(t, s, nil)
	_, err := m.NewChat()
	require.NoError(t, err)

	e := &fakeEmitter{}
	c := NewComposer(s, e, logging.New(nil, "silent"))

	require.NoError(t, c.Send("hi"))
	require.NoError(t, s.Apply(func(reg *domain.Registry) error {
		sess, _ := reg.Active()
		sess.Messages = append(sess.Messages, domain.Message{Content: "hello", IsUser: false})
		return nil
	}))
	require.NoError(t, c.Send("how are you"))

	require.Len(t, e.payloads, 2)
	req := e.payloads[1].(domain.ChatRequest)
	assert.Equal(t, []domain.HistoryEntry{
		{Role: "assistant", Content: "hello"},
		{Role: "user", Content: "hi"},
	}, req.ConversationHistory)
}

func TestComposer_BlankInputNoOp(t *testing.T) {
	s := testStore(t)
	m := testManager(t, s, nil)
	_, err := m.NewChat()
	require.NoError(t, err)

	e := &fakeEmitter{}
	c := NewComposer(s, e, logging.New(nil, "silent"))

	require.NoError(t, c.Send("   \t  "))

	sess, _, _ := s.Active()
	assert.Empty(t, sess.Messages)
	assert.Empty(t, e.events)
}

func TestComposer_NoActiveChatDropsInput(t *testing.T) {
	s := testStore(t)
	e := &fakeEmitter{}
	c := NewComposer(s, e, logging.New(nil, "silent"))

	require.NoError(t, c.Send("into the void"))
	assert.Empty(t, e.events)
	snap := s.Snapshot()
	assert.Equal(t, 0, snap.Len())
}

func TestComposer_EmitFailureKeepsMessage(t *testing.T) {
	s := testStore(t)
	m := testManager(t, s, nil)
	_, err := m.NewChat()
	require.NoError(t, err)

	e := &fakeEmitter{fail: errors.New("connection reset")}
	c := NewComposer(s, e, logging.New(nil, "silent"))

	require.NoError(t, c.Send("hi"))

	sess, _, _ := s.Active()
	assert.Len(t, sess.Messages, 1, "message stays in the transcript on emit failure")
}

func TestBuildHistory_GroupsAssistantFirst(t *testing.T) {
	history := BuildHistory([]domain.Message{
		{Content: "q1", IsUser: true},
		{Content: "a1", IsUser: false},
		{Content: "q2", IsUser: true},
		{Content: "a2", IsUser: false},
	})
	assert.Equal(t, []domain.HistoryEntry{
		{Role: "assistant", Content: "a1"},
		{Role: "assistant", Content: "a2"},
		{Role: "user", Content: "q1"},
		{Role: "user", Content: "q2"},
	}, history)
}

func TestBuildHistory_Empty(t *testing.T) {
	assert.Empty(t, BuildHistory(nil))
}
