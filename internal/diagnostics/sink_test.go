package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishIsNoOpWithoutListeners(t *testing.T) {
	s := NewSink()
	// Must not panic or block with zero listeners.
	s.Publish(1, "hello", nil)
	s.PublishTrace(TraceRecord{Direction: "TX"})
}

func TestSubscribeReceivesPublishedRecords(t *testing.T) {
	s := NewSink()
	var gotText string
	unsub := s.Subscribe(func(ts int64, text string, ctx map[string]interface{}) {
		gotText = text
	})
	defer unsub()

	s.Publish(100, "test message", nil)
	assert.Equal(t, "test message", gotText)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	s := NewSink()
	calls := 0
	unsub := s.Subscribe(func(ts int64, text string, ctx map[string]interface{}) {
		calls++
	})
	s.Publish(1, "a", nil)
	unsub()
	s.Publish(2, "b", nil)
	assert.Equal(t, 1, calls)
}

func TestPublishTraceIncludesConfigID(t *testing.T) {
	s := NewSink()
	var gotCtx map[string]interface{}
	unsub := s.Subscribe(func(ts int64, text string, ctx map[string]interface{}) {
		gotCtx = ctx
	})
	defer unsub()

	s.PublishTrace(TraceRecord{
		Direction: "TX", Hex: "01030000000A", Length: 6,
		FunctionCode: 3, UnitID: 1, ConfigID: "Channel1_Device1",
	})
	require.NotNil(t, gotCtx)
	assert.Equal(t, "Channel1_Device1", gotCtx["config_id"])
	assert.Equal(t, 3, gotCtx["fc"])
}

func TestListenerCount(t *testing.T) {
	s := NewSink()
	assert.Equal(t, 0, s.ListenerCount())
	unsub := s.Subscribe(func(int64, string, map[string]interface{}) {})
	assert.Equal(t, 1, s.ListenerCount())
	unsub()
	assert.Equal(t, 0, s.ListenerCount())
}
