// Package diagnostics is a pub-sub ADU trace / log sink: callers register
// a listener and workers emit one record per TX/RX ADU (plus structured
// log lines bridged in from internal/logger), tagged with the owning
// device's config_id. Emission is a no-op when no listener is registered.
package diagnostics

import (
	"fmt"
	"sync"
)

// TraceRecord is one transmitted or received Modbus ADU, carried verbatim
// from the protocol client's packet-trace hook.
type TraceRecord struct {
	Direction    string // "TX" | "RX"
	Hex          string
	Length       int
	FunctionCode int
	UnitID       int
	ConfigID     string // "<ChannelName>_<DeviceName>"
	TransportID  string
	Timestamp    int64
}

// Listener receives every published record as (timestamp, text, context),
// matching the diagnostic view's pub-sub shape.
type Listener func(timestamp int64, text string, context map[string]interface{})

// Sink fans records out to every registered listener. Safe for concurrent
// Publish/Subscribe/Unsubscribe from any number of workers and the bridge.
type Sink struct {
	mu        sync.RWMutex
	listeners map[int]Listener
	nextID    int
}

// NewSink creates an empty sink.
func NewSink() *Sink {
	return &Sink{listeners: make(map[int]Listener)}
}

// Subscribe registers a listener and returns an unsubscribe function.
func (s *Sink) Subscribe(l Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// ListenerCount reports how many listeners are currently registered.
func (s *Sink) ListenerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listeners)
}

// Publish fans a record out to every listener. A no-op when nothing is
// subscribed, so workers never pay for tracing nobody is watching.
func (s *Sink) Publish(timestamp int64, text string, context map[string]interface{}) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.listeners) == 0 {
		return
	}
	for _, l := range s.listeners {
		l(timestamp, text, context)
	}
}

// PublishTrace formats and publishes a TX/RX ADU trace record.
func (s *Sink) PublishTrace(rec TraceRecord) {
	s.mu.RLock()
	empty := len(s.listeners) == 0
	s.mu.RUnlock()
	if empty {
		return
	}
	text := fmt.Sprintf("%s fc=%d unit=%d len=%d %s", rec.Direction, rec.FunctionCode, rec.UnitID, rec.Length, rec.Hex)
	s.Publish(rec.Timestamp, text, map[string]interface{}{
		"direction":     rec.Direction,
		"hex":           rec.Hex,
		"length":        rec.Length,
		"fc":            rec.FunctionCode,
		"unit":          rec.UnitID,
		"config_id":     rec.ConfigID,
		"transport_id":  rec.TransportID,
	})
}
