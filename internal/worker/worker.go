// Package worker runs one device's poll/write loop: connect-if-needed,
// select due tags, batch reads through internal/schedule, decode and scale
// each tag, fan the results out to the runtime monitor, and interleave
// write-queue drains on a duty cycle. One worker owns exactly one
// mbclient.Client and one writequeue.Queue; no transport handle is ever
// shared across workers.
package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/edgeflow/modgate/internal/codec"
	"github.com/edgeflow/modgate/internal/logger"
	"github.com/edgeflow/modgate/internal/mbclient"
	"github.com/edgeflow/modgate/internal/mbmap"
	"github.com/edgeflow/modgate/internal/scaling"
	"github.com/edgeflow/modgate/internal/schedule"
	"github.com/edgeflow/modgate/internal/writequeue"
)

// Tag is one canonical, scheduled tag owned by this worker.
type Tag struct {
	TreePath string
	Mapped   mbmap.MappedTag
	ScanMS   int
	Scaling  *scaling.Descriptor
	Access   string // "RO" | "RW"
}

// PolledValue is what the worker emits for one tag on every successful or
// failed decode.
type PolledValue struct {
	TreePath string
	Value    interface{} // nil on decode failure
	Quality  string      // "Good" | "Bad"
	Array    []codec.DecodedElement // non-nil for array tags
}

// Config bundles the fixed, per-device parameters a worker needs.
type Config struct {
	DeviceKey           string // "ChannelName_DeviceName"
	UnitID              int
	Encoding            codec.Encoding
	MaxRegistersPerBatch int
	MaxCoilsPerBatch     int
	InterRequestDelay   time.Duration
	DutyCycleRatio      int // read passes per write drain; 0 treated as 1
	MaxWritesPerBatch   int
	TickInterval        time.Duration // default ~200ms
	BatchFailureBackoff time.Duration // default ~1s
	ConnectRetryBackoff time.Duration // default ~short
}

// Worker drives one device.
type Worker struct {
	cfg    Config
	client *mbclient.Client
	queue  *writequeue.Queue
	tags   []Tag
	onPoll func(PolledValue)

	mu        sync.Mutex
	nextDue   map[string]time.Time
	readCount int

	cancel context.CancelFunc
	done   chan struct{}
	log    *zap.Logger
}

// New creates a worker for one device. onPoll is called from the worker's
// own goroutine for every tag processed in a batch; callers must not block
// in it for long.
func New(cfg Config, client *mbclient.Client, queue *writequeue.Queue, tags []Tag, onPoll func(PolledValue)) *Worker {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 200 * time.Millisecond
	}
	if cfg.BatchFailureBackoff <= 0 {
		cfg.BatchFailureBackoff = time.Second
	}
	if cfg.ConnectRetryBackoff <= 0 {
		cfg.ConnectRetryBackoff = 500 * time.Millisecond
	}
	if cfg.DutyCycleRatio <= 0 {
		cfg.DutyCycleRatio = 1
	}
	if cfg.MaxWritesPerBatch <= 0 {
		cfg.MaxWritesPerBatch = 8
	}

	next := make(map[string]time.Time, len(tags))
	for _, t := range tags {
		next[t.TreePath] = time.Now()
	}

	return &Worker{
		cfg:     cfg,
		client:  client,
		queue:   queue,
		tags:    tags,
		onPoll:  onPoll,
		nextDue: next,
		done:    make(chan struct{}),
		log:     logger.WithDevice(deviceChannelPart(cfg.DeviceKey), deviceNamePart(cfg.DeviceKey)),
	}
}

// Start launches the worker's background loop.
func (w *Worker) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	go w.run(ctx)
}

// Stop cancels the loop and closes the client. It blocks until the loop
// has exited (bounded by the loop's own tick interval).
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	<-w.done
	w.client.Close()
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.drainBestEffort()
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	if !w.client.Connected() {
		if err := w.client.Connect(ctx); err != nil {
			w.log.Warn("connect failed, will retry next cycle", zap.Error(err))
			time.Sleep(w.cfg.ConnectRetryBackoff)
			return
		}
	}

	due := w.dueTags()
	if len(due) > 0 {
		w.runReadPass(due)
	}

	w.mu.Lock()
	shouldDrain := w.readCount >= w.cfg.DutyCycleRatio && !w.queue.IsEmpty()
	w.mu.Unlock()

	if shouldDrain || (w.queue.Count() > 0 && len(due) == 0) {
		w.drainWrites()
		w.mu.Lock()
		w.readCount = 0
		w.mu.Unlock()
	}
}

func (w *Worker) dueTags() []Tag {
	now := time.Now()
	w.mu.Lock()
	defer w.mu.Unlock()

	var due []Tag
	for _, t := range w.tags {
		if !w.nextDue[t.TreePath].After(now) {
			due = append(due, t)
		}
	}
	return due
}

func (w *Worker) tagsByKey() map[string]Tag {
	m := make(map[string]Tag, len(w.tags))
	for _, t := range w.tags {
		m[t.TreePath] = t
	}
	return m
}

func (w *Worker) runReadPass(due []Tag) {
	byPath := w.tagsByKey()

	maxCoils := w.cfg.MaxCoilsPerBatch
	if maxCoils <= 0 {
		maxCoils = w.cfg.MaxRegistersPerBatch
	}
	regTags := make([]schedule.DueTag, 0, len(due))
	var bitTags []schedule.DueTag
	for _, t := range due {
		dt := schedule.DueTag{
			TreePath:      t.TreePath,
			UnitID:        w.cfg.UnitID,
			AddressType:   t.Mapped.AddressType,
			Offset:        t.Mapped.Offset,
			RegisterCount: t.Mapped.RegisterCount,
		}
		if t.Mapped.AddressType == mbmap.Coil || t.Mapped.AddressType == mbmap.DiscreteInput {
			bitTags = append(bitTags, dt)
			continue
		}
		regTags = append(regTags, dt)
	}

	batches := schedule.GroupReads(regTags, maxOf(w.cfg.MaxRegistersPerBatch, 1))
	batches = append(batches, schedule.GroupReads(bitTags, maxOf(maxCoils, 1))...)

	for i, b := range batches {
		payload, err := w.client.ReadRaw(b.AddressType, b.Start, b.Count)
		if err != nil {
			w.log.Warn("batch read failed", zap.Error(err), zap.Int("start", b.Start), zap.Int("count", b.Count))
			time.Sleep(w.cfg.BatchFailureBackoff)
			continue
		}

		bits := []bool(nil)
		if b.AddressType == mbmap.Coil || b.AddressType == mbmap.DiscreteInput {
			bits = unpackBitPayload(payload, b.Count)
		}

		for _, bt := range b.Tags {
			tag, ok := byPath[bt.TreePath]
			if !ok {
				continue
			}
			w.emitTag(tag, b, bits, payload)
			w.rescheduleTag(tag)
		}

		if i < len(batches)-1 {
			time.Sleep(w.cfg.InterRequestDelay)
		}
	}

	w.mu.Lock()
	w.readCount++
	w.mu.Unlock()
}

func (w *Worker) emitTag(tag Tag, b schedule.Batch, bits []bool, registerPayload []byte) {
	if tag.Mapped.AddressType == mbmap.Coil || tag.Mapped.AddressType == mbmap.DiscreteInput {
		idx := tag.Mapped.Offset - b.Start
		if idx < 0 || idx >= len(bits) {
			w.onPoll(PolledValue{TreePath: tag.TreePath, Value: nil, Quality: "Bad"})
			return
		}
		w.onPoll(PolledValue{TreePath: tag.TreePath, Value: bits[idx], Quality: "Good"})
		return
	}

	byteOffset := (tag.Mapped.Offset - b.Start) * 2
	byteLen := tag.Mapped.RegisterCount * 2
	if byteOffset < 0 || byteOffset+byteLen > len(registerPayload) {
		w.onPoll(PolledValue{TreePath: tag.TreePath, Value: nil, Quality: "Bad"})
		return
	}
	slice := registerPayload[byteOffset : byteOffset+byteLen]

	if tag.Mapped.DataType.IsArray {
		elems, err := codec.DecodeArray(slice, tag.Mapped.DataType.Canonical, tag.Mapped.ArrayElementCount, w.cfg.Encoding)
		if err != nil {
			w.onPoll(PolledValue{TreePath: tag.TreePath, Value: nil, Quality: "Bad"})
			return
		}
		if tag.Scaling != nil {
			for i, e := range elems {
				if !e.OK {
					continue
				}
				if f, ok := toFloat(e.Value); ok {
					elems[i].Value = scaling.Apply(f, *tag.Scaling)
				}
			}
		}
		w.onPoll(PolledValue{TreePath: tag.TreePath, Array: elems, Quality: "Good"})
		return
	}

	v, err := codec.DecodeScalar(slice, tag.Mapped.DataType.Canonical, w.cfg.Encoding)
	if err != nil {
		w.onPoll(PolledValue{TreePath: tag.TreePath, Value: nil, Quality: "Bad"})
		return
	}
	if tag.Scaling != nil {
		if f, ok := toFloat(v); ok {
			v = scaling.Apply(f, *tag.Scaling)
		}
	}
	w.onPoll(PolledValue{TreePath: tag.TreePath, Value: v, Quality: "Good"})
}

func (w *Worker) rescheduleTag(tag Tag) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextDue[tag.TreePath] = time.Now().Add(time.Duration(tag.ScanMS) * time.Millisecond)
}

func (w *Worker) drainWrites() {
	entries := w.queue.GetPending(w.cfg.MaxWritesPerBatch)
	for _, e := range entries {
		if err := w.executeWrite(e); err != nil {
			w.log.Warn("write failed", zap.Error(err), zap.Int("address", e.Address), zap.Int("fc", e.FunctionCode))
			w.queue.MarkFailed(e.Address, e.FunctionCode, err.Error())
			continue
		}
		w.queue.MarkCompleted(e.Address, e.FunctionCode)
	}
}

// drainBestEffort is called once on shutdown to flush whatever is pending
// without retry semantics; failures are simply logged.
func (w *Worker) drainBestEffort() {
	entries := w.queue.GetPending(w.queue.Count())
	for _, e := range entries {
		if err := w.executeWrite(e); err != nil {
			w.log.Warn("shutdown write drain failed", zap.Error(err))
			continue
		}
		w.queue.MarkCompleted(e.Address, e.FunctionCode)
	}
}

func maxOf(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int16:
		return float64(n), true
	case uint16:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint8:
		return float64(n), true
	default:
		return 0, false
	}
}

func unpackBitPayload(data []byte, count int) []bool {
	out := make([]bool, count)
	for i := 0; i < count; i++ {
		byteIdx := i / 8
		if byteIdx >= len(data) {
			break
		}
		out[i] = data[byteIdx]&(1<<uint(i%8)) != 0
	}
	return out
}

func deviceChannelPart(key string) string {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '_' {
			return key[:i]
		}
	}
	return key
}

func deviceNamePart(key string) string {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '_' {
			return key[i+1:]
		}
	}
	return ""
}
