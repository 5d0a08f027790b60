// Package runtime is the central runtime monitor: it walks a parsed
// project tree, builds one protocol client and one worker per device, fans
// every poll result out to the shared tag buffer, and exposes a
// write-router the OPC UA bridge uses to push client writes back down to
// the owning worker's write queue.
package runtime

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/edgeflow/modgate/internal/buffer"
	"github.com/edgeflow/modgate/internal/codec"
	"github.com/edgeflow/modgate/internal/diagnostics"
	"github.com/edgeflow/modgate/internal/gatewayerr"
	"github.com/edgeflow/modgate/internal/logger"
	"github.com/edgeflow/modgate/internal/mbclient"
	"github.com/edgeflow/modgate/internal/mbmap"
	"github.com/edgeflow/modgate/internal/project"
	"github.com/edgeflow/modgate/internal/scaling"
	"github.com/edgeflow/modgate/internal/worker"
	"github.com/edgeflow/modgate/internal/writequeue"
)

// deviceUnit bundles everything the monitor needs to keep alive for one
// device: its worker, write queue, and the static tags it owns (used by
// array-tag fan-out and the write-router's tag lookup).
type deviceUnit struct {
	worker *worker.Worker
	queue  *writequeue.Queue
	client *mbclient.Client
	tags   map[string]resolvedTag // by tag name (not tree-path) for write-router lookup
}

type resolvedTag struct {
	mapped   mbmap.MappedTag
	scaling  *scaling.Descriptor
	access   string
	dataType string
}

// Monitor is one project runtime. Not safe for concurrent Start/Stop calls.
type Monitor struct {
	buf   *buffer.Buffer
	sink  *diagnostics.Sink
	units map[string]*deviceUnit
	log   *zap.Logger

	// defaultMaxRegistersPerBatch/defaultMaxCoilsPerBatch back a device
	// whose block_sizes are left unset (0); without a fallback such a
	// device would degrade to one-register-per-batch polling.
	defaultMaxRegistersPerBatch int
	defaultMaxCoilsPerBatch     int
}

// New creates a Monitor wired to the given tag buffer and diagnostic sink.
// maxRegistersPerBatch/maxCoilsPerBatch are the gateway-wide batch-size
// defaults (config.ModbusConfig) applied when a device's own block_sizes
// are zero.
func New(buf *buffer.Buffer, sink *diagnostics.Sink, maxRegistersPerBatch, maxCoilsPerBatch int) *Monitor {
	return &Monitor{
		buf:                         buf,
		sink:                        sink,
		units:                       make(map[string]*deviceUnit),
		log:                         logger.Get(),
		defaultMaxRegistersPerBatch: maxRegistersPerBatch,
		defaultMaxCoilsPerBatch:     maxCoilsPerBatch,
	}
}

// Start walks the project, builds one client+worker per device, and starts
// them all. Returns an error only if the project has zero reachable tags.
func (m *Monitor) Start(p *project.Project) error {
	refs := p.WalkTags()
	if len(refs) == 0 {
		return gatewayerr.Wrap(gatewayerr.ErrConfiguration, "project %q has zero tags", p.Name)
	}

	byDevice := groupByDevice(refs)

	for key, group := range byDevice {
		unit, err := m.buildUnit(key, group)
		if err != nil {
			m.log.Warn("skipping device: failed to build worker", zap.String("device", key), zap.Error(err))
			continue
		}
		m.units[key] = unit
		unit.worker.Start()
	}

	if len(m.units) == 0 {
		return gatewayerr.Wrap(gatewayerr.ErrConfiguration, "no device produced a usable worker")
	}
	return nil
}

// Stop stops every worker (draining write queues opportunistically), closes
// clients, and clears the buffer.
func (m *Monitor) Stop() {
	for _, u := range m.units {
		u.worker.Stop()
	}
	m.units = make(map[string]*deviceUnit)
	m.buf.Clear()
}

func groupByDevice(refs []project.TagRef) map[string][]project.TagRef {
	out := make(map[string][]project.TagRef)
	for _, r := range refs {
		key := r.DeviceKey()
		out[key] = append(out[key], r)
	}
	return out
}

func (m *Monitor) buildUnit(deviceKey string, refs []project.TagRef) (*deviceUnit, error) {
	ch := refs[0].Channel
	dev := refs[0].Device

	clientCfg, err := transportConfig(ch, dev)
	if err != nil {
		return nil, err
	}
	enc := encodingFromSettings(dev.Encoding)

	client := mbclient.New(clientCfg, deviceKey, m.traceFunc(deviceKey))
	queue := writequeue.New(256)

	tags := make([]worker.Tag, 0, len(refs))
	byName := make(map[string]resolvedTag, len(refs))
	for _, r := range refs {
		mapped, err := mbmap.MapTag(r.Tag.Address, r.Tag.DataType, dev.DataAccess.ZeroBased, dev.DataAccess.ZeroBasedBit, dev.DataAccess.Func05, dev.DataAccess.Func06)
		if err != nil {
			m.log.Warn("skipping unmappable tag", zap.String("tag", r.TreePath), zap.Error(err))
			continue
		}
		var sd *scaling.Descriptor
		if r.Tag.Scaling != nil && r.Tag.Scaling.Kind != project.ScalingNone {
			sd = &scaling.Descriptor{
				Kind:       scaling.Kind(r.Tag.Scaling.Kind),
				RawLow:     r.Tag.Scaling.RawLow,
				RawHigh:    r.Tag.Scaling.RawHigh,
				ScaledLow:  r.Tag.Scaling.ScaledLow,
				ScaledHigh: r.Tag.Scaling.ScaledHigh,
				ClampLow:   r.Tag.Scaling.ClampLow,
				ClampHigh:  r.Tag.Scaling.ClampHigh,
				Negate:     r.Tag.Scaling.Negate,
			}
		}

		m.buf.SetStatic(r.TreePath, mapped.DataType.Canonical, r.Tag.Access)

		tags = append(tags, worker.Tag{
			TreePath: r.TreePath,
			Mapped:   mapped,
			ScanMS:   r.Tag.ScanRateMS,
			Scaling:  sd,
			Access:   r.Tag.Access,
		})
		byName[r.Tag.Name] = resolvedTag{mapped: mapped, scaling: sd, access: r.Tag.Access, dataType: mapped.DataType.Canonical}
	}

	if len(tags) == 0 {
		return nil, gatewayerr.Wrap(gatewayerr.ErrConfiguration, "device %q has no mappable tags", deviceKey)
	}

	maxRegs := maxOf(dev.BlockSizes.HoldRegs, dev.BlockSizes.IntRegs)
	if maxRegs == 0 {
		maxRegs = m.defaultMaxRegistersPerBatch
	}
	maxCoils := maxOf(dev.BlockSizes.OutCoils, dev.BlockSizes.InCoils)
	if maxCoils == 0 {
		maxCoils = m.defaultMaxCoilsPerBatch
	}

	wcfg := worker.Config{
		DeviceKey:            deviceKey,
		UnitID:               dev.UnitID,
		Encoding:             enc,
		MaxRegistersPerBatch: maxRegs,
		MaxCoilsPerBatch:     maxCoils,
		InterRequestDelay:    time.Duration(dev.Timing.InterRequestDelayMS) * time.Millisecond,
	}

	w := worker.New(wcfg, client, queue, tags, m.onTagPolled(deviceKey))

	return &deviceUnit{worker: w, queue: queue, client: client, tags: byName}, nil
}

func maxOf(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// onTagPolled writes a poll result into the shared buffer, expanding array
// tags into one entry per element at "<tree-path> [i]".
func (m *Monitor) onTagPolled(deviceKey string) func(worker.PolledValue) {
	return func(pv worker.PolledValue) {
		now := time.Now().Unix()
		quality := buffer.Quality(pv.Quality)

		if pv.Array != nil {
			for i, elem := range pv.Array {
				path := fmt.Sprintf("%s [%d]", pv.TreePath, i)
				q := quality
				if !elem.OK {
					q = buffer.Bad
				}
				m.buf.Update(path, elem.Value, now, q)
			}
			return
		}
		m.buf.Update(pv.TreePath, pv.Value, now, quality)
	}
}

func (m *Monitor) traceFunc(deviceKey string) mbclient.TraceFunc {
	if m.sink == nil {
		return nil
	}
	return func(direction, hexStr string, length, fc, unit int, transportID string) {
		m.sink.PublishTrace(diagnostics.TraceRecord{
			Direction:    direction,
			Hex:          hexStr,
			Length:       length,
			FunctionCode: fc,
			UnitID:       unit,
			ConfigID:     deviceKey,
			TransportID:  transportID,
			Timestamp:    time.Now().Unix(),
		})
	}
}
