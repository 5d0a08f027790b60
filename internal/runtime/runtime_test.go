package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgeflow/modgate/internal/buffer"
	"github.com/edgeflow/modgate/internal/project"
)

func sampleProject() *project.Project {
	return &project.Project{
		Name: "Plant1",
		Channels: []project.Channel{
			{
				Name:   "Channel1",
				Driver: project.ChannelDriver{Type: project.DriverTCP, Host: "127.0.0.1", Port_: 502},
				Devices: []project.Device{
					{
						Name:   "Device1",
						UnitID: 1,
						Timing: project.DeviceTiming{ConnectTimeoutSec: 1, ConnectAttempts: 1, RequestTimeoutMS: 500, AttemptsBeforeTimeout: 1},
						Encoding: project.EncodingSettings{ByteOrder: "big", WordOrder: 1},
						BlockSizes: project.BlockSizeLimits{HoldRegs: 100, OutCoils: 100},
						Tags: []project.Tag{
							{Name: "Setpoint", Address: "400010", DataType: "float32", Access: "RW", ScanRateMS: 1000},
							{Name: "Running", Address: "000001", DataType: "boolean", Access: "RO", ScanRateMS: 1000},
						},
					},
				},
			},
		},
	}
}

func TestStartBuildsOneUnitPerDevice(t *testing.T) {
	p := sampleProject()
	buf := buffer.New()
	m := New(buf, nil, 120, 2000)

	err := m.Start(p)
	require.NoError(t, err)
	assert.Len(t, m.units, 1)
	assert.Contains(t, m.units, "Channel1_Device1")

	m.Stop()
	assert.Len(t, m.units, 0)
}

func TestStartFailsOnZeroTagProject(t *testing.T) {
	p := &project.Project{Name: "Empty"}
	buf := buffer.New()
	m := New(buf, nil, 120, 2000)

	err := m.Start(p)
	assert.Error(t, err)
}

func TestGroupByDeviceGroupsByChannelAndDevice(t *testing.T) {
	p := sampleProject()
	refs := p.WalkTags()
	byDevice := groupByDevice(refs)
	assert.Len(t, byDevice, 1)
	assert.Len(t, byDevice["Channel1_Device1"], 2)
}

func TestRouterRejectsUnknownDevice(t *testing.T) {
	p := sampleProject()
	buf := buffer.New()
	m := New(buf, nil, 120, 2000)
	require.NoError(t, m.Start(p))
	defer m.Stop()

	router := m.Router()
	ok := router("NoSuchChannel", "NoSuchDevice", "Setpoint", 50.0, -1)
	assert.False(t, ok)
}

func TestRouterRejectsReadOnlyTag(t *testing.T) {
	p := sampleProject()
	buf := buffer.New()
	m := New(buf, nil, 120, 2000)
	require.NoError(t, m.Start(p))
	defer m.Stop()

	router := m.Router()
	ok := router("Channel1", "Device1", "Running", true, -1)
	assert.False(t, ok)
}

func TestRouterEnqueuesWritableTag(t *testing.T) {
	p := sampleProject()
	buf := buffer.New()
	m := New(buf, nil, 120, 2000)
	require.NoError(t, m.Start(p))
	defer m.Stop()

	router := m.Router()
	ok := router("Channel1", "Device1", "Setpoint", 50.0, -1)
	assert.True(t, ok)

	unit := m.units["Channel1_Device1"]
	assert.Equal(t, 1, unit.queue.Count())
}

func sampleProjectWithArrayTag() *project.Project {
	p := sampleProject()
	dev := &p.Channels[0].Devices[0]
	dev.Tags = append(dev.Tags, project.Tag{
		Name: "Samples", Address: "400020 [3]", DataType: "Int(Array)", Access: "RW", ScanRateMS: 1000,
	})
	return p
}

func TestRouterDecomposesWholeArrayWrite(t *testing.T) {
	p := sampleProjectWithArrayTag()
	buf := buffer.New()
	m := New(buf, nil, 120, 2000)
	require.NoError(t, m.Start(p))
	defer m.Stop()

	router := m.Router()
	ok := router("Channel1", "Device1", "Samples", []interface{}{10, 20, 30}, -1)
	assert.True(t, ok)

	unit := m.units["Channel1_Device1"]
	assert.Equal(t, 3, unit.queue.Count())

	baseOffset := unit.tags["Samples"].mapped.Offset
	pending := unit.queue.GetPending(10)
	seen := map[int]interface{}{}
	for _, e := range pending {
		seen[e.Address-baseOffset] = e.Value
	}
	assert.Equal(t, 10, seen[0])
	assert.Equal(t, 20, seen[1])
	assert.Equal(t, 30, seen[2])
}

func TestRouterHandlesSingleArrayElementWrite(t *testing.T) {
	p := sampleProjectWithArrayTag()
	buf := buffer.New()
	m := New(buf, nil, 120, 2000)
	require.NoError(t, m.Start(p))
	defer m.Stop()

	router := m.Router()
	ok := router("Channel1", "Device1", "Samples", 42, 1)
	assert.True(t, ok)

	unit := m.units["Channel1_Device1"]
	require.Equal(t, 1, unit.queue.Count())
	pending := unit.queue.GetPending(1)
	baseOffset := unit.tags["Samples"].mapped.Offset
	assert.Equal(t, baseOffset+1, pending[0].Address)
	assert.Equal(t, 42, pending[0].Value)
}

func TestRouterRejectsArrayIndexOutOfRange(t *testing.T) {
	p := sampleProjectWithArrayTag()
	buf := buffer.New()
	m := New(buf, nil, 120, 2000)
	require.NoError(t, m.Start(p))
	defer m.Stop()

	router := m.Router()
	ok := router("Channel1", "Device1", "Samples", 42, 99)
	assert.False(t, ok)
}
