package projectstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgeflow/modgate/internal/project"
)

func sampleProject(name string) *project.Project {
	return &project.Project{
		Name: name,
		Channels: []project.Channel{
			{
				Name: "Channel1",
				Driver: project.ChannelDriver{
					Type: project.DriverTCP,
					Host: "127.0.0.1",
				},
				Devices: []project.Device{
					{Name: "Device1", UnitID: 1},
				},
			},
		},
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	base := filepath.Join(t.TempDir(), "projects")
	working := filepath.Join(t.TempDir(), "working")
	s, err := New(base, working)
	require.NoError(t, err)
	return s
}

func TestSaveAndLoadRoundTrips(t *testing.T) {
	s := newTestStore(t)
	p := sampleProject("demo")

	require.NoError(t, s.Save("demo", p))

	loaded, err := s.Load("demo")
	require.NoError(t, err)
	assert.Equal(t, "demo", loaded.Name)
	require.Len(t, loaded.Channels, 1)
	assert.Equal(t, "Channel1", loaded.Channels[0].Name)
}

func TestLoadMissingProjectFails(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Load("nope")
	assert.Error(t, err)
}

func TestListReturnsSortedNames(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save("zeta", sampleProject("zeta")))
	require.NoError(t, s.Save("alpha", sampleProject("alpha")))

	names, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, names)
}

func TestDeleteRemovesProject(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save("demo", sampleProject("demo")))
	require.NoError(t, s.Delete("demo"))

	_, err := s.Load("demo")
	assert.Error(t, err)
}

func TestDeleteMissingProjectFails(t *testing.T) {
	s := newTestStore(t)
	assert.Error(t, s.Delete("nope"))
}

func TestWorkingCopyRoundTripsAndClears(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.LoadWorkingCopy()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SaveWorkingCopy(sampleProject("wip")))

	loaded, ok, err := s.LoadWorkingCopy()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "wip", loaded.Name)

	require.NoError(t, s.ClearWorkingCopy())

	_, ok, err = s.LoadWorkingCopy()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClearWorkingCopyIdempotent(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.ClearWorkingCopy())
	assert.NoError(t, s.ClearWorkingCopy())
}
