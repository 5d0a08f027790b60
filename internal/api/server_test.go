package api

import (
	"io"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edgeflow/modgate/internal/buffer"
	"github.com/edgeflow/modgate/internal/diagnostics"
	"github.com/edgeflow/modgate/internal/project"
	"github.com/edgeflow/modgate/internal/projectstore"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	buf := buffer.New()
	buf.SetStatic("Channel1.Device1.Tag1", "float32", "RW")
	buf.Update("Channel1.Device1.Tag1", 12.5, 0, buffer.Good)

	sink := diagnostics.NewSink()
	hub := diagnostics.NewHub()
	go hub.Run()
	hub.Attach(sink)

	store, err := projectstore.New(filepath.Join(t.TempDir(), "projects"), t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Save("demo", &project.Project{Name: "demo"}))

	reloadFn := func(p *project.Project) error {
		return nil
	}

	return New(buf, nil, nil, store, hub, sink, zap.NewNop(), reloadFn)
}

func TestHealthCheckReturnsOK(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestBufferSnapshotReturnsEntries(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest("GET", "/api/v1/buffer", nil)
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "Channel1.Device1.Tag1")
}

func TestBufferEntryUnknownPathReturns404(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest("GET", "/api/v1/buffer/nope", nil)
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestListProjectsReturnsStoredNames(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest("GET", "/api/v1/projects", nil)
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "demo")
}

func TestReloadUnknownProjectReturns404(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest("POST", "/api/v1/projects/nope/reload", nil)
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestReloadKnownProjectInvokesReloadFn(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest("POST", "/api/v1/projects/demo/reload", nil)
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}
