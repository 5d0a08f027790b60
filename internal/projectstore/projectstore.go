// Package projectstore persists project documents to disk: named projects
// under a base directory, and a single temp working-copy that survives
// restarts across edits that haven't been explicitly saved yet.
package projectstore

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/edgeflow/modgate/internal/gatewayerr"
	"github.com/edgeflow/modgate/internal/project"
)

const workingCopyFile = "modgate_working_copy.json"

// Store is a file-backed project document store. One Store serves both the
// named-project directory and the temp working-copy file.
type Store struct {
	basePath   string
	workingDir string
	mu         sync.RWMutex
}

// New creates a store rooted at basePath for named projects; workingDir
// holds the temp working-copy (typically os.TempDir()). Both directories
// are created if missing.
func New(basePath, workingDir string) (*Store, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.ErrConfiguration, "create project store directory %s: %v", basePath, err)
	}
	if workingDir == "" {
		workingDir = os.TempDir()
	}
	if err := os.MkdirAll(workingDir, 0o755); err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.ErrConfiguration, "create working-copy directory %s: %v", workingDir, err)
	}
	return &Store{basePath: basePath, workingDir: workingDir}, nil
}

func (s *Store) pathFor(name string) string {
	safe := strings.ReplaceAll(name, string(filepath.Separator), "_")
	return filepath.Join(s.basePath, safe+".json")
}

// Save writes p under name in the projects directory.
func (s *Store) Save(name string, p *project.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return project.Save(s.pathFor(name), p)
}

// Load reads the named project document.
func (s *Store) Load(name string) (*project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	path := s.pathFor(name)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, gatewayerr.Wrap(gatewayerr.ErrConfiguration, "project %q not found", name)
		}
		return nil, gatewayerr.Wrap(gatewayerr.ErrConfiguration, "stat project %q: %v", name, err)
	}
	return project.Load(path)
}

// List returns the names of every stored project, sorted.
func (s *Store) List() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.ErrConfiguration, "list project store: %v", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		if e.Name() == workingCopyFile {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes the named project document.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.pathFor(name)); err != nil {
		if os.IsNotExist(err) {
			return gatewayerr.Wrap(gatewayerr.ErrConfiguration, "project %q not found", name)
		}
		return gatewayerr.Wrap(gatewayerr.ErrConfiguration, "delete project %q: %v", name, err)
	}
	return nil
}

func (s *Store) workingCopyPath() string {
	return filepath.Join(s.workingDir, workingCopyFile)
}

// SaveWorkingCopy persists the in-progress (possibly unsaved) edit state so
// it survives an unexpected restart.
func (s *Store) SaveWorkingCopy(p *project.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return project.Save(s.workingCopyPath(), p)
}

// LoadWorkingCopy returns the previous session's working copy, if any. The
// second return value is false when no working copy exists.
func (s *Store) LoadWorkingCopy() (*project.Project, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	path := s.workingCopyPath()
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, gatewayerr.Wrap(gatewayerr.ErrConfiguration, "stat working copy: %v", err)
	}
	p, err := project.Load(path)
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

// ClearWorkingCopy removes the temp working-copy file, called once its
// content has been explicitly saved under a project name.
func (s *Store) ClearWorkingCopy() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.workingCopyPath()); err != nil && !os.IsNotExist(err) {
		return gatewayerr.Wrap(gatewayerr.ErrConfiguration, "clear working copy: %v", err)
	}
	return nil
}
