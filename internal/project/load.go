package project

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/edgeflow/modgate/internal/gatewayerr"
	"gopkg.in/yaml.v3"
)

// Load reads a project document, choosing JSON or YAML by file extension
// (project files are stored as JSON; YAML is an additional load path,
// see SPEC_FULL's DOMAIN STACK table).
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.ErrConfiguration, "read project document %s", path)
	}

	var p Project
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, gatewayerr.Wrap(gatewayerr.ErrConfiguration, "parse YAML project document: %v", err)
		}
	default:
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, gatewayerr.Wrap(gatewayerr.ErrConfiguration, "parse JSON project document: %v", err)
		}
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Save writes the project document back in the same format it carries,
// chosen by the target path's extension. Used for the temp working-copy
// persistence for project documents.
func Save(path string, p *Project) error {
	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(p)
	default:
		data, err = json.MarshalIndent(p, "", "  ")
	}
	if err != nil {
		return gatewayerr.Wrap(gatewayerr.ErrConfiguration, "marshal project document: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return gatewayerr.Wrap(gatewayerr.ErrConfiguration, "write project document %s", path)
	}
	return nil
}
