package config

import (
	"fmt"
	"os"

	"github.com/meshguard/meshguard/pkg/types"
	"gopkg.in/yaml.v3"
)

// NodeManifest is the YAML document declaring the supervised node set.
// The set is static: meshguard reads it once at startup and never adds
// or removes nodes afterwards.
type NodeManifest struct {
	APIVersion string           `yaml:"apiVersion"`
	Kind       string           `yaml:"kind"`
	Nodes      []types.NodeSpec `yaml:"nodes"`
}

// LoadNodes reads and validates the node manifest
func LoadNodes(path string) ([]types.NodeSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read node manifest: %w", err)
	}

	var manifest NodeManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse node manifest: %w", err)
	}

	if manifest.Kind != "" && manifest.Kind != "NodeSet" {
		return nil, fmt.Errorf("unsupported manifest kind: %s", manifest.Kind)
	}

	if len(manifest.Nodes) == 0 {
		return nil, fmt.Errorf("node manifest declares no nodes")
	}

	seen := make(map[string]bool)
	for i, spec := range manifest.Nodes {
		if spec.ID == "" {
			return nil, fmt.Errorf("node %d has no id", i)
		}
		if seen[spec.ID] {
			return nil, fmt.Errorf("duplicate node id: %s", spec.ID)
		}
		seen[spec.ID] = true

		if err := validateProbe(spec); err != nil {
			return nil, err
		}
		if err := validateRestart(spec); err != nil {
			return nil, err
		}
	}

	return manifest.Nodes, nil
}

func validateProbe(spec types.NodeSpec) error {
	switch spec.Probe.Kind {
	case types.ProbeKindHTTP, types.ProbeKindTCP:
		if spec.Probe.Endpoint == "" {
			return fmt.Errorf("node %s: %s probe requires an endpoint", spec.ID, spec.Probe.Kind)
		}
	case types.ProbeKindExec:
		if len(spec.Probe.Command) == 0 {
			return fmt.Errorf("node %s: exec probe requires a command", spec.ID)
		}
	default:
		return fmt.Errorf("node %s: unsupported probe kind %q", spec.ID, spec.Probe.Kind)
	}
	return nil
}

func validateRestart(spec types.NodeSpec) error {
	switch spec.Restart.Kind {
	case types.RestartKindHTTP:
		if spec.Restart.Endpoint == "" {
			return fmt.Errorf("node %s: http restart requires an endpoint", spec.ID)
		}
	case types.RestartKindExec:
		if len(spec.Restart.Command) == 0 {
			return fmt.Errorf("node %s: exec restart requires a command", spec.ID)
		}
	default:
		return fmt.Errorf("node %s: unsupported restart kind %q", spec.ID, spec.Restart.Kind)
	}
	return nil
}
