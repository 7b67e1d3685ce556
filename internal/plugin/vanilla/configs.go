package vanilla

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/imamik/stratus/api/v1alpha1"
)

var baseConfigs = []v1alpha1.ConfigOption{
	{Section: "general", Name: "log-level", Scope: v1alpha1.ScopeNode, Type: "string", Default: "info",
		Description: "Log level of the node services"},
	{Section: "general", Name: "data-dir", Scope: v1alpha1.ScopeNode, Type: "string", Default: "/var/lib/stratus",
		Description: "Directory the node services keep their state in"},
	{Section: "manager", Name: "port", Scope: v1alpha1.ScopeCluster, Type: "int", Default: "7077",
		Description: "Port workers use to reach the manager"},
	{Section: "worker", Name: "slots", Scope: v1alpha1.ScopeNode, Type: "int", Default: "2",
		Description: "Concurrent tasks per worker"},
}

var configsByVersion = map[string][]v1alpha1.ConfigOption{
	"1.0": baseConfigs,
	"2.0": append(slices.Clone(baseConfigs), v1alpha1.ConfigOption{
		Section: "storage", Name: "replication", Scope: v1alpha1.ScopeCluster, Type: "int", Default: "1",
		Description: "Copies kept of every stored block",
	}),
}

// Configs lists the options rendered into node.env for version.
func (p *Plugin) Configs(version string) ([]v1alpha1.ConfigOption, error) {
	configs, ok := configsByVersion[version]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVersion, version)
	}
	return slices.Clone(configs), nil
}

// ErrInvalidConfigFile is returned when a configuration file cannot be
// converted into a cluster template.
var ErrInvalidConfigFile = errors.New("invalid configuration file")

// configFile is the engine's native cluster description.
type configFile struct {
	Description  string                       `yaml:"description"`
	DefaultImage string                       `yaml:"defaultImage"`
	Settings     map[string]map[string]string `yaml:"settings"`
	Nodes        []configNode                 `yaml:"nodes"`
}

type configNode struct {
	Name      string                       `yaml:"name"`
	Flavor    string                       `yaml:"flavor"`
	Image     string                       `yaml:"image"`
	Count     int                          `yaml:"count"`
	Processes []string                     `yaml:"processes"`
	Settings  map[string]map[string]string `yaml:"settings"`
}

// ConvertConfig turns a YAML cluster description into a cluster template.
// Unknown fields and processes the version does not provide are rejected.
func (p *Plugin) ConvertConfig(_ context.Context, version string, data []byte) (*v1alpha1.ClusterTemplate, error) {
	known, err := p.NodeProcesses(version)
	if err != nil {
		return nil, err
	}

	var file configFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfigFile, err)
	}
	if len(file.Nodes) == 0 {
		return nil, fmt.Errorf("%w: no nodes defined", ErrInvalidConfigFile)
	}

	tmpl := &v1alpha1.ClusterTemplate{
		Description:    file.Description,
		DefaultImageID: file.DefaultImage,
		ClusterConfigs: file.Settings,
	}
	for _, n := range file.Nodes {
		if n.Name == "" || n.Flavor == "" {
			return nil, fmt.Errorf("%w: every node needs a name and a flavor", ErrInvalidConfigFile)
		}
		if len(n.Processes) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoProcesses, n.Name)
		}
		for _, proc := range n.Processes {
			if !slices.Contains(known, proc) {
				return nil, fmt.Errorf("%w: %q in node %s", ErrUnknownProcess, proc, n.Name)
			}
		}
		tmpl.NodeGroups = append(tmpl.NodeGroups, v1alpha1.NodeGroupSpec{
			Name:          n.Name,
			Count:         n.Count,
			FlavorID:      n.Flavor,
			ImageID:       n.Image,
			NodeProcesses: n.Processes,
			NodeConfigs:   n.Settings,
		})
	}
	return tmpl, nil
}

// configDefaults returns the defaulted options of version keyed by section.
func configDefaults(version string) map[string]map[string]string {
	out := make(map[string]map[string]string)
	for _, opt := range configsByVersion[version] {
		if opt.Default == "" {
			continue
		}
		if out[opt.Section] == nil {
			out[opt.Section] = make(map[string]string)
		}
		out[opt.Section][opt.Name] = opt.Default
	}
	return out
}
