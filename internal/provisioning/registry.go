package provisioning

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/imamik/stratus/api/v1alpha1"
)

var (
	// ErrPluginNotFound is returned for an unknown engine name or version.
	ErrPluginNotFound = errors.New("plugin not found")
	// ErrPluginExists is returned when registering a name twice.
	ErrPluginExists = errors.New("plugin already registered")
)

// Registry holds the provisioning engines available to the orchestrator.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
}

// NewRegistry returns a registry containing plugins.
func NewRegistry(plugins ...Plugin) (*Registry, error) {
	r := &Registry{plugins: make(map[string]Plugin, len(plugins))}
	for _, p := range plugins {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds p to the registry.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.plugins[p.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrPluginExists, p.Name())
	}
	r.plugins[p.Name()] = p
	return nil
}

// Get returns the engine registered under name.
func (r *Registry) Get(name string) (Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, name)
	}
	return p, nil
}

// GetVersion returns the engine registered under name if it supports version.
func (r *Registry) GetVersion(name, version string) (Plugin, error) {
	p, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(p.Versions(), version) {
		return nil, fmt.Errorf("%w: %s version %s", ErrPluginNotFound, name, version)
	}
	return p, nil
}

// List describes every registered engine, sorted by name.
func (r *Registry) List() []v1alpha1.PluginInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]v1alpha1.PluginInfo, 0, len(r.plugins))
	for _, p := range r.plugins {
		out = append(out, info(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Describe returns the details of one engine version.
func (r *Registry) Describe(name, version string) (*v1alpha1.PluginVersionInfo, error) {
	p, err := r.GetVersion(name, version)
	if err != nil {
		return nil, err
	}
	processes, err := p.NodeProcesses(version)
	if err != nil {
		return nil, fmt.Errorf("failed to list node processes of %s %s: %w", name, version, err)
	}
	configs, err := p.Configs(version)
	if err != nil {
		return nil, fmt.Errorf("failed to list configs of %s %s: %w", name, version, err)
	}
	return &v1alpha1.PluginVersionInfo{
		PluginInfo:        info(p),
		Version:           version,
		NodeProcesses:     processes,
		RequiredImageTags: p.RequiredImageTags(version),
		Configs:           configs,
	}, nil
}

func info(p Plugin) v1alpha1.PluginInfo {
	return v1alpha1.PluginInfo{
		Name:        p.Name(),
		Title:       p.Title(),
		Description: p.Description(),
		Versions:    p.Versions(),
	}
}
