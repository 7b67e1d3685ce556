package testing

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/imamik/stratus/internal/platform"
)

// FakeSubstrate is an in-memory platform.Substrate.
// Failures can be injected per server name.
type FakeSubstrate struct {
	mu         sync.Mutex
	servers    map[string]platform.Server
	nextID     int
	createErrs map[string]error
	deleteErrs map[string]error

	// Created and Deleted record server names in call order.
	Created []string
	Deleted []string
}

// NewFakeSubstrate returns an empty FakeSubstrate.
func NewFakeSubstrate() *FakeSubstrate {
	return &FakeSubstrate{
		servers:    make(map[string]platform.Server),
		createErrs: make(map[string]error),
		deleteErrs: make(map[string]error),
	}
}

// FailCreate makes CreateServer fail for name.
func (f *FakeSubstrate) FailCreate(name string, err error) *FakeSubstrate {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createErrs[name] = err
	return f
}

// FailDelete makes DeleteServer fail for name. A nil err clears the failure.
func (f *FakeSubstrate) FailDelete(name string, err error) *FakeSubstrate {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.deleteErrs, name)
		return f
	}
	f.deleteErrs[name] = err
	return f
}

// Put adds a server directly, as if created outside stratus.
func (f *FakeSubstrate) Put(srv platform.Server) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.servers[srv.Name] = srv
}

// Names returns the names of the existing servers, sorted.
func (f *FakeSubstrate) Names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.servers))
	for name := range f.servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CreateServer implements platform.Substrate.
func (f *FakeSubstrate) CreateServer(_ context.Context, spec platform.ServerSpec) (*platform.Server, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.createErrs[spec.Name]; err != nil {
		return nil, err
	}
	if _, exists := f.servers[spec.Name]; exists {
		return nil, fmt.Errorf("server %s already exists", spec.Name)
	}

	f.nextID++
	srv := platform.Server{
		ID:        fmt.Sprintf("%d", f.nextID),
		Name:      spec.Name,
		PublicIP:  fmt.Sprintf("203.0.113.%d", f.nextID),
		PrivateIP: fmt.Sprintf("10.0.0.%d", f.nextID),
		Labels:    spec.Labels,
	}
	f.servers[spec.Name] = srv
	f.Created = append(f.Created, spec.Name)
	return &srv, nil
}

// DeleteServer implements platform.Substrate.
func (f *FakeSubstrate) DeleteServer(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.deleteErrs[name]; err != nil {
		return err
	}
	delete(f.servers, name)
	f.Deleted = append(f.Deleted, name)
	return nil
}

// GetServer implements platform.Substrate.
func (f *FakeSubstrate) GetServer(_ context.Context, name string) (*platform.Server, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	srv, ok := f.servers[name]
	if !ok {
		return nil, fmt.Errorf("server %s: %w", name, platform.ErrNotFound)
	}
	return &srv, nil
}

// ListServers implements platform.Substrate.
func (f *FakeSubstrate) ListServers(_ context.Context, labels map[string]string) ([]platform.Server, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []platform.Server
	for _, srv := range f.servers {
		match := true
		for k, v := range labels {
			if srv.Labels[k] != v {
				match = false
				break
			}
		}
		if match {
			out = append(out, srv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
