package handlers

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/imamik/stratus/api/v1alpha1"
	"github.com/imamik/stratus/internal/provisioning"
)

// fakeAPI answers from canned values. Methods a test does not configure
// panic through the nil embedded interface.
type fakeAPI struct {
	API

	clusters  []*v1alpha1.Cluster
	created   *v1alpha1.ClusterSpec
	scaled    *v1alpha1.ScalingRequest
	createErr error
	getErr    error

	clusterTemplates []*v1alpha1.ClusterTemplate
	groupTemplates   []*v1alpha1.NodeGroupTemplate
	plugins          []v1alpha1.PluginInfo
	configs          []v1alpha1.ConfigOption
	images           []v1alpha1.Image
	terminated       []string
	converted        []byte
}

func (f *fakeAPI) ListClusters(context.Context) ([]*v1alpha1.Cluster, error) {
	return f.clusters, nil
}

func (f *fakeAPI) GetCluster(_ context.Context, id string) (*v1alpha1.Cluster, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, c := range f.clusters {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, &notFound{}
}

func (f *fakeAPI) CreateCluster(_ context.Context, spec v1alpha1.ClusterSpec) (*v1alpha1.Cluster, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = &spec
	return &v1alpha1.Cluster{ID: "c-1", Name: spec.Name, Status: v1alpha1.StatusValidating}, nil
}

func (f *fakeAPI) ScaleCluster(_ context.Context, id string, request v1alpha1.ScalingRequest) (*v1alpha1.Cluster, error) {
	f.scaled = &request
	return &v1alpha1.Cluster{ID: id, Name: "demo", Status: v1alpha1.StatusScaling}, nil
}

func (f *fakeAPI) TerminateCluster(_ context.Context, id string) error {
	f.terminated = append(f.terminated, id)
	return nil
}

func (f *fakeAPI) Events(context.Context, string, int) ([]provisioning.Event, error) {
	return nil, nil
}

func (f *fakeAPI) ListClusterTemplates(context.Context) ([]*v1alpha1.ClusterTemplate, error) {
	return f.clusterTemplates, nil
}

func (f *fakeAPI) GetClusterTemplate(_ context.Context, id string) (*v1alpha1.ClusterTemplate, error) {
	for _, t := range f.clusterTemplates {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, &notFound{}
}

func (f *fakeAPI) CreateClusterTemplate(_ context.Context, tmpl *v1alpha1.ClusterTemplate) (*v1alpha1.ClusterTemplate, error) {
	out := *tmpl
	out.ID = "ct-1"
	f.clusterTemplates = append(f.clusterTemplates, &out)
	return &out, nil
}

func (f *fakeAPI) ConvertClusterTemplate(_ context.Context, plugin, version, name string, data []byte) (*v1alpha1.ClusterTemplate, error) {
	f.converted = data
	out := &v1alpha1.ClusterTemplate{ID: "ct-2", Name: name, PluginName: plugin, PluginVersion: version}
	f.clusterTemplates = append(f.clusterTemplates, out)
	return out, nil
}

func (f *fakeAPI) ListNodeGroupTemplates(context.Context) ([]*v1alpha1.NodeGroupTemplate, error) {
	return f.groupTemplates, nil
}

func (f *fakeAPI) CreateNodeGroupTemplate(_ context.Context, tmpl *v1alpha1.NodeGroupTemplate) (*v1alpha1.NodeGroupTemplate, error) {
	out := *tmpl
	out.ID = "ngt-1"
	f.groupTemplates = append(f.groupTemplates, &out)
	return &out, nil
}

func (f *fakeAPI) DeleteNodeGroupTemplate(context.Context, string) error {
	return nil
}

func (f *fakeAPI) ListPlugins(context.Context) ([]v1alpha1.PluginInfo, error) {
	return f.plugins, nil
}

func (f *fakeAPI) GetPlugin(_ context.Context, name, version string) (*v1alpha1.PluginVersionInfo, error) {
	for _, p := range f.plugins {
		if p.Name == name {
			return &v1alpha1.PluginVersionInfo{
				PluginInfo: p, Version: version, NodeProcesses: []string{"manager", "worker"},
				Configs: f.configs,
			}, nil
		}
	}
	return nil, &notFound{}
}

func (f *fakeAPI) ListImages(context.Context, []string) ([]v1alpha1.Image, error) {
	return f.images, nil
}

func (f *fakeAPI) FindImage(_ context.Context, name string) (*v1alpha1.Image, error) {
	for _, img := range f.images {
		if img.Name == name {
			return &img, nil
		}
	}
	return nil, &notFound{}
}

func (f *fakeAPI) TagImage(_ context.Context, id string, tags []string) (*v1alpha1.Image, error) {
	return &v1alpha1.Image{ID: id, Name: id, Tags: tags, Registered: true}, nil
}

type notFound struct{}

func (*notFound) Error() string { return "not found" }

// useFakeAPI routes every handler to f and captures output for the
// duration of the test.
func useFakeAPI(t *testing.T, f *fakeAPI) *bytes.Buffer {
	t.Helper()
	origClient, origOut, origTTY := newClient, Out, isInteractiveTTY
	t.Cleanup(func() {
		newClient, Out, isInteractiveTTY = origClient, origOut, origTTY
	})

	var buf bytes.Buffer
	newClient = func(string) API { return f }
	Out = &buf
	isInteractiveTTY = func() bool { return false }
	return &buf
}

// captureOutput collects everything printed by fn.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	orig := Out
	t.Cleanup(func() { Out = orig })

	var buf bytes.Buffer
	Out = &buf
	fn()
	return buf.String()
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func demoCluster() *v1alpha1.Cluster {
	return &v1alpha1.Cluster{
		ID:            "c-1",
		Name:          "demo",
		PluginName:    "vanilla",
		PluginVersion: "2.0",
		Status:        v1alpha1.StatusActive,
		Labels:        map[string]string{"team": "infra", "env": "dev"},
		NodeGroups: []v1alpha1.NodeGroup{
			{
				ID:            "ng-1",
				Name:          "manager",
				Count:         1,
				FlavorID:      "cx22",
				NodeProcesses: []string{"manager"},
				Instances:     []v1alpha1.Instance{{ID: "i-1", Name: "demo-manager-0"}},
			},
			{
				ID:            "ng-2",
				Name:          "workers",
				Count:         2,
				FlavorID:      "cx32",
				NodeProcesses: []string{"worker", "storage"},
			},
		},
	}
}
