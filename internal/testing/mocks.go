package testing

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/imamik/stratus/api/v1alpha1"
	"github.com/imamik/stratus/internal/scaling"
)

// MockPlugin is a mock implementation of provisioning.Plugin.
// Metadata methods are answered from its fields; lifecycle methods go
// through mock.Mock.
type MockPlugin struct {
	mock.Mock

	PluginName     string
	PluginVersions []string
	Processes      []string
	ConfigOptions  []v1alpha1.ConfigOption
}

// NewMockPlugin creates a MockPlugin without expectations.
// Chain FailOn and then SucceedAll for the common setups.
func NewMockPlugin(name string, versions ...string) *MockPlugin {
	return &MockPlugin{
		PluginName:     name,
		PluginVersions: versions,
		Processes:      []string{"manager", "worker"},
	}
}

// SucceedAll registers successful defaults for every lifecycle call.
func (m *MockPlugin) SucceedAll() *MockPlugin {
	for _, method := range []string{"Validate", "UpdateInfra", "ConfigureCluster", "StartCluster", "OnTerminateCluster"} {
		m.On(method, mock.Anything, mock.Anything).Return(nil).Maybe()
	}
	m.On("ValidateScaling", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("ScaleCluster", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	return m
}

// FailOn makes method return err. It must be called before SucceedAll.
func (m *MockPlugin) FailOn(method string, err error) *MockPlugin {
	switch method {
	case "ValidateScaling", "ScaleCluster":
		m.On(method, mock.Anything, mock.Anything, mock.Anything).Return(err)
	default:
		m.On(method, mock.Anything, mock.Anything).Return(err)
	}
	return m
}

// Name implements provisioning.Plugin.
func (m *MockPlugin) Name() string { return m.PluginName }

// Title implements provisioning.Plugin.
func (m *MockPlugin) Title() string { return "Mock " + m.PluginName }

// Description implements provisioning.Plugin.
func (m *MockPlugin) Description() string { return "test engine" }

// Versions implements provisioning.Plugin.
func (m *MockPlugin) Versions() []string { return m.PluginVersions }

// NodeProcesses implements provisioning.Plugin.
func (m *MockPlugin) NodeProcesses(string) ([]string, error) { return m.Processes, nil }

// RequiredImageTags implements provisioning.Plugin.
func (m *MockPlugin) RequiredImageTags(version string) []string {
	return []string{m.PluginName, version}
}

// Configs implements provisioning.Plugin.
func (m *MockPlugin) Configs(string) ([]v1alpha1.ConfigOption, error) { return m.ConfigOptions, nil }

// Validate implements provisioning.Plugin.
func (m *MockPlugin) Validate(ctx context.Context, cluster *v1alpha1.Cluster) error {
	return m.Called(ctx, cluster).Error(0)
}

// ValidateScaling implements provisioning.Plugin.
func (m *MockPlugin) ValidateScaling(ctx context.Context, cluster *v1alpha1.Cluster, deltas scaling.Deltas) error {
	return m.Called(ctx, cluster, deltas).Error(0)
}

// UpdateInfra implements provisioning.Plugin.
func (m *MockPlugin) UpdateInfra(ctx context.Context, cluster *v1alpha1.Cluster) error {
	return m.Called(ctx, cluster).Error(0)
}

// ConfigureCluster implements provisioning.Plugin.
func (m *MockPlugin) ConfigureCluster(ctx context.Context, cluster *v1alpha1.Cluster) error {
	return m.Called(ctx, cluster).Error(0)
}

// StartCluster implements provisioning.Plugin.
func (m *MockPlugin) StartCluster(ctx context.Context, cluster *v1alpha1.Cluster) error {
	return m.Called(ctx, cluster).Error(0)
}

// ScaleCluster implements provisioning.Plugin.
func (m *MockPlugin) ScaleCluster(ctx context.Context, cluster *v1alpha1.Cluster, instances []v1alpha1.Instance) error {
	return m.Called(ctx, cluster, instances).Error(0)
}

// OnTerminateCluster implements provisioning.Plugin.
func (m *MockPlugin) OnTerminateCluster(ctx context.Context, cluster *v1alpha1.Cluster) error {
	return m.Called(ctx, cluster).Error(0)
}

// MockDecommissioningPlugin adds provisioning.Decommissioner to MockPlugin.
type MockDecommissioningPlugin struct {
	*MockPlugin
}

// DecommissionNodes implements provisioning.Decommissioner.
func (m MockDecommissioningPlugin) DecommissionNodes(ctx context.Context, cluster *v1alpha1.Cluster, instances []v1alpha1.Instance) error {
	return m.Called(ctx, cluster, instances).Error(0)
}

// MockConvertingPlugin adds provisioning.Converter to MockPlugin.
type MockConvertingPlugin struct {
	*MockPlugin
}

// ConvertConfig implements provisioning.Converter.
func (m MockConvertingPlugin) ConvertConfig(ctx context.Context, version string, data []byte) (*v1alpha1.ClusterTemplate, error) {
	args := m.Called(ctx, version, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*v1alpha1.ClusterTemplate), args.Error(1)
}

// MockImageRegistry is a mock implementation of platform.ImageRegistry.
type MockImageRegistry struct {
	mock.Mock
}

func imageResult(args mock.Arguments) (*v1alpha1.Image, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*v1alpha1.Image), args.Error(1)
}

// ListImages implements platform.ImageRegistry.
func (m *MockImageRegistry) ListImages(ctx context.Context, tags []string) ([]v1alpha1.Image, error) {
	args := m.Called(ctx, tags)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]v1alpha1.Image), args.Error(1)
}

// GetImage implements platform.ImageRegistry.
func (m *MockImageRegistry) GetImage(ctx context.Context, id string) (*v1alpha1.Image, error) {
	return imageResult(m.Called(ctx, id))
}

// FindImage implements platform.ImageRegistry.
func (m *MockImageRegistry) FindImage(ctx context.Context, name string) (*v1alpha1.Image, error) {
	return imageResult(m.Called(ctx, name))
}

// RegisterImage implements platform.ImageRegistry.
func (m *MockImageRegistry) RegisterImage(ctx context.Context, id, username, description string) (*v1alpha1.Image, error) {
	return imageResult(m.Called(ctx, id, username, description))
}

// UnregisterImage implements platform.ImageRegistry.
func (m *MockImageRegistry) UnregisterImage(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// TagImage implements platform.ImageRegistry.
func (m *MockImageRegistry) TagImage(ctx context.Context, id string, tags []string) (*v1alpha1.Image, error) {
	return imageResult(m.Called(ctx, id, tags))
}

// UntagImage implements platform.ImageRegistry.
func (m *MockImageRegistry) UntagImage(ctx context.Context, id string, tags []string) (*v1alpha1.Image, error) {
	return imageResult(m.Called(ctx, id, tags))
}
