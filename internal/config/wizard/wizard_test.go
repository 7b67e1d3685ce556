package wizard

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"

	"github.com/imamik/stratus/api/v1alpha1"
)

func TestBuildSpec(t *testing.T) {
	t.Parallel()

	result := &WizardResult{
		ClusterName:      "analytics",
		PluginName:       "vanilla",
		PluginVersion:    "1.0",
		DefaultImageID:   "debian-12",
		ManagerFlavor:    "cpx21",
		ManagerProcesses: []string{"manager"},
		AddWorkers:       true,
		WorkerFlavor:     "cpx31",
		WorkerCount:      3,
		WorkerProcesses:  []string{"worker", "storage"},
		Labels:           map[string]string{"team": "data"},
	}

	spec := BuildSpec(result)

	assert.Equal(t, "analytics", spec.Name)
	assert.Equal(t, "vanilla", spec.PluginName)
	assert.Equal(t, "1.0", spec.PluginVersion)
	assert.Equal(t, "debian-12", spec.DefaultImageID)
	assert.Equal(t, map[string]string{"team": "data"}, spec.Labels)
	require.Len(t, spec.NodeGroups, 2)
	assert.Equal(t, v1alpha1.NodeGroupSpec{
		Name: ManagerGroupName, Count: 1, FlavorID: "cpx21", NodeProcesses: []string{"manager"},
	}, spec.NodeGroups[0])
	assert.Equal(t, WorkerGroupName, spec.NodeGroups[1].Name)
	assert.Equal(t, 3, spec.NodeGroups[1].Count)
	assert.Equal(t, []string{"worker", "storage"}, spec.NodeGroups[1].NodeProcesses)
}

func TestBuildSpec_NoWorkers(t *testing.T) {
	t.Parallel()

	spec := BuildSpec(&WizardResult{
		ClusterName:      "solo",
		ManagerFlavor:    "cpx11",
		ManagerProcesses: []string{"manager", "worker"},
		AddWorkers:       false,
		WorkerCount:      3,
	})

	require.Len(t, spec.NodeGroups, 1)
	assert.Equal(t, []string{"manager", "worker"}, spec.NodeGroups[0].NodeProcesses)
}

func TestValidateClusterName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"simple", "my-cluster", nil},
		{"single char", "a", nil},
		{"digits", "c1", nil},
		{"empty", "", errClusterNameRequired},
		{"uppercase", "MyCluster", errClusterNameInvalid},
		{"leading hyphen", "-cluster", errClusterNameInvalid},
		{"trailing hyphen", "cluster-", errClusterNameInvalid},
		{"too long", "abcdefghijklmnopqrstuvwxyz0123456", errClusterNameInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, validateClusterName(tt.input), tt.wantErr)
		})
	}
}

func TestParseLabels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    map[string]string
		wantErr bool
	}{
		{"empty", "  ", nil, false},
		{"single", "team=data", map[string]string{"team": "data"}, false},
		{"spaces and trailing comma", " team = data , env=dev,", map[string]string{"team": "data", "env": "dev"}, false},
		{"empty value", "flag=", map[string]string{"flag": ""}, false},
		{"missing equals", "team", nil, true},
		{"missing key", "=data", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := parseLabels(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, errLabelInvalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWorkerDefaults(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"worker", "storage"}, workerDefaults([]string{"manager", "worker", "storage"}))
	assert.Nil(t, workerDefaults([]string{"manager"}))
}

func TestOptions(t *testing.T) {
	t.Parallel()

	plugins := []v1alpha1.PluginInfo{{Name: "vanilla", Title: "Vanilla", Versions: []string{"1.0"}}}
	assert.Len(t, PluginsToOptions(plugins), 1)
	assert.Len(t, FlavorsToOptions(), len(Flavors))
	assert.Len(t, VersionsToOptions([]string{"1.0", "1.1"}), 2)

	p, ok := findPlugin(plugins, "vanilla")
	assert.True(t, ok)
	assert.Equal(t, "Vanilla", p.Title)
	_, ok = findPlugin(plugins, "missing")
	assert.False(t, ok)
}

func TestWriteSpec(t *testing.T) {
	t.Parallel()

	outputPath := filepath.Join(t.TempDir(), "cluster.yaml")
	spec := &v1alpha1.ClusterSpec{
		Name:          "analytics",
		PluginName:    "vanilla",
		PluginVersion: "1.0",
		NodeGroups: []v1alpha1.NodeGroupSpec{
			{Name: "manager", Count: 1, FlavorID: "cpx21", NodeProcesses: []string{"manager"}},
		},
	}

	require.NoError(t, WriteSpec(spec, outputPath))

	content, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "# stratus cluster spec")
	assert.Contains(t, string(content), "stratus cluster create -f "+outputPath)
	assert.Contains(t, string(content), "pluginName: vanilla")

	info, err := os.Stat(outputPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	var decoded v1alpha1.ClusterSpec
	require.NoError(t, yaml.Unmarshal(content, &decoded))
	assert.Equal(t, *spec, decoded)
}

func TestFileExists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "present.yaml")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0600))

	assert.True(t, FileExists(path))
	assert.False(t, FileExists(filepath.Join(dir, "absent.yaml")))
}

func TestConfirmOverwrite_Injected(t *testing.T) {
	orig := confirmOverwrite
	t.Cleanup(func() { confirmOverwrite = orig })

	confirmOverwrite = func(path string) (bool, error) {
		return path == "yes.yaml", nil
	}

	ok, err := ConfirmOverwrite("yes.yaml")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ConfirmOverwrite("no.yaml")
	require.NoError(t, err)
	assert.False(t, ok)
}
