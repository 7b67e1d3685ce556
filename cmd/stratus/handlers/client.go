package handlers

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/imamik/stratus/api/v1alpha1"
	"github.com/imamik/stratus/internal/api/client"
	"github.com/imamik/stratus/internal/provisioning"
)

// DefaultServer is used when neither --server nor STRATUS_SERVER is set.
const DefaultServer = "http://localhost:8080"

// API is the part of the stratus API the CLI uses.
type API interface {
	ListClusters(ctx context.Context) ([]*v1alpha1.Cluster, error)
	GetCluster(ctx context.Context, id string) (*v1alpha1.Cluster, error)
	CreateCluster(ctx context.Context, spec v1alpha1.ClusterSpec) (*v1alpha1.Cluster, error)
	ScaleCluster(ctx context.Context, id string, request v1alpha1.ScalingRequest) (*v1alpha1.Cluster, error)
	TerminateCluster(ctx context.Context, id string) error
	Events(ctx context.Context, id string, after int) ([]provisioning.Event, error)

	CreateClusterTemplate(ctx context.Context, tmpl *v1alpha1.ClusterTemplate) (*v1alpha1.ClusterTemplate, error)
	GetClusterTemplate(ctx context.Context, id string) (*v1alpha1.ClusterTemplate, error)
	ListClusterTemplates(ctx context.Context) ([]*v1alpha1.ClusterTemplate, error)
	DeleteClusterTemplate(ctx context.Context, id string) error
	ConvertClusterTemplate(ctx context.Context, plugin, version, name string, data []byte) (*v1alpha1.ClusterTemplate, error)
	CreateNodeGroupTemplate(ctx context.Context, tmpl *v1alpha1.NodeGroupTemplate) (*v1alpha1.NodeGroupTemplate, error)
	GetNodeGroupTemplate(ctx context.Context, id string) (*v1alpha1.NodeGroupTemplate, error)
	ListNodeGroupTemplates(ctx context.Context) ([]*v1alpha1.NodeGroupTemplate, error)
	DeleteNodeGroupTemplate(ctx context.Context, id string) error

	ListPlugins(ctx context.Context) ([]v1alpha1.PluginInfo, error)
	GetPlugin(ctx context.Context, name, version string) (*v1alpha1.PluginVersionInfo, error)

	ListImages(ctx context.Context, tags []string) ([]v1alpha1.Image, error)
	GetImage(ctx context.Context, id string) (*v1alpha1.Image, error)
	FindImage(ctx context.Context, name string) (*v1alpha1.Image, error)
	RegisterImage(ctx context.Context, id, username, description string) (*v1alpha1.Image, error)
	UnregisterImage(ctx context.Context, id string) error
	TagImage(ctx context.Context, id string, tags []string) (*v1alpha1.Image, error)
	UntagImage(ctx context.Context, id string, tags []string) (*v1alpha1.Image, error)
}

// Globals carries the persistent root flags.
type Globals struct {
	Server string
	Output string // table, json or yaml
}

// Factory function variables - can be replaced in tests.
var (
	// Out receives command output.
	Out io.Writer = os.Stdout

	// newClient connects to the API server.
	newClient = func(server string) API {
		return client.New(server)
	}

	// isInteractiveTTY reports whether stdout is a terminal.
	isInteractiveTTY = func() bool {
		return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	}
)

// ServerFromEnv returns STRATUS_SERVER or DefaultServer.
func ServerFromEnv() string {
	if v := os.Getenv("STRATUS_SERVER"); v != "" {
		return v
	}
	return DefaultServer
}

func (g Globals) client() API {
	return newClient(g.Server)
}

func printf(format string, args ...any) {
	fmt.Fprintf(Out, format, args...)
}
