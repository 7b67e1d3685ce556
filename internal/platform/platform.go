// Package platform defines the substrate boundary: where instances run and
// which images they boot from.
//
// Implementations live in the hcloud and docker subpackages. The
// orchestrator never talks to them directly; the instance manager does.
package platform

import (
	"context"
	"errors"

	"github.com/imamik/stratus/api/v1alpha1"
)

// ErrNotFound is returned when a server or image does not exist.
var ErrNotFound = errors.New("not found")

// ServerSpec describes a server to create.
type ServerSpec struct {
	Name     string
	Flavor   string
	Image    string
	Location string
	SSHKeys  []string
	Labels   map[string]string
	UserData string
}

// Server is a running substrate server.
type Server struct {
	ID        string
	Name      string
	PublicIP  string
	PrivateIP string
	Labels    map[string]string
}

// Substrate creates and destroys servers.
type Substrate interface {
	// CreateServer creates a server and waits until it has an address.
	CreateServer(ctx context.Context, spec ServerSpec) (*Server, error)
	// DeleteServer deletes a server by name. A missing server is success.
	DeleteServer(ctx context.Context, name string) error
	// GetServer returns ErrNotFound when no server has that name.
	GetServer(ctx context.Context, name string) (*Server, error)
	// ListServers returns servers carrying every given label.
	ListServers(ctx context.Context, labels map[string]string) ([]Server, error)
}

// ImageRegistry stores stratus metadata (login user, tags) on substrate images.
type ImageRegistry interface {
	// ListImages returns registered images carrying every given tag.
	ListImages(ctx context.Context, tags []string) ([]v1alpha1.Image, error)
	// GetImage looks an image up by id, falling back to its name.
	GetImage(ctx context.Context, id string) (*v1alpha1.Image, error)
	// FindImage looks an image up by exact name only.
	FindImage(ctx context.Context, name string) (*v1alpha1.Image, error)
	RegisterImage(ctx context.Context, id, username, description string) (*v1alpha1.Image, error)
	UnregisterImage(ctx context.Context, id string) error
	TagImage(ctx context.Context, id string, tags []string) (*v1alpha1.Image, error)
	UntagImage(ctx context.Context, id string, tags []string) (*v1alpha1.Image, error)
}
