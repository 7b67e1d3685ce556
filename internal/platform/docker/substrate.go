package docker

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/go-logr/logr"
	specs "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/imamik/stratus/internal/platform"
)

// API is the subset of the Docker client the substrate uses.
type API interface {
	ImagePull(ctx context.Context, ref string, options types.ImagePullOptions) (io.ReadCloser, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *specs.Platform, containerName string) (container.ContainerCreateCreatedBody, error)
	ContainerStart(ctx context.Context, containerID string, options types.ContainerStartOptions) error
	ContainerInspect(ctx context.Context, containerID string) (types.ContainerJSON, error)
	ContainerRemove(ctx context.Context, containerID string, options types.ContainerRemoveOptions) error
	ContainerList(ctx context.Context, options types.ContainerListOptions) ([]types.Container, error)
}

// sshPort is exposed on every container.
const sshPort nat.Port = "22/tcp"

// Substrate runs instances as Docker containers.
type Substrate struct {
	api          API
	network      string
	defaultImage string

	mu     sync.Mutex
	pulled map[string]bool
}

// Option configures a Substrate.
type Option func(*Substrate)

// WithAPI replaces the Docker client (useful for testing).
func WithAPI(api API) Option {
	return func(s *Substrate) {
		s.api = api
	}
}

// WithNetwork sets the Docker network containers join.
func WithNetwork(name string) Option {
	return func(s *Substrate) {
		s.network = name
	}
}

// WithDefaultImage sets the image used when a spec names none.
func WithDefaultImage(image string) Option {
	return func(s *Substrate) {
		s.defaultImage = image
	}
}

// New creates a Docker substrate. host overrides DOCKER_HOST when set.
func New(host string, opts ...Option) (*Substrate, error) {
	s := &Substrate{
		network:      "bridge",
		defaultImage: "debian:bookworm",
		pulled:       make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.api == nil {
		clientOpts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
		if host != "" {
			clientOpts = append(clientOpts, client.WithHost(host))
		}
		c, err := client.NewClientWithOpts(clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("building Docker client: %w", err)
		}
		s.api = c
	}
	return s, nil
}

func (s *Substrate) ensureImagePulled(ctx context.Context, image string) error {
	s.mu.Lock()
	done := s.pulled[image]
	s.mu.Unlock()
	if done {
		return nil
	}

	out, err := s.api.ImagePull(ctx, image, types.ImagePullOptions{})
	if err != nil {
		if out != nil {
			_ = out.Close()
		}
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(io.Discard, out); err != nil {
		return fmt.Errorf("reading Docker pull response: %w", err)
	}

	s.mu.Lock()
	s.pulled[image] = true
	s.mu.Unlock()
	return nil
}

// CreateServer creates and starts a container named after the server.
func (s *Substrate) CreateServer(ctx context.Context, spec platform.ServerSpec) (*platform.Server, error) {
	image := spec.Image
	if image == "" {
		image = s.defaultImage
	}

	if err := s.ensureImagePulled(ctx, image); err != nil {
		return nil, fmt.Errorf("pulling image %s: %w", image, err)
	}

	cfg := &container.Config{
		Image:        image,
		Hostname:     spec.Name,
		Labels:       spec.Labels,
		ExposedPorts: nat.PortSet{sshPort: struct{}{}},
	}
	if len(spec.SSHKeys) > 0 {
		cfg.Env = append(cfg.Env, "PUBLIC_KEY="+strings.Join(spec.SSHKeys, "\n"))
	}
	if spec.UserData != "" {
		cfg.Env = append(cfg.Env, "USER_DATA="+spec.UserData)
	}

	hostCfg := &container.HostConfig{
		NetworkMode: container.NetworkMode(s.network),
	}

	created, err := s.api.ContainerCreate(ctx, cfg, hostCfg, nil, nil, spec.Name)
	if err != nil {
		return nil, fmt.Errorf("creating Docker container: %w", err)
	}

	if err := s.api.ContainerStart(ctx, created.ID, types.ContainerStartOptions{}); err != nil {
		return nil, fmt.Errorf("starting container %q: %w", created.ID, err)
	}

	info, err := s.api.ContainerInspect(ctx, created.ID)
	if err != nil {
		return nil, fmt.Errorf("inspecting container %q: %w", created.ID, err)
	}

	logr.FromContextOrDiscard(ctx).V(1).Info("container started", "server", spec.Name, "id", created.ID)
	return s.fromInspect(info), nil
}

// DeleteServer force-removes the container. A missing container is success.
func (s *Substrate) DeleteServer(ctx context.Context, name string) error {
	err := s.api.ContainerRemove(ctx, name, types.ContainerRemoveOptions{
		RemoveVolumes: true,
		Force:         true,
	})
	if err != nil && !client.IsErrNotFound(err) {
		return fmt.Errorf("removing container %s: %w", name, err)
	}
	return nil
}

// GetServer inspects the container with the given name.
func (s *Substrate) GetServer(ctx context.Context, name string) (*platform.Server, error) {
	info, err := s.api.ContainerInspect(ctx, name)
	if err != nil {
		if client.IsErrNotFound(err) {
			return nil, fmt.Errorf("container %s: %w", name, platform.ErrNotFound)
		}
		return nil, fmt.Errorf("inspecting container %s: %w", name, err)
	}
	return s.fromInspect(info), nil
}

// ListServers returns containers carrying every given label.
func (s *Substrate) ListServers(ctx context.Context, labels map[string]string) ([]platform.Server, error) {
	args := filters.NewArgs()
	for k, v := range labels {
		args.Add("label", k+"="+v)
	}

	containers, err := s.api.ContainerList(ctx, types.ContainerListOptions{All: true, Filters: args})
	if err != nil {
		return nil, fmt.Errorf("listing containers: %w", err)
	}

	out := make([]platform.Server, 0, len(containers))
	for _, c := range containers {
		srv := platform.Server{ID: c.ID, Labels: c.Labels}
		if len(c.Names) > 0 {
			srv.Name = strings.TrimPrefix(c.Names[0], "/")
		}
		if c.NetworkSettings != nil {
			if ep, ok := c.NetworkSettings.Networks[s.network]; ok && ep != nil {
				srv.PublicIP = ep.IPAddress
				srv.PrivateIP = ep.IPAddress
			}
		}
		out = append(out, srv)
	}
	return out, nil
}

func (s *Substrate) fromInspect(info types.ContainerJSON) *platform.Server {
	srv := &platform.Server{}
	if info.ContainerJSONBase != nil {
		srv.ID = info.ID
		srv.Name = strings.TrimPrefix(info.Name, "/")
	}
	if info.Config != nil {
		srv.Labels = info.Config.Labels
	}
	if info.NetworkSettings != nil {
		ip := info.NetworkSettings.IPAddress
		if ep, ok := info.NetworkSettings.Networks[s.network]; ok && ep != nil && ep.IPAddress != "" {
			ip = ep.IPAddress
		}
		srv.PublicIP = ip
		srv.PrivateIP = ip
	}
	return srv
}
