package hcloud

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-logr/logr"
	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/stratus/internal/platform"
	"github.com/imamik/stratus/internal/util/retry"
)

// ipPollInterval is how often CreateServer polls for an assigned address.
var ipPollInterval = 2 * time.Second

// CreateServer creates a server and waits until it has a public address.
func (c *RealClient) CreateServer(ctx context.Context, spec platform.ServerSpec) (*platform.Server, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.ServerCreate)
	defer cancel()

	opts, err := c.buildServerCreateOpts(ctx, spec)
	if err != nil {
		return nil, err
	}

	result, err := c.createServerWithRetry(ctx, opts)
	if err != nil {
		return nil, err
	}

	server, err := c.waitForServerIP(ctx, result.Server)
	if err != nil {
		return nil, err
	}

	logr.FromContextOrDiscard(ctx).V(1).Info("server created", "server", server.Name, "id", server.ID)
	return toPlatformServer(server), nil
}

// buildServerCreateOpts resolves all dependencies and builds server creation options.
func (c *RealClient) buildServerCreateOpts(ctx context.Context, spec platform.ServerSpec) (hcloud.ServerCreateOpts, error) {
	serverType, _, err := c.client.ServerType.Get(ctx, spec.Flavor)
	if err != nil {
		return hcloud.ServerCreateOpts{}, fmt.Errorf("failed to get server type: %w", err)
	}
	if serverType == nil {
		return hcloud.ServerCreateOpts{}, retry.Fatal(fmt.Errorf("server type not found: %s", spec.Flavor))
	}

	image, err := c.resolveImage(ctx, spec.Image, serverType.Architecture)
	if err != nil {
		return hcloud.ServerCreateOpts{}, err
	}

	sshKeys := spec.SSHKeys
	if len(sshKeys) == 0 {
		sshKeys = c.sshKeys
	}
	sshKeyObjs, err := c.resolveSSHKeys(ctx, sshKeys)
	if err != nil {
		return hcloud.ServerCreateOpts{}, err
	}

	location := spec.Location
	if location == "" {
		location = c.location
	}
	locObj, err := c.resolveLocation(ctx, location)
	if err != nil {
		return hcloud.ServerCreateOpts{}, err
	}

	return hcloud.ServerCreateOpts{
		Name:       spec.Name,
		ServerType: serverType,
		Image:      image,
		SSHKeys:    sshKeyObjs,
		Labels:     spec.Labels,
		UserData:   spec.UserData,
		Location:   locObj,
	}, nil
}

// createServerWithRetry creates a server with exponential backoff retry logic.
func (c *RealClient) createServerWithRetry(ctx context.Context, opts hcloud.ServerCreateOpts) (hcloud.ServerCreateResult, error) {
	var result hcloud.ServerCreateResult

	err := retry.Do(ctx, func(ctx context.Context) error {
		res, _, err := c.client.Server.Create(ctx, opts)
		if err != nil {
			if isInvalidParameter(err) {
				return retry.Fatal(err)
			}
			return err
		}
		result = res
		return nil
	},
		retry.WithName("create server "+opts.Name),
		retry.WithMaxRetries(c.timeouts.RetryMaxAttempts),
		retry.WithInitialDelay(c.timeouts.RetryInitialDelay))

	if err != nil {
		return result, fmt.Errorf("failed to create server: %w", err)
	}

	if err := waitForActions(ctx, c.client, append([]*hcloud.Action{result.Action}, result.NextActions...)...); err != nil {
		return result, fmt.Errorf("failed to wait for server creation: %w", err)
	}

	return result, nil
}

// waitForServerIP polls until the server reports a public IPv4 address.
func (c *RealClient) waitForServerIP(ctx context.Context, server *hcloud.Server) (*hcloud.Server, error) {
	if hasIP(server) {
		return server, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeouts.ServerIP)
	defer cancel()

	ticker := time.NewTicker(ipPollInterval)
	defer ticker.Stop()

	for {
		current, _, err := c.client.Server.GetByID(ctx, server.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get server %s: %w", server.Name, err)
		}
		if current != nil && hasIP(current) {
			return current, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("timeout waiting for IP of server %s: %w", server.Name, ctx.Err())
		case <-ticker.C:
		}
	}
}

// DeleteServer deletes the server with the given name.
func (c *RealClient) DeleteServer(ctx context.Context, name string) error {
	return (&DeleteOperation[*hcloud.Server]{
		Name:         name,
		ResourceType: "server",
		Get:          c.client.Server.Get,
		Delete: func(ctx context.Context, server *hcloud.Server) (*hcloud.Action, error) {
			result, _, err := c.client.Server.DeleteWithResult(ctx, server)
			if err != nil {
				return nil, err
			}
			return result.Action, nil
		},
	}).Execute(ctx, c)
}

// GetServer returns the server with the given name.
func (c *RealClient) GetServer(ctx context.Context, name string) (*platform.Server, error) {
	server, _, err := c.client.Server.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get server: %w", err)
	}
	if server == nil {
		return nil, fmt.Errorf("server %s: %w", name, platform.ErrNotFound)
	}
	return toPlatformServer(server), nil
}

// ListServers returns all servers matching the given labels.
func (c *RealClient) ListServers(ctx context.Context, labels map[string]string) ([]platform.Server, error) {
	servers, err := c.client.Server.AllWithOpts(ctx, hcloud.ServerListOpts{
		ListOpts: hcloud.ListOpts{LabelSelector: buildLabelSelector(labels)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}

	out := make([]platform.Server, 0, len(servers))
	for _, s := range servers {
		out = append(out, *toPlatformServer(s))
	}
	return out, nil
}

// resolveImage resolves an image by id or name for the given architecture.
func (c *RealClient) resolveImage(ctx context.Context, idOrName string, arch hcloud.Architecture) (*hcloud.Image, error) {
	image, _, err := c.client.Image.GetForArchitecture(ctx, idOrName, arch)
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	if image == nil {
		return nil, retry.Fatal(fmt.Errorf("image %s: %w", idOrName, platform.ErrNotFound))
	}

	if image.Status != hcloud.ImageStatusAvailable {
		if err := c.waitForImageAvailability(ctx, image); err != nil {
			return nil, err
		}
	}
	return image, nil
}

// waitForImageAvailability waits for an image to become available.
func (c *RealClient) waitForImageAvailability(ctx context.Context, image *hcloud.Image) error {
	logger := logr.FromContextOrDiscard(ctx)
	logger.Info("waiting for image", "image", image.ID, "status", image.Status)

	ctx, cancel := context.WithTimeout(ctx, c.timeouts.ImageWait)
	defer cancel()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for image %d to become available: %w", image.ID, ctx.Err())
		case <-ticker.C:
			img, _, err := c.client.Image.GetByID(ctx, image.ID)
			if err != nil {
				return fmt.Errorf("failed to get image status: %w", err)
			}
			if img != nil && img.Status == hcloud.ImageStatusAvailable {
				return nil
			}
		}
	}
}

// resolveSSHKeys resolves SSH key names/IDs to SSH key objects.
func (c *RealClient) resolveSSHKeys(ctx context.Context, sshKeys []string) ([]*hcloud.SSHKey, error) {
	var sshKeyObjs []*hcloud.SSHKey
	for _, key := range sshKeys {
		keyObj, _, err := c.client.SSHKey.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to get ssh key %s: %w", key, err)
		}
		if keyObj == nil {
			return nil, retry.Fatal(fmt.Errorf("ssh key not found: %s", key))
		}
		sshKeyObjs = append(sshKeyObjs, keyObj)
	}
	return sshKeyObjs, nil
}

// resolveLocation resolves a location name to a location object.
func (c *RealClient) resolveLocation(ctx context.Context, location string) (*hcloud.Location, error) {
	if location == "" {
		return nil, nil
	}

	locObj, _, err := c.client.Location.Get(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to get location %s: %w", location, err)
	}
	if locObj == nil {
		return nil, retry.Fatal(fmt.Errorf("location not found: %s", location))
	}
	return locObj, nil
}

func hasIP(server *hcloud.Server) bool {
	return server.PublicNet.IPv4.IP != nil && !server.PublicNet.IPv4.IP.IsUnspecified()
}

func toPlatformServer(s *hcloud.Server) *platform.Server {
	out := &platform.Server{
		ID:     strconv.FormatInt(s.ID, 10),
		Name:   s.Name,
		Labels: s.Labels,
	}
	if s.PublicNet.IPv4.IP != nil && !s.PublicNet.IPv4.IP.IsUnspecified() {
		out.PublicIP = s.PublicNet.IPv4.IP.String()
	}
	if len(s.PrivateNet) > 0 && s.PrivateNet[0].IP != nil {
		out.PrivateIP = s.PrivateNet[0].IP.String()
	}
	return out
}
