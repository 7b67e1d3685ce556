package hcloud

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/stratus/api/v1alpha1"
	"github.com/imamik/stratus/internal/platform"
	"github.com/imamik/stratus/internal/util/ptr"
)

// Image labels written by the registry.
const (
	labelRegistered = "stratus.io/registered"
	labelUsername   = "stratus.io/username"
	labelTagPrefix  = "tag.stratus.io/"
)

// ListImages returns registered images carrying every given tag.
func (c *RealClient) ListImages(ctx context.Context, tags []string) ([]v1alpha1.Image, error) {
	selector := map[string]string{labelRegistered: "true"}
	for _, tag := range tags {
		selector[labelTagPrefix+tag] = "true"
	}

	images, err := c.client.Image.AllWithOpts(ctx, hcloud.ImageListOpts{
		ListOpts: hcloud.ListOpts{LabelSelector: buildLabelSelector(selector)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	out := make([]v1alpha1.Image, 0, len(images))
	for _, img := range images {
		out = append(out, toImage(img))
	}
	return out, nil
}

// GetImage returns an image by numeric id or name.
func (c *RealClient) GetImage(ctx context.Context, id string) (*v1alpha1.Image, error) {
	img, err := c.lookupImage(ctx, id)
	if err != nil {
		return nil, err
	}
	out := toImage(img)
	return &out, nil
}

// FindImage returns the image called name. Numeric names are not treated
// as ids.
func (c *RealClient) FindImage(ctx context.Context, name string) (*v1alpha1.Image, error) {
	img, err := c.imageByName(ctx, name)
	if err != nil {
		return nil, err
	}
	out := toImage(img)
	return &out, nil
}

// RegisterImage marks an image as usable by stratus with the given login user.
func (c *RealClient) RegisterImage(ctx context.Context, id, username, description string) (*v1alpha1.Image, error) {
	return c.updateImage(ctx, id, func(labels map[string]string) {
		labels[labelRegistered] = "true"
		labels[labelUsername] = username
	}, ptr.To(description))
}

// UnregisterImage removes every stratus label from an image.
func (c *RealClient) UnregisterImage(ctx context.Context, id string) error {
	_, err := c.updateImage(ctx, id, func(labels map[string]string) {
		for k := range labels {
			if k == labelRegistered || k == labelUsername || strings.HasPrefix(k, labelTagPrefix) {
				delete(labels, k)
			}
		}
	}, nil)
	return err
}

// TagImage adds tags to an image.
func (c *RealClient) TagImage(ctx context.Context, id string, tags []string) (*v1alpha1.Image, error) {
	return c.updateImage(ctx, id, func(labels map[string]string) {
		for _, tag := range tags {
			labels[labelTagPrefix+tag] = "true"
		}
	}, nil)
}

// UntagImage removes tags from an image.
func (c *RealClient) UntagImage(ctx context.Context, id string, tags []string) (*v1alpha1.Image, error) {
	return c.updateImage(ctx, id, func(labels map[string]string) {
		for _, tag := range tags {
			delete(labels, labelTagPrefix+tag)
		}
	}, nil)
}

func (c *RealClient) updateImage(ctx context.Context, id string, mutate func(map[string]string), description *string) (*v1alpha1.Image, error) {
	img, err := c.lookupImage(ctx, id)
	if err != nil {
		return nil, err
	}

	labels := make(map[string]string, len(img.Labels)+2)
	for k, v := range img.Labels {
		labels[k] = v
	}
	mutate(labels)

	opts := hcloud.ImageUpdateOpts{Labels: labels}
	if ptr.Deref(description, "") != "" {
		opts.Description = description
	}

	updated, _, err := c.client.Image.Update(ctx, img, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to update image %s: %w", id, err)
	}
	out := toImage(updated)
	return &out, nil
}

func (c *RealClient) lookupImage(ctx context.Context, id string) (*hcloud.Image, error) {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		img, _, err := c.client.Image.GetByID(ctx, n)
		if err != nil {
			return nil, fmt.Errorf("failed to get image %s: %w", id, err)
		}
		if img == nil {
			return nil, fmt.Errorf("image %s: %w", id, platform.ErrNotFound)
		}
		return img, nil
	}

	return c.imageByName(ctx, id)
}

func (c *RealClient) imageByName(ctx context.Context, name string) (*hcloud.Image, error) {
	images, err := c.client.Image.AllWithOpts(ctx, hcloud.ImageListOpts{Name: name})
	if err != nil {
		return nil, fmt.Errorf("failed to get image %s: %w", name, err)
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("image %s: %w", name, platform.ErrNotFound)
	}
	return images[0], nil
}

func toImage(img *hcloud.Image) v1alpha1.Image {
	out := v1alpha1.Image{
		ID:          strconv.FormatInt(img.ID, 10),
		Name:        img.Name,
		Description: img.Description,
		Username:    img.Labels[labelUsername],
		Registered:  img.Labels[labelRegistered] == "true",
	}
	if out.Name == "" {
		out.Name = img.Description
	}
	for k := range img.Labels {
		if tag, ok := strings.CutPrefix(k, labelTagPrefix); ok {
			out.Tags = append(out.Tags, tag)
		}
	}
	sort.Strings(out.Tags)
	return out
}
