package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/imamik/stratus/api/v1alpha1"
)

// ListImages prints the registered images carrying every tag in tags.
func ListImages(ctx context.Context, g Globals, tags []string) error {
	images, err := g.client().ListImages(ctx, tags)
	if err != nil {
		return fmt.Errorf("failed to list images: %w", err)
	}
	if done, err := emit(g, images); done {
		return err
	}

	rows := make([][]string, 0, len(images))
	for _, img := range images {
		rows = append(rows, imageRow(img))
	}
	printTable([]string{"ID", "NAME", "USERNAME", "TAGS", "DESCRIPTION"}, rows)
	return nil
}

// GetImage prints one image.
func GetImage(ctx context.Context, g Globals, id string) error {
	img, err := g.client().GetImage(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get image %s: %w", id, err)
	}
	return printImage(g, img)
}

// FindImage prints the image called name.
func FindImage(ctx context.Context, g Globals, name string) error {
	img, err := g.client().FindImage(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to find image %s: %w", name, err)
	}
	return printImage(g, img)
}

// RegisterImage records the login user and description of an image.
func RegisterImage(ctx context.Context, g Globals, id, username, description string) error {
	img, err := g.client().RegisterImage(ctx, id, username, description)
	if err != nil {
		return fmt.Errorf("failed to register image %s: %w", id, err)
	}
	return printImage(g, img)
}

// UnregisterImage removes the stratus metadata of an image.
func UnregisterImage(ctx context.Context, g Globals, id string) error {
	if err := g.client().UnregisterImage(ctx, id); err != nil {
		return fmt.Errorf("failed to unregister image %s: %w", id, err)
	}
	printf("Image %s unregistered\n", id)
	return nil
}

// TagImage adds tags to an image.
func TagImage(ctx context.Context, g Globals, id string, tags []string) error {
	img, err := g.client().TagImage(ctx, id, tags)
	if err != nil {
		return fmt.Errorf("failed to tag image %s: %w", id, err)
	}
	return printImage(g, img)
}

// UntagImage removes tags from an image.
func UntagImage(ctx context.Context, g Globals, id string, tags []string) error {
	img, err := g.client().UntagImage(ctx, id, tags)
	if err != nil {
		return fmt.Errorf("failed to untag image %s: %w", id, err)
	}
	return printImage(g, img)
}

func printImage(g Globals, img *v1alpha1.Image) error {
	if done, err := emit(g, img); done {
		return err
	}
	printTable([]string{"ID", "NAME", "USERNAME", "TAGS", "DESCRIPTION"}, [][]string{imageRow(*img)})
	return nil
}

func imageRow(img v1alpha1.Image) []string {
	return []string{img.ID, img.Name, orDash(img.Username), orDash(strings.Join(img.Tags, ",")), orDash(img.Description)}
}
