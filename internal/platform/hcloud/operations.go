package hcloud

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/stratus/internal/util/retry"
)

// DeleteOperation encapsulates deletion logic for any hcloud resource.
// It provides consistent retry, timeout, and error handling across resource types.
type DeleteOperation[T any] struct {
	Name         string
	ResourceType string

	// Get retrieves the resource by name
	Get func(ctx context.Context, name string) (T, *hcloud.Response, error)

	// Delete removes the resource and returns the action to wait for, if any.
	Delete func(ctx context.Context, resource T) (*hcloud.Action, error)
}

// Execute performs the delete operation with retry logic and timeout handling.
// The operation is idempotent: it succeeds if the resource doesn't exist.
// Locked resources are retried with exponential backoff.
func (op *DeleteOperation[T]) Execute(ctx context.Context, client *RealClient) error {
	ctx, cancel := context.WithTimeout(ctx, client.timeouts.Delete)
	defer cancel()

	return retry.Do(ctx, func(ctx context.Context) error {
		resource, _, err := op.Get(ctx, op.Name)
		if err != nil {
			if isResourceLocked(err) || IsRateLimited(err) {
				return err
			}
			return retry.Fatal(fmt.Errorf("failed to get %s: %w", op.ResourceType, err))
		}

		if reflect.ValueOf(resource).IsNil() {
			return nil
		}

		action, err := op.Delete(ctx, resource)
		if err != nil {
			switch {
			case IsNotFound(err):
				return nil
			case isResourceLocked(err), IsRateLimited(err):
				return err
			default:
				return retry.Fatal(fmt.Errorf("failed to delete %s %s: %w", op.ResourceType, op.Name, err))
			}
		}
		return waitForActions(ctx, client.client, action)
	},
		retry.WithName("delete "+op.ResourceType),
		retry.WithMaxRetries(client.timeouts.RetryMaxAttempts),
		retry.WithInitialDelay(client.timeouts.RetryInitialDelay))
}

// waitForActions waits for one or more actions to complete, skipping nil ones.
func waitForActions(ctx context.Context, client *hcloud.Client, actions ...*hcloud.Action) error {
	var pending []*hcloud.Action
	for _, a := range actions {
		if a != nil {
			pending = append(pending, a)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	return client.Action.WaitFor(ctx, pending...)
}

// buildLabelSelector creates a deterministic label selector from a map of labels.
func buildLabelSelector(labels map[string]string) string {
	selectors := make([]string, 0, len(labels))
	for k, v := range labels {
		selectors = append(selectors, k+"="+v)
	}
	sort.Strings(selectors)
	return strings.Join(selectors, ",")
}
