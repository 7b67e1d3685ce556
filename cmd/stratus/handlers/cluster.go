package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/imamik/stratus/api/v1alpha1"
	"github.com/imamik/stratus/internal/api/client"
	"github.com/imamik/stratus/internal/ui/tui"
)

// Function variables for dependency injection in tests.
var (
	runWatchTUI = tui.RunWatch
	followPlain = tui.Follow
)

// ListClusters prints every cluster.
func ListClusters(ctx context.Context, g Globals) error {
	clusters, err := g.client().ListClusters(ctx)
	if err != nil {
		return fmt.Errorf("failed to list clusters: %w", err)
	}
	if done, err := emit(g, clusters); done {
		return err
	}

	rows := make([][]string, 0, len(clusters))
	for _, c := range clusters {
		rows = append(rows, []string{
			c.ID,
			c.Name,
			c.PluginName + " " + c.PluginVersion,
			statusStyle(c.Status).Render(string(c.Status)),
			instanceSummary(c),
			age(c.CreatedAt),
		})
	}
	printTable([]string{"ID", "NAME", "PLUGIN", "STATUS", "INSTANCES", "AGE"}, rows)
	return nil
}

// GetCluster prints one cluster with its node groups.
func GetCluster(ctx context.Context, g Globals, id string) error {
	c, err := g.client().GetCluster(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get cluster %s: %w", id, err)
	}
	if done, err := emit(g, c); done {
		return err
	}
	printClusterDetails(c)
	return nil
}

// CreateCluster submits the spec in path. With watch set it follows the
// cluster until it settles.
func CreateCluster(ctx context.Context, g Globals, path string, watch bool) error {
	var spec v1alpha1.ClusterSpec
	if err := readSpecFile(path, &spec); err != nil {
		return err
	}

	c, err := g.client().CreateCluster(ctx, spec)
	if err != nil {
		return describeRejection("create cluster", err)
	}
	printf("Cluster %s (%s) accepted: %s\n", c.Name, c.ID, c.Status)

	if !watch {
		printf("Follow progress with: stratus cluster watch %s\n", c.ID)
		return nil
	}
	return WatchCluster(ctx, g, c.ID, DefaultWatchInterval)
}

// ScaleCluster submits the scaling request in path.
func ScaleCluster(ctx context.Context, g Globals, id, path string, watch bool) error {
	var request v1alpha1.ScalingRequest
	if err := readSpecFile(path, &request); err != nil {
		return err
	}
	return scale(ctx, g, id, request, watch)
}

// ResizeNodeGroups scales the named groups to the given counts, passed as
// name=count pairs.
func ResizeNodeGroups(ctx context.Context, g Globals, id string, pairs []string, watch bool) error {
	request, err := parseResize(pairs)
	if err != nil {
		return err
	}
	return scale(ctx, g, id, request, watch)
}

func scale(ctx context.Context, g Globals, id string, request v1alpha1.ScalingRequest, watch bool) error {
	c, err := g.client().ScaleCluster(ctx, id, request)
	if err != nil {
		return describeRejection("scale cluster", err)
	}
	printf("Scaling of cluster %s (%s) accepted: %s\n", c.Name, c.ID, c.Status)

	if !watch {
		return nil
	}
	return WatchCluster(ctx, g, c.ID, DefaultWatchInterval)
}

// DeleteCluster terminates a cluster.
func DeleteCluster(ctx context.Context, g Globals, id string) error {
	if err := g.client().TerminateCluster(ctx, id); err != nil {
		return fmt.Errorf("failed to terminate cluster %s: %w", id, err)
	}
	printf("Cluster %s terminated\n", id)
	return nil
}

// DefaultWatchInterval is the poll interval of cluster watch.
const DefaultWatchInterval = 2 * time.Second

// WatchCluster follows a cluster until it reaches Active or Error, or is
// deleted. Terminals get the dashboard, everything else a line log.
func WatchCluster(ctx context.Context, g Globals, id string, interval time.Duration) error {
	api := g.client()
	if isInteractiveTTY() {
		return runWatchTUI(ctx, api, id, interval)
	}

	var (
		last    v1alpha1.ClusterStatus
		seen    bool
		outcome error
	)
	err := followPlain(ctx, api, id, interval, func(msg tui.StatusMsg) bool {
		switch {
		case msg.FetchErr != "":
			outcome = fmt.Errorf("failed to fetch cluster status: %s", msg.FetchErr)
			return false
		case msg.NotFound:
			if !seen {
				outcome = fmt.Errorf("cluster %s not found", id)
				return false
			}
			printf("cluster %s deleted\n", id)
			return false
		}

		for _, ev := range msg.Events {
			subject := ev.Phase
			if ev.Resource != "" {
				subject = ev.Resource
			}
			printf("%s  %-18s %-16s %s\n", ev.Timestamp.Local().Format(time.TimeOnly), ev.Type, subject, ev.Message)
		}

		c := msg.Cluster
		if !seen || c.Status != last {
			printf("status: %s\n", orDash(string(c.Status)))
		}
		seen, last = true, c.Status

		if c.Status == v1alpha1.StatusError {
			outcome = fmt.Errorf("cluster %s failed: %s", c.Name, c.StatusDescription)
		}
		return true
	})
	if err != nil {
		return err
	}
	return outcome
}

// describeRejection explains a refused request. Rejections by the engine
// keep the cluster record, so its id is printed for follow-up.
func describeRejection(action string, err error) error {
	var apiErr *client.Error
	if errors.As(err, &apiErr) && apiErr.ClusterID != "" {
		printf("Cluster %s was recorded in status Error; inspect it with: stratus cluster get %s\n", apiErr.ClusterID, apiErr.ClusterID)
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

func parseResize(pairs []string) (v1alpha1.ScalingRequest, error) {
	var request v1alpha1.ScalingRequest
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return request, fmt.Errorf("invalid resize %q: expected name=count", pair)
		}
		count, err := strconv.Atoi(value)
		if err != nil || count < 0 {
			return request, fmt.Errorf("invalid count in %q: must be a non-negative integer", pair)
		}
		request.ResizeNodeGroups = append(request.ResizeNodeGroups, v1alpha1.ResizeNodeGroup{Name: name, Count: count})
	}
	if len(request.ResizeNodeGroups) == 0 {
		return request, errors.New("at least one name=count pair is required")
	}
	return request, nil
}

func printClusterDetails(c *v1alpha1.Cluster) {
	printf("%s\n", sectionStyle.Render(fmt.Sprintf("Cluster %s", c.Name)))
	printf("  ID:          %s\n", c.ID)
	printf("  Plugin:      %s %s\n", c.PluginName, c.PluginVersion)
	printf("  Status:      %s\n", statusStyle(c.Status).Render(orDash(string(c.Status))))
	if c.StatusDescription != "" {
		printf("  Description: %s\n", c.StatusDescription)
	}
	printf("  Image:       %s\n", orDash(c.DefaultImageID))
	printf("  Template:    %s\n", orDash(c.ClusterTemplateID))
	printf("  Labels:      %s\n", joinMap(c.Labels))
	printf("  Created:     %s ago\n", age(c.CreatedAt))
	printf("\n")

	rows := make([][]string, 0)
	for _, ng := range c.NodeGroups {
		names := make([]string, 0, len(ng.Instances))
		for _, inst := range ng.Instances {
			names = append(names, inst.Name)
		}
		rows = append(rows, []string{
			ng.Name,
			fmt.Sprintf("%d/%d", len(ng.Instances), ng.Count),
			orDash(ng.FlavorID),
			strings.Join(ng.NodeProcesses, ","),
			orDash(strings.Join(names, ",")),
		})
	}
	printTable([]string{"GROUP", "INSTANCES", "FLAVOR", "PROCESSES", "NAMES"}, rows)
}

func instanceSummary(c *v1alpha1.Cluster) string {
	have, want := 0, 0
	for _, ng := range c.NodeGroups {
		have += len(ng.Instances)
		want += ng.Count
	}
	return fmt.Sprintf("%d/%d", have, want)
}

func statusStyle(status v1alpha1.ClusterStatus) lipgloss.Style {
	switch status {
	case v1alpha1.StatusActive:
		return okStyle
	case v1alpha1.StatusError:
		return failStyle
	}
	return busyStyle
}
