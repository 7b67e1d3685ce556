package testing

import (
	"context"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/require"

	"github.com/imamik/stratus/api/v1alpha1"
)

// TestContext returns a context with a reasonable timeout for tests. Its
// logger writes to t.
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return logr.NewContext(ctx, testr.New(t))
}

// ClusterGetter reads a cluster record.
type ClusterGetter interface {
	GetCluster(ctx context.Context, id string) (*v1alpha1.Cluster, error)
}

// WaitForStatus polls s until the cluster reaches status and returns it.
func WaitForStatus(t *testing.T, s ClusterGetter, id string, status v1alpha1.ClusterStatus) *v1alpha1.Cluster {
	t.Helper()
	var last *v1alpha1.Cluster
	require.Eventually(t, func() bool {
		c, err := s.GetCluster(context.Background(), id)
		if err != nil {
			return false
		}
		last = c
		return c.Status == status
	}, 5*time.Second, 5*time.Millisecond, "cluster %s never reached %s", id, status)
	return last
}
