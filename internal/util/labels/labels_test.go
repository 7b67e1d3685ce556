package labels

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabelBuilder(t *testing.T) {
	t.Parallel()

	got := NewLabelBuilder("c-1", "prod").
		WithNodeGroup("ng-1").
		Merge(map[string]string{"team": "data", KeyCluster: "spoofed"}).
		Build()

	assert.Equal(t, map[string]string{
		KeyCluster:     "c-1",
		KeyClusterName: "prod",
		KeyManagedBy:   ManagedBy,
		KeyNodeGroup:   "ng-1",
		"team":         "data",
	}, got)
}

func TestLabelBuilder_BuildReturnsCopy(t *testing.T) {
	t.Parallel()

	lb := NewLabelBuilder("c-1", "prod")
	first := lb.Build()
	first["mutated"] = "yes"

	assert.NotContains(t, lb.Build(), "mutated")
}

func TestSelectors(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "stratus.io/cluster=c-1", SelectorForCluster("c-1"))
	assert.Equal(t, "stratus.io/cluster=c-1,stratus.io/node-group=ng-1", SelectorForNodeGroup("c-1", "ng-1"))
}
