package provisioning

import (
	"errors"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventLog_KeepsMostRecent(t *testing.T) {
	t.Parallel()
	l := NewEventLog(2)

	LogPhaseStart(l, "c1", "create", "infra")
	LogPhaseComplete(l, "c1", "create", "infra", time.Second)
	LogPhaseStart(l, "c1", "create", "configure")
	LogPhaseStart(l, "c2", "scale", "scaling")

	events := l.Events("c1")
	require.Len(t, events, 2)
	assert.Equal(t, EventPhaseCompleted, events[0].Type)
	assert.Equal(t, "configure", events[1].Phase)
	assert.Len(t, l.Events("c2"), 1)

	l.Forget("c1")
	assert.Empty(t, l.Events("c1"))
}

func TestLogObserver_WritesFields(t *testing.T) {
	t.Parallel()
	var lines []string
	log := funcr.New(func(prefix, args string) {
		lines = append(lines, args)
	}, funcr.Options{Verbosity: 1})

	o := NewLogObserver(log)
	LogPhaseFailed(o, "c1", "create", "infra", errors.New("boom"))
	LogResourceCreated(o, "c1", "server", "demo-worker-1", "42")

	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"phase"="infra"`)
	assert.Contains(t, lines[0], "failed: boom")
	assert.Contains(t, lines[1], `"id"="42"`)
}

func TestObservers_FanOutAndTimestamp(t *testing.T) {
	t.Parallel()
	a, b := NewEventLog(0), NewEventLog(0)
	obs := Observers{a, b, NewLogObserver(logr.Discard())}

	LogResourceDeleting(obs, "c1", "server", "demo-worker-1")
	LogResourceDeleted(obs, "c1", "server", "demo-worker-1")
	LogValidationFailed(obs, "c1", "scale", errors.New("manager cannot scale"))

	require.Len(t, a.Events("c1"), 3)
	require.Len(t, b.Events("c1"), 3)
	assert.False(t, a.Events("c1")[0].Timestamp.IsZero())
	assert.True(t, a.Events("c1")[2].Type.Failed())
}
