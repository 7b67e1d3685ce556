package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/stratus/api/v1alpha1"
	"github.com/imamik/stratus/internal/provisioning"
	"github.com/imamik/stratus/internal/store"
)

// Source is the read side of the stratus API the watcher polls.
type Source interface {
	GetCluster(ctx context.Context, id string) (*v1alpha1.Cluster, error)
	Events(ctx context.Context, id string, after int) ([]provisioning.Event, error)
}

// Follow polls the cluster every interval and hands each result to fn
// until the cluster settles, disappears, fn returns false or ctx ends.
func Follow(ctx context.Context, src Source, clusterID string, interval time.Duration, fn func(StatusMsg) bool) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	after := 0
	for {
		var msg StatusMsg
		msg, after = fetchStatus(ctx, src, clusterID, after)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !fn(msg) || msg.Terminal() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunWatch follows a cluster with a Bubble Tea dashboard until it reaches
// Active or Error, or is deleted.
func RunWatch(ctx context.Context, src Source, clusterID string, interval time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := NewWatchModel(clusterID)

	p := tea.NewProgram(m, tea.WithAltScreen())

	go func() {
		err := Follow(ctx, src, clusterID, interval, func(msg StatusMsg) bool {
			p.Send(msg)
			return true
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			p.Send(ErrMsg{Err: err})
		}
	}()

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	fm := finalModel.(Model)
	if fm.Err != nil {
		return fm.Err
	}
	return nil
}

// fetchStatus fetches the cluster and the events after the given offset.
// It returns the message and the offset for the next poll.
func fetchStatus(ctx context.Context, src Source, clusterID string, after int) (StatusMsg, int) {
	cluster, err := src.GetCluster(ctx, clusterID)
	if err != nil {
		return errorStatus(err), after
	}

	events, err := src.Events(ctx, clusterID, after)
	if err != nil {
		return errorStatus(err), after
	}

	return StatusMsg{Cluster: cluster, Events: events}, after + len(events)
}

func errorStatus(err error) StatusMsg {
	if errors.Is(err, store.ErrNotFound) {
		return StatusMsg{NotFound: true}
	}
	return StatusMsg{FetchErr: err.Error()}
}
