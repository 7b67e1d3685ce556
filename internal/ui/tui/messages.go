// Package tui provides a Bubble Tea-based terminal UI that follows a
// cluster through its lifecycle operations.
package tui

import (
	"github.com/imamik/stratus/api/v1alpha1"
	"github.com/imamik/stratus/internal/provisioning"
)

// StatusMsg carries the latest cluster record and the events recorded
// since the previous poll.
type StatusMsg struct {
	Cluster  *v1alpha1.Cluster
	Events   []provisioning.Event
	NotFound bool
	FetchErr string
}

// Terminal reports whether polling can stop after this message.
func (m StatusMsg) Terminal() bool {
	if m.NotFound || m.FetchErr != "" || m.Cluster == nil {
		return true
	}
	return m.Cluster.Status == v1alpha1.StatusActive || m.Cluster.Status == v1alpha1.StatusError
}

// TickMsg is sent periodically to refresh the display.
type TickMsg struct{}

// ErrMsg carries an error.
type ErrMsg struct{ Err error }

// DoneMsg signals that the operation is complete.
type DoneMsg struct{}
