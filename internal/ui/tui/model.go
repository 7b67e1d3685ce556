package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/stratus/api/v1alpha1"
	"github.com/imamik/stratus/internal/provisioning"
	"github.com/imamik/stratus/internal/ui/benchmarks"
)

// maxEvents bounds the event backlog kept for display.
const maxEvents = 200

// Model is the Bubble Tea model for the watch dashboard.
type Model struct {
	// Cluster info
	ClusterID   string
	ClusterName string
	Plugin      string

	// Server-sourced state
	Status      v1alpha1.ClusterStatus
	Description string
	NodeGroups  []v1alpha1.NodeGroup
	Events      []provisioning.Event

	// Phases of the most recent operation, derived from events
	Operation string
	Phases    []benchmarks.PhaseRecord

	// ETA
	EstimatedRemaining time.Duration
	PerformanceScale   float64
	StartTime          time.Time

	// Animation
	SpinnerFrame int

	// UI state
	Width  int
	Height int
	Err    error
	Done   bool
	Gone   bool
}

// NewWatchModel creates a model following the cluster with the given id.
func NewWatchModel(clusterID string) Model {
	return Model{
		ClusterID:        clusterID,
		StartTime:        time.Now(),
		PerformanceScale: 1.0,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case StatusMsg:
		if done := m.apply(msg); done {
			return m, tea.Quit
		}

	case TickMsg:
		m.SpinnerFrame++
		m.updateETA()
		return m, tickCmd()

	case ErrMsg:
		m.Err = msg.Err
		return m, tea.Quit

	case DoneMsg:
		m.Done = true
		return m, tea.Quit
	}

	return m, nil
}

// apply folds a poll result into the model and reports whether watching
// is over.
func (m *Model) apply(msg StatusMsg) bool {
	switch {
	case msg.FetchErr != "":
		m.Err = fmt.Errorf("failed to fetch cluster status: %s", msg.FetchErr)
		return true
	case msg.NotFound:
		if m.ClusterName == "" {
			m.Err = fmt.Errorf("cluster %s not found", m.ClusterID)
			return true
		}
		// A cluster that disappears while watched has been terminated.
		m.Gone = true
		m.Done = true
		return true
	case msg.Cluster == nil:
		return false
	}

	m.updateCluster(msg.Cluster)
	m.addEvents(msg.Events)

	switch m.Status {
	case v1alpha1.StatusActive:
		m.Done = true
		return true
	case v1alpha1.StatusError:
		m.Err = fmt.Errorf("cluster %s failed: %s", m.ClusterName, m.Description)
		return true
	}
	return false
}

func (m *Model) updateCluster(c *v1alpha1.Cluster) {
	m.ClusterName = c.Name
	m.Plugin = c.PluginName + " " + c.PluginVersion
	m.Status = c.Status
	m.Description = c.StatusDescription
	m.NodeGroups = c.NodeGroups
}

func (m *Model) addEvents(events []provisioning.Event) {
	if len(events) == 0 {
		return
	}
	m.Events = append(m.Events, events...)
	if len(m.Events) > maxEvents {
		m.Events = m.Events[len(m.Events)-maxEvents:]
	}
	m.Operation, m.Phases = phaseHistory(m.Events)
}

// CurrentPhase returns the phase that has started but not ended yet.
func (m Model) CurrentPhase() (benchmarks.PhaseRecord, bool) {
	for i := len(m.Phases) - 1; i >= 0; i-- {
		if m.Phases[i].EndedAt == nil {
			return m.Phases[i], true
		}
	}
	return benchmarks.PhaseRecord{}, false
}

func (m *Model) updateETA() {
	current, ok := m.CurrentPhase()
	if !ok {
		m.EstimatedRemaining = 0
		return
	}
	elapsed := time.Since(current.StartedAt)
	m.PerformanceScale = benchmarks.PerformanceScale(m.Operation, current.Phase, elapsed, m.Phases)
	m.EstimatedRemaining = benchmarks.EstimateRemainingWithScale(m.Operation, current.Phase, elapsed, m.Phases, m.PerformanceScale)
}

// phaseHistory rebuilds the phase records of the latest operation found
// in events.
func phaseHistory(events []provisioning.Event) (string, []benchmarks.PhaseRecord) {
	var operation string
	var records []benchmarks.PhaseRecord

	for _, ev := range events {
		switch ev.Type {
		case provisioning.EventPhaseStarted:
			// A phase starting twice means the operation was run again.
			if ev.Operation != operation || hasPhase(records, ev.Phase) {
				operation = ev.Operation
				records = nil
			}
			records = append(records, benchmarks.PhaseRecord{Phase: ev.Phase, StartedAt: ev.Timestamp})
		case provisioning.EventPhaseCompleted, provisioning.EventPhaseFailed:
			if ev.Operation != operation {
				continue
			}
			for i := len(records) - 1; i >= 0; i-- {
				if records[i].Phase == ev.Phase && records[i].EndedAt == nil {
					end := ev.Timestamp
					records[i].EndedAt = &end
					records[i].Failed = ev.Type == provisioning.EventPhaseFailed
					break
				}
			}
		}
	}
	return operation, records
}

func hasPhase(records []benchmarks.PhaseRecord, phase string) bool {
	for _, rec := range records {
		if rec.Phase == phase {
			return true
		}
	}
	return false
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View implements tea.Model.
func (m Model) View() string {
	return renderView(m)
}
