package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/imamik/stratus/api/v1alpha1"
	"github.com/imamik/stratus/internal/provisioning"
	"github.com/imamik/stratus/internal/ui/benchmarks"
)

// styleFunc is a single-string styling function.
type styleFunc func(string) string

// sf wraps a lipgloss.Style into a styleFunc.
func sf(s lipgloss.Style) styleFunc {
	return func(str string) string { return s.Render(str) }
}

func renderView(m Model) string {
	var b strings.Builder

	renderHeader(&b, m)

	if m.Operation != "" {
		renderProgressBar(&b, m)
		renderPhases(&b, m)
	}

	if len(m.NodeGroups) > 0 {
		renderNodeGroups(&b, m)
	}

	if len(m.Events) > 0 {
		renderEvents(&b, m)
	}

	if failures := failedEvents(m.Events); len(failures) > 0 {
		renderErrors(&b, failures)
	}

	renderFooter(&b, m)

	return b.String()
}

func renderHeader(b *strings.Builder, m Model) {
	name := m.ClusterName
	if name == "" {
		name = m.ClusterID
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf("stratus: %s", name)))
	if strings.TrimSpace(m.Plugin) != "" {
		b.WriteString(subtitleStyle.Render(fmt.Sprintf(" (%s)", m.Plugin)))
	}

	status := " "
	switch {
	case m.Gone:
		status += readyStyle.Render("Deleted")
	case m.Err != nil:
		status += failedStyle.Render(fmt.Sprintf("Error: %v", m.Err))
	case m.Status == v1alpha1.StatusActive:
		status += readyStyle.Render("Active")
	case m.Status == v1alpha1.StatusError:
		status += failedStyle.Render("Error")
	case m.Status != v1alpha1.StatusNew:
		status += activeStyle.Render(currentSpinner(m.SpinnerFrame)+" ") + warningStyle.Render(string(m.Status))
	default:
		status += dimStyle.Render("Waiting...")
	}
	b.WriteString(status)
	b.WriteString("\n")
}

func renderProgressBar(b *strings.Builder, m Model) {
	progress := calculateProgress(m)
	barWidth := 40
	if m.Width > 0 && m.Width < 80 {
		barWidth = max(m.Width-30, 10)
	}
	filled := min(int(float64(barWidth)*progress), barWidth)

	bar := progressBarFull.Render(strings.Repeat("█", filled)) +
		progressBarEmpty.Render(strings.Repeat("░", barWidth-filled))

	eta := ""
	if m.EstimatedRemaining > 0 {
		eta = fmt.Sprintf(" ETA %s", formatDuration(m.EstimatedRemaining))
	}
	if m.PerformanceScale != 0 && m.PerformanceScale != 1.0 {
		eta += fmt.Sprintf("  speed x%.2f", m.PerformanceScale)
	}

	fmt.Fprintf(b, "  %s %d%%%s\n", bar, int(progress*100), eta)
}

func renderPhases(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render(fmt.Sprintf("  Phases (%s)", m.Operation)))
	b.WriteString("\n")

	seen := make(map[string]benchmarks.PhaseRecord, len(m.Phases))
	for _, rec := range m.Phases {
		seen[rec.Phase] = rec
	}

	order := benchmarks.PhaseOrder[m.Operation]
	if len(order) == 0 {
		for _, rec := range m.Phases {
			order = append(order, rec.Phase)
		}
	}

	for _, phase := range order {
		rec, ok := seen[phase]
		var icon, dur string
		var style styleFunc
		switch {
		case !ok:
			icon, style = pending, sf(dimStyle)
		case rec.Failed:
			icon, style = crossMark, sf(failedStyle)
			dur = formatDuration(rec.Duration())
		case rec.EndedAt != nil:
			icon, style = checkMark, sf(readyStyle)
			dur = formatDuration(rec.Duration())
		default:
			icon, style = currentSpinner(m.SpinnerFrame), sf(activeStyle)
			dur = formatDuration(time.Since(rec.StartedAt))
		}
		fmt.Fprintf(b, "    %s %-18s %s\n", style(icon), style(phase), dimStyle.Render(dur))
	}
}

func renderNodeGroups(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("  Node Groups"))
	b.WriteString("\n")

	for _, ng := range m.NodeGroups {
		have := len(ng.Instances)
		var icon string
		var style styleFunc
		switch {
		case have == ng.Count:
			icon, style = checkMark, sf(readyStyle)
		case m.Status == v1alpha1.StatusError:
			icon, style = crossMark, sf(failedStyle)
		default:
			icon, style = warnMark, sf(warningStyle)
		}
		fmt.Fprintf(b, "    %s %-20s %d/%d  %s\n",
			style(icon), style(ng.Name), have, ng.Count,
			dimStyle.Render(fmt.Sprintf("%s [%s]", ng.FlavorID, strings.Join(ng.NodeProcesses, ","))))
	}
}

func renderEvents(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("  Recent Events"))
	b.WriteString("\n")

	start := max(len(m.Events)-5, 0)
	for _, ev := range m.Events[start:] {
		subject := ev.Phase
		if ev.Resource != "" {
			subject = ev.Resource
		}
		ts := ""
		if !ev.Timestamp.IsZero() {
			ts = ev.Timestamp.Local().Format(time.TimeOnly)
		}
		fmt.Fprintf(b, "    %s %-20s %-18s %s\n",
			dimStyle.Render(ts), string(ev.Type), subject, dimStyle.Render(ev.Message))
	}
}

func renderErrors(b *strings.Builder, failures []provisioning.Event) {
	b.WriteString(sectionStyle.Render("  Recent Errors"))
	b.WriteString("\n")

	// Show last 3 errors
	start := max(len(failures)-3, 0)
	for _, ev := range failures[start:] {
		component := ev.Phase
		if component == "" {
			component = ev.Operation
		}
		fmt.Fprintf(b, "    %s [%s] %s\n",
			failedStyle.Render(crossMark), component, dimStyle.Render(ev.Message))
	}
}

func renderFooter(b *strings.Builder, m Model) {
	parts := []string{fmt.Sprintf("elapsed: %s", formatDuration(time.Since(m.StartTime)))}
	if m.Description != "" && m.Err == nil {
		parts = append(parts, m.Description)
	}
	pulse := ""
	if !m.Done && m.Err == nil {
		pulse = "  |  " + currentSpinner(m.SpinnerFrame) + " watching"
	}
	b.WriteString(footerStyle.Render(fmt.Sprintf("  %s%s  |  q: quit", strings.Join(parts, "  |  "), pulse)))
	b.WriteString("\n")
}

// Helper functions

func failedEvents(events []provisioning.Event) []provisioning.Event {
	var out []provisioning.Event
	for _, ev := range events {
		if ev.Type.Failed() {
			out = append(out, ev)
		}
	}
	return out
}

func currentSpinner(frame int) string {
	if frame < 0 {
		frame = -frame
	}
	return spinnerFrames[frame%len(spinnerFrames)]
}

func calculateProgress(m Model) float64 {
	if m.Gone || (m.Done && m.Err == nil) {
		return 1.0
	}
	return benchmarks.Progress(m.Operation, m.Phases)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
