// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

// Package tui renders the pull command's live progress using bubbletea and
// lipgloss, mirroring the hub.Coordinator's download_progress and
// verification_progress events.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/arcadia-ai/modelhub/pkg/hub"
)

// progressBarWidth is the character width of the rendered bar, excluding
// the surrounding brackets and percentage label.
const progressBarWidth = 36

// eventMsg wraps a hub.Event for delivery through bubbletea's Update loop.
type eventMsg hub.Event

// doneMsg signals that the driving download/verification goroutine finished.
type doneMsg struct{ err error }

// LiveModel is the bubbletea model backing RunLiveProgress.
type LiveModel struct {
	hubID      string
	events     <-chan hub.Event
	result     <-chan error
	totalFiles int
	doneFiles  int
	knownBytes int64
	currentLog []string
	started    time.Time
	finished   bool
	err        error
}

// NewLiveRenderer builds a LiveModel that consumes events from the given
// channel until result yields a final error (nil on success).
func NewLiveRenderer(hubID string, events <-chan hub.Event, result <-chan error) *LiveModel {
	return &LiveModel{
		hubID:   hubID,
		events:  events,
		result:  result,
		started: time.Now(),
	}
}

// Init implements tea.Model.
func (m *LiveModel) Init() tea.Cmd {
	return tea.Batch(m.waitForEvent(), m.waitForDone())
}

func (m *LiveModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return nil
		}
		return eventMsg(ev)
	}
}

func (m *LiveModel) waitForDone() tea.Cmd {
	return func() tea.Msg {
		return doneMsg{err: <-m.result}
	}
}

// Update implements tea.Model.
func (m *LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.finished = true
			return m, tea.Quit
		}

	case eventMsg:
		m.applyEvent(hub.Event(msg))
		return m, m.waitForEvent()

	case doneMsg:
		m.finished = true
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m *LiveModel) applyEvent(ev hub.Event) {
	switch ev.Name {
	case "start":
		if v, ok := ev.Payload["total_files"].(int); ok {
			m.totalFiles = v
		}
		if v, ok := ev.Payload["known_bytes"].(int64); ok {
			m.knownBytes = v
		}
		m.logf("resolved %d files for %s", m.totalFiles, m.hubID)

	case "file_complete":
		m.doneFiles++
		if name, ok := ev.Payload["file_name"].(string); ok {
			m.logf("downloaded %s", name)
		}

	case "complete":
		m.logf("materialized cache layout for %s", m.hubID)

	case "repair_start":
		m.logf("repairing missing files")

	case "repair_complete":
		m.logf("repair finished")
	}
}

func (m *LiveModel) logf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	m.currentLog = append(m.currentLog, line)
	if len(m.currentLog) > 6 {
		m.currentLog = m.currentLog[len(m.currentLog)-6:]
	}
}

// View implements tea.Model.
func (m *LiveModel) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render(m.hubID) + "\n")

	pct := 0.0
	if m.totalFiles > 0 {
		pct = float64(m.doneFiles) / float64(m.totalFiles)
	}
	b.WriteString(renderBar(pct) + "\n")
	b.WriteString(SubtitleStyle.Render(fmt.Sprintf("%d/%d files · %s elapsed", m.doneFiles, m.totalFiles, time.Since(m.started).Round(time.Second))) + "\n\n")

	for _, line := range m.currentLog {
		b.WriteString(ItemStyle.Render(line) + "\n")
	}

	if m.finished {
		if m.err != nil {
			b.WriteString("\n" + ErrorStyle.Render("failed: "+m.err.Error()) + "\n")
		} else {
			b.WriteString("\n" + SuccessStyle.Render("done") + "\n")
		}
	} else {
		b.WriteString("\n" + FooterStyle.Render("ctrl+c to quit (stops the download)") + "\n")
	}

	return b.String()
}

func renderBar(pct float64) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}
	filled := int(pct * float64(progressBarWidth))
	bar := ProgressFilledStyle.Render(strings.Repeat("█", filled)) + ProgressEmptyStyle.Render(strings.Repeat("░", progressBarWidth-filled))
	return fmt.Sprintf("[%s] %3.0f%%", bar, pct*100)
}

// RunLiveProgress drives a bubbletea program rendering events from the
// channel until result delivers the final error. Returns that error.
func RunLiveProgress(hubID string, events <-chan hub.Event, result <-chan error) error {
	m := NewLiveRenderer(hubID, events, result)
	p := tea.NewProgram(m)
	finalModel, err := p.Run()
	if err != nil {
		return err
	}
	final := finalModel.(*LiveModel)
	return final.err
}
