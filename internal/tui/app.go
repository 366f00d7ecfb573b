package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/waabox/stagerun/internal/domain"
	"github.com/waabox/stagerun/internal/pipeline"
)

// EventMsg carries a controller lifecycle event into the program.
// It is exported so that tests can inject it directly into AppModel.Update.
type EventMsg struct {
	Event pipeline.Event
}

// tickMsg refreshes the elapsed-time display while the run is in progress.
type tickMsg time.Time

// viewState indicates the current navigation level.
type viewState int

const (
	viewStages viewState = iota
	viewLogs
)

// AppModel is the root Bubbletea model for a live pipeline run.
type AppModel struct {
	title string
	list  StageListModel
	view  viewState
	// Run state, as reported by the controller
	runID     string
	status    domain.RunStatus
	reason    string
	startedAt time.Time
	total     time.Duration
	finished  bool
	// Abort handling
	abort        func()
	confirmAbort bool
	aborting     bool
	// Log viewer state
	logContent   string
	logOffset    int
	logStageName string
	// General state
	width  int
	height int
	now    func() time.Time
}

// NewAppModel creates the root model. abort is called when the operator
// confirms stopping a run in progress; it may be nil.
func NewAppModel(title string, stages []domain.Stage, abort func()) AppModel {
	return AppModel{
		title:  title,
		list:   NewStageListModel(stages),
		status: domain.RunIdle,
		abort:  abort,
		now:    time.Now,
	}
}

// Init starts the elapsed-time ticker.
func (m AppModel) Init() tea.Cmd {
	return tickEvery(time.Second)
}

func tickEvery(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Finished reports whether the run has reached a terminal state.
func (m AppModel) Finished() bool {
	return m.finished
}

// Update handles all incoming messages and key events.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		if m.finished {
			return m, nil
		}
		return m, tickEvery(time.Second)

	case EventMsg:
		return m.applyEvent(msg.Event), nil

	case tea.KeyMsg:
		if m.confirmAbort {
			switch msg.String() {
			case "y":
				m.confirmAbort = false
				m.aborting = true
				if m.abort != nil {
					m.abort()
				}
			default:
				m.confirmAbort = false
			}
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			if m.finished {
				return m, tea.Quit
			}
			if !m.aborting {
				m.confirmAbort = true
			}
			return m, nil
		}
		switch m.view {
		case viewStages:
			return m.updateStages(msg)
		case viewLogs:
			return m.updateLogs(msg)
		}
	}
	return m, nil
}

func (m AppModel) applyEvent(e pipeline.Event) AppModel {
	switch e.Kind {
	case pipeline.EventRunStarted:
		m.runID = e.Run.ID
		m.startedAt = e.Run.StartTime
		m.status = e.Run.Status
	case pipeline.EventStageGated:
		row := m.rowAt(e.Index)
		row.Status = domain.StageGated
		row.Inputs = e.Inputs
		m.list = m.list.WithRow(e.Index, row)
	case pipeline.EventStageStarted:
		row := m.rowAt(e.Index)
		row.Status = domain.StageRunning
		row.Inputs = e.Inputs
		m.list = m.list.WithRow(e.Index, row)
	case pipeline.EventStageFinished:
		row := m.rowAt(e.Index)
		row.Status = e.Status
		row.Reason = e.Reason
		if e.Result != nil {
			row.ExitCode = e.Result.ExitCode
			row.Duration = e.Result.Duration
			row.Stdout = e.Result.Stdout
			row.Stderr = e.Result.Stderr
		}
		m.list = m.list.WithRow(e.Index, row)
	case pipeline.EventRunFinished:
		m.status = e.Run.Status
		m.reason = e.Run.Reason
		m.total = e.Run.Duration()
		m.finished = true
		m.confirmAbort = false
		m.list = m.list.SkipPending()
	}
	return m
}

func (m AppModel) rowAt(i int) StageRow {
	rows := m.list.Rows()
	if i < 0 || i >= len(rows) {
		return StageRow{}
	}
	return rows[i]
}

func (m AppModel) updateStages(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "down":
		m.list = m.list.MoveDown()
	case "up":
		m.list = m.list.MoveUp()
	case "enter", "l":
		row := m.list.Selected()
		if row.Status == domain.StageSucceeded || row.Status == domain.StageFailed {
			m.view = viewLogs
			m.logStageName = row.Name
			m.logContent = stageOutput(row)
			m.logOffset = 0
		}
	}
	return m, nil
}

func (m AppModel) updateLogs(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "down":
		maxOffset := strings.Count(m.logContent, "\n")
		if m.logOffset < maxOffset {
			m.logOffset++
		}
	case "up":
		if m.logOffset > 0 {
			m.logOffset--
		}
	case "pgup":
		page := m.visibleLogLines()
		if m.logOffset-page >= 0 {
			m.logOffset -= page
		} else {
			m.logOffset = 0
		}
	case "pgdown":
		maxOffset := strings.Count(m.logContent, "\n")
		m.logOffset += m.visibleLogLines()
		if m.logOffset > maxOffset {
			m.logOffset = maxOffset
		}
	case "g":
		m.logOffset = 0
	case "G":
		lines := strings.Split(m.logContent, "\n")
		m.logOffset = max(0, len(lines)-m.visibleLogLines())
	case "esc":
		m.view = viewStages
		m.logContent = ""
		m.logOffset = 0
	}
	return m, nil
}

func stageOutput(row StageRow) string {
	var sb strings.Builder
	if len(row.Inputs) > 0 {
		sb.WriteString("inputs: " + strings.Join(row.Inputs, " ") + "\n")
	}
	sb.WriteString(fmt.Sprintf("exit code: %d   duration: %s\n", row.ExitCode, formatDuration(row.Duration)))
	sb.WriteString("--- stdout ---\n")
	sb.WriteString(strings.TrimRight(row.Stdout, "\n"))
	sb.WriteString("\n--- stderr ---\n")
	sb.WriteString(strings.TrimRight(row.Stderr, "\n"))
	return sb.String()
}

const separator = "────────────────────────────────────────────────────────────\n"

// View renders the full TUI.
func (m AppModel) View() string {
	if m.view == viewLogs {
		return m.renderLogView()
	}

	header := fmt.Sprintf(" stagerun | %s | run %s | %s %s\n",
		m.title, shortID(m.runID), statusLabel(m.status), m.elapsed())
	title := " Stages\n"
	listView := m.list.View()

	statusBar := m.statusBar()
	footer := " ↑/↓: navigate   enter: output   q: abort\n"
	if m.finished {
		footer = " ↑/↓: navigate   enter: output   q: quit\n"
	}
	if m.confirmAbort {
		footer = " Abort running pipeline? [y/N] \n"
	}
	return header + separator + title + listView + "\n" + separator + statusBar + separator + footer
}

func (m AppModel) statusBar() string {
	switch {
	case m.finished && m.status == domain.RunFailed:
		return fmt.Sprintf(" ✗ %s\n", m.reason)
	case m.finished:
		return fmt.Sprintf(" ✓ all %d stages completed in %s\n", len(m.list.Rows()), formatDuration(m.total))
	case m.aborting:
		return " aborting: waiting for the running stage to stop...\n"
	}
	row := m.list.Selected()
	if row.Reason != "" {
		return " " + row.Reason + "\n"
	}
	if len(row.Inputs) > 0 {
		return fmt.Sprintf(" %s ← %s\n", row.Name, strings.Join(row.Inputs, ", "))
	}
	return fmt.Sprintf(" %s\n", row.Name)
}

func (m AppModel) elapsed() string {
	if m.finished {
		return formatDuration(m.total)
	}
	if m.startedAt.IsZero() {
		return ""
	}
	return formatDuration(m.now().Sub(m.startedAt))
}

func statusLabel(s domain.RunStatus) string {
	switch s {
	case domain.RunCompleted:
		return "✓ completed"
	case domain.RunFailed:
		return "✗ failed"
	case domain.RunRunning:
		return "● running"
	default:
		return "↷ starting"
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// visibleLogLines returns the number of log lines visible in the current terminal height.
func (m AppModel) visibleLogLines() int {
	lines := m.height - 4 // account for header, separator, and footer
	if lines < 10 {
		return 10
	}
	return lines
}

// renderLogView renders the fullscreen output viewer.
func (m AppModel) renderLogView() string {
	header := fmt.Sprintf(" stagerun  run %s  [output] %s\n", shortID(m.runID), m.logStageName)
	footer := " ↑/↓: scroll   PgUp/PgDn: page   g/G: top/bottom   esc: back\n"

	lines := strings.Split(m.logContent, "\n")
	visibleCount := m.visibleLogLines()

	start := m.logOffset
	if start >= len(lines) {
		start = len(lines) - 1
	}
	if start < 0 {
		start = 0
	}
	end := start + visibleCount
	if end > len(lines) {
		end = len(lines)
	}

	body := strings.Join(lines[start:end], "\n")
	return header + separator + body + "\n" + separator + footer
}

// RunFunc executes the pipeline, reporting progress to obs.
type RunFunc func(ctx context.Context, obs pipeline.Observer) domain.PipelineRun

// Run starts the Bubbletea program, executes the pipeline in the background
// and returns the finalized run once both the pipeline and the program have
// stopped. Quitting the program interrupts a run that is still in progress.
func Run(ctx context.Context, title string, stages []domain.Stage, run RunFunc) (domain.PipelineRun, error) {
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	p := tea.NewProgram(NewAppModel(title, stages, cancelRun), tea.WithAltScreen(), tea.WithContext(ctx))
	done := make(chan domain.PipelineRun, 1)
	go func() {
		done <- run(runCtx, pipeline.ObserverFunc(func(e pipeline.Event) {
			p.Send(EventMsg{Event: e})
		}))
	}()

	_, err := p.Run()
	cancelRun()
	result := <-done
	if err != nil && !result.Status.Terminal() {
		return result, fmt.Errorf("stagerun tui: %w", err)
	}
	return result, nil
}
