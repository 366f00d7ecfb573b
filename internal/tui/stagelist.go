package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/waabox/stagerun/internal/domain"
)

// StageRow is the display state of one stage.
type StageRow struct {
	Name     string
	Requires []string
	Status   domain.StageStatus
	Inputs   []string
	ExitCode int
	Duration time.Duration
	Stdout   string
	Stderr   string
	Reason   string
}

// StageListModel is an immutable model for the stages panel.
type StageListModel struct {
	rows   []StageRow
	cursor int
}

// NewStageListModel creates a stage list with every stage pending.
func NewStageListModel(stages []domain.Stage) StageListModel {
	rows := make([]StageRow, len(stages))
	for i, s := range stages {
		rows[i] = StageRow{Name: s.Name, Requires: s.Requires, Status: domain.StagePending}
	}
	return StageListModel{rows: rows, cursor: 0}
}

// MoveDown returns a new model with the cursor moved down by one.
func (m StageListModel) MoveDown() StageListModel {
	if m.cursor < len(m.rows)-1 {
		m.cursor++
	}
	return m
}

// MoveUp returns a new model with the cursor moved up by one.
func (m StageListModel) MoveUp() StageListModel {
	if m.cursor > 0 {
		m.cursor--
	}
	return m
}

// Cursor returns the current cursor position.
func (m StageListModel) Cursor() int {
	return m.cursor
}

// Rows returns the full row slice.
func (m StageListModel) Rows() []StageRow {
	return m.rows
}

// Selected returns the highlighted row, or a zero row if the list is empty.
func (m StageListModel) Selected() StageRow {
	if len(m.rows) == 0 {
		return StageRow{}
	}
	return m.rows[m.cursor]
}

// WithRow returns a new model with row i replaced. Out-of-range indexes are ignored.
func (m StageListModel) WithRow(i int, row StageRow) StageListModel {
	if i < 0 || i >= len(m.rows) {
		return m
	}
	rows := make([]StageRow, len(m.rows))
	copy(rows, m.rows)
	rows[i] = row
	m.rows = rows
	return m
}

// SkipPending returns a new model where every still-pending stage is marked
// skipped. Used once the run has finished.
func (m StageListModel) SkipPending() StageListModel {
	rows := make([]StageRow, len(m.rows))
	copy(rows, m.rows)
	for i := range rows {
		if rows[i].Status == domain.StagePending {
			rows[i].Status = domain.StageSkipped
		}
	}
	m.rows = rows
	return m
}

// View renders the stage list with cursor indicators.
func (m StageListModel) View() string {
	if len(m.rows) == 0 {
		return "No stages configured."
	}
	var sb strings.Builder
	for i, r := range m.rows {
		prefix := "  "
		if i == m.cursor {
			prefix = "> "
		}
		duration := "--"
		if r.Duration > 0 {
			duration = formatDuration(r.Duration)
		}
		sb.WriteString(fmt.Sprintf("%s%s %-25s %-8s %s\n",
			prefix,
			statusIcon(r.Status),
			truncate(r.Name, 25),
			duration,
			truncate(strings.Join(r.Requires, ", "), 30),
		))
	}
	return sb.String()
}

func statusIcon(s domain.StageStatus) string {
	switch s {
	case domain.StageSucceeded:
		return "✓"
	case domain.StageFailed:
		return "✗"
	case domain.StageRunning:
		return "●"
	case domain.StagePending:
		return "↷"
	case domain.StageGated:
		return "◎"
	case domain.StageBlocked:
		return "⊘"
	case domain.StageSkipped:
		return "○"
	default:
		return "?"
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return d.Round(time.Second).String()
	}
}

func truncate(s string, max int) string {
	if len([]rune(s)) <= max {
		return s
	}
	return string([]rune(s)[:max-1]) + "…"
}
