package tui_test

import (
	"strings"
	"testing"
	"time"

	"github.com/waabox/stagerun/internal/domain"
	"github.com/waabox/stagerun/internal/tui"
)

func TestStageListModel_RendersStages(t *testing.T) {
	m := tui.NewStageListModel(testStages())
	view := m.View()
	for _, name := range []string{"load", "epochs", "ica"} {
		if !strings.Contains(view, name) {
			t.Errorf("expected '%s' in view, got:\n%s", name, view)
		}
	}
	if !strings.Contains(view, "_filtered_raw.fif") {
		t.Errorf("expected requirement in view, got:\n%s", view)
	}
}

func TestStageListModel_StartsPending(t *testing.T) {
	m := tui.NewStageListModel(testStages())
	for _, r := range m.Rows() {
		if r.Status != domain.StagePending {
			t.Errorf("expected %s pending, got %s", r.Name, r.Status)
		}
	}
}

func TestStageListModel_EmptyShowsMessage(t *testing.T) {
	m := tui.NewStageListModel(nil)
	if !strings.Contains(m.View(), "No stages") {
		t.Errorf("expected empty message, got:\n%s", m.View())
	}
	if m.Selected().Name != "" {
		t.Errorf("expected zero row, got %+v", m.Selected())
	}
}

func TestStageListModel_Navigate(t *testing.T) {
	m := tui.NewStageListModel(testStages())
	m = m.MoveUp()
	if m.Cursor() != 0 {
		t.Errorf("expected cursor to stay at 0, got %d", m.Cursor())
	}
	m = m.MoveDown().MoveDown().MoveDown()
	if m.Cursor() != 2 {
		t.Errorf("expected cursor 2, got %d", m.Cursor())
	}
	if m.Selected().Name != "ica" {
		t.Errorf("expected 'ica' selected, got '%s'", m.Selected().Name)
	}
}

func TestStageListModel_WithRowDoesNotMutateOriginal(t *testing.T) {
	original := tui.NewStageListModel(testStages())
	row := original.Rows()[0]
	row.Status = domain.StageSucceeded
	row.Duration = 90 * time.Second

	updated := original.WithRow(0, row)

	if original.Rows()[0].Status != domain.StagePending {
		t.Error("expected original model to be unchanged")
	}
	if updated.Rows()[0].Status != domain.StageSucceeded {
		t.Errorf("expected updated row, got %s", updated.Rows()[0].Status)
	}
	if !strings.Contains(updated.View(), "1m30s") {
		t.Errorf("expected duration in view, got:\n%s", updated.View())
	}
	if same := updated.WithRow(9, row); len(same.Rows()) != 3 {
		t.Errorf("expected out-of-range index to be ignored")
	}
}

func TestStageListModel_SkipPending(t *testing.T) {
	m := tui.NewStageListModel(testStages())
	row := m.Rows()[0]
	row.Status = domain.StageFailed
	m = m.WithRow(0, row).SkipPending()

	want := []domain.StageStatus{domain.StageFailed, domain.StageSkipped, domain.StageSkipped}
	for i, r := range m.Rows() {
		if r.Status != want[i] {
			t.Errorf("row %d: expected %s, got %s", i, want[i], r.Status)
		}
	}
}
