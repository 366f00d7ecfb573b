package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/waabox/stagerun/internal/domain"
)

var (
	summaryTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("99"))

	summaryOKStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true)

	summaryFailStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("9")).
				Bold(true)

	summaryDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// RenderSummary renders the end-of-run report printed after a non-interactive
// run: one line per configured stage followed by the overall outcome.
// Stages that never produced a result are shown as blocked (the stage that
// stopped the run) or skipped.
func RenderSummary(run domain.PipelineRun, stages []domain.Stage) string {
	var sb strings.Builder
	sb.WriteString(summaryTitleStyle.Render(fmt.Sprintf("Run %s", run.ID)))
	sb.WriteString("\n")

	for i, s := range stages {
		status, detail := summaryRow(run, i, s)
		sb.WriteString(fmt.Sprintf("  %s %-25s %s\n", statusIcon(status), truncate(s.Name, 25), detail))
	}

	sb.WriteString("\n")
	switch run.Status {
	case domain.RunCompleted:
		sb.WriteString(summaryOKStyle.Render(fmt.Sprintf("✓ pipeline completed in %s", formatDuration(run.Duration()))))
	case domain.RunFailed:
		sb.WriteString(summaryFailStyle.Render(fmt.Sprintf("✗ pipeline failed after %s", formatDuration(run.Duration()))))
		if run.Reason != "" {
			sb.WriteString("\n  ")
			sb.WriteString(run.Reason)
		}
	default:
		sb.WriteString(summaryDimStyle.Render(fmt.Sprintf("pipeline %s", run.Status)))
	}
	sb.WriteString("\n")
	return sb.String()
}

func summaryRow(run domain.PipelineRun, i int, s domain.Stage) (domain.StageStatus, string) {
	if i < len(run.Results) {
		r := run.Results[i]
		detail := formatDuration(r.Duration)
		if r.Succeeded() {
			return domain.StageSucceeded, detail
		}
		if r.Err != nil && r.ExitCode < 0 {
			return domain.StageFailed, detail + "  " + summaryFailStyle.Render(r.Err.Error())
		}
		return domain.StageFailed, fmt.Sprintf("%s  exit %d", detail, r.ExitCode)
	}
	if i == len(run.Results) && run.Status == domain.RunFailed && isBlockedBy(run, s) {
		return domain.StageBlocked, summaryDimStyle.Render("no matching artifact")
	}
	return domain.StageSkipped, summaryDimStyle.Render("--")
}

func isBlockedBy(run domain.PipelineRun, s domain.Stage) bool {
	var missing *domain.MissingArtifactError
	return errors.As(run.Err, &missing) && missing.Stage == s.Name
}
