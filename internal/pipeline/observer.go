package pipeline

import "github.com/waabox/stagerun/internal/domain"

// EventKind identifies a lifecycle event reported to an Observer.
type EventKind int

const (
	EventRunStarted EventKind = iota
	// EventStageGated reports that every input of the stage resolved.
	EventStageGated
	EventStageStarted
	EventStageFinished
	EventRunFinished
)

// Event is a snapshot of one lifecycle transition. Index is the 0-based
// position of Stage in the stage list; it is -1 for run-level events.
type Event struct {
	Kind   EventKind
	Index  int
	Stage  domain.Stage
	Status domain.StageStatus
	Inputs []string
	Result *domain.ExecutionResult
	Reason string
	// Stages is set on EventRunStarted.
	Stages []domain.Stage
	// Run is a copy of the run state at the time of the event.
	Run domain.PipelineRun
}

// Observer receives lifecycle events synchronously from the controller.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }
