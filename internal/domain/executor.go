package domain

import "context"

// StageExecutor is the port through which the controller launches stages.
// The domain does not know how a stage is run, only what it reports back.
//
// Execute blocks until the stage terminates. A non-zero exit is reported in
// the result, not as an error; the error is reserved for spawn failures and
// kills (timeout, cancellation), in which case the result still carries
// whatever was collected.
type StageExecutor interface {
	Execute(ctx context.Context, stage Stage, inputs []string) (ExecutionResult, error)
}

type runIDKey struct{}

// WithRunID returns a context carrying the id of the run a stage belongs to.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFrom returns the run id stored by WithRunID, or "".
func RunIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
