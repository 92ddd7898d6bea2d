package action

import "context"

// BatchResult summarizes ApplyBatch.
type BatchResult struct {
	Results []Result `json:"results"`
	Applied int      `json:"applied"`
	Failed  int      `json:"failed"`

	// Skipped counts actions never started because ctx ended.
	Skipped int `json:"skipped"`
}

// Partial reports whether any action failed or was skipped.
func (b BatchResult) Partial() bool {
	return b.Failed > 0 || b.Skipped > 0
}

// ApplyBatch applies actions in order. Each action is independent: a failure
// does not stop the batch, but a cancelled ctx stops it between actions.
func (e *Executor) ApplyBatch(ctx context.Context, actions []Action) BatchResult {
	var out BatchResult
	for i, a := range actions {
		if ctx.Err() != nil {
			out.Skipped = len(actions) - i
			break
		}
		res, err := e.Apply(ctx, a)
		out.Results = append(out.Results, res)
		if err != nil {
			out.Failed++
		} else {
			out.Applied++
		}
	}
	return out
}
