// Package lifecycle holds the core rules of the compliance engine: the
// document and retention policy model, the lifecycle evaluator and the
// validity tracker.
//
// # Lifecycle states
//
// A tracked document moves forward through a fixed sequence of states:
//
//	active -> archive_pending -> archived -> delete_pending -> deleted
//
// A legal hold is an orthogonal flag. When the governing policy enables
// hold override, a held document is frozen in its current state. Without
// override, a hold only blocks deletion.
//
// # Evaluation
//
// Evaluate is a pure function of (document, policy, now). It never touches
// a store, so scans may evaluate documents concurrently. Thresholds are
// derived from the received date, the policy and any retention extension,
// never from the evaluation time, which keeps repeated scans identical.
//
//	decision, err := lifecycle.Evaluate(doc, policy, time.Now())
//	if err != nil {
//	    // *lifecycle.EvaluationError: malformed document data
//	}
//	if decision.Due {
//	    fmt.Println(decision.Action, decision.DueDate)
//	}
//
// # Validity
//
// Validity is independent of retention. A pay stub can be Expired for
// underwriting while its archival is months away. Both are reported.
package lifecycle
