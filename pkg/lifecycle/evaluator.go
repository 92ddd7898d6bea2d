package lifecycle

import (
	"errors"
	"fmt"
	"time"
)

// Evaluate computes the lifecycle decision for doc under policy at now.
//
// A nil or inactive policy leaves the document where it is and marks it
// unpoliced. Malformed documents yield an *EvaluationError; no field is ever
// substituted with a default.
//
// Deletion is only proposed for documents already archived. An active
// document past its retention period is first moved to archive_pending,
// even when the policy's archive threshold would be later.
func Evaluate(doc *Document, policy *RetentionPolicy, now time.Time) (Decision, error) {
	if err := checkDocument(doc, now); err != nil {
		return Decision{}, err
	}

	d := Decision{Current: doc.State, State: doc.State}

	if policy == nil || !policy.IsActive {
		d.Reason = ReasonUnpoliced
		d.Unpoliced = true
		return d, nil
	}

	if doc.State == StateDeleted {
		d.Reason = ReasonTerminal
		return d, nil
	}

	if doc.LegalHold && policy.LegalHoldOverride {
		d.Reason = ReasonHold
		d.Held = true
		return d, nil
	}

	archiveAt := doc.ArchiveDueDate(policy)
	retainUntil := doc.RetentionEndDate(policy)
	// Whole days only: a document is due on the day its threshold is reached.
	archiveDue := !now.Before(archiveAt)
	retentionElapsed := !now.Before(retainUntil)

	switch doc.State {
	case StateActive, StateArchivePending:
		d.Action = ActionArchive
		d.DueDate = archiveAt
		if retainUntil.Before(archiveAt) {
			d.DueDate = retainUntil
		}
		if archiveDue || retentionElapsed {
			d.State = StateArchivePending
			d.Due = true
			d.Reason = ReasonArchiveDue
		} else {
			d.State = StateActive
			d.Reason = ReasonNotDue
		}

	case StateArchived, StateDeletePending:
		d.Action = ActionDelete
		d.DueDate = retainUntil
		switch {
		case !retentionElapsed:
			d.State = StateArchived
			d.Reason = ReasonNotDue
		case doc.LegalHold:
			d.Action = ActionNone
			d.Held = true
			d.Reason = ReasonHoldBlocksDelete
		case policy.AutoDelete:
			d.State = StateDeletePending
			d.Due = true
			d.Reason = ReasonRetentionElapsed
		default:
			d.Due = true
			d.RequiresConfirmation = true
			d.Reason = ReasonManualDelete
		}
	}

	return d, nil
}

// ErrReceivedDateMissing and ErrReceivedDateInFuture describe malformed
// received dates.
var (
	ErrReceivedDateMissing  = errors.New("received date is missing")
	ErrReceivedDateInFuture = errors.New("received date is in the future")
)

func checkDocument(doc *Document, now time.Time) error {
	if doc == nil {
		return NewEvaluationError("", "document", errors.New("document is nil"))
	}
	if doc.ID == "" {
		return NewEvaluationError("", "id", errors.New("document id is empty"))
	}
	if doc.ReceivedDate.IsZero() {
		return NewEvaluationError(doc.ID, "received_date", ErrReceivedDateMissing)
	}
	if doc.ReceivedDate.After(now) {
		return NewEvaluationError(doc.ID, "received_date",
			fmt.Errorf("%w: %s", ErrReceivedDateInFuture, doc.ReceivedDate.Format(time.RFC3339)))
	}
	if !doc.State.Valid() {
		return NewEvaluationError(doc.ID, "state", fmt.Errorf("unknown lifecycle state %q", doc.State))
	}
	if !doc.Category.Valid() {
		return NewEvaluationError(doc.ID, "category", fmt.Errorf("unknown document category %q", doc.Category))
	}
	if doc.RetentionExtensionDays < 0 {
		return NewEvaluationError(doc.ID, "retention_extension_days",
			fmt.Errorf("negative extension %d", doc.RetentionExtensionDays))
	}
	return nil
}
