package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/custodian/pkg/cli"
	"mercator-hq/custodian/pkg/lifecycle/action"
	"mercator-hq/custodian/pkg/lifecycle/policy"
	"mercator-hq/custodian/pkg/lifecycle/scan"
)

var scanFlags struct {
	apply   bool
	confirm bool
	actor   string
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Evaluate all documents and print the worklist",
	Long: `Evaluate every non-deleted document against its category's retention policy
and print the worklist of due archive and delete actions, ordered by due date.

A scan never modifies documents unless --apply is given. Deletions under a
policy without auto-delete are applied only with --confirm.

Examples:
  # Show what is due
  custodian scan

  # Apply due archives and auto-deletes
  custodian scan --apply

  # Also apply confirmed manual deletes
  custodian scan --apply --confirm --actor ops-team`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().BoolVar(&scanFlags.apply, "apply", false, "apply the worklist after scanning")
	scanCmd.Flags().BoolVar(&scanFlags.confirm, "confirm", false, "confirm deletions that require manual approval")
	scanCmd.Flags().StringVar(&scanFlags.actor, "actor", "", "actor recorded on audit records (default engine.actor_id)")
}

type scanOutput struct {
	Worklist *scan.Worklist      `json:"worklist"`
	Report   *scan.Report        `json:"report"`
	Applied  *action.BatchResult `json:"applied,omitempty"`
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out, err := printer(cmd)
	if err != nil {
		return err
	}

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	scanner, err := a.scanner(policy.NewFileSource(cfg.Policies.File, a.policies))
	if err != nil {
		return err
	}

	worklist, report, err := scanner.RunScan(ctx)
	if worklist == nil {
		return cli.NewCommandError("scan", err)
	}

	result := scanOutput{Worklist: worklist, Report: report}
	if scanFlags.apply && err == nil {
		actor := scanFlags.actor
		if actor == "" {
			actor = cfg.Engine.ActorID
		}
		batch := a.executor.ApplyBatch(ctx, worklist.Actions(actor, scanFlags.confirm))
		result.Applied = &batch
	}

	if perr := out.Print(result, scanTable(result)); perr != nil {
		return perr
	}
	return scanExit(result, err)
}

// scanExit maps a finished scan onto the command error.
func scanExit(result scanOutput, scanErr error) error {
	if scanErr != nil {
		return cli.NewCommandError("scan", scanErr)
	}
	if result.Report.Partial() {
		return &cli.PartialFailureError{Command: "scan", Failed: len(result.Report.Errors), Total: result.Report.Listed}
	}
	if b := result.Applied; b != nil && b.Partial() {
		return &cli.PartialFailureError{Command: "scan --apply", Failed: b.Failed + b.Skipped, Total: len(b.Results) + b.Skipped}
	}
	return nil
}

func scanTable(r scanOutput) cli.Table {
	t := cli.Table{Header: []string{"DUE", "DOCUMENT", "CATEGORY", "FROM", "TO", "ACTION", "REASON", "CONFIRM"}}
	for _, e := range r.Worklist.Entries {
		confirm := ""
		if e.RequiresConfirmation {
			confirm = "required"
		}
		t.Rows = append(t.Rows, []string{
			e.DueDate.Format(dateFormat),
			e.Document.ID,
			string(e.Document.Category),
			string(e.FromState),
			string(e.ToState),
			string(e.Action),
			string(e.Reason),
			confirm,
		})
	}

	rep := r.Report
	t.Footer = append(t.Footer,
		"",
		fmt.Sprintf("scan %s (policy version %d): %d listed, %d evaluated, %d due",
			rep.ScanID, r.Worklist.PolicyVersion, rep.Listed, rep.Evaluated, len(r.Worklist.Entries)),
		fmt.Sprintf("held: %d  unpoliced: %d  validity alerts: %d  errors: %d",
			len(rep.Held), len(rep.Unpoliced), len(rep.ValidityAlerts), len(rep.Errors)),
	)
	for _, u := range rep.Unpoliced {
		t.Footer = append(t.Footer, fmt.Sprintf("  unpoliced %s (%s)", u.DocumentID, u.Category))
	}
	for _, e := range rep.Errors {
		t.Footer = append(t.Footer, fmt.Sprintf("  error %s [%s]: %s", e.DocumentID, e.Field, e.Message))
	}
	if rep.Cancelled {
		t.Footer = append(t.Footer, "scan cancelled: worklist is partial")
	}
	if b := r.Applied; b != nil {
		t.Footer = append(t.Footer, fmt.Sprintf("applied: %d  failed: %d  skipped: %d", b.Applied, b.Failed, b.Skipped))
		for _, res := range b.Results {
			if !res.Success {
				t.Footer = append(t.Footer, fmt.Sprintf("  failed %s %s: %s", res.Action, res.DocumentID, res.Error))
			}
		}
	}
	return t
}

const dateFormat = "2006-01-02"
