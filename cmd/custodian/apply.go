package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/custodian/pkg/cli"
	"mercator-hq/custodian/pkg/lifecycle"
	"mercator-hq/custodian/pkg/lifecycle/action"
)

var applyFlags struct {
	ids     []string
	days    int
	confirm bool
	actor   string
}

var applyCmd = &cobra.Command{
	Use:   "apply <archive|delete|extend|hold|release>",
	Short: "Apply a lifecycle action to documents",
	Long: `Apply one lifecycle action to one or more documents.

Every attempt writes exactly one audit record, including refused actions.
Preconditions are checked against the document as stored: deletes require
archived documents whose retention has elapsed and that are not held.

Examples:
  custodian apply archive --id doc-1
  custodian apply delete --id doc-1 --confirm --actor jdoe
  custodian apply extend --id doc-1 --days 365
  custodian apply hold --id doc-1,doc-2
  custodian apply release --id doc-1`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"archive", "delete", "extend", "hold", "release"},
	RunE:      runApply,
}

var holdFlags struct {
	ids     []string
	release bool
	actor   string
}

var holdCmd = &cobra.Command{
	Use:   "hold",
	Short: "Place or release a legal hold",
	Long: `Place a legal hold on documents, or release it with --release.

Held documents are never deleted. Under a policy with legal hold override
they are not archived either.`,
	Args: cobra.NoArgs,
	RunE: runHold,
}

func init() {
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(holdCmd)

	applyCmd.Flags().StringSliceVar(&applyFlags.ids, "id", nil, "document id (repeatable or comma separated)")
	applyCmd.Flags().IntVar(&applyFlags.days, "days", 0, "extension in days (extend only)")
	applyCmd.Flags().BoolVar(&applyFlags.confirm, "confirm", false, "confirm a deletion that requires manual approval")
	applyCmd.Flags().StringVar(&applyFlags.actor, "actor", "", "actor recorded on audit records (default engine.actor_id)")
	_ = applyCmd.MarkFlagRequired("id")

	holdCmd.Flags().StringSliceVar(&holdFlags.ids, "id", nil, "document id (repeatable or comma separated)")
	holdCmd.Flags().BoolVar(&holdFlags.release, "release", false, "release the hold instead of placing it")
	holdCmd.Flags().StringVar(&holdFlags.actor, "actor", "", "actor recorded on audit records (default engine.actor_id)")
	_ = holdCmd.MarkFlagRequired("id")
}

func runApply(cmd *cobra.Command, args []string) error {
	kind, err := lifecycle.ParseActionKind(args[0])
	if err != nil {
		return cli.NewConfigError("action", err.Error(), nil)
	}
	if kind == lifecycle.ActionExtend && applyFlags.days <= 0 {
		return cli.NewConfigError("days", "extend requires --days > 0", nil)
	}

	actions := make([]action.Action, 0, len(applyFlags.ids))
	for _, id := range applyFlags.ids {
		actions = append(actions, action.Action{
			Kind:       kind,
			DocumentID: id,
			Days:       applyFlags.days,
			Confirmed:  applyFlags.confirm,
			ActorID:    applyFlags.actor,
		})
	}
	return applyActions(cmd, "apply "+args[0], actions)
}

func runHold(cmd *cobra.Command, args []string) error {
	kind := lifecycle.ActionPlaceHold
	if holdFlags.release {
		kind = lifecycle.ActionReleaseHold
	}
	actions := make([]action.Action, 0, len(holdFlags.ids))
	for _, id := range holdFlags.ids {
		actions = append(actions, action.Action{Kind: kind, DocumentID: id, ActorID: holdFlags.actor})
	}
	return applyActions(cmd, "hold", actions)
}

// applyActions runs actions through the executor and prints one row per
// result.
func applyActions(cmd *cobra.Command, name string, actions []action.Action) error {
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

	batch := a.executor.ApplyBatch(ctx, actions)

	t := cli.Table{Header: []string{"DOCUMENT", "ACTION", "RESULT", "FROM", "TO", "AUDIT", "DETAIL"}}
	for _, r := range batch.Results {
		result := "ok"
		if !r.Success {
			result = "failed"
		}
		t.Rows = append(t.Rows, []string{
			r.DocumentID, string(r.Action), result, string(r.FromState), string(r.ToState), r.AuditID, r.Error,
		})
	}
	t.Footer = []string{
		"",
		fmt.Sprintf("applied: %d  failed: %d  skipped: %d", batch.Applied, batch.Failed, batch.Skipped),
	}
	if err := out.Print(batch, t); err != nil {
		return err
	}

	if batch.Partial() {
		return &cli.PartialFailureError{Command: name, Failed: batch.Failed + batch.Skipped, Total: len(actions)}
	}
	return nil
}
