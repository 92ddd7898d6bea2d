package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"mercator-hq/custodian/pkg/cli"
	"mercator-hq/custodian/pkg/lifecycle"
)

var validityFlags struct {
	all      bool
	category string
}

var validityCmd = &cobra.Command{
	Use:   "validity",
	Short: "Report document validity for underwriting",
	Long: `Report how fresh each document is for underwriting. Documents expire a fixed
number of days after they were received, depending on category; documents
within 30 days of expiry are reported as expiring soon.

By default only expired and expiring documents are listed.`,
	Args: cobra.NoArgs,
	RunE: runValidity,
}

func init() {
	rootCmd.AddCommand(validityCmd)

	validityCmd.Flags().BoolVar(&validityFlags.all, "all", false, "include valid documents")
	validityCmd.Flags().StringVar(&validityFlags.category, "category", "", "only this document category")
}

func runValidity(cmd *cobra.Command, args []string) error {
	var category lifecycle.Category
	if validityFlags.category != "" {
		c, err := lifecycle.ParseCategory(validityFlags.category)
		if err != nil {
			return cli.NewConfigError("category", err.Error(), nil)
		}
		category = c
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out, err := printer(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	docs, err := a.docs.ListActiveDocuments(ctx, category)
	if err != nil {
		return cli.NewCommandError("validity", err)
	}

	tracker := lifecycle.NewValidityTracker(a.policies.Snapshot().ValidityRules())
	now := clock()
	assessments := make([]lifecycle.ValidityAssessment, 0, len(docs))
	for _, d := range docs {
		if d.ReceivedDate.IsZero() {
			continue
		}
		v := tracker.Assess(d, now)
		if validityFlags.all || v.Alert() {
			assessments = append(assessments, v)
		}
	}
	sort.SliceStable(assessments, func(i, j int) bool {
		if assessments[i].DaysUntilExpiration != assessments[j].DaysUntilExpiration {
			return assessments[i].DaysUntilExpiration < assessments[j].DaysUntilExpiration
		}
		return assessments[i].DocumentID < assessments[j].DocumentID
	})

	t := cli.Table{Header: []string{"DOCUMENT", "CATEGORY", "AGE", "EXPIRES", "DAYS LEFT", "STATUS"}}
	for _, v := range assessments {
		expires, left := "never", "-"
		if v.HasRule {
			expires = v.ExpirationDate.Format(dateFormat)
			left = strconv.Itoa(v.DaysUntilExpiration)
		}
		t.Rows = append(t.Rows, []string{
			v.DocumentID, string(v.Category), strconv.Itoa(v.DaysSinceReceived), expires, left, string(v.Status),
		})
	}
	t.Footer = []string{"", fmt.Sprintf("%d of %d documents listed", len(assessments), len(docs))}
	return out.Print(assessments, t)
}
