package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"mercator-hq/custodian/pkg/cli"
	"mercator-hq/custodian/pkg/lifecycle"
	"mercator-hq/custodian/pkg/lifecycle/policy"
)

var policyFile string

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect retention policy files",
}

var policyValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a retention policy file",
	Long: `Parse and validate a retention policy file without touching any document.

A policy is contradictory when its archive threshold exceeds its retention
period, when two active policies cover the same category, or when fields are
out of range. Contradictions exit with code 2.

Examples:
  custodian policy validate
  custodian policy validate --file policies/retention.yaml`,
	Args: cobra.NoArgs,
	RunE: runPolicyValidate,
}

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(policyValidateCmd)

	policyValidateCmd.Flags().StringVarP(&policyFile, "file", "f", "", "policy file (default policies.file from config)")
}

type policyReport struct {
	File     string                      `json:"file"`
	Valid    bool                        `json:"valid"`
	Policies []lifecycle.RetentionPolicy `json:"policies"`
	Validity lifecycle.ValidityRuleTable `json:"validity"`
	Missing  []lifecycle.Category        `json:"unpoliced_categories"`
}

func runPolicyValidate(cmd *cobra.Command, args []string) error {
	path := policyFile
	if path == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		path = cfg.Policies.File
	}
	out, err := printer(cmd)
	if err != nil {
		return err
	}

	f, err := policy.LoadFile(path)
	if err != nil {
		return err
	}
	snap := f.Snapshot()
	if err := snap.Validate(); err != nil {
		return err
	}

	report := policyReport{
		File:     path,
		Valid:    true,
		Policies: snap.Policies(),
		Validity: snap.ValidityRules(),
	}
	for _, c := range lifecycle.Categories() {
		if snap.Policy(c) == nil {
			report.Missing = append(report.Missing, c)
		}
	}
	sort.Slice(report.Policies, func(i, j int) bool { return report.Policies[i].ID < report.Policies[j].ID })

	t := cli.Table{Header: []string{"ID", "CATEGORY", "ARCHIVE AFTER", "RETENTION", "AUTO DELETE", "HOLD OVERRIDE", "ACTIVE"}}
	for _, p := range report.Policies {
		t.Rows = append(t.Rows, []string{
			p.ID,
			string(p.Category),
			strconv.Itoa(p.ArchiveAfterDays) + "d",
			strconv.Itoa(p.RetentionYears) + "y",
			strconv.FormatBool(p.AutoDelete),
			strconv.FormatBool(p.LegalHoldOverride),
			strconv.FormatBool(p.IsActive),
		})
	}
	t.Footer = []string{"", fmt.Sprintf("%s: %d policies, %d active categories, valid", path, len(report.Policies), snap.ActiveCount())}
	for _, c := range report.Missing {
		t.Footer = append(t.Footer, fmt.Sprintf("  no active policy for %s", c))
	}
	return out.Print(report, t)
}
