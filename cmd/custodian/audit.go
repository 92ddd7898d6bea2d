package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/custodian/pkg/audit"
	"mercator-hq/custodian/pkg/audit/export"
	"mercator-hq/custodian/pkg/audit/query"
	"mercator-hq/custodian/pkg/cli"
	"mercator-hq/custodian/pkg/config"
)

// auditFilterFlags are shared by query-audit and export-audit.
type auditFilterFlags struct {
	start   string
	end     string
	actions []string
	tables  []string
	actor   string
	limit   int
}

func (f *auditFilterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.start, "start", "", "earliest timestamp, RFC 3339 or YYYY-MM-DD (inclusive)")
	cmd.Flags().StringVar(&f.end, "end", "", "latest timestamp, RFC 3339 or YYYY-MM-DD (inclusive)")
	cmd.Flags().StringSliceVar(&f.actions, "action", nil, "audit action (INSERT, UPDATE, DELETE, ...); repeatable")
	cmd.Flags().StringSliceVar(&f.tables, "table", nil, "table name; repeatable")
	cmd.Flags().StringVar(&f.actor, "actor", "", "actor id")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "maximum records (0 for no limit)")
}

func (f *auditFilterFlags) filter() (*audit.Filter, error) {
	filter, err := query.ParseFilter(query.Params{
		Start:   f.start,
		End:     f.end,
		Actions: f.actions,
		Tables:  f.tables,
		Actor:   f.actor,
		Limit:   f.limit,
	})
	if err != nil {
		return nil, cli.NewConfigError("filter", "invalid audit query", err)
	}
	return filter, nil
}

var queryAuditFlags auditFilterFlags

var queryAuditCmd = &cobra.Command{
	Use:   "query-audit",
	Short: "Query the audit log",
	Long: `Query audit records by time range, action, table and actor. Records are
returned in timestamp order. A date-only --end covers the whole day.

Examples:
  custodian query-audit --start 2026-01-01 --end 2026-01-31
  custodian query-audit --action DELETE --actor system -o json`,
	Args: cobra.NoArgs,
	RunE: runQueryAudit,
}

var exportAuditFlags struct {
	auditFilterFlags
	format string
	file   string
	upload bool
}

var exportAuditCmd = &cobra.Command{
	Use:   "export-audit",
	Short: "Export audit records as CSV or JSON",
	Long: `Export audit records matching the filter. Output goes to stdout unless --file
is given. With --upload the export is also stored in the configured
S3-compatible bucket.

Examples:
  custodian export-audit --format csv --file audit-2026-01.csv --start 2026-01-01 --end 2026-01-31
  custodian export-audit --format json --upload`,
	Args: cobra.NoArgs,
	RunE: runExportAudit,
}

func init() {
	rootCmd.AddCommand(queryAuditCmd)
	rootCmd.AddCommand(exportAuditCmd)

	queryAuditFlags.register(queryAuditCmd)
	exportAuditFlags.register(exportAuditCmd)
	exportAuditCmd.Flags().StringVar(&exportAuditFlags.format, "format", "csv", "export format (csv, json)")
	exportAuditCmd.Flags().StringVar(&exportAuditFlags.file, "file", "", "write the export to this file")
	exportAuditCmd.Flags().BoolVar(&exportAuditFlags.upload, "upload", false, "upload the export to the configured bucket")
}

func runQueryAudit(cmd *cobra.Command, args []string) error {
	filter, err := queryAuditFlags.filter()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out, err := printer(cmd)
	if err != nil {
		return err
	}

	log, closeAudit, err := openAuditOnly(cfg)
	if err != nil {
		return err
	}
	defer closeAudit()

	records, err := query.NewEngine(log).Query(cmd.Context(), filter)
	if err != nil {
		return cli.NewCommandError("query-audit", err)
	}

	t := cli.Table{Header: []string{"TIMESTAMP", "ACTOR", "ACTION", "TABLE", "RECORD", "RISK", "CHANGES"}}
	for _, r := range records {
		t.Rows = append(t.Rows, []string{
			r.Timestamp.UTC().Format(time.RFC3339),
			r.ActorID,
			string(r.Action),
			r.TableName,
			r.RecordID,
			strconv.Itoa(r.RiskScore),
			changes(r),
		})
	}
	t.Footer = []string{"", fmt.Sprintf("%d records", len(records))}
	return out.Print(records, t)
}

func runExportAudit(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(exportAuditFlags.format)
	if err != nil {
		return cli.NewConfigError("format", err.Error(), nil)
	}
	filter, err := exportAuditFlags.filter()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, closeAudit, err := openAuditOnly(cfg)
	if err != nil {
		return err
	}
	defer closeAudit()

	ctx := cmd.Context()
	data, n, err := query.NewEngine(log).QueryAndExport(ctx, filter, format)
	if err != nil {
		return cli.NewCommandError("export-audit", err)
	}

	switch exportAuditFlags.file {
	case "", "-":
		if !exportAuditFlags.upload || exportAuditFlags.file == "-" {
			if _, err := cmd.OutOrStdout().Write(data); err != nil {
				return err
			}
		}
	default:
		if err := os.WriteFile(exportAuditFlags.file, data, 0o600); err != nil {
			return cli.NewCommandError("export-audit", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "exported %d records to %s\n", n, exportAuditFlags.file)
	}

	if exportAuditFlags.upload {
		key, err := uploadExport(cmd, cfg.Export, format, data)
		if err != nil {
			return cli.NewCommandError("export-audit", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "uploaded %d records to %s/%s\n", n, cfg.Export.Bucket, key)
	}
	return nil
}

func uploadExport(cmd *cobra.Command, cfg config.ExportConfig, format export.Format, data []byte) (string, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return "", cli.NewConfigError("export", "export.endpoint and export.bucket are required for --upload", nil)
	}
	sink, err := export.NewBucketSink(export.BucketConfig{
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Region:    cfg.Region,
		Bucket:    cfg.Bucket,
		UseSSL:    cfg.UseSSL,
		Prefix:    cfg.Prefix,
	})
	if err != nil {
		return "", err
	}
	if err := sink.EnsureBucket(cmd.Context()); err != nil {
		return "", err
	}
	return sink.Upload(cmd.Context(), format, data, time.Now())
}

// openAuditOnly opens the audit store without documents or policies.
func openAuditOnly(cfg *config.Config) (audit.Store, func(), error) {
	log, err := openAudit(cfg.Audit)
	if err != nil {
		return nil, nil, err
	}
	return log, func() { _ = log.Close() }, nil
}

// changes renders the fields whose values differ, in key order.
func changes(r *audit.Record) string {
	keys := make([]string, 0, len(r.NewValues))
	for k := range r.NewValues {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		nv := r.NewValues[k]
		ov, had := r.OldValues[k]
		if had && fmt.Sprint(ov) == fmt.Sprint(nv) {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%v->%v", k, ov, nv))
	}
	return strings.Join(parts, " ")
}
