// Package export renders audit records as CSV or JSON and can upload the
// result to an S3-compatible bucket.
//
// Output is deterministic: the same records always produce the same bytes.
// Exporters never modify their input.
//
// CSV quotes every field and doubles embedded quotes. The old and new value
// maps are written as compact JSON with sorted keys:
//
//	"id","timestamp","actor_id","action","table_name","record_id","old_values","new_values","risk_score"
//	"a1","2026-01-10T08:00:00Z","ops","UPDATE","documents","doc-1","{""state"":""active""}","{""state"":""archived""}","20"
//
// JSON is always a pretty-printed array, "[]" when there are no records.
package export
