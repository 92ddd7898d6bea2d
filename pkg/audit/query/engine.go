package query

import (
	"context"
	"log/slog"

	"mercator-hq/custodian/pkg/audit"
	"mercator-hq/custodian/pkg/audit/export"
)

// Engine answers audit queries and renders exports.
type Engine struct {
	store  audit.Store
	logger *slog.Logger
}

// NewEngine creates a query engine over store.
func NewEngine(store audit.Store) *Engine {
	return &Engine{
		store:  store,
		logger: slog.Default().With("component", "audit.query"),
	}
}

// Query validates the filter and returns matching records ordered by
// timestamp then id.
func (e *Engine) Query(ctx context.Context, f *audit.Filter) ([]*audit.Record, error) {
	if err := Validate(f); err != nil {
		return nil, err
	}

	records, err := e.store.Query(ctx, f)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("audit query completed", "records", len(records))
	return records, nil
}

// Count returns the number of records matching f, ignoring its limit.
func (e *Engine) Count(ctx context.Context, f *audit.Filter) (int64, error) {
	if err := Validate(f); err != nil {
		return 0, err
	}
	return e.store.Count(ctx, f)
}

// Export renders records in format. It does not read or modify the store.
func (e *Engine) Export(ctx context.Context, records []*audit.Record, format export.Format) ([]byte, error) {
	return export.Export(ctx, records, format)
}

// QueryAndExport runs f and renders the result.
func (e *Engine) QueryAndExport(ctx context.Context, f *audit.Filter, format export.Format) ([]byte, int, error) {
	records, err := e.Query(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	data, err := e.Export(ctx, records, format)
	if err != nil {
		return nil, len(records), err
	}
	return data, len(records), nil
}
