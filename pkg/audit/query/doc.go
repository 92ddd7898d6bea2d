// Package query validates audit filters and runs them against an audit
// store, optionally rendering the result through audit/export.
package query
