// Package sheets defines the spreadsheet capability consumed by the function
// engine, plus the Google Sheets adapter.
package sheets

import "context"

// Provider is the spreadsheet capability interface. Authentication is an
// adapter concern; the engine only supplies spreadsheet ids and values.
type Provider interface {
	// ReadRange returns the cell values of the given A1-notation range.
	// An empty result means the range holds no data.
	ReadRange(ctx context.Context, spreadsheetID, readRange string) ([][]interface{}, error)
	// AppendRow appends one row of values after the last non-empty row.
	AppendRow(ctx context.Context, spreadsheetID string, values []interface{}) error
}
