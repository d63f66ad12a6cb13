// Package sheets provides the Google Sheets implementation of Provider.
package sheets

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// Opts holds configuration options for the Google Sheets provider.
type Opts struct {
	CredentialsFile string
	TokenSource     oauth2.TokenSource
}

// Option defines a functional option for configuring the provider.
type Option func(*Opts)

// WithCredentialsFile authenticates with a service-account credentials file.
func WithCredentialsFile(path string) Option {
	return func(o *Opts) { o.CredentialsFile = path }
}

// WithTokenSource authenticates with a tenant-scoped OAuth token source.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(o *Opts) { o.TokenSource = ts }
}

// GoogleProvider implements Provider on top of the Google Sheets API.
type GoogleProvider struct {
	svc *gsheets.Service
}

// NewGoogleProvider creates a Google Sheets provider.
func NewGoogleProvider(ctx context.Context, opts ...Option) (*GoogleProvider, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	var clientOpts []option.ClientOption
	switch {
	case cfg.TokenSource != nil:
		clientOpts = append(clientOpts, option.WithTokenSource(cfg.TokenSource))
	case cfg.CredentialsFile != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	default:
		return nil, fmt.Errorf("sheets credentials not configured")
	}
	svc, err := gsheets.NewService(ctx, clientOpts...)
	if err != nil {
		slog.Error("GoogleProvider.NewGoogleProvider: failed to create sheets service", "error", err)
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &GoogleProvider{svc: svc}, nil
}

// ReadRange returns the cell values of the given A1-notation range.
func (g *GoogleProvider) ReadRange(ctx context.Context, spreadsheetID, readRange string) ([][]interface{}, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		slog.Error("GoogleProvider.ReadRange failed", "error", err, "spreadsheetID", spreadsheetID, "range", readRange)
		return nil, fmt.Errorf("failed to read range %s: %w", readRange, err)
	}
	return resp.Values, nil
}

// AppendRow appends one row of values after the last non-empty row.
func (g *GoogleProvider) AppendRow(ctx context.Context, spreadsheetID string, values []interface{}) error {
	body := &gsheets.ValueRange{Values: [][]interface{}{values}}
	_, err := g.svc.Spreadsheets.Values.
		Append(spreadsheetID, "A1", body).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		slog.Error("GoogleProvider.AppendRow failed", "error", err, "spreadsheetID", spreadsheetID)
		return fmt.Errorf("failed to append row: %w", err)
	}
	slog.Debug("GoogleProvider.AppendRow succeeded", "spreadsheetID", spreadsheetID, "cells", len(values))
	return nil
}
