// Package store provides storage backends for FunnelPipe.
//
// It defines the repository contracts for function definitions and client
// progressions, with PostgreSQL, SQLite, and in-memory implementations.
package store

import (
	"errors"
	"strings"

	"github.com/BTreeMap/FunnelPipe/internal/models"
)

// ErrExternalNameConflict indicates a unique-index violation on the globally
// unique external name. Creation retries with a fresh id on this error.
var ErrExternalNameConflict = errors.New("external name already exists")

// FunctionStore is the persistence contract for function definitions.
type FunctionStore interface {
	// GetFunction returns the definition with the given id, or nil if absent.
	GetFunction(id string) (*models.FunctionDefinition, error)
	// ListFunctionsByCompany returns all definitions owned by a tenant.
	ListFunctionsByCompany(companyID string) ([]models.FunctionDefinition, error)
	// SaveFunction inserts or updates a definition. Returns
	// ErrExternalNameConflict when the external name collides with another row.
	SaveFunction(def models.FunctionDefinition) error
	// DeleteFunction removes a definition, scoped to the owning tenant.
	DeleteFunction(id, companyID string) error
}

// ProgressionStore is the persistence contract for client progressions and stages.
type ProgressionStore interface {
	// ListActiveProgressions returns a client's ACTIVE progressions, newest first.
	ListActiveProgressions(clientID string) ([]models.ClientProgression, error)
	// GetProgression returns the progression with the given id, or nil if absent.
	GetProgression(id string) (*models.ClientProgression, error)
	// SaveProgression inserts or updates a progression record.
	SaveProgression(p models.ClientProgression) error
	// UpdateProgressionStage applies a targeted stage update keyed by
	// progression id, refreshing last_interaction. It deliberately does not
	// fetch-modify-save, so concurrent writers never clobber unrelated fields.
	UpdateProgressionStage(progressionID, stageID string) error
	// UpdateAssignedUser sets or clears (empty userID) the assigned human agent.
	UpdateAssignedUser(progressionID, userID string) error
	// GetStage returns the stage with the given id, or nil if absent.
	GetStage(stageID string) (*models.Stage, error)
	// GetFirstStage returns the funnel's order-0 entry stage, or nil if absent.
	GetFirstStage(funnelID string) (*models.Stage, error)
	// SaveStage inserts or updates a stage.
	SaveStage(s models.Stage) error
}

// Store combines all repository contracts behind one backend.
type Store interface {
	FunctionStore
	ProgressionStore
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a functional option for configuring a store.
type Option func(*Opts)

// WithDSN sets the database connection string (or file path for SQLite).
func WithDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// DetectDSNType classifies a DSN as "postgres" or "sqlite". URL-style and
// key=value PostgreSQL connection strings are recognized; everything else is
// treated as a SQLite file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}
