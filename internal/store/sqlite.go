// Package store provides storage backends for FunnelPipe.
//
// This file implements an SQLite-backed store, primarily for development and
// single-node deployments.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "embed"

	"github.com/BTreeMap/FunnelPipe/internal/models"
	sqlite3 "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore implements Store backed by SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	// Ensure the directory exists (skip for in-memory databases)
	if !strings.Contains(dsn, ":memory:") {
		dir := filepath.Dir(dsn)
		if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
			slog.Error("Failed to create database directory", "error", err, "dir", dir)
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")
	return &SQLiteStore{db: db}, nil
}

// isSQLiteUniqueViolation reports whether err is a unique-constraint violation
// on the external name column.
func isSQLiteUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique &&
			strings.Contains(err.Error(), "functions.external_name")
	}
	return false
}

// GetFunction returns the definition with the given id, or nil if absent.
func (s *SQLiteStore) GetFunction(id string) (*models.FunctionDefinition, error) {
	row := s.db.QueryRow(`SELECT id, company_id, kind, external_name, parameters, const_data, created_at, updated_at
		FROM functions WHERE id = ?`, id)
	def, err := scanFunction(row)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore.GetFunction: not found", "id", id)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore.GetFunction failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to get function %s: %w", id, err)
	}
	return &def, nil
}

// ListFunctionsByCompany returns all definitions owned by a tenant.
func (s *SQLiteStore) ListFunctionsByCompany(companyID string) ([]models.FunctionDefinition, error) {
	rows, err := s.db.Query(`SELECT id, company_id, kind, external_name, parameters, const_data, created_at, updated_at
		FROM functions WHERE company_id = ? ORDER BY created_at DESC`, companyID)
	if err != nil {
		slog.Error("SQLiteStore.ListFunctionsByCompany query failed", "error", err, "companyID", companyID)
		return nil, fmt.Errorf("failed to query functions: %w", err)
	}
	defer rows.Close()
	var defs []models.FunctionDefinition
	for rows.Next() {
		def, err := scanFunction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan function row: %w", err)
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate function rows: %w", err)
	}
	return defs, nil
}

// SaveFunction inserts or updates a definition. Returns ErrExternalNameConflict
// when the external name collides with another row's.
func (s *SQLiteStore) SaveFunction(def models.FunctionDefinition) error {
	parametersJSON, constDataJSON, err := marshalFunction(def)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO functions (id, company_id, kind, external_name, parameters, const_data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			kind = excluded.kind,
			external_name = excluded.external_name,
			parameters = excluded.parameters,
			const_data = excluded.const_data,
			updated_at = excluded.updated_at`,
		def.ID, def.CompanyID, def.Kind, def.ExternalName,
		parametersJSON, constDataJSON, def.CreatedAt, def.UpdatedAt)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			slog.Warn("SQLiteStore.SaveFunction: external name conflict", "externalName", def.ExternalName)
			return ErrExternalNameConflict
		}
		slog.Error("SQLiteStore.SaveFunction failed", "error", err, "id", def.ID)
		return fmt.Errorf("failed to save function %s: %w", def.ID, err)
	}
	slog.Debug("SQLiteStore.SaveFunction succeeded", "id", def.ID, "externalName", def.ExternalName)
	return nil
}

// DeleteFunction removes a definition, scoped to the owning tenant.
func (s *SQLiteStore) DeleteFunction(id, companyID string) error {
	res, err := s.db.Exec(`DELETE FROM functions WHERE id = ? AND company_id = ?`, id, companyID)
	if err != nil {
		slog.Error("SQLiteStore.DeleteFunction failed", "error", err, "id", id)
		return fmt.Errorf("failed to delete function %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrFunctionNotFound
	}
	return nil
}

// ListActiveProgressions returns a client's ACTIVE progressions, newest first.
func (s *SQLiteStore) ListActiveProgressions(clientID string) ([]models.ClientProgression, error) {
	rows, err := s.db.Query(`SELECT id, client_id, stage_id, funnel_channel_id, funnel_id, channel_id,
			assigned_user_id, status, last_interaction, created_at, updated_at
		FROM client_progressions
		WHERE client_id = ? AND status = ?
		ORDER BY created_at DESC`, clientID, models.ProgressionStatusActive)
	if err != nil {
		slog.Error("SQLiteStore.ListActiveProgressions query failed", "error", err, "clientID", clientID)
		return nil, fmt.Errorf("failed to query progressions: %w", err)
	}
	defer rows.Close()
	var progs []models.ClientProgression
	for rows.Next() {
		p, err := scanProgression(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progression row: %w", err)
		}
		progs = append(progs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate progression rows: %w", err)
	}
	return progs, nil
}

// GetProgression returns the progression with the given id, or nil if absent.
func (s *SQLiteStore) GetProgression(id string) (*models.ClientProgression, error) {
	row := s.db.QueryRow(`SELECT id, client_id, stage_id, funnel_channel_id, funnel_id, channel_id,
			assigned_user_id, status, last_interaction, created_at, updated_at
		FROM client_progressions WHERE id = ?`, id)
	p, err := scanProgression(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progression %s: %w", id, err)
	}
	return &p, nil
}

// SaveProgression inserts or updates a progression record.
func (s *SQLiteStore) SaveProgression(p models.ClientProgression) error {
	_, err := s.db.Exec(`INSERT INTO client_progressions
			(id, client_id, stage_id, funnel_channel_id, funnel_id, channel_id, assigned_user_id, status, last_interaction, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			stage_id = excluded.stage_id,
			assigned_user_id = excluded.assigned_user_id,
			status = excluded.status,
			last_interaction = excluded.last_interaction,
			updated_at = excluded.updated_at`,
		p.ID, p.ClientID, p.StageID, p.FunnelChannelID, p.FunnelID, p.ChannelID,
		nilIfEmpty(p.AssignedUserID), p.Status, p.LastInteraction, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore.SaveProgression failed", "error", err, "id", p.ID)
		return fmt.Errorf("failed to save progression %s: %w", p.ID, err)
	}
	return nil
}

// UpdateProgressionStage applies a targeted stage update keyed by progression id.
func (s *SQLiteStore) UpdateProgressionStage(progressionID, stageID string) error {
	res, err := s.db.Exec(`UPDATE client_progressions
		SET stage_id = ?, last_interaction = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, stageID, progressionID)
	if err != nil {
		slog.Error("SQLiteStore.UpdateProgressionStage failed", "error", err, "progressionID", progressionID)
		return fmt.Errorf("failed to update progression stage: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrProgressionNotFound
	}
	slog.Debug("SQLiteStore.UpdateProgressionStage succeeded", "progressionID", progressionID, "stageID", stageID)
	return nil
}

// UpdateAssignedUser sets or clears (empty userID) the assigned human agent.
func (s *SQLiteStore) UpdateAssignedUser(progressionID, userID string) error {
	res, err := s.db.Exec(`UPDATE client_progressions
		SET assigned_user_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, nilIfEmpty(userID), progressionID)
	if err != nil {
		slog.Error("SQLiteStore.UpdateAssignedUser failed", "error", err, "progressionID", progressionID)
		return fmt.Errorf("failed to update assigned user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrProgressionNotFound
	}
	return nil
}

// GetStage returns the stage with the given id, or nil if absent.
func (s *SQLiteStore) GetStage(stageID string) (*models.Stage, error) {
	row := s.db.QueryRow(`SELECT id, company_id, funnel_id, name, stage_order, bot_id
		FROM stages WHERE id = ?`, stageID)
	st, err := scanStage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stage %s: %w", stageID, err)
	}
	return &st, nil
}

// GetFirstStage returns the funnel's order-0 entry stage, or nil if absent.
func (s *SQLiteStore) GetFirstStage(funnelID string) (*models.Stage, error) {
	row := s.db.QueryRow(`SELECT id, company_id, funnel_id, name, stage_order, bot_id
		FROM stages WHERE funnel_id = ? ORDER BY stage_order ASC LIMIT 1`, funnelID)
	st, err := scanStage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get first stage of funnel %s: %w", funnelID, err)
	}
	return &st, nil
}

// SaveStage inserts or updates a stage.
func (s *SQLiteStore) SaveStage(st models.Stage) error {
	_, err := s.db.Exec(`INSERT INTO stages (id, company_id, funnel_id, name, stage_order, bot_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			stage_order = excluded.stage_order,
			bot_id = excluded.bot_id,
			updated_at = CURRENT_TIMESTAMP`,
		st.ID, st.CompanyID, st.FunnelID, st.Name, st.Order, nilIfEmpty(st.BotID))
	if err != nil {
		slog.Error("SQLiteStore.SaveStage failed", "error", err, "id", st.ID)
		return fmt.Errorf("failed to save stage %s: %w", st.ID, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
