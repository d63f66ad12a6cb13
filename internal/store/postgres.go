// Package store provides storage backends for FunnelPipe.
//
// This file implements a PostgreSQL-backed store for function definitions,
// stages, and client progressions.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/BTreeMap/FunnelPipe/internal/models"
	"github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	// Configure connection pool for better performance
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}
	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

// isPostgresUniqueViolation reports whether err is a unique-index violation on
// the external name index.
func isPostgresUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" && pqErr.Constraint == "idx_functions_external_name"
	}
	return false
}

// GetFunction returns the definition with the given id, or nil if absent.
func (s *PostgresStore) GetFunction(id string) (*models.FunctionDefinition, error) {
	row := s.db.QueryRow(`SELECT id, company_id, kind, external_name, parameters, const_data, created_at, updated_at
		FROM functions WHERE id = $1`, id)
	def, err := scanFunction(row)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore.GetFunction: not found", "id", id)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore.GetFunction failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to get function %s: %w", id, err)
	}
	return &def, nil
}

// ListFunctionsByCompany returns all definitions owned by a tenant.
func (s *PostgresStore) ListFunctionsByCompany(companyID string) ([]models.FunctionDefinition, error) {
	rows, err := s.db.Query(`SELECT id, company_id, kind, external_name, parameters, const_data, created_at, updated_at
		FROM functions WHERE company_id = $1 ORDER BY created_at DESC`, companyID)
	if err != nil {
		slog.Error("PostgresStore.ListFunctionsByCompany query failed", "error", err, "companyID", companyID)
		return nil, fmt.Errorf("failed to query functions: %w", err)
	}
	defer rows.Close()
	var defs []models.FunctionDefinition
	for rows.Next() {
		def, err := scanFunction(rows)
		if err != nil {
			slog.Error("PostgresStore.ListFunctionsByCompany scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan function row: %w", err)
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate function rows: %w", err)
	}
	slog.Debug("PostgresStore.ListFunctionsByCompany succeeded", "companyID", companyID, "count", len(defs))
	return defs, nil
}

// SaveFunction inserts or updates a definition. Returns ErrExternalNameConflict
// when the external name collides with another row's.
func (s *PostgresStore) SaveFunction(def models.FunctionDefinition) error {
	parametersJSON, constDataJSON, err := marshalFunction(def)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO functions (id, company_id, kind, external_name, parameters, const_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			kind = EXCLUDED.kind,
			external_name = EXCLUDED.external_name,
			parameters = EXCLUDED.parameters,
			const_data = EXCLUDED.const_data,
			updated_at = EXCLUDED.updated_at`,
		def.ID, def.CompanyID, def.Kind, def.ExternalName,
		parametersJSON, constDataJSON, def.CreatedAt, def.UpdatedAt)
	if err != nil {
		if isPostgresUniqueViolation(err) {
			slog.Warn("PostgresStore.SaveFunction: external name conflict", "externalName", def.ExternalName)
			return ErrExternalNameConflict
		}
		slog.Error("PostgresStore.SaveFunction failed", "error", err, "id", def.ID)
		return fmt.Errorf("failed to save function %s: %w", def.ID, err)
	}
	slog.Debug("PostgresStore.SaveFunction succeeded", "id", def.ID, "externalName", def.ExternalName)
	return nil
}

// DeleteFunction removes a definition, scoped to the owning tenant.
func (s *PostgresStore) DeleteFunction(id, companyID string) error {
	res, err := s.db.Exec(`DELETE FROM functions WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		slog.Error("PostgresStore.DeleteFunction failed", "error", err, "id", id)
		return fmt.Errorf("failed to delete function %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrFunctionNotFound
	}
	slog.Debug("PostgresStore.DeleteFunction succeeded", "id", id, "companyID", companyID)
	return nil
}

// ListActiveProgressions returns a client's ACTIVE progressions, newest first.
func (s *PostgresStore) ListActiveProgressions(clientID string) ([]models.ClientProgression, error) {
	rows, err := s.db.Query(`SELECT id, client_id, stage_id, funnel_channel_id, funnel_id, channel_id,
			assigned_user_id, status, last_interaction, created_at, updated_at
		FROM client_progressions
		WHERE client_id = $1 AND status = $2
		ORDER BY created_at DESC`, clientID, models.ProgressionStatusActive)
	if err != nil {
		slog.Error("PostgresStore.ListActiveProgressions query failed", "error", err, "clientID", clientID)
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
func (s *PostgresStore) GetProgression(id string) (*models.ClientProgression, error) {
	row := s.db.QueryRow(`SELECT id, client_id, stage_id, funnel_channel_id, funnel_id, channel_id,
			assigned_user_id, status, last_interaction, created_at, updated_at
		FROM client_progressions WHERE id = $1`, id)
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
func (s *PostgresStore) SaveProgression(p models.ClientProgression) error {
	_, err := s.db.Exec(`INSERT INTO client_progressions
			(id, client_id, stage_id, funnel_channel_id, funnel_id, channel_id, assigned_user_id, status, last_interaction, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			stage_id = EXCLUDED.stage_id,
			assigned_user_id = EXCLUDED.assigned_user_id,
			status = EXCLUDED.status,
			last_interaction = EXCLUDED.last_interaction,
			updated_at = EXCLUDED.updated_at`,
		p.ID, p.ClientID, p.StageID, p.FunnelChannelID, p.FunnelID, p.ChannelID,
		nilIfEmpty(p.AssignedUserID), p.Status, p.LastInteraction, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore.SaveProgression failed", "error", err, "id", p.ID)
		return fmt.Errorf("failed to save progression %s: %w", p.ID, err)
	}
	return nil
}

// UpdateProgressionStage applies a targeted stage update keyed by progression id.
func (s *PostgresStore) UpdateProgressionStage(progressionID, stageID string) error {
	res, err := s.db.Exec(`UPDATE client_progressions
		SET stage_id = $1, last_interaction = NOW(), updated_at = NOW()
		WHERE id = $2`, stageID, progressionID)
	if err != nil {
		slog.Error("PostgresStore.UpdateProgressionStage failed", "error", err, "progressionID", progressionID)
		return fmt.Errorf("failed to update progression stage: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrProgressionNotFound
	}
	slog.Debug("PostgresStore.UpdateProgressionStage succeeded", "progressionID", progressionID, "stageID", stageID)
	return nil
}

// UpdateAssignedUser sets or clears (empty userID) the assigned human agent.
func (s *PostgresStore) UpdateAssignedUser(progressionID, userID string) error {
	res, err := s.db.Exec(`UPDATE client_progressions
		SET assigned_user_id = $1, updated_at = NOW()
		WHERE id = $2`, nilIfEmpty(userID), progressionID)
	if err != nil {
		slog.Error("PostgresStore.UpdateAssignedUser failed", "error", err, "progressionID", progressionID)
		return fmt.Errorf("failed to update assigned user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrProgressionNotFound
	}
	return nil
}

// GetStage returns the stage with the given id, or nil if absent.
func (s *PostgresStore) GetStage(stageID string) (*models.Stage, error) {
	row := s.db.QueryRow(`SELECT id, company_id, funnel_id, name, stage_order, bot_id
		FROM stages WHERE id = $1`, stageID)
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
func (s *PostgresStore) GetFirstStage(funnelID string) (*models.Stage, error) {
	row := s.db.QueryRow(`SELECT id, company_id, funnel_id, name, stage_order, bot_id
		FROM stages WHERE funnel_id = $1 ORDER BY stage_order ASC LIMIT 1`, funnelID)
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
func (s *PostgresStore) SaveStage(st models.Stage) error {
	_, err := s.db.Exec(`INSERT INTO stages (id, company_id, funnel_id, name, stage_order, bot_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			stage_order = EXCLUDED.stage_order,
			bot_id = EXCLUDED.bot_id,
			updated_at = NOW()`,
		st.ID, st.CompanyID, st.FunnelID, st.Name, st.Order, nilIfEmpty(st.BotID))
	if err != nil {
		slog.Error("PostgresStore.SaveStage failed", "error", err, "id", st.ID)
		return fmt.Errorf("failed to save stage %s: %w", st.ID, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
